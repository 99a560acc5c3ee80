// FilePath: cmd/main.go
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/FajarFE/Waterm-sub001/internal/config"
	"github.com/FajarFE/Waterm-sub001/internal/server"
	tm "github.com/buger/goterm"
	nuts "github.com/vaudience/go-nuts"
)

func main() {
	// Clear console and draw logo
	ClearConsole()
	DrawLogo()
	// Initialize version info
	nuts.InitVersion()
	nuts.L.Infof("[Main] Starting Waterm Gateway v%s", nuts.GetVersion())

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Create and start server
	srv := server.New(cfg)
	if err := srv.Start(); err != nil {
		nuts.L.Errorf("[Main] Server error: %v", err)
		os.Exit(1)
	}
}

// ClearConsole clears the console screen and draws the logo.
func ClearConsole() {
	tm.Clear()
	tm.MoveCursor(1, 1)
	tm.Flush()
}

func DrawLogo() {
	fmt.Println()
	lines := []string{
		" _       __      __                      ",
		"| |     / /___ _/ /____  _________ ___   ",
		"| | /| / / __ `/ __/ _ \\/ ___/ __ `__ \\  ",
		"| |/ |/ / /_/ / /_/  __/ /  / / / / / /  ",
		"|__/|__/\\__,_/\\__/\\___/_/  /_/ /_/ /_/   ",
		".........................................  " + nuts.GetVersion(),
	}

	for _, line := range lines {
		fmt.Println(line)
	}
}
