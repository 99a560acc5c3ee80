// FilePath: internal/server/server.go
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/FajarFE/Waterm-sub001/api"
	"github.com/FajarFE/Waterm-sub001/internal/config"
	"github.com/FajarFE/Waterm-sub001/internal/database"
	"github.com/FajarFE/Waterm-sub001/internal/gateway"
	"github.com/FajarFE/Waterm-sub001/internal/monitoring"
	"github.com/FajarFE/Waterm-sub001/internal/persistence"
	"github.com/FajarFE/Waterm-sub001/internal/registry"
	"github.com/FajarFE/Waterm-sub001/internal/repository/postgres"
	"github.com/FajarFE/Waterm-sub001/internal/service"
	"github.com/FajarFE/Waterm-sub001/internal/token"
	"github.com/gorilla/handlers"
	"github.com/redis/go-redis/v9"
	nuts "github.com/vaudience/go-nuts"
)

// Server wires the gateway, persistence and HTTP surface together
type Server struct {
	config  *config.Config
	srv     *http.Server
	gateway *gateway.Gateway
	metrics *monitoring.Service
	svc     *service.Service
	db      database.DB
	rdb     *redis.Client
	cancel  context.CancelFunc
}

// New creates a new server instance
func New(cfg *config.Config) *Server {
	return &Server{config: cfg}
}

// Start wires all components, begins listening and blocks until shutdown
func (s *Server) Start() error {
	s.db = s.initDB()
	s.rdb = s.initRedis()

	monitorings, err := postgres.NewMonitoringRepository(s.db)
	if err != nil {
		nuts.L.Fatalf("[Server] Failed to initialize monitoring repository: %v", err)
	}
	samples, err := postgres.NewSampleRepository(s.db)
	if err != nil {
		nuts.L.Fatalf("[Server] Failed to initialize sample repository: %v", err)
	}

	baseRegistry := registry.NewPostgresRegistry(monitorings)
	var deviceRegistry registry.Registry = baseRegistry
	var cached *registry.CachedRegistry
	if s.rdb != nil {
		cached = registry.NewCachedRegistry(baseRegistry, s.rdb, s.config.Redis.CacheTTL)
		deviceRegistry = cached
	}

	issuer := token.NewIssuer(s.config.Token.Secret, s.config.Token.TTL)
	bridge := persistence.NewBridge(deviceRegistry, samples, s.config.Gateway.SaveInterval)
	states := gateway.NewStateStore(s.config.Gateway.MaxDeviceStates)
	s.gateway = gateway.New(s.config.Gateway, states, bridge, issuer, s.config.Server.AllowedOrigin)
	s.metrics = monitoring.NewService()
	s.setupGatewayEvents()

	s.svc = service.New(monitorings, samples, cached, issuer, s.db, s.rdb)
	if err := s.svc.Validate(); err != nil {
		return err
	}

	router := api.NewRouter(s.svc, s.metrics, s.gateway, issuer, s.config.Server.InternalAPIKey)

	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{s.config.Server.AllowedOrigin}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-Internal-Key"}),
		handlers.AllowCredentials(),
	)

	s.srv = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port),
		Handler:      cors(router),
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go s.gateway.Run(ctx)
	go s.retentionSweep(ctx)

	go func() {
		nuts.L.Infof("[Server] Starting server on %s", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			nuts.L.Errorf("[Server] Error starting server: %v", err)
			os.Exit(1)
		}
	}()

	return s.waitForShutdown()
}

// waitForShutdown waits for interrupt signal and gracefully shuts down the server
func (s *Server) waitForShutdown() error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	nuts.L.Infof("[Server] Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
	defer cancel()

	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("error shutting down server: %w", err)
	}

	s.cancel()
	if s.rdb != nil {
		s.rdb.Close()
	}
	s.db.Close()

	nuts.L.Infof("[Server] Server shut down successfully")
	return nil
}

// retentionSweep prunes persisted samples past the retention window once a day
func (s *Server) retentionSweep(ctx context.Context) {
	if s.config.Gateway.SampleRetention <= 0 {
		return
	}
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			cutoff := time.Now().Add(-s.config.Gateway.SampleRetention)
			s.svc.PruneSamples(ctx, cutoff)
		case <-ctx.Done():
			return
		}
	}
}

func (s *Server) setupGatewayEvents() {
	s.gateway.OnEvent(gateway.EventClientConnected, func(role string) {
		s.metrics.RecordEvent("client_connected", map[string]string{"role": role})
	})
	s.gateway.OnEvent(gateway.EventClientDisconnected, func(role string) {
		s.metrics.RecordEvent("client_disconnected", map[string]string{"role": role})
	})
	s.gateway.OnEvent(gateway.EventReadingDropped, func(reason string) {
		s.metrics.RecordEvent("reading_dropped", map[string]string{"reason": reason})
	})
	s.gateway.OnEvent(gateway.EventUpdateBroadcast, func(deviceCode string) {
		s.metrics.RecordEvent("update_broadcast", map[string]string{"device_code": deviceCode})
	})
	s.gateway.OnEvent(gateway.EventPersistScheduled, func(deviceCode string) {
		s.metrics.RecordEvent("persist_scheduled", map[string]string{"device_code": deviceCode})
	})
}

func (s *Server) initDB() database.DB {
	wrappedDB, err := database.NewPostgresDB(s.config.Database.Postgres)
	if err != nil {
		nuts.L.Fatalf("[Server] Failed to connect to Postgres: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := wrappedDB.Ping(ctx); err != nil {
		nuts.L.Fatalf("[Server] Failed to ping database: %v", err)
	}
	return wrappedDB
}

// initRedis returns nil when no redis host is configured; the registry then
// resolves straight from Postgres
func (s *Server) initRedis() *redis.Client {
	if s.config.Redis.Host == "" {
		nuts.L.Infof("[Server] Redis not configured, registry cache disabled")
		return nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", s.config.Redis.Host, s.config.Redis.Port),
		Password: s.config.Redis.Password,
		DB:       s.config.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		nuts.L.Fatalf("[Server] Failed to ping Redis: %v", err)
	}

	nuts.L.Infof("[Server] Connected to Redis at %s:%d", s.config.Redis.Host, s.config.Redis.Port)
	return rdb
}
