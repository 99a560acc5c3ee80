package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the service
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Gateway  GatewayConfig
	Token    TokenConfig
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Host            string        `mapstructure:"host"`
	AllowedOrigin   string        `mapstructure:"allowed_origin"`
	InternalAPIKey  string        `mapstructure:"internal_api_key"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// GatewayConfig controls the ingestion gateway and its persistence bridge.
// SaveInterval is the process-wide minimum elapsed time between two persisted
// samples for the same device. MaxDeviceStates bounds the in-memory state
// map; zero means entries are never evicted.
type GatewayConfig struct {
	SaveInterval    time.Duration `mapstructure:"save_interval"`
	BroadcastScope  string        `mapstructure:"broadcast_scope"`
	MaxDeviceStates int           `mapstructure:"max_device_states"`
	SendBuffer      int           `mapstructure:"send_buffer"`
	SampleRetention time.Duration `mapstructure:"sample_retention"`
}

type TokenConfig struct {
	Secret string        `mapstructure:"secret"`
	TTL    time.Duration `mapstructure:"ttl"`
}

// Broadcast scope values
const (
	BroadcastScopeGlobal = "global"
	BroadcastScopeOwner  = "owner"
)

// Load initializes configuration from environment variables and config file
func Load() (*Config, error) {
	viper.SetEnvPrefix("WATERM")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "__"))
	viper.AutomaticEnv()

	// Set defaults
	setDefaults()

	// Load config file if exists
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation error: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("server.port", 8090)
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.allowed_origin", "http://localhost:3000")
	viper.SetDefault("server.read_timeout", "15s")
	viper.SetDefault("server.write_timeout", "15s")
	viper.SetDefault("server.shutdown_timeout", "30s")

	// Database defaults
	viper.SetDefault("database.postgres.sslmode", "disable")

	// Redis defaults
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.cache_ttl", "5m")

	// Gateway defaults
	viper.SetDefault("gateway.save_interval", "60s")
	viper.SetDefault("gateway.broadcast_scope", BroadcastScopeGlobal)
	viper.SetDefault("gateway.max_device_states", 0)
	viper.SetDefault("gateway.send_buffer", 64)
	viper.SetDefault("gateway.sample_retention", "8760h") // 1 year

	// Token defaults
	viper.SetDefault("token.ttl", "1h")
}

func validateConfig(config *Config) error {
	if config.Database.Postgres.Host == "" {
		return fmt.Errorf("postgres host is required")
	}
	if config.Token.Secret == "" {
		return fmt.Errorf("token secret is required")
	}
	switch config.Gateway.BroadcastScope {
	case BroadcastScopeGlobal, BroadcastScopeOwner:
	default:
		return fmt.Errorf("invalid broadcast scope %q", config.Gateway.BroadcastScope)
	}
	if config.Gateway.SaveInterval <= 0 {
		return fmt.Errorf("gateway save interval must be positive")
	}
	return nil
}
