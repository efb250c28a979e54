package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config represents the main structure mapping the entire application configuration.
// This struct uses mapstructure tags to map YAML keys and environment variables to Go fields.
type Config struct {
	// Server configuration section containing HTTP server settings
	Server struct {
		Port                   int    `mapstructure:"port"`                     // HTTP server port (default: 8080)
		BaseURL                string `mapstructure:"base_url"`                 // Base URL for building full short links
		ShutdownTimeoutSeconds int    `mapstructure:"shutdown_timeout_seconds"` // Grace period for in-flight requests
		// Proxies allowed to set X-Forwarded-For; empty means the client IP is the peer address
		TrustedProxies []string `mapstructure:"trusted_proxies"`
	} `mapstructure:"server"`

	// Database configuration section
	Database struct {
		Driver string `mapstructure:"driver"` // sqlite, postgres or libsql
		Name   string `mapstructure:"name"`   // SQLite database file name
		DSN    string `mapstructure:"dsn"`    // Connection string for postgres and libsql
	} `mapstructure:"database"`

	// Auth configuration for the bearer token boundary
	Auth struct {
		JWTSecret string `mapstructure:"jwt_secret"`
	} `mapstructure:"auth"`

	// Analytics configuration for asynchronous visit recording
	Analytics struct {
		BufferSize  int    `mapstructure:"buffer_size"`  // Size of the visit event channel buffer
		WorkerCount int    `mapstructure:"worker_count"` // Number of worker goroutines persisting visits
		BrokerURL   string `mapstructure:"broker_url"`   // AMQP URL; empty means in-process channel only
		QueueName   string `mapstructure:"queue_name"`   // AMQP queue carrying visit events
	} `mapstructure:"analytics"`

	// Cache configuration for link statistics
	Cache struct {
		Driver        string `mapstructure:"driver"` // none, memory or redis
		TTLSeconds    int    `mapstructure:"ttl_seconds"`
		RedisAddr     string `mapstructure:"redis_addr"`
		RedisPassword string `mapstructure:"redis_password"`
		RedisDB       int    `mapstructure:"redis_db"`
	} `mapstructure:"cache"`

	// Monitor configuration for destination URL health checking
	Monitor struct {
		Enabled         bool `mapstructure:"enabled"`
		IntervalMinutes int  `mapstructure:"interval_minutes"` // Interval in minutes between health checks
	} `mapstructure:"monitor"`

	// Log configuration, consumed by internal/logger
	Log struct {
		Level      string `mapstructure:"level"`
		Format     string `mapstructure:"format"` // json or text
		Output     string `mapstructure:"output"` // stdout, stderr or a file path (rotated)
		MaxSizeMB  int    `mapstructure:"max_size_mb"`
		MaxBackups int    `mapstructure:"max_backups"`
		MaxAgeDays int    `mapstructure:"max_age_days"`
		GormLevel  string `mapstructure:"gorm_level"`
	} `mapstructure:"log"`

	// Sentry configuration; an empty DSN disables reporting
	Sentry struct {
		DSN         string `mapstructure:"dsn"`
		Environment string `mapstructure:"environment"`
	} `mapstructure:"sentry"`
}

// LoadConfig loads the application configuration using Viper.
// It supports environment variable overrides and an optional YAML file in ./configs.
func LoadConfig() (*Config, error) {
	return load("./configs")
}

func load(paths ...string) (*Config, error) {
	v := viper.New()

	// Environment variables override everything: "server.port" becomes "SERVER_PORT"
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Pas de fichier : on garde les valeurs par défaut et l'environnement.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults registers a default for every key so that AutomaticEnv can
// resolve them during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("server.shutdown_timeout_seconds", 10)
	v.SetDefault("server.trusted_proxies", []string{})

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.name", "linkstats.db")
	v.SetDefault("database.dsn", "")

	v.SetDefault("auth.jwt_secret", "")

	v.SetDefault("analytics.buffer_size", 1000)
	v.SetDefault("analytics.worker_count", 5)
	v.SetDefault("analytics.broker_url", "")
	v.SetDefault("analytics.queue_name", "visit_events")

	v.SetDefault("cache.driver", "none")
	v.SetDefault("cache.ttl_seconds", 30)
	v.SetDefault("cache.redis_addr", "localhost:6379")
	v.SetDefault("cache.redis_password", "")
	v.SetDefault("cache.redis_db", 0)

	v.SetDefault("monitor.enabled", false)
	v.SetDefault("monitor.interval_minutes", 5)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output", "stdout")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)
	v.SetDefault("log.gorm_level", "warn")

	v.SetDefault("sentry.dsn", "")
	v.SetDefault("sentry.environment", "development")
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres", "libsql":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	switch c.Cache.Driver {
	case "none", "memory", "redis":
	default:
		return fmt.Errorf("unsupported cache driver %q", c.Cache.Driver)
	}
	if c.Analytics.WorkerCount < 1 {
		return fmt.Errorf("analytics.worker_count must be at least 1, got %d", c.Analytics.WorkerCount)
	}
	if c.Analytics.BufferSize < 0 {
		return fmt.Errorf("analytics.buffer_size must not be negative, got %d", c.Analytics.BufferSize)
	}
	return nil
}
