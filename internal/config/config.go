package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// Storage backends
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Config holds all configuration for the rule engine
type Config struct {
	// HTTP configuration
	HTTPPort           int           `env:"HTTP_PORT" envDefault:"3000"`
	CORSAllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
	ShutdownTimeout    time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// Storage configuration
	StoreBackend string `env:"STORE_BACKEND" envDefault:"memory"`
	SQLitePath   string `env:"SQLITE_PATH" envDefault:"rules.db"`

	// Redis configuration
	RedisAddr      string `env:"REDIS_ADDR"`
	RedisPassword  string `env:"REDIS_PASS" envDefault:""`
	RedisDB        int    `env:"REDIS_DB" envDefault:"0"`
	RedisKeyPrefix string `env:"REDIS_KEY_PREFIX" envDefault:"rule:"`

	// Stream worker configuration
	StreamEnabled bool          `env:"STREAM_ENABLED" envDefault:"false"`
	WorkerID      string        `env:"WORKER_ID" envDefault:"rule-engine-1"`
	StreamKey     string        `env:"STREAM_KEY" envDefault:"rules.evaluate"`
	ConsumerGroup string        `env:"CONSUMER_GROUP" envDefault:"rule-workers"`
	ResultStream  string        `env:"RESULT_STREAM" envDefault:"rules.evaluated"`
	BlockTime     time.Duration `env:"BLOCK_TIME" envDefault:"1s"`

	// Combined rule naming
	CombinedNamePrefix string `env:"COMBINED_NAME_PREFIX" envDefault:"combined"`
	CombinedNameLength int    `env:"COMBINED_NAME_LENGTH" envDefault:"8"`

	// Features
	MetricsEnabled bool `env:"METRICS_ENABLED" envDefault:"true"`
	CELEnabled     bool `env:"CEL_ENABLED" envDefault:"true"`

	// Logging configuration
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}

	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("SHUTDOWN_TIMEOUT must be positive")
	}

	switch c.StoreBackend {
	case BackendMemory:
	case BackendSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for the sqlite backend")
		}
	case BackendRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required for the redis backend")
		}
	default:
		return fmt.Errorf("STORE_BACKEND must be one of: memory, sqlite, redis")
	}

	if c.StreamEnabled {
		if c.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required when STREAM_ENABLED is set")
		}
		if c.WorkerID == "" {
			return fmt.Errorf("WORKER_ID is required")
		}
		if c.StreamKey == "" {
			return fmt.Errorf("STREAM_KEY is required")
		}
		if c.ConsumerGroup == "" {
			return fmt.Errorf("CONSUMER_GROUP is required")
		}
		if c.ResultStream == "" {
			return fmt.Errorf("RESULT_STREAM is required")
		}
		if c.BlockTime <= 0 {
			return fmt.Errorf("BLOCK_TIME must be positive")
		}
	}

	if c.CombinedNameLength < 4 || c.CombinedNameLength > 64 {
		return fmt.Errorf("COMBINED_NAME_LENGTH must be between 4 and 64")
	}

	if !isValidLogLevel(c.LogLevel) {
		return fmt.Errorf("LOG_LEVEL must be one of: debug, info, warn, error")
	}

	return nil
}

// isValidLogLevel checks if the log level is valid
func isValidLogLevel(level string) bool {
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	return validLevels[level]
}

// UsesRedis reports whether any component needs a Redis connection
func (c *Config) UsesRedis() bool {
	return c.StoreBackend == BackendRedis || c.StreamEnabled
}

// String returns a string representation of the config (without sensitive data)
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{HTTPPort=%d, StoreBackend=%s, SQLitePath=%s, RedisAddr=%s, RedisDB=%d, "+
			"StreamEnabled=%v, WorkerID=%s, StreamKey=%s, ConsumerGroup=%s, "+
			"MetricsEnabled=%v, CELEnabled=%v, LogLevel=%s}",
		c.HTTPPort,
		c.StoreBackend,
		c.SQLitePath,
		c.RedisAddr,
		c.RedisDB,
		c.StreamEnabled,
		c.WorkerID,
		c.StreamKey,
		c.ConsumerGroup,
		c.MetricsEnabled,
		c.CELEnabled,
		c.LogLevel,
	)
}
