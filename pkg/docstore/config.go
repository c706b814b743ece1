package docstore

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds Postgres connection settings for the document store.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// LoadConfigFromEnv loads Config from DOCSTORE_* environment variables with
// production-ready defaults, following the same shape as the rest of the
// gateway's env-backed configuration.
func LoadConfigFromEnv() (Config, error) {
	port, err := strconv.Atoi(getEnvOrDefault("DOCSTORE_PORT", "5432"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid DOCSTORE_PORT: %w", err)
	}

	maxOpen, _ := strconv.Atoi(getEnvOrDefault("DOCSTORE_MAX_OPEN_CONNS", "25"))
	maxIdle, _ := strconv.Atoi(getEnvOrDefault("DOCSTORE_MAX_IDLE_CONNS", "10"))

	maxLifetime, err := time.ParseDuration(getEnvOrDefault("DOCSTORE_CONN_MAX_LIFETIME", "1h"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid DOCSTORE_CONN_MAX_LIFETIME: %w", err)
	}
	maxIdleTime, err := time.ParseDuration(getEnvOrDefault("DOCSTORE_CONN_MAX_IDLE_TIME", "15m"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid DOCSTORE_CONN_MAX_IDLE_TIME: %w", err)
	}

	cfg := Config{
		Host:            getEnvOrDefault("DOCSTORE_HOST", "localhost"),
		Port:            port,
		User:            getEnvOrDefault("DOCSTORE_USER", "otto"),
		Password:        os.Getenv("DOCSTORE_PASSWORD"),
		Database:        getEnvOrDefault("DOCSTORE_NAME", "otto_gateway"),
		SSLMode:         getEnvOrDefault("DOCSTORE_SSLMODE", "disable"),
		MaxOpenConns:    maxOpen,
		MaxIdleConns:    maxIdle,
		ConnMaxLifetime: maxLifetime,
		ConnMaxIdleTime: maxIdleTime,
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration is internally consistent.
func (c Config) Validate() error {
	if c.Password == "" {
		return fmt.Errorf("DOCSTORE_PASSWORD is required")
	}
	if c.MaxOpenConns < 1 {
		return fmt.Errorf("DOCSTORE_MAX_OPEN_CONNS must be at least 1")
	}
	if c.MaxIdleConns < 0 {
		return fmt.Errorf("DOCSTORE_MAX_IDLE_CONNS cannot be negative")
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		return fmt.Errorf("DOCSTORE_MAX_IDLE_CONNS (%d) cannot exceed DOCSTORE_MAX_OPEN_CONNS (%d)",
			c.MaxIdleConns, c.MaxOpenConns)
	}
	return nil
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
