// Package config handles application configuration loading from environment
// variables. It provides a centralized Config struct used across the application.
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration values loaded from the environment.
type Config struct {
	// Server settings
	Host      string
	Port      string
	Env       string // "development", "production", "testing"
	LogFormat string // "text" or "json"

	// Relational store: "postgres" or "sqlite"
	DBDriver string

	// PostgreSQL connection
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// SQLite database file
	SQLitePath string

	// Valkey (Redis-compatible token store)
	ValkeyHost     string
	ValkeyPort     string
	ValkeyPassword string
	ValkeyDB       int

	// API behaviour
	SessionTTL time.Duration
	PageSize   int
	SignInRate int // sign-in attempts per client per minute
	ViewRate   int // view pushes per client per minute
}

// Load reads configuration from environment variables, applying defaults
// for development where appropriate. Returns an error if critical values
// are missing in production mode or a value cannot be parsed.
func Load() (*Config, error) {
	cfg := &Config{
		Host: envOrDefault("APP_HOST", "0.0.0.0"),
		Port: envOrDefault("APP_PORT", "8080"),
		Env:  envOrDefault("APP_ENV", "development"),

		DBDriver: envOrDefault("DB_DRIVER", "postgres"),

		DBHost:     envOrDefault("POSTGRES_HOST", "localhost"),
		DBPort:     envOrDefault("POSTGRES_PORT", "5432"),
		DBUser:     envOrDefault("POSTGRES_USER", "clomery"),
		DBPassword: envOrDefault("POSTGRES_PASSWORD", "changeme"),
		DBName:     envOrDefault("POSTGRES_DB", "clomery"),

		SQLitePath: envOrDefault("SQLITE_PATH", "clomery.db"),

		ValkeyHost:     envOrDefault("VALKEY_HOST", "localhost"),
		ValkeyPort:     envOrDefault("VALKEY_PORT", "6379"),
		ValkeyPassword: os.Getenv("VALKEY_PASSWORD"),
	}

	defaultFormat := "json"
	if cfg.IsDev() {
		defaultFormat = "text"
	}
	cfg.LogFormat = envOrDefault("LOG_FORMAT", defaultFormat)
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return nil, fmt.Errorf("LOG_FORMAT must be text or json, got %q", cfg.LogFormat)
	}

	if cfg.DBDriver != "postgres" && cfg.DBDriver != "sqlite" {
		return nil, fmt.Errorf("DB_DRIVER must be postgres or sqlite, got %q", cfg.DBDriver)
	}

	var err error
	if cfg.ValkeyDB, err = envInt("VALKEY_DB", 0); err != nil {
		return nil, err
	}
	if cfg.PageSize, err = envInt("PAGE_SIZE", 10); err != nil {
		return nil, err
	}
	if cfg.SignInRate, err = envInt("SIGNIN_RATE", 10); err != nil {
		return nil, err
	}
	if cfg.ViewRate, err = envInt("VIEW_RATE", 60); err != nil {
		return nil, err
	}
	if cfg.PageSize < 1 || cfg.SignInRate < 1 || cfg.ViewRate < 1 {
		return nil, fmt.Errorf("PAGE_SIZE, SIGNIN_RATE and VIEW_RATE must be positive")
	}

	ttl := envOrDefault("SESSION_TTL", "24h")
	if cfg.SessionTTL, err = time.ParseDuration(ttl); err != nil || cfg.SessionTTL <= 0 {
		return nil, fmt.Errorf("SESSION_TTL must be a positive duration, got %q", ttl)
	}

	if cfg.Env == "production" && cfg.DBDriver == "postgres" {
		if cfg.DBPassword == "changeme" {
			return nil, fmt.Errorf("POSTGRES_PASSWORD must be set in production")
		}
	}

	return cfg, nil
}

// SQLDriver returns the database/sql driver name for DBDriver.
func (c *Config) SQLDriver() string {
	if c.DBDriver == "sqlite" {
		return "sqlite"
	}
	return "pgx"
}

// DSN returns the connection string for the configured driver: a
// PostgreSQL URL, or the SQLite file path.
func (c *Config) DSN() string {
	if c.DBDriver == "sqlite" {
		return c.SQLitePath
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName,
	)
}

// Addr returns the server listen address (host:port).
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// IsDev returns true if the application is running in development mode.
func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// envOrDefault reads an environment variable, returning a fallback if unset or empty.
func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}
