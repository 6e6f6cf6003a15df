// Package config loads server configuration from flags, environment variables
// and an optional .env file.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// Store backends.
const (
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
)

// Config holds the application configuration.
type Config struct {
	App       AppConfig
	Logger    LoggerConfig
	Storage   StorageConfig
	Server    ServerConfig
	Search    SearchConfig
	Worker    WorkerConfig
	RateLimit RateLimitConfig
	Types     TypesConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string `env:"ENV" envDefault:"development"`
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string `env:"LOG_LEVEL" envDefault:"info"`
}

// StorageConfig selects and locates the store.
type StorageConfig struct {
	// DataPath is the directory holding the database files (default: ~/.taggraph).
	DataPath string `env:"DATA_PATH"`
	Backend  string `env:"STORE_BACKEND" envDefault:"sqlite"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port           string        `env:"SERVER_PORT" envDefault:"8080"`
	ReadTimeout    time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout   time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"15s"`
	IdleTimeout    time.Duration `env:"SERVER_IDLE_TIMEOUT" envDefault:"60s"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`
	CORSOrigins    []string      `env:"CORS_ORIGINS" envSeparator:"," envDefault:"*"`
}

// SearchConfig toggles the tag suggestion index.
type SearchConfig struct {
	Enabled bool `env:"SEARCH_ENABLED" envDefault:"true"`
}

// WorkerConfig holds background job configuration.
type WorkerConfig struct {
	// RecountSchedule is a cron spec for usage-count reconciliation. Empty disables it.
	RecountSchedule string `env:"RECOUNT_SCHEDULE" envDefault:"@every 6h"`
}

// RateLimitConfig limits mutating API calls per client.
type RateLimitConfig struct {
	RPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"50"`
	Burst int     `env:"RATE_LIMIT_BURST" envDefault:"100"`
}

// TypesConfig extends the built-in type catalogs.
type TypesConfig struct {
	ExtraItemTypes         []string `env:"EXTRA_ITEM_TYPES" envSeparator:","`
	ExtraRelationshipTypes []string `env:"EXTRA_RELATIONSHIP_TYPES" envSeparator:","`
	// SeedObjectTypes are registered at startup if missing.
	SeedObjectTypes []string `env:"SEED_OBJECT_TYPES" envSeparator:","`
}

// LoadConfig loads configuration from os.Args.
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:])
}

// Load builds a Config with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func Load(args []string) (*Config, error) {
	fs := flag.NewFlagSet("taggraph", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	envName := fs.String("env", "", "Environment (development, staging, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	dataPath := fs.String("data-path", "", "Directory for database files")
	backend := fs.String("store", "", "Store backend (sqlite, badger)")
	port := fs.String("port", "", "Server port (default: 8080)")
	envFile := fs.String("env-file", ".env", "Path to .env file")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	// godotenv never overrides variables that are already set.
	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load env file %s: %w", *envFile, err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	override(&cfg.App.Environment, *envName)
	override(&cfg.Logger.Level, *logLevel)
	override(&cfg.Storage.DataPath, *dataPath)
	override(&cfg.Storage.Backend, *backend)
	override(&cfg.Server.Port, *port)

	if err := cfg.expandDataPath(); err != nil {
		return nil, fmt.Errorf("invalid data path: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all config values are present and valid.
func (c *Config) Validate() error {
	if !slices.Contains([]string{"development", "staging", "production"}, c.App.Environment) {
		return fmt.Errorf("invalid environment: %q (must be development, staging, or production)", c.App.Environment)
	}

	if !slices.Contains([]string{"debug", "info", "warn", "error"}, strings.ToLower(c.Logger.Level)) {
		return fmt.Errorf("invalid log level: %q (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Storage.DataPath == "" {
		return errors.New("data path cannot be empty after expansion")
	}
	if c.Storage.Backend != BackendSQLite && c.Storage.Backend != BackendBadger {
		return fmt.Errorf("invalid store backend: %q (must be sqlite or badger)", c.Storage.Backend)
	}

	if c.Server.Port == "" {
		return errors.New("server port is required")
	}
	for name, d := range map[string]time.Duration{
		"read timeout":    c.Server.ReadTimeout,
		"write timeout":   c.Server.WriteTimeout,
		"idle timeout":    c.Server.IdleTimeout,
		"request timeout": c.Server.RequestTimeout,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}

	if c.RateLimit.RPS < 0 || c.RateLimit.Burst < 0 {
		return errors.New("rate limit values cannot be negative")
	}

	if c.Worker.RecountSchedule != "" {
		if _, err := cron.ParseStandard(c.Worker.RecountSchedule); err != nil {
			return fmt.Errorf("invalid recount schedule %q: %w", c.Worker.RecountSchedule, err)
		}
	}

	return nil
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// StorePath returns the file or directory the configured backend opens.
func (c *Config) StorePath() string {
	if c.Storage.Backend == BackendBadger {
		return filepath.Join(c.Storage.DataPath, "badger")
	}
	return filepath.Join(c.Storage.DataPath, "taggraph.db")
}

// SearchPath returns the bleve index directory.
func (c *Config) SearchPath() string {
	return filepath.Join(c.Storage.DataPath, "search")
}

func override(dst *string, flagValue string) {
	if flagValue != "" {
		*dst = flagValue
	}
}

// expandPath expands ~ and makes the path absolute.
// If path is empty, defaultPath is returned unchanged.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

func (c *Config) expandDataPath() error {
	var defaultPath string
	if c.Storage.DataPath == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		defaultPath = filepath.Join(homeDir, ".taggraph")
	}

	expanded, err := expandPath(c.Storage.DataPath, defaultPath)
	if err != nil {
		return err
	}
	c.Storage.DataPath = expanded
	return nil
}
