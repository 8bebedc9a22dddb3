package config

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Load builds the Config from the process environment. A .env file in the
// working directory is merged in first when present (real environment
// variables win). Validation failures abort startup: a process running with
// a broken configuration is worse than one that refuses to start.
func Load(logger *slog.Logger) (*Config, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("loading .env file: %w", err)
		}
		logger.Debug("no .env file found, using OS environment only")
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("processing environment: %w", err)
	}

	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	logger.Info("configuration loaded",
		"environment", cfg.Environment,
		"log_level", cfg.LogLevel,
		"history_source", cfg.HistorySource(),
	)
	return &cfg, nil
}

// HistorySource reports which observation store the configuration selects.
func (c *Config) HistorySource() string {
	if c.Database.URL != "" {
		return "postgres"
	}
	return "csv"
}

// SlogLevel maps the configured log level string onto a slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
