// Package config defines the process configuration for the frostwatch
// binaries. Configuration is loaded once at startup and immutable
// thereafter; it follows 12-Factor principles by strictly separating code
// from configuration.
//
// Values are resolved from the OS environment, with a local dotenv file as a
// development convenience. Any missing required value or invalid format
// fails startup immediately.
package config

import (
	"time"
)

// Config is the top-level configuration struct. It is populated once during
// process initialization and never modified. Sub-components receive only the
// specific subsets they require.
type Config struct {
	// System metadata
	Environment string `envconfig:"APP_ENV" default:"local" validate:"required,oneof=local dev staging prod"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`

	Server   ServerConfig
	Data     DataConfig
	Database DatabaseConfig
	Engine   EngineConfig
	Alerts   AlertConfig
}

// ServerConfig holds HTTP server settings for the API binary.
type ServerConfig struct {
	Port            string        `envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"HTTP_READ_TIMEOUT" default:"10s"`
	WriteTimeout    time.Duration `envconfig:"HTTP_WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"HTTP_SHUTDOWN_TIMEOUT" default:"10s"`
}

// DataConfig holds the paths of the read-only data feeds: station metadata,
// the municipal boundary, observation history, and the model artifact
// bundles.
type DataConfig struct {
	StationsPath  string `envconfig:"STATIONS_CSV" default:"data/stations.csv" validate:"required"`
	PolygonPath   string `envconfig:"BOUNDARY_GEOJSON" default:"data/boundary.geojson" validate:"required"`
	HistoryPath   string `envconfig:"OBSERVATIONS_CSV" default:"data/observations.csv"`
	DedicatedPath string `envconfig:"MODEL_DEDICATED" default:"data/models/dedicated.json.zst" validate:"required"`
	UnifiedPath   string `envconfig:"MODEL_UNIFIED" default:"data/models/unified.json.zst" validate:"required"`
}

// DatabaseConfig holds the optional PostgreSQL observation store settings.
// When URL is empty, the CSV history store is used instead.
type DatabaseConfig struct {
	URL             string        `envconfig:"DATABASE_URL"`
	MaxConns        int           `envconfig:"DB_MAX_CONNS" default:"10"`
	MinConns        int           `envconfig:"DB_MIN_CONNS" default:"2"`
	MaxConnLifetime time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"30m"`
}

// EngineConfig holds prediction engine tuning.
type EngineConfig struct {
	CacheTTL time.Duration `envconfig:"PREDICTION_CACHE_TTL" default:"1h"`
}

// AlertConfig holds settings for the alert worker: the Telegram Bot API
// credentials, chat IDs to deliver to, and the check cadence.
type AlertConfig struct {
	TelegramToken   string        `envconfig:"TELEGRAM_BOT_TOKEN"`
	TelegramBaseURL string        `envconfig:"TELEGRAM_API_URL" default:"https://api.telegram.org"`
	ChatIDs         []string      `envconfig:"ALERT_CHAT_IDS"`
	CheckInterval   time.Duration `envconfig:"ALERT_CHECK_INTERVAL" default:"6h"`
	RequestTimeout  time.Duration `envconfig:"ALERT_REQUEST_TIMEOUT" default:"10s"`
}
