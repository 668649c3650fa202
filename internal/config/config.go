// Package config provides configuration loading, defaults, and validation for
// the AML-Insight service.
package config

import (
	"fmt"
	"time"

	"github.com/finsentry/aml-insight/internal/infrastructure/monitoring/logging"
)

// Config is the root configuration object for every binary in the service.
// Fields are populated from a YAML file and/or FINSENTRY_* environment
// variables; see loader.go.
type Config struct {
	Server  ServerConfig      `mapstructure:"server"`
	Data    DataConfig        `mapstructure:"data"`
	LLM     LLMConfig         `mapstructure:"llm"`
	Log     logging.LogConfig `mapstructure:"log"`
	Metrics MetricsConfig     `mapstructure:"metrics"`
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	// AllowedOrigins is the CORS allow-list. An empty list disables CORS
	// headers entirely; "*" allows any origin.
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Addr returns the host:port listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DataConfig selects and parameterises the partner data source.
type DataConfig struct {
	// Driver selects the backend: "csv" or "postgres".
	Driver string `mapstructure:"driver"`

	// CSVDir is the directory holding the seven partner CSV tables.
	// Only used when Driver == "csv".
	CSVDir string `mapstructure:"csv_dir"`

	Postgres PostgresConfig `mapstructure:"postgres"`
}

// PostgresConfig holds PostgreSQL connection settings.
// Only used when data.driver == "postgres".
type PostgresConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	User          string `mapstructure:"user"`
	Password      string `mapstructure:"password"`
	Database      string `mapstructure:"database"`
	SSLMode       string `mapstructure:"ssl_mode"`
	MaxConns      int32  `mapstructure:"max_conns"`
	MigrationsDir string `mapstructure:"migrations_dir"`
}

// DSN returns the PostgreSQL connection string.
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode)
}

// LLMConfig holds settings for the llama-server generation backend.
type LLMConfig struct {
	// BaseURL is the root of the OpenAI-compatible API,
	// e.g. "http://localhost:8080".
	BaseURL string `mapstructure:"base_url"`

	// Model is the model name sent in completion requests. llama-server
	// ignores it but OpenAI-compatible proxies route on it.
	Model string `mapstructure:"model"`

	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`

	// Timeout bounds a single completion round-trip. Zero means no
	// client-side timeout; generation on CPU-bound hosts can take minutes.
	Timeout time.Duration `mapstructure:"timeout"`

	// ModelVersion tags risk metadata written into profiles.
	ModelVersion string `mapstructure:"model_version"`
}

// MetricsConfig controls the Prometheus exposition endpoint.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
}

// Validate checks the configuration for internally inconsistent or
// out-of-range values. It is called by the loader after defaults are applied.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in [1, 65535], got %d", c.Server.Port)
	}

	switch c.Data.Driver {
	case "csv":
		if c.Data.CSVDir == "" {
			return fmt.Errorf("data.csv_dir is required when data.driver is csv")
		}
	case "postgres":
		if c.Data.Postgres.Host == "" {
			return fmt.Errorf("data.postgres.host is required when data.driver is postgres")
		}
		if c.Data.Postgres.Database == "" {
			return fmt.Errorf("data.postgres.database is required when data.driver is postgres")
		}
	default:
		return fmt.Errorf("data.driver must be csv or postgres, got %q", c.Data.Driver)
	}

	if c.LLM.BaseURL == "" {
		return fmt.Errorf("llm.base_url is required")
	}
	if c.LLM.MaxTokens < 1 {
		return fmt.Errorf("llm.max_tokens must be positive, got %d", c.LLM.MaxTokens)
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("llm.temperature must be in [0, 2], got %g", c.LLM.Temperature)
	}

	return nil
}
