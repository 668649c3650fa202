package config

import "time"

// Default values applied by ApplyDefaults when the corresponding field is
// unset. Port 8001 matches the service's historical deployment; the llama
// defaults match a locally-run llama-server instance.
const (
	DefaultServerHost      = "0.0.0.0"
	DefaultServerPort      = 8001
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 10 * time.Minute
	DefaultShutdownTimeout = 15 * time.Second

	DefaultDataDriver = "csv"
	DefaultCSVDir     = "./data"

	DefaultPostgresPort     = 5432
	DefaultPostgresSSLMode  = "disable"
	DefaultPostgresMaxConns = 10

	DefaultMigrationsDir = "internal/infrastructure/datasource/postgres/migrations"

	DefaultLLMBaseURL      = "http://localhost:8080"
	DefaultLLMModel        = "local"
	DefaultLLMMaxTokens    = 512
	DefaultLLMTemperature  = 0.3
	DefaultLLMModelVersion = "explainable-v1"

	DefaultMetricsNamespace = "finsentry"
)

// ApplyDefaults fills in zero-valued fields with the platform defaults.
// It never overrides a value the operator has set explicitly.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = DefaultServerHost
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		// Generous: a blocking completion round-trip rides on the response.
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	if cfg.Data.Driver == "" {
		cfg.Data.Driver = DefaultDataDriver
	}
	if cfg.Data.CSVDir == "" {
		cfg.Data.CSVDir = DefaultCSVDir
	}
	if cfg.Data.Postgres.Port == 0 {
		cfg.Data.Postgres.Port = DefaultPostgresPort
	}
	if cfg.Data.Postgres.SSLMode == "" {
		cfg.Data.Postgres.SSLMode = DefaultPostgresSSLMode
	}
	if cfg.Data.Postgres.MaxConns == 0 {
		cfg.Data.Postgres.MaxConns = DefaultPostgresMaxConns
	}
	if cfg.Data.Postgres.MigrationsDir == "" {
		cfg.Data.Postgres.MigrationsDir = DefaultMigrationsDir
	}

	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = DefaultLLMBaseURL
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = DefaultLLMModel
	}
	if cfg.LLM.MaxTokens == 0 {
		cfg.LLM.MaxTokens = DefaultLLMMaxTokens
	}
	if cfg.LLM.Temperature == 0 {
		cfg.LLM.Temperature = DefaultLLMTemperature
	}
	if cfg.LLM.ModelVersion == "" {
		cfg.LLM.ModelVersion = DefaultLLMModelVersion
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}

	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
}
