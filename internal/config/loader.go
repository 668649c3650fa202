package config

import (
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// envPrefix is the environment variable prefix used by all service settings.
const envPrefix = "FINSENTRY"

// newViper builds a pre-configured Viper instance with the service's standard
// settings: YAML file type, FINSENTRY_ env prefix, automatic env binding, and
// a key replacer that maps "." → "_" so that nested keys like "llm.base_url"
// resolve to "FINSENTRY_LLM_BASE_URL".
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return v
}

// Load reads the YAML file at configPath, merges any FINSENTRY_* environment
// variable overrides, applies defaults for unset fields, and validates the
// result.  It returns a fully-populated *Config or a descriptive error.
func Load(configPath string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(configPath)
	// Unmarshal only consults env vars for keys that are bound, so the file
	// path needs the same bindings as the env-only path for overrides to win.
	bindEnvKeys(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: failed to read config file %q: %w", configPath, err)
	}

	return unmarshalAndFinalize(v)
}

// LoadFromEnv builds a Config entirely from FINSENTRY_* environment variables,
// with no config file required.  This is the preferred loading strategy for
// containerised (12-factor) deployments.
//
// Environment variable naming convention:
//
//	FINSENTRY_<SECTION>_<FIELD>   e.g.  FINSENTRY_SERVER_PORT, FINSENTRY_DATA_CSV_DIR
func LoadFromEnv() (*Config, error) {
	v := newViper()
	// No config file; rely solely on env vars and defaults.
	bindEnvKeys(v)
	return unmarshalAndFinalize(v)
}

// bindEnvKeys registers every known configuration key so that AutomaticEnv
// picks up FINSENTRY_* variables even when no config file seeds the key set.
func bindEnvKeys(v *viper.Viper) {
	for _, key := range []string{
		"server.host", "server.port", "server.read_timeout",
		"server.write_timeout", "server.shutdown_timeout", "server.allowed_origins",
		"data.driver", "data.csv_dir",
		"data.postgres.host", "data.postgres.port", "data.postgres.user",
		"data.postgres.password", "data.postgres.database", "data.postgres.ssl_mode",
		"data.postgres.max_conns", "data.postgres.migrations_dir",
		"llm.base_url", "llm.model", "llm.max_tokens", "llm.temperature",
		"llm.timeout", "llm.model_version",
		"log.level", "log.format",
		"metrics.enabled", "metrics.namespace",
	} {
		_ = v.BindEnv(key)
	}
}

// unmarshalAndFinalize unmarshals viper state into a Config struct, applies
// defaults, and validates the result.
func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal configuration: %w", err)
	}

	ApplyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}

	return cfg, nil
}

// Watch monitors configPath for changes and invokes onChange with the newly
// parsed Config whenever the file is modified on disk.  It is intended for
// hot-reloading non-critical settings such as log level; callers are
// responsible for applying only the safe subset of changes at runtime.
//
// Watch is non-blocking; it starts a background goroutine managed by viper.
// If the changed file fails to parse or validate, onChange is NOT called.
func Watch(configPath string, onChange func(*Config)) {
	v := newViper()
	v.SetConfigFile(configPath)
	bindEnvKeys(v)

	// Initial read; errors are ignored here, callers should call Load first.
	_ = v.ReadInConfig()

	v.WatchConfig()
	v.OnConfigChange(func(_ fsnotify.Event) {
		cfg, err := unmarshalAndFinalize(v)
		if err != nil {
			// Config change produced an invalid config; skip the callback to
			// prevent the application from entering a broken state.
			return
		}
		onChange(cfg)
	})
}

// MustLoad is a convenience wrapper around Load that panics on any error.
// It is intended for use in main() where a config-load failure is always fatal.
func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("config: MustLoad failed: %v", err))
	}
	return cfg
}
