package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file, applies defaults, and
// validates the result. A missing file is not an error: creditwatch can run
// entirely from environment variables, so an absent file yields the default
// configuration.
func LoadConfig(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// Run on defaults + environment.
	case err != nil:
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
		}
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Variables follow the naming convention
// CREDITWATCH_SECTION_FIELD (e.g. CREDITWATCH_SERVER_LISTEN_ADDRESS);
// OPENAI_API_KEY is honored as a fallback for the provider credential.
// Environment variables always take precedence over file-based configuration.
//
// The loading sequence is:
//  1. Load YAML from file (missing file = defaults only)
//  2. Apply default values
//  3. Apply environment variable overrides
//  4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies CREDITWATCH_* environment variable overrides.
func applyEnvOverrides(cfg *Config) {
	// Server overrides
	setString(&cfg.Server.ListenAddress, "CREDITWATCH_SERVER_LISTEN_ADDRESS")
	setDuration(&cfg.Server.ReadTimeout, "CREDITWATCH_SERVER_READ_TIMEOUT")
	setDuration(&cfg.Server.WriteTimeout, "CREDITWATCH_SERVER_WRITE_TIMEOUT")
	setDuration(&cfg.Server.IdleTimeout, "CREDITWATCH_SERVER_IDLE_TIMEOUT")
	setDuration(&cfg.Server.ShutdownTimeout, "CREDITWATCH_SERVER_SHUTDOWN_TIMEOUT")
	setInt(&cfg.Server.MaxHeaderBytes, "CREDITWATCH_SERVER_MAX_HEADER_BYTES")

	// Provider overrides
	setString(&cfg.Provider.BaseURL, "CREDITWATCH_PROVIDER_BASE_URL")
	setString(&cfg.Provider.APIKey, "CREDITWATCH_PROVIDER_API_KEY")
	setDuration(&cfg.Provider.Timeout, "CREDITWATCH_PROVIDER_TIMEOUT")
	setDuration(&cfg.Provider.Lookback, "CREDITWATCH_PROVIDER_LOOKBACK")
	if cfg.Provider.APIKey == "" {
		setString(&cfg.Provider.APIKey, "OPENAI_API_KEY")
	}

	// Monitor overrides
	setDuration(&cfg.Monitor.Interval, "CREDITWATCH_MONITOR_INTERVAL")
	setFloat(&cfg.Monitor.InitialBalance, "CREDITWATCH_MONITOR_INITIAL_BALANCE")
	setFloat(&cfg.Monitor.InitialThreshold, "CREDITWATCH_MONITOR_INITIAL_THRESHOLD")
	setInt(&cfg.Monitor.RecipientPageSize, "CREDITWATCH_MONITOR_RECIPIENT_PAGE_SIZE")

	// SMTP overrides
	setString(&cfg.SMTP.Host, "CREDITWATCH_SMTP_HOST")
	setInt(&cfg.SMTP.Port, "CREDITWATCH_SMTP_PORT")
	setString(&cfg.SMTP.Username, "CREDITWATCH_SMTP_USERNAME")
	setString(&cfg.SMTP.Password, "CREDITWATCH_SMTP_PASSWORD")
	setString(&cfg.SMTP.From, "CREDITWATCH_SMTP_FROM")
	setBool(&cfg.SMTP.ImplicitTLS, "CREDITWATCH_SMTP_IMPLICIT_TLS")
	if cfg.SMTP.From == "" {
		cfg.SMTP.From = cfg.SMTP.Username
	}

	// Storage overrides
	setString(&cfg.Storage.Backend, "CREDITWATCH_STORAGE_BACKEND")
	setString(&cfg.Storage.Path, "CREDITWATCH_STORAGE_PATH")
	setDuration(&cfg.Storage.BusyTimeout, "CREDITWATCH_STORAGE_BUSY_TIMEOUT")
	setDuration(&cfg.Storage.CheckpointInterval, "CREDITWATCH_STORAGE_CHECKPOINT_INTERVAL")

	// Telemetry overrides
	setString(&cfg.Telemetry.Logging.Level, "CREDITWATCH_LOGGING_LEVEL")
	setString(&cfg.Telemetry.Logging.Format, "CREDITWATCH_LOGGING_FORMAT")
	if val := os.Getenv("CREDITWATCH_METRICS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Metrics.Enabled = &b
		}
	}
	setString(&cfg.Telemetry.Metrics.Namespace, "CREDITWATCH_METRICS_NAMESPACE")
	setString(&cfg.Telemetry.Metrics.Subsystem, "CREDITWATCH_METRICS_SUBSYSTEM")
}

func setString(dst *string, key string) {
	if val := os.Getenv(key); val != "" {
		*dst = val
	}
}

func setDuration(dst *time.Duration, key string) {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}

func setInt(dst *int, key string) {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			*dst = i
		}
	}
}

func setFloat(dst *float64, key string) {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = b
		}
	}
}
