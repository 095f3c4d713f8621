package config

import "time"

// Config is the root configuration structure for creditwatch.
type Config struct {
	// Server contains the HTTP control-plane configuration.
	Server ServerConfig `yaml:"server"`

	// Provider contains the metering provider (OpenAI costs API) settings.
	Provider ProviderConfig `yaml:"provider"`

	// Monitor contains the reconciliation loop settings.
	Monitor MonitorConfig `yaml:"monitor"`

	// SMTP contains the outbound mail transport settings. Alerting is
	// disabled when Host is empty.
	SMTP SMTPConfig `yaml:"smtp"`

	// Storage contains persistence settings.
	Storage StorageConfig `yaml:"storage"`

	// Telemetry contains logging and metrics settings.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig contains configuration for the HTTP control plane.
type ServerConfig struct {
	// ListenAddress is the address and port to listen on.
	// Default: "127.0.0.1:8080"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading a request.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration for writing a response.
	// Default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the keep-alive idle timeout.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout bounds graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxHeaderBytes limits request header size.
	// Default: 1048576 (1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`
}

// ProviderConfig contains configuration for the metering provider.
type ProviderConfig struct {
	// BaseURL is the provider API base URL.
	// Default: "https://api.openai.com"
	BaseURL string `yaml:"base_url"`

	// APIKey is the provider credential. Required; typically supplied via
	// CREDITWATCH_PROVIDER_API_KEY or OPENAI_API_KEY.
	APIKey string `yaml:"api_key"`

	// Timeout bounds one usage fetch.
	// Default: 30s
	Timeout time.Duration `yaml:"timeout"`

	// Lookback selects the billing query window. Zero means the previous
	// full UTC day.
	Lookback time.Duration `yaml:"lookback"`
}

// MonitorConfig contains configuration for the reconciliation loop.
type MonitorConfig struct {
	// Interval is the fixed wall-clock interval between cycles.
	// Default: 5m
	Interval time.Duration `yaml:"interval"`

	// InitialBalance seeds the balance record when the first cycle finds
	// none.
	// Default: 1000
	InitialBalance float64 `yaml:"initial_balance"`

	// InitialThreshold seeds the alert threshold alongside InitialBalance.
	// Default: 0
	InitialThreshold float64 `yaml:"initial_threshold"`

	// RecipientPageSize bounds how many recipients one alert is sent to and
	// how many addresses GET /emails returns.
	// Default: 100
	RecipientPageSize int `yaml:"recipient_page_size"`
}

// SMTPConfig contains configuration for the outbound mail transport.
type SMTPConfig struct {
	// Host is the SMTP server hostname. Empty disables alerting.
	Host string `yaml:"host"`

	// Port is the SMTP server port.
	// Default: 587
	Port int `yaml:"port"`

	// Username authenticates against the server.
	Username string `yaml:"username"`

	// Password authenticates against the server. Typically supplied via
	// CREDITWATCH_SMTP_PASSWORD.
	Password string `yaml:"password"`

	// From is the sender address. Defaults to Username.
	From string `yaml:"from"`

	// ImplicitTLS dials TLS directly (port 465 servers) instead of
	// upgrading with STARTTLS.
	ImplicitTLS bool `yaml:"implicit_tls"`
}

// StorageConfig contains persistence settings.
type StorageConfig struct {
	// Backend selects the storage backend.
	// Options: "sqlite", "memory"
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// Path is the SQLite database file path.
	// Default: "data/creditwatch.db"
	Path string `yaml:"path"`

	// BusyTimeout is how long SQLite waits for locks.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`

	// CheckpointInterval is how often the WAL is checkpointed.
	// Default: 5m
	CheckpointInterval time.Duration `yaml:"checkpoint_interval"`
}

// TelemetryConfig contains logging and metrics settings.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig contains structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format selects the slog handler.
	// Options: "json", "text"
	// Default: "json"
	Format string `yaml:"format"`
}

// MetricsConfig contains Prometheus settings.
type MetricsConfig struct {
	// Enabled controls whether /metrics is served.
	// Default: true
	Enabled *bool `yaml:"enabled"`

	// Namespace is the metric namespace.
	// Default: "creditwatch"
	Namespace string `yaml:"namespace"`

	// Subsystem is the metric subsystem.
	// Default: "monitor"
	Subsystem string `yaml:"subsystem"`
}

// MetricsEnabled reports the effective metrics toggle.
func (t *TelemetryConfig) MetricsEnabled() bool {
	if t.Metrics.Enabled == nil {
		return true
	}
	return *t.Metrics.Enabled
}

// AlertingEnabled reports whether an SMTP transport is configured.
func (c *Config) AlertingEnabled() bool {
	return c.SMTP.Host != ""
}
