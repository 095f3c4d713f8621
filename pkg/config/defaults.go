package config

import "time"

// Default values for configuration fields.
const (
	// Server defaults
	DefaultListenAddress   = "127.0.0.1:8080"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxHeaderBytes  = 1048576 // 1MB

	// Provider defaults
	DefaultProviderBaseURL = "https://api.openai.com"
	DefaultProviderTimeout = 30 * time.Second

	// Monitor defaults
	DefaultMonitorInterval   = 5 * time.Minute
	DefaultInitialBalance    = 1000.0
	DefaultRecipientPageSize = 100

	// SMTP defaults
	DefaultSMTPPort = 587

	// Storage defaults
	DefaultStorageBackend            = "sqlite"
	DefaultStoragePath               = "data/creditwatch.db"
	DefaultStorageBusyTimeout        = 5 * time.Second
	DefaultStorageCheckpointInterval = 5 * time.Minute

	// Telemetry defaults
	DefaultLoggingLevel     = "info"
	DefaultLoggingFormat    = "json"
	DefaultMetricsNamespace = "creditwatch"
	DefaultMetricsSubsystem = "monitor"
)

// ApplyDefaults fills unset configuration fields with default values.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.MaxHeaderBytes == 0 {
		cfg.Server.MaxHeaderBytes = DefaultMaxHeaderBytes
	}

	if cfg.Provider.BaseURL == "" {
		cfg.Provider.BaseURL = DefaultProviderBaseURL
	}
	if cfg.Provider.Timeout == 0 {
		cfg.Provider.Timeout = DefaultProviderTimeout
	}

	if cfg.Monitor.Interval == 0 {
		cfg.Monitor.Interval = DefaultMonitorInterval
	}
	if cfg.Monitor.InitialBalance == 0 {
		cfg.Monitor.InitialBalance = DefaultInitialBalance
	}
	if cfg.Monitor.RecipientPageSize == 0 {
		cfg.Monitor.RecipientPageSize = DefaultRecipientPageSize
	}

	if cfg.SMTP.Port == 0 {
		cfg.SMTP.Port = DefaultSMTPPort
	}
	if cfg.SMTP.From == "" {
		cfg.SMTP.From = cfg.SMTP.Username
	}

	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = DefaultStorageBackend
	}
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = DefaultStoragePath
	}
	if cfg.Storage.BusyTimeout == 0 {
		cfg.Storage.BusyTimeout = DefaultStorageBusyTimeout
	}
	if cfg.Storage.CheckpointInterval == 0 {
		cfg.Storage.CheckpointInterval = DefaultStorageCheckpointInterval
	}

	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Telemetry.Metrics.Subsystem == "" {
		cfg.Telemetry.Metrics.Subsystem = DefaultMetricsSubsystem
	}
}
