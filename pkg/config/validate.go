package config

import (
	"fmt"
	"net"
	"strings"
)

// Validate checks the configuration for errors that would prevent startup.
// It does not check secrets for liveness, only for presence and shape.
func Validate(cfg *Config) error {
	var errs []string

	if cfg.Server.ListenAddress == "" {
		errs = append(errs, "server.listen_address cannot be empty")
	} else if _, _, err := net.SplitHostPort(cfg.Server.ListenAddress); err != nil {
		errs = append(errs, fmt.Sprintf("server.listen_address %q is not host:port", cfg.Server.ListenAddress))
	}

	if cfg.Provider.BaseURL == "" {
		errs = append(errs, "provider.base_url cannot be empty")
	}
	if cfg.Provider.Timeout <= 0 {
		errs = append(errs, "provider.timeout must be positive")
	}
	if cfg.Provider.Lookback < 0 {
		errs = append(errs, "provider.lookback cannot be negative")
	}

	if cfg.Monitor.Interval <= 0 {
		errs = append(errs, "monitor.interval must be positive")
	}
	if cfg.Monitor.InitialBalance < 0 {
		errs = append(errs, "monitor.initial_balance cannot be negative")
	}
	if cfg.Monitor.InitialThreshold < 0 {
		errs = append(errs, "monitor.initial_threshold cannot be negative")
	}
	if cfg.Monitor.RecipientPageSize < 0 {
		errs = append(errs, "monitor.recipient_page_size cannot be negative")
	}

	if cfg.SMTP.Host != "" {
		if cfg.SMTP.Port <= 0 || cfg.SMTP.Port > 65535 {
			errs = append(errs, fmt.Sprintf("smtp.port %d is out of range", cfg.SMTP.Port))
		}
		if cfg.SMTP.From == "" {
			errs = append(errs, "smtp.from (or smtp.username) is required when smtp.host is set")
		}
	}

	switch cfg.Storage.Backend {
	case "sqlite":
		if cfg.Storage.Path == "" {
			errs = append(errs, "storage.path cannot be empty for the sqlite backend")
		}
	case "memory":
		// No settings required.
	default:
		errs = append(errs, fmt.Sprintf("storage.backend %q is not one of sqlite, memory", cfg.Storage.Backend))
	}

	switch cfg.Telemetry.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("telemetry.logging.level %q is not one of debug, info, warn, error", cfg.Telemetry.Logging.Level))
	}
	switch cfg.Telemetry.Logging.Format {
	case "json", "text":
	default:
		errs = append(errs, fmt.Sprintf("telemetry.logging.format %q is not one of json, text", cfg.Telemetry.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// ValidateForRun performs the additional checks required to actually start
// the monitor, beyond what `creditwatch validate` enforces on a file that
// may rely on environment-provided secrets.
func ValidateForRun(cfg *Config) error {
	if cfg.Provider.APIKey == "" {
		return fmt.Errorf("provider.api_key is required (set CREDITWATCH_PROVIDER_API_KEY or OPENAI_API_KEY)")
	}
	return nil
}
