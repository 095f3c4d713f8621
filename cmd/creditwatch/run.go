package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"creditwatch/pkg/cli"
	"creditwatch/pkg/config"
	"creditwatch/pkg/monitor"
	"creditwatch/pkg/notify"
	"creditwatch/pkg/server"
	"creditwatch/pkg/storage"
	"creditwatch/pkg/telemetry/metrics"
	"creditwatch/pkg/usage"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
	runNow        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the creditwatch monitor",
	Long: `Start the reconciliation loop and the HTTP control plane.

The monitor fetches usage on a fixed interval, applies the delta to the
persisted balance, and emails registered recipients when the balance
drops to or below the threshold.

Examples:
  # Start with default config
  creditwatch run

  # Start with custom config
  creditwatch run --config /etc/creditwatch/config.yaml

  # Override listen address
  creditwatch run --listen 0.0.0.0:8080

  # Run a reconciliation cycle immediately at startup
  creditwatch run --run-now

  # Validate config without starting
  creditwatch run --dry-run`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting")
	runCmd.Flags().BoolVar(&runFlags.runNow, "run-now", false, "run one reconciliation cycle immediately at startup")
}

func runMonitor(cmd *cobra.Command, args []string) error {
	// Local .env is a convenience for development; ignore if absent.
	_ = godotenv.Load()

	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}

	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}

	levelVar := new(slog.LevelVar)
	levelVar.Set(parseLogLevel(cfg.Telemetry.Logging.Level))
	logger := newLogger(cfg.Telemetry.Logging.Format, levelVar)
	slog.SetDefault(logger)

	if err := config.ValidateForRun(cfg); err != nil {
		return cli.NewConfigError("", err.Error())
	}

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	fmt.Printf("Creditwatch v%s\n", Version)
	fmt.Printf("Loading configuration from: %s\n", cfgFile)
	fmt.Println("✓ Configuration loaded")

	ctx := cli.SetupSignalHandler()

	// Storage backend
	store, err := buildStore(cfg)
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	defer store.Close()
	fmt.Printf("✓ Storage initialized (%s)\n", cfg.Storage.Backend)

	// Provider client
	fetcher, err := usage.NewClient(usage.ClientConfig{
		BaseURL: cfg.Provider.BaseURL,
		APIKey:  cfg.Provider.APIKey,
		Timeout: cfg.Provider.Timeout,
	})
	if err != nil {
		return cli.NewCommandError("run", fmt.Errorf("failed to create usage client: %w", err))
	}

	// Alerting (optional)
	var alerts monitor.AlertSink
	if cfg.AlertingEnabled() {
		sender, err := notify.NewSMTPSender(notify.SMTPConfig{
			Host:        cfg.SMTP.Host,
			Port:        cfg.SMTP.Port,
			Username:    cfg.SMTP.Username,
			Password:    cfg.SMTP.Password,
			From:        cfg.SMTP.From,
			ImplicitTLS: cfg.SMTP.ImplicitTLS,
		})
		if err != nil {
			return cli.NewCommandError("run", fmt.Errorf("failed to create SMTP sender: %w", err))
		}
		alerts = notify.NewNotifier(sender, store, cfg.Monitor.RecipientPageSize, logger)
		fmt.Printf("✓ Alerting enabled (smtp://%s:%d)\n", cfg.SMTP.Host, cfg.SMTP.Port)
	} else {
		slog.Warn("no SMTP host configured, threshold alerts will only be logged")
	}

	// Metrics (optional)
	var monitorMetrics *metrics.MonitorMetrics
	var metricsHandler http.Handler
	if cfg.Telemetry.MetricsEnabled() {
		registry := prometheus.NewRegistry()
		monitorMetrics = metrics.NewMonitorMetrics(metrics.Config{
			Namespace: cfg.Telemetry.Metrics.Namespace,
			Subsystem: cfg.Telemetry.Metrics.Subsystem,
		}, registry)
		metricsHandler = metrics.Handler(registry)
	}

	// Reconciliation loop
	reconciler := monitor.NewReconciler(fetcher, store, monitor.ReconcilerConfig{
		InitialBalance:   cfg.Monitor.InitialBalance,
		InitialThreshold: cfg.Monitor.InitialThreshold,
		Lookback:         cfg.Provider.Lookback,
	}, logger)

	scheduler := monitor.NewScheduler(reconciler, alerts, monitorMetrics, cfg.Monitor.Interval, logger)
	if err := scheduler.Start(ctx); err != nil {
		return cli.NewCommandError("run", fmt.Errorf("failed to start scheduler: %w", err))
	}
	defer scheduler.Stop()
	fmt.Printf("✓ Monitor scheduled (every %s)\n", cfg.Monitor.Interval)

	if runFlags.runNow {
		go scheduler.RunOnce(ctx)
	}

	// Config watcher applies log level changes without a restart. Other
	// settings require one; the watcher logs the reload either way.
	go watchConfig(ctx, cfgFile, levelVar, logger)

	// HTTP control plane
	srv := server.NewServer(cfg, store, metricsHandler, logger)

	fmt.Println()
	fmt.Printf("✓ Control plane listening on %s\n", cfg.Server.ListenAddress)
	fmt.Printf("✓ Health endpoint: http://%s/health\n", cfg.Server.ListenAddress)
	if metricsHandler != nil {
		fmt.Printf("✓ Metrics endpoint: http://%s/metrics\n", cfg.Server.ListenAddress)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	if err := srv.Start(ctx); err != nil {
		return cli.NewCommandError("run", err)
	}

	fmt.Println("✓ Monitor stopped")
	return nil
}

// buildStore constructs the configured storage backend.
func buildStore(cfg *config.Config) (storage.Store, error) {
	switch cfg.Storage.Backend {
	case "sqlite":
		store, err := storage.NewSQLiteStoreWithConfig(storage.SQLiteConfig{
			Path:               cfg.Storage.Path,
			BusyTimeout:        cfg.Storage.BusyTimeout,
			CheckpointInterval: cfg.Storage.CheckpointInterval,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite store: %w", err)
		}
		return store, nil
	case "memory":
		return storage.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", cfg.Storage.Backend)
	}
}

// watchConfig reloads the configuration on file changes and applies the log
// level live. Watcher setup failures are not fatal; the monitor keeps
// running with the startup configuration.
func watchConfig(ctx context.Context, path string, levelVar *slog.LevelVar, logger *slog.Logger) {
	watcher, err := config.NewWatcher(path, logger)
	if err != nil {
		slog.Warn("config watcher disabled", "error", err)
		return
	}

	err = watcher.Watch(ctx, func(next *config.Config) {
		levelVar.Set(parseLogLevel(next.Telemetry.Logging.Level))
	})
	if err != nil {
		slog.Warn("config watcher stopped", "error", err)
	}
}

// parseLogLevel maps a config level string to a slog level.
func parseLogLevel(level string) slog.Level {
	switch level {
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

// newLogger builds the root structured logger.
func newLogger(format string, level slog.Leveler) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
