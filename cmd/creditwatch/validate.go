package main

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"creditwatch/pkg/cli"
	"creditwatch/pkg/config"
)

var validateFlags struct {
	strict bool
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	Long: `Load and validate the configuration file with environment overrides
applied, without starting the monitor.

By default only structural validation runs. With --strict the check also
requires everything needed for a live run, such as the provider API key.

Examples:
  # Validate the default config file
  creditwatch validate

  # Validate a specific file including run requirements
  creditwatch validate --config /etc/creditwatch/config.yaml --strict`,
	RunE: validateConfig,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().BoolVar(&validateFlags.strict, "strict", false, "also check run requirements (API key)")
}

func validateConfig(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}

	if validateFlags.strict {
		if err := config.ValidateForRun(cfg); err != nil {
			return cli.NewConfigError("", err.Error())
		}
	}

	fmt.Println("✓ Configuration valid")
	fmt.Printf("  Listen address:   %s\n", cfg.Server.ListenAddress)
	fmt.Printf("  Storage backend:  %s\n", cfg.Storage.Backend)
	fmt.Printf("  Monitor interval: %s\n", cfg.Monitor.Interval)
	if cfg.AlertingEnabled() {
		fmt.Printf("  Alerting:         smtp://%s:%d\n", cfg.SMTP.Host, cfg.SMTP.Port)
	} else {
		fmt.Println("  Alerting:         disabled (no SMTP host)")
	}

	return nil
}
