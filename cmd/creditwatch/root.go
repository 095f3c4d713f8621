package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "creditwatch",
	Short: "Creditwatch - prepaid API credit monitor",
	Long: `Creditwatch watches a prepaid API credit balance by reconciling the
provider's reported usage against a locally persisted balance.

It runs a periodic reconciliation loop that:
  - Fetches cumulative usage from the provider's costs endpoint
  - Applies the incremental delta to the persisted balance
  - Emails registered recipients when the balance crosses the threshold

A lightweight HTTP API manages the balance, threshold, and alert
recipients, and exposes health and Prometheus metrics endpoints.`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
