// Creditwatch monitors a prepaid API credit balance against provider usage.
//
// It periodically fetches cumulative usage from the provider's costs
// endpoint, reconciles the incremental delta against a locally persisted
// balance, and emails registered recipients whenever the balance drops to or
// below the configured threshold. A small HTTP control plane exposes balance
// and recipient management plus health, readiness, and metrics endpoints.
//
// Usage:
//
//	# Start the monitor with default configuration
//	creditwatch run
//
//	# Start with a custom configuration file
//	creditwatch run --config /etc/creditwatch/config.yaml
//
//	# Validate configuration without starting
//	creditwatch validate
//
//	# Show version information
//	creditwatch version
package main

func main() {
	Execute()
}
