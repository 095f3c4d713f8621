// Package telemetry groups the observability surfaces of creditwatch.
//
// The metrics subpackage collects Prometheus metrics for the reconciliation
// loop and alert deliveries, served by the control plane at /metrics.
// Structured logging uses log/slog directly and is configured by the run
// command from telemetry.logging settings.
package telemetry
