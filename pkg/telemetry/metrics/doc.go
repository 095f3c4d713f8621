// Package metrics provides Prometheus instrumentation for the credit
// monitor: reconciliation cycle counters and durations, the remaining
// balance gauge, observed usage deltas, and alert delivery outcomes.
//
// All metrics are registered against an explicit registry passed in by the
// caller so tests can use isolated registries.
package metrics
