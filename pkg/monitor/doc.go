// Package monitor implements the usage-reconciliation and alerting loop.
//
// A reconciliation cycle turns two point-in-time usage observations into a
// balance delta: it fetches the current cost report from the provider,
// computes the incremental usage against the most recent persisted
// snapshot, appends the new snapshot, decrements the persisted balance
// (clamped at zero), and decides whether the alert threshold is met.
//
// Step ordering is strict. The snapshot is never persisted before the fetch
// succeeds, and the balance is never mutated before the snapshot write
// succeeds. A crash between the two writes leaves the watermark advanced
// but the balance undecremented, which undercounts at most one cycle of
// usage instead of ever double-charging.
//
// The Scheduler drives cycles on a fixed interval with a single-flight
// guard: a tick that fires while the previous cycle is still running is
// dropped, not queued.
package monitor
