package monitor

import (
	"context"
	"time"

	"creditwatch/pkg/notify"
	"creditwatch/pkg/usage"
)

// Fetcher reads a usage report from the metering provider.
type Fetcher interface {
	Fetch(ctx context.Context, w usage.Window) (*usage.UsageReport, error)
}

// AlertSink delivers a threshold alert and reports per-recipient outcomes.
type AlertSink interface {
	Notify(ctx context.Context, alert notify.Alert) ([]notify.SendOutcome, error)
}

// CycleResult is the outcome of one successful reconciliation cycle.
type CycleResult struct {
	// CycleID identifies this cycle in logs and alerts.
	CycleID string

	// UsageDelta is the non-negative incremental usage applied this cycle.
	UsageDelta float64

	// NewBalance is the remaining credit balance after the cycle.
	NewBalance float64

	// Threshold is the alert trigger level in effect for this cycle.
	Threshold float64

	// Crossed reports whether NewBalance <= Threshold. It is recomputed
	// every cycle regardless of previous cycles.
	Crossed bool

	// FirstCycle reports that the balance record was created by this cycle;
	// only the watermark was established and no usage was applied.
	FirstCycle bool

	// CheckedAt is when the cycle completed.
	CheckedAt time.Time
}
