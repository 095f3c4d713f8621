package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"creditwatch/pkg/storage"
	"creditwatch/pkg/usage"
)

// ReconcilerConfig configures the reconciler.
type ReconcilerConfig struct {
	// InitialBalance seeds the balance record when the first cycle finds
	// none. Default: 1000
	InitialBalance float64

	// InitialThreshold seeds the alert threshold alongside InitialBalance.
	InitialThreshold float64

	// Lookback selects the billing query window. Zero means the previous
	// full UTC day.
	Lookback time.Duration
}

// Reconciler computes incremental usage deltas and applies them to the
// persisted balance. It is the only writer of the balance record and the
// snapshot log; callers must serialize Reconcile invocations (the
// Scheduler's single-flight guard does this).
type Reconciler struct {
	fetcher Fetcher
	store   storage.Store
	config  ReconcilerConfig
	logger  *slog.Logger

	// now is replaceable for tests.
	now func() time.Time
}

// NewReconciler creates a reconciler.
func NewReconciler(fetcher Fetcher, store storage.Store, cfg ReconcilerConfig, logger *slog.Logger) *Reconciler {
	if cfg.InitialBalance == 0 {
		cfg.InitialBalance = 1000
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		fetcher: fetcher,
		store:   store,
		config:  cfg,
		logger:  logger.With("component", "monitor.reconciler"),
		now:     time.Now,
	}
}

// Reconcile runs one reconciliation cycle.
//
// On any failure the cycle aborts with no further state mutation: a fetch
// failure mutates nothing, and a persistence failure after the snapshot
// write leaves the balance untouched (the advanced watermark means the next
// cycle undercounts rather than double-charges). The returned error wraps a
// *usage.FetchError when the provider fetch was the failing step.
func (r *Reconciler) Reconcile(ctx context.Context) (*CycleResult, error) {
	cycleID := uuid.NewString()
	logger := r.logger.With("cycle_id", cycleID)
	start := r.now()

	// Step 1: previous cumulative total from the latest snapshot.
	prev, err := r.store.LatestSnapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read latest snapshot: %w", err)
	}
	previousTotal := r.snapshotTotal(logger, prev)

	// Step 2: fetch the current report. Failure aborts the cycle before
	// any write.
	window := usage.BillingWindow(start, r.config.Lookback)
	report, err := r.fetcher.Fetch(ctx, window)
	if err != nil {
		return nil, fmt.Errorf("usage fetch: %w", err)
	}

	// Steps 3-4: compute the clamped incremental delta.
	currentTotal := report.Total()
	delta := usageDelta(currentTotal, previousTotal)

	logger.Info("usage fetched",
		"window_start", window.Start,
		"window_end", window.End,
		"previous_total", previousTotal,
		"current_total", currentTotal,
		"usage_delta", delta,
	)

	// Step 5: persist the snapshot unconditionally so the watermark stays
	// current even on a zero delta.
	checkedAt := r.now()
	if _, err := r.store.AppendSnapshot(ctx, checkedAt.Unix(), report.Raw); err != nil {
		return nil, fmt.Errorf("failed to append snapshot: %w", err)
	}

	// Step 6: read or lazily create the balance record and apply the delta.
	rec, err := r.store.GetBalance(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read balance: %w", err)
	}

	result := &CycleResult{
		CycleID:   cycleID,
		CheckedAt: checkedAt,
	}

	if rec == nil {
		// First cycle establishes the watermark only; the fetched total is
		// not treated as consumed usage.
		rec = &storage.BalanceRecord{
			RemainingCredits: r.config.InitialBalance,
			Threshold:        r.config.InitialThreshold,
		}
		result.FirstCycle = true
		logger.Info("balance record not found, initializing",
			"initial_balance", rec.RemainingCredits,
			"threshold", rec.Threshold,
		)
	} else {
		result.UsageDelta = delta
		rec.RemainingCredits = clampBalance(rec.RemainingCredits - delta)
	}

	rec.LastUsageValue = currentTotal
	rec.LastCheckedAt = checkedAt.Unix()

	if err := r.store.SaveBalance(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to save balance: %w", err)
	}

	// Step 7: threshold decision.
	result.NewBalance = rec.RemainingCredits
	result.Threshold = rec.Threshold
	result.Crossed = rec.RemainingCredits <= rec.Threshold

	logger.Info("cycle reconciled",
		"usage_delta", result.UsageDelta,
		"remaining_credits", result.NewBalance,
		"threshold", result.Threshold,
		"crossed", result.Crossed,
		"first_cycle", result.FirstCycle,
	)

	return result, nil
}

// snapshotTotal parses the stored raw payload and sums its amounts.
// A snapshot that no longer parses counts as zero, matching the
// conservative delta policy.
func (r *Reconciler) snapshotTotal(logger *slog.Logger, snap *storage.Snapshot) float64 {
	if snap == nil {
		return 0
	}
	var report usage.UsageReport
	if err := json.Unmarshal(snap.Raw, &report); err != nil {
		logger.Warn("stored snapshot does not parse, treating previous total as zero",
			"snapshot_id", snap.ID,
			"error", err,
		)
		return 0
	}
	return report.Total()
}

// usageDelta computes the non-negative incremental usage between two
// cumulative totals. Negative deltas (provider data revision or period
// rollover) clamp to zero rather than crediting the balance back.
func usageDelta(currentTotal, previousTotal float64) float64 {
	d := currentTotal - previousTotal
	if d < 0 {
		return 0
	}
	return d
}

// clampBalance floors a balance at zero.
func clampBalance(b float64) float64 {
	if b < 0 {
		return 0
	}
	return b
}
