package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"creditwatch/pkg/notify"
	"creditwatch/pkg/telemetry/metrics"
	"creditwatch/pkg/usage"
)

// Scheduler drives reconciliation cycles on a fixed wall-clock interval.
//
// There is exactly one scheduled job. Cycles never overlap: if a tick fires
// while the previous cycle is still running, the tick is dropped so slow
// provider responses cannot build an unbounded backlog. Cycle failures are
// logged and recorded in metrics; nothing escapes the job.
type Scheduler struct {
	reconciler *Reconciler
	alerts     AlertSink
	metrics    *metrics.MonitorMetrics
	interval   time.Duration
	cron       *cron.Cron
	logger     *slog.Logger

	// runMu serializes cycles; overlapping ticks fail TryLock and are dropped.
	runMu sync.Mutex

	mu      sync.Mutex
	running bool
}

// NewScheduler creates a scheduler. alerts and m may be nil, disabling
// alert dispatch and metrics respectively.
func NewScheduler(reconciler *Reconciler, alerts AlertSink, m *metrics.MonitorMetrics, interval time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		reconciler: reconciler,
		alerts:     alerts,
		metrics:    m,
		interval:   interval,
		cron:       cron.New(),
		logger:     logger.With("component", "monitor.scheduler"),
	}
}

// Start registers the reconciliation job and starts the timer.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running")
	}
	if s.interval <= 0 {
		return fmt.Errorf("interval must be positive, got %s", s.interval)
	}

	spec := fmt.Sprintf("@every %s", s.interval)
	if _, err := s.cron.AddFunc(spec, func() { s.runCycle(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule reconciliation job: %w", err)
	}

	s.cron.Start()
	s.running = true

	s.logger.Info("scheduler started", "interval", s.interval.String())
	return nil
}

// Stop stops the timer and waits for an in-flight cycle to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	<-s.cron.Stop().Done()
	s.running = false
	s.logger.Info("scheduler stopped")
}

// RunOnce executes a single cycle immediately, subject to the same
// single-flight guard as scheduled ticks. It reports whether the cycle ran.
func (s *Scheduler) RunOnce(ctx context.Context) bool {
	return s.runCycle(ctx)
}

// runCycle executes one guarded reconciliation cycle. It returns false when
// the tick was dropped because a cycle was already running.
func (s *Scheduler) runCycle(ctx context.Context) bool {
	if !s.runMu.TryLock() {
		s.logger.Warn("previous cycle still running, dropping tick")
		return false
	}
	defer s.runMu.Unlock()

	start := time.Now()
	result, err := s.reconciler.Reconcile(ctx)
	duration := time.Since(start)

	if err != nil {
		s.recordFailure(err, duration)
		return true
	}

	if s.metrics != nil {
		s.metrics.RecordCycle(metrics.ResultSuccess, duration)
		s.metrics.RecordUsageDelta(result.UsageDelta)
		s.metrics.RecordBalance(result.NewBalance, result.Crossed)
	}

	if result.Crossed {
		s.dispatchAlert(ctx, result)
	}

	return true
}

// dispatchAlert fans the alert out and records per-recipient outcomes.
// Delivery failures are already logged by the notifier and never fail the
// cycle.
func (s *Scheduler) dispatchAlert(ctx context.Context, result *CycleResult) {
	if s.alerts == nil {
		s.logger.Warn("threshold crossed but alerting is disabled",
			"cycle_id", result.CycleID,
			"remaining_credits", result.NewBalance,
		)
		return
	}

	outcomes, err := s.alerts.Notify(ctx, notify.Alert{
		CycleID:          result.CycleID,
		RemainingCredits: result.NewBalance,
		Threshold:        result.Threshold,
		CheckedAt:        result.CheckedAt,
	})
	if err != nil {
		s.logger.Error("alert dispatch failed",
			"cycle_id", result.CycleID,
			"error", err,
		)
		return
	}

	if s.metrics != nil {
		for _, o := range outcomes {
			s.metrics.RecordAlert(o.Err == nil)
		}
	}
}

// recordFailure logs and classifies a failed cycle.
func (s *Scheduler) recordFailure(err error, duration time.Duration) {
	result := metrics.ResultStorageError
	if _, ok := usage.AsFetchError(err); ok {
		result = metrics.ResultFetchError
	}

	if s.metrics != nil {
		s.metrics.RecordCycle(result, duration)
	}

	s.logger.Error("reconciliation cycle failed",
		"result", result,
		"duration_ms", duration.Milliseconds(),
		"error", err,
	)
}
