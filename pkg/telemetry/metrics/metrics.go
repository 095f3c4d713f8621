package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Cycle result label values.
const (
	ResultSuccess      = "success"
	ResultFetchError   = "fetch_error"
	ResultStorageError = "storage_error"
)

// Alert outcome label values.
const (
	OutcomeSent   = "sent"
	OutcomeFailed = "failed"
)

// Config configures metric naming.
type Config struct {
	// Namespace is the metric namespace. Default: "creditwatch"
	Namespace string

	// Subsystem is the metric subsystem. Default: "monitor"
	Subsystem string
}

// MonitorMetrics tracks reconciliation and alerting metrics.
//
// Metrics:
//   - creditwatch_monitor_cycles_total: reconciliation cycles by result
//   - creditwatch_monitor_cycle_duration_seconds: cycle duration histogram
//   - creditwatch_monitor_usage_delta_total: cumulative observed usage in USD
//   - creditwatch_monitor_remaining_credits: current balance gauge in USD
//   - creditwatch_monitor_threshold_crossed: 1 while the balance is at or below threshold
//   - creditwatch_monitor_alerts_total: per-recipient alert deliveries by outcome
type MonitorMetrics struct {
	cyclesTotal      *prometheus.CounterVec
	cycleDuration    prometheus.Histogram
	usageDeltaTotal  prometheus.Counter
	remainingCredits prometheus.Gauge
	thresholdCrossed prometheus.Gauge
	alertsTotal      *prometheus.CounterVec
}

// NewMonitorMetrics creates and registers monitor metrics with the provided
// registry. If registry is nil, a new one is created and used.
func NewMonitorMetrics(cfg Config, registry *prometheus.Registry) *MonitorMetrics {
	if cfg.Namespace == "" {
		cfg.Namespace = "creditwatch"
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = "monitor"
	}
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	m := &MonitorMetrics{
		cyclesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "cycles_total",
				Help:      "Reconciliation cycles by result",
			},
			[]string{"result"},
		),

		cycleDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "cycle_duration_seconds",
				Help:      "Reconciliation cycle duration in seconds",
				// A cycle is one provider fetch plus a few SQLite writes
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
			},
		),

		usageDeltaTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "usage_delta_total",
				Help:      "Cumulative observed usage in USD",
			},
		),

		remainingCredits: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "remaining_credits",
				Help:      "Current remaining credit balance in USD",
			},
		),

		thresholdCrossed: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "threshold_crossed",
				Help:      "1 while the balance is at or below the alert threshold",
			},
		),

		alertsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "alerts_total",
				Help:      "Per-recipient alert delivery attempts by outcome",
			},
			[]string{"outcome"},
		),
	}

	registry.MustRegister(
		m.cyclesTotal,
		m.cycleDuration,
		m.usageDeltaTotal,
		m.remainingCredits,
		m.thresholdCrossed,
		m.alertsTotal,
	)

	return m
}

// RecordCycle records a completed reconciliation cycle.
func (m *MonitorMetrics) RecordCycle(result string, duration time.Duration) {
	m.cyclesTotal.WithLabelValues(result).Inc()
	m.cycleDuration.Observe(duration.Seconds())
}

// RecordBalance records the post-cycle balance and threshold state.
func (m *MonitorMetrics) RecordBalance(remaining float64, crossed bool) {
	m.remainingCredits.Set(remaining)
	if crossed {
		m.thresholdCrossed.Set(1)
	} else {
		m.thresholdCrossed.Set(0)
	}
}

// RecordUsageDelta adds an observed usage delta.
func (m *MonitorMetrics) RecordUsageDelta(delta float64) {
	if delta <= 0 {
		return
	}
	m.usageDeltaTotal.Add(delta)
}

// RecordAlert records one per-recipient delivery attempt.
func (m *MonitorMetrics) RecordAlert(sent bool) {
	if sent {
		m.alertsTotal.WithLabelValues(OutcomeSent).Inc()
	} else {
		m.alertsTotal.WithLabelValues(OutcomeFailed).Inc()
	}
}
