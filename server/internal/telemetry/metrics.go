// Package telemetry defines the Prometheus self-metrics of the alerting
// engine.
//
// Metric naming follows Prometheus conventions:
//   - sentinel_ prefix for all metrics
//   - _total suffix for counters
//   - _seconds suffix for duration histograms
//
// All methods are nil-safe so components can run without metrics in tests.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/obsidianstack/sentinel/pkg/types"
)

// Metrics holds the engine's collectors.
type Metrics struct {
	alertsFired       *prometheus.CounterVec
	alertsResolved    prometheus.Counter
	ruleErrors        *prometheus.CounterVec
	ticksSkipped      prometheus.Counter
	evaluationSeconds prometheus.Histogram
	notifications     *prometheus.CounterVec
	activeAlerts      prometheus.Gauge
	scrapeErrors      *prometheus.CounterVec
}

// New creates the collectors and registers them with reg. A nil reg leaves
// them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		alertsFired: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sentinel_alerts_fired_total",
				Help: "Total alerts created by rule and severity.",
			},
			[]string{"rule", "severity"},
		),
		alertsResolved: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "sentinel_alerts_resolved_total",
				Help: "Total alerts transitioned to resolved.",
			},
		),
		ruleErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sentinel_rule_errors_total",
				Help: "Total rule condition evaluations that returned an error.",
			},
			[]string{"rule"},
		),
		ticksSkipped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "sentinel_evaluation_ticks_skipped_total",
				Help: "Evaluation ticks skipped because the previous tick was still running.",
			},
		),
		evaluationSeconds: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "sentinel_evaluation_duration_seconds",
				Help:    "Duration of one rule evaluation pass.",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
		),
		notifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sentinel_notifications_total",
				Help: "Channel send attempts by channel and result.",
			},
			[]string{"channel", "result"},
		),
		activeAlerts: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "sentinel_active_alerts",
				Help: "Number of unresolved alerts.",
			},
		),
		scrapeErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sentinel_scrape_errors_total",
				Help: "Failed resource gauge scrapes by target.",
			},
			[]string{"target"},
		),
	}
	if reg != nil {
		reg.MustRegister(
			m.alertsFired,
			m.alertsResolved,
			m.ruleErrors,
			m.ticksSkipped,
			m.evaluationSeconds,
			m.notifications,
			m.activeAlerts,
			m.scrapeErrors,
		)
	}
	return m
}

// AlertFired counts one created alert.
func (m *Metrics) AlertFired(rule string, sev types.Severity) {
	if m == nil {
		return
	}
	m.alertsFired.WithLabelValues(rule, string(sev)).Inc()
}

// AlertResolved counts one open→resolved transition.
func (m *Metrics) AlertResolved() {
	if m == nil {
		return
	}
	m.alertsResolved.Inc()
}

// RuleError counts one failed condition evaluation.
func (m *Metrics) RuleError(rule string) {
	if m == nil {
		return
	}
	m.ruleErrors.WithLabelValues(rule).Inc()
}

// TickSkipped counts one skipped evaluation tick.
func (m *Metrics) TickSkipped() {
	if m == nil {
		return
	}
	m.ticksSkipped.Inc()
}

// ObserveEvaluation records the duration of one evaluation pass.
func (m *Metrics) ObserveEvaluation(d time.Duration) {
	if m == nil {
		return
	}
	m.evaluationSeconds.Observe(d.Seconds())
}

// Notification counts one channel send attempt.
func (m *Metrics) Notification(ch types.Channel, err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.notifications.WithLabelValues(string(ch), result).Inc()
}

// SetActiveAlerts sets the unresolved alert gauge.
func (m *Metrics) SetActiveAlerts(n int) {
	if m == nil {
		return
	}
	m.activeAlerts.Set(float64(n))
}

// ScrapeError counts one failed scrape of target.
func (m *Metrics) ScrapeError(target string) {
	if m == nil {
		return
	}
	m.scrapeErrors.WithLabelValues(target).Inc()
}
