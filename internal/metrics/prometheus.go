// Package metrics provides Prometheus exporters for application metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the obligation lifecycle engine.
var (
	// Counters.
	CompletionsReviewedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "task_completions_reviewed_total",
			Help: "Total task completion reviews processed",
		},
		[]string{"outcome"},
	)

	ProofsReviewedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "punishment_proofs_reviewed_total",
			Help: "Total punishment proof reviews processed",
		},
		[]string{"outcome"},
	)

	TasksExpiredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tasks_expired_total",
			Help: "Total tasks deactivated by the deadline sweeper",
		},
	)

	PunishmentsExpiredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "punishment_assignments_expired_total",
			Help: "Total punishment assignments expired with doubled penalty",
		},
	)

	CascadesTriggeredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cascades_triggered_total",
			Help: "Total punishment assignments created automatically",
		},
		[]string{"source"}, // 'deadline' or 'threshold'
	)

	PointDeltasAppliedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "point_deltas_applied_total",
			Help: "Total ledger delta operations applied",
		},
		[]string{"direction"}, // 'credit' or 'debit'
	)

	RemindersSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminders_sent_total",
			Help: "Total reminders emitted",
		},
		[]string{"kind"}, // 'task' or 'punishment'
	)

	SweepRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sweep_runs_total",
			Help: "Total deadline sweep executions",
		},
		[]string{"status"},
	)

	SweepEntityFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sweep_entity_failures_total",
			Help: "Entities skipped by a sweep because processing failed",
		},
		[]string{"kind"},
	)

	// Gauges.
	SweepLastRunTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sweep_last_run_timestamp",
			Help: "Unix timestamp of the last deadline sweep",
		},
	)

	// Histograms.
	SweepDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sweep_duration_seconds",
			Help:    "Time taken to execute one deadline sweep",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~51s
		},
	)

	ReminderRunDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "reminder_run_duration_seconds",
			Help:    "Time taken to execute one reminder pass",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 8), // 50ms to ~6s
		},
	)
)

// RecordCompletionReviewed records a processed task completion review.
func RecordCompletionReviewed(outcome string) {
	CompletionsReviewedTotal.WithLabelValues(outcome).Inc()
}

// RecordProofReviewed records a processed punishment proof review.
func RecordProofReviewed(outcome string) {
	ProofsReviewedTotal.WithLabelValues(outcome).Inc()
}

// RecordTaskExpired records a task deactivated on deadline miss.
func RecordTaskExpired() {
	TasksExpiredTotal.Inc()
}

// RecordPunishmentExpired records a punishment assignment expiry.
func RecordPunishmentExpired() {
	PunishmentsExpiredTotal.Inc()
}

// RecordCascade records an automatically created punishment assignment.
func RecordCascade(source string) {
	CascadesTriggeredTotal.WithLabelValues(source).Inc()
}

// RecordPointDelta records a ledger delta by direction.
func RecordPointDelta(delta int) {
	if delta >= 0 {
		PointDeltasAppliedTotal.WithLabelValues("credit").Inc()
	} else {
		PointDeltasAppliedTotal.WithLabelValues("debit").Inc()
	}
}

// RecordReminderSent records an emitted reminder.
func RecordReminderSent(kind string) {
	RemindersSentTotal.WithLabelValues(kind).Inc()
}

// RecordSweepRun records a sweep execution with its status.
func RecordSweepRun(status string) {
	SweepRunsTotal.WithLabelValues(status).Inc()
}

// RecordSweepEntityFailure records an entity skipped during a sweep.
func RecordSweepEntityFailure(kind string) {
	SweepEntityFailuresTotal.WithLabelValues(kind).Inc()
}

// ObserveSweepDuration records how long a sweep took and stamps the run.
func ObserveSweepDuration(seconds float64) {
	SweepDurationSeconds.Observe(seconds)
	SweepLastRunTimestamp.Set(float64(time.Now().Unix()))
}

// ObserveReminderRunDuration records how long a reminder pass took.
func ObserveReminderRunDuration(seconds float64) {
	ReminderRunDurationSeconds.Observe(seconds)
}
