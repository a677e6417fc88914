// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Ingestion metrics
	BarsIngested    *prometheus.CounterVec
	IngestionErrors *prometheus.CounterVec

	// Simulation metrics
	TradesSimulated prometheus.Counter
	DaysSkipped     *prometheus.CounterVec
	SamplesBuilt    prometheus.Counter
	FrictionFlagged prometheus.Counter

	// Validation metrics
	VerdictsTotal   *prometheus.CounterVec
	PhaseFailures   *prometheus.CounterVec
	LifecycleMoves  *prometheus.CounterVec
	StatusConflicts prometheus.Counter

	// Sweep metrics
	SweepEdgesTotal  prometheus.Counter
	SweepErrors      prometheus.Counter
	SweepDuration    prometheus.Histogram
	EdgeEvalDuration prometheus.Histogram

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "orb_edge_lab"
	}

	return &Metrics{
		BarsIngested: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "bars_ingested_total",
			Help:      "Total number of minute bars ingested by instrument",
		}, []string{"instrument"}),
		IngestionErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "errors_total",
			Help:      "Total number of ingestion errors by type",
		}, []string{"error_type"}),

		TradesSimulated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "trades_simulated_total",
			Help:      "Total number of trades resolved by the simulator",
		}),
		DaysSkipped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "days_skipped_total",
			Help:      "Total number of trading days excluded by reason",
		}, []string{"reason"}),
		SamplesBuilt: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "samples_built_total",
			Help:      "Total number of samples built",
		}),
		FrictionFlagged: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "friction_flagged_total",
			Help:      "Total number of trades with friction ratio above the ceiling",
		}),

		VerdictsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "validation",
			Name:      "verdicts_total",
			Help:      "Total number of validation verdicts by classification",
		}, []string{"classification"}),
		PhaseFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "validation",
			Name:      "phase_failures_total",
			Help:      "Total number of gate phase failures by phase",
		}, []string{"phase"}),
		LifecycleMoves: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lifecycle",
			Name:      "transitions_total",
			Help:      "Total number of edge status transitions",
		}, []string{"from", "to"}),
		StatusConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lifecycle",
			Name:      "status_conflicts_total",
			Help:      "Total number of compare-and-set status conflicts",
		}),

		SweepEdgesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "edges_evaluated_total",
			Help:      "Total number of edges evaluated by sweeps",
		}),
		SweepErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "errors_total",
			Help:      "Total number of edge evaluation errors",
		}),
		SweepDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "duration_seconds",
			Help:      "Wall time of full sweeps",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		EdgeEvalDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "edge_eval_seconds",
			Help:      "Wall time of single edge evaluations",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		}),

		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration by database and operation",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Database query errors by database and operation",
		}, []string{"database", "operation"}),
	}
}

// RecordSample records the outcome breakdown of one sample build.
func (m *Metrics) RecordSample(trades, frictionFlagged int, skips map[string]int) {
	m.SamplesBuilt.Inc()
	m.TradesSimulated.Add(float64(trades))
	m.FrictionFlagged.Add(float64(frictionFlagged))
	for reason, n := range skips {
		m.DaysSkipped.WithLabelValues(reason).Add(float64(n))
	}
}

// RecordVerdict records a verdict and its failed phases.
func (m *Metrics) RecordVerdict(classification string, failedPhases []string) {
	m.VerdictsTotal.WithLabelValues(classification).Inc()
	for _, phase := range failedPhases {
		m.PhaseFailures.WithLabelValues(phase).Inc()
	}
}

// RecordTransition records a lifecycle status move.
func (m *Metrics) RecordTransition(from, to string) {
	m.LifecycleMoves.WithLabelValues(from, to).Inc()
}

// RecordDBQuery records database query metrics.
func (m *Metrics) RecordDBQuery(database, operation string, seconds float64, err error) {
	m.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		m.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
