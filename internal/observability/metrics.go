// Package observability provides Prometheus metrics and structured logging.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"channel-trust-lab/internal/domain"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Scoring metrics
	SnapshotsScored *prometheus.CounterVec
	ScoringErrors   *prometheus.CounterVec
	ScoringLatency  prometheus.Histogram
	FinalScore      prometheus.Histogram
	TrustFactor     prometheus.Histogram
	PenaltiesFired  *prometheus.CounterVec

	// Ingestion metrics
	FeedMessages    *prometheus.CounterVec
	FeedReconnects  prometheus.Counter
	FeedMsgLatency  prometheus.Histogram
	LastIngestion   prometheus.Gauge

	// Batch metrics
	RescoreRuns            *prometheus.CounterVec
	RescoreDuration        prometheus.Histogram
	VerificationMismatches *prometheus.CounterVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
}

// NewMetrics creates a Metrics instance registered with reg.
// A nil reg uses the default Prometheus registerer.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "channel_trust_lab"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		SnapshotsScored: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scoring",
			Name:      "snapshots_scored_total",
			Help:      "Total number of snapshots scored by terminal state and verdict",
		}, []string{"terminal", "verdict"}),
		ScoringErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scoring",
			Name:      "errors_total",
			Help:      "Total number of snapshots that could not be scored or persisted",
		}, []string{"stage"}),
		ScoringLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scoring",
			Name:      "latency_seconds",
			Help:      "Time to score one snapshot",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}),
		FinalScore: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scoring",
			Name:      "final_score",
			Help:      "Distribution of final scores",
			Buckets:   []float64{25, 40, 55, 75, 100},
		}),
		TrustFactor: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scoring",
			Name:      "trust_factor",
			Help:      "Distribution of trust factors",
			Buckets:   []float64{0, 0.1, 0.3, 0.5, 0.7, 0.9, 1},
		}),
		PenaltiesFired: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scoring",
			Name:      "penalties_total",
			Help:      "Total number of trust penalties applied by key",
		}, []string{"penalty"}),

		FeedMessages: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "feed_messages_total",
			Help:      "Total number of feed messages by outcome",
		}, []string{"outcome"}),
		FeedReconnects: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "feed_reconnects_total",
			Help:      "Total number of websocket feed reconnects",
		}),
		FeedMsgLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "message_latency_seconds",
			Help:      "Feed message processing latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		LastIngestion: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_ingestion_timestamp",
			Help:      "Unix timestamp of last successfully ingested snapshot",
		}),

		RescoreRuns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rescore",
			Name:      "runs_total",
			Help:      "Total number of re-scoring runs by status",
		}, []string{"status"}),
		RescoreDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "rescore",
			Name:      "duration_seconds",
			Help:      "Re-scoring run duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),
		VerificationMismatches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "verification",
			Name:      "mismatches_total",
			Help:      "Total number of stored records that differ from a fresh re-score",
		}, []string{"field"}),

		DBQueryDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("", nil)

// RecordResult records a scored snapshot.
func (m *Metrics) RecordResult(res *domain.ScoreResult, seconds float64) {
	m.SnapshotsScored.WithLabelValues(string(res.Terminal), string(res.Verdict)).Inc()
	m.ScoringLatency.Observe(seconds)
	m.FinalScore.Observe(float64(res.FinalScore))
	m.TrustFactor.Observe(res.TrustFactor)
	for _, p := range res.TrustDetails {
		m.PenaltiesFired.WithLabelValues(p.Key.String()).Inc()
	}
}

// RecordError records a failure at the named stage.
func (m *Metrics) RecordError(stage string) {
	m.ScoringErrors.WithLabelValues(stage).Inc()
}

// RecordFeedMessage records the outcome of one feed message.
func (m *Metrics) RecordFeedMessage(outcome string, seconds float64) {
	m.FeedMessages.WithLabelValues(outcome).Inc()
	m.FeedMsgLatency.Observe(seconds)
}

// RecordRescoreRun records a batch re-scoring run.
func (m *Metrics) RecordRescoreRun(status string, durationSeconds float64) {
	m.RescoreRuns.WithLabelValues(status).Inc()
	m.RescoreDuration.Observe(durationSeconds)
}

// RecordDBQuery records database query metrics.
func (m *Metrics) RecordDBQuery(database, operation string, seconds float64, err error) {
	m.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		m.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
