package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "safelog"

// LoggerMetrics holds all Prometheus metrics for the logger and its intake.
type LoggerMetrics struct {
	EntriesTotal        *prometheus.CounterVec
	FileWritesTotal     *prometheus.CounterVec
	WriteFailuresTotal  *prometheus.CounterVec
	DroppedTotal        prometheus.Counter
	QueueDepth          prometheus.Gauge
	SweepDeletedTotal   prometheus.Counter
	SweepFailuresTotal  prometheus.Counter
	IntakeRequestsTotal *prometheus.CounterVec
	APIKeyCacheHits     prometheus.Counter
	APIKeyCacheMisses   prometheus.Counter
}

// NewLoggerMetrics registers the metrics with the default registry.
func NewLoggerMetrics() *LoggerMetrics {
	return NewLoggerMetricsWith(prometheus.DefaultRegisterer)
}

// NewLoggerMetricsWith registers the metrics with reg. Tests pass a fresh
// prometheus.NewRegistry() to avoid duplicate registration panics.
func NewLoggerMetricsWith(reg prometheus.Registerer) *LoggerMetrics {
	f := promauto.With(reg)
	return &LoggerMetrics{
		EntriesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "logger",
			Name:      "entries_total",
			Help:      "Total number of formatted log entries by level.",
		}, []string{"level"}),
		FileWritesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sink",
			Name:      "file_writes_total",
			Help:      "Total number of lines appended to log files by file kind.",
		}, []string{"file_kind"}), // file_kind: app, error, warn, security
		WriteFailuresTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sink",
			Name:      "write_failures_total",
			Help:      "Total number of log lines that could not be written, by reason.",
		}, []string{"reason"}), // reason: marshal, open, write, queue_full, closed
		DroppedTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sink",
			Name:      "dropped_total",
			Help:      "Total number of log lines dropped because the write queue was full.",
		}),
		QueueDepth: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sink",
			Name:      "queue_depth",
			Help:      "Number of log lines waiting for the writer.",
		}),
		SweepDeletedTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "retention",
			Name:      "deleted_total",
			Help:      "Total number of log files deleted by retention sweeps.",
		}),
		SweepFailuresTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "retention",
			Name:      "failures_total",
			Help:      "Total number of failed stat or delete operations during retention sweeps.",
		}),
		IntakeRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "intake",
			Name:      "requests_total",
			Help:      "Total number of client event intake requests by endpoint and status.",
		}, []string{"endpoint", "status"}),
		APIKeyCacheHits: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "api_key_cache_hits_total",
			Help:      "Total number of API key cache hits.",
		}),
		APIKeyCacheMisses: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "api_key_cache_misses_total",
			Help:      "Total number of API key cache misses.",
		}),
	}
}
