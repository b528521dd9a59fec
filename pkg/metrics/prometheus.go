package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	errorsTotal  *prometheus.CounterVec
	latency      *prometheus.HistogramVec
	cacheResults *prometheus.CounterVec
	snapshotRows prometheus.Histogram
}

// New creates a recorder registered with the default registry.
func New() *Recorder {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer creates a recorder registered with reg.
func NewWithRegisterer(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "analytics_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "analytics_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		cacheResults: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "analytics_cache_requests_total",
				Help: "Cache lookups by result",
			},
			[]string{"cache", "result"},
		),
		snapshotRows: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "analytics_snapshot_rows",
				Help:    "Transactions loaded per snapshot",
				Buckets: prometheus.ExponentialBuckets(10, 4, 8),
			},
		),
	}
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// RecordCacheResult counts a cache hit or miss.
func (r *Recorder) RecordCacheResult(cache string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheResults.WithLabelValues(cache, result).Inc()
}

// RecordSnapshotRows observes how many rows one snapshot fetch returned.
func (r *Recorder) RecordSnapshotRows(rows int) {
	r.snapshotRows.Observe(float64(rows))
}
