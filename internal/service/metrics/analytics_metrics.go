package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	AnalyticsLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "analytics",
			Subsystem: "metrics_api",
			Name:      "latency_seconds",
			Help:      "Latency of metric detail endpoints",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	AnalyticsErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "analytics",
			Subsystem: "metrics_api",
			Name:      "errors_total",
			Help:      "Errors by metric endpoint and error code",
		},
		[]string{"endpoint", "code"},
	)

	ImportEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "analytics",
			Subsystem: "imports",
			Name:      "events_total",
			Help:      "Import events consumed, by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(AnalyticsLatency, AnalyticsErrors, ImportEvents)
	})
}

// ObserveEndpoint records latency for endpoint and, when code is set, an error.
func ObserveEndpoint(endpoint string, start time.Time, code string) {
	AnalyticsLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if code != "" {
		AnalyticsErrors.WithLabelValues(endpoint, code).Inc()
	}
}
