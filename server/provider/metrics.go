package provider

import "github.com/prometheus/client_golang/prometheus"

type managerMetrics struct {
	requestLatency       *prometheus.HistogramVec
	upstreamErrors       *prometheus.CounterVec
	deduplicatedRequests prometheus.Counter
}

// newManagerMetrics registers the manager's collectors. A nil registry
// leaves them unregistered, which tests use to build several managers.
func newManagerMetrics(registry *prometheus.Registry) *managerMetrics {
	m := &managerMetrics{
		requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "studyscribe_upstream_latency_seconds",
			Help:    "Latency of model calls by backend and mode",
			Buckets: []float64{.25, .5, 1, 2.5, 5, 10, 20, 40, 80},
		}, []string{"backend", "mode"}),

		upstreamErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "studyscribe_upstream_errors_total",
			Help: "Failed model calls by backend and mode",
		}, []string{"backend", "mode"}),

		deduplicatedRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "studyscribe_deduplicated_requests_total",
			Help: "Batch generations answered by an identical in-flight call",
		}),
	}

	if registry != nil {
		registry.MustRegister(m.requestLatency, m.upstreamErrors, m.deduplicatedRequests)
	}
	return m
}
