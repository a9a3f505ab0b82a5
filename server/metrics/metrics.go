package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Generation outcomes recorded per action.
const (
	OutcomeOK       = "ok"
	OutcomeSoftFail = "soft_fail"
	OutcomeFailed   = "failed"
	OutcomeInvalid  = "invalid"
)

// Metrics encapsulates Prometheus metrics for the server.
type Metrics struct {
	registry        *prometheus.Registry
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	ActiveRequests  *prometheus.GaugeVec
	ErrorsTotal     *prometheus.CounterVec
	RateLimitHits   *prometheus.CounterVec

	// Generation pipeline
	GenerationsTotal *prometheus.CounterVec
	TagFallbacks     prometheus.Counter
	StreamChunks     prometheus.Counter
}

// NewMetrics creates a new Metrics instance with a custom registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	m := &Metrics{
		registry: registry,
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "studyscribe_http_requests_total",
				Help: "Total number of HTTP requests by endpoint and status",
			},
			[]string{"endpoint", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "studyscribe_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),
		ActiveRequests: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "studyscribe_http_active_requests",
				Help: "Number of currently active HTTP requests",
			},
			[]string{"endpoint"},
		),
		ErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "studyscribe_errors_total",
				Help: "Total number of errors by type",
			},
			[]string{"type"},
		),
		RateLimitHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "studyscribe_rate_limit_hits_total",
				Help: "Total number of rate limit hits by client",
			},
			[]string{"client"},
		),
		GenerationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "studyscribe_generations_total",
				Help: "Generation requests by action and outcome",
			},
			[]string{"action", "outcome"},
		),
		TagFallbacks: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "studyscribe_tag_fallbacks_total",
				Help: "Tag extractions whose model output had no comma separator",
			},
		),
		StreamChunks: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "studyscribe_stream_chunks_total",
				Help: "Chat stream chunks relayed to clients",
			},
		),
	}

	// Register default Go metrics
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m.RequestsTotal.WithLabelValues("/health", "200").Add(0)
	m.RequestsTotal.WithLabelValues("/metrics", "200").Add(0)

	return m
}

// Registry exposes the registry so other components (breaker, backends)
// register their collectors next to the HTTP metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveGeneration counts one finished generation.
func (m *Metrics) ObserveGeneration(action, outcome string) {
	m.GenerationsTotal.WithLabelValues(action, outcome).Inc()
}

// Handler returns a handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: false,
	})
}
