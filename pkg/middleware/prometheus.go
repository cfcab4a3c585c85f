package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Suhaibinator/SApp/pkg/app"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusConfig defines the configuration for Prometheus metrics.
type PrometheusConfig struct {
	Registry      *prometheus.Registry // Registry to register metrics with; nil creates a fresh one
	Namespace     string               // Namespace for metrics
	Subsystem     string               // Subsystem for metrics
	EnableLatency bool                 // Enable latency metrics
	EnableFaults  bool                 // Enable fault counting
}

// PrometheusMetrics holds the collectors for the metrics handler.
type PrometheusMetrics struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	faults   *prometheus.CounterVec
	config   PrometheusConfig
}

// NewPrometheusMetrics creates and registers the request metrics collectors.
func NewPrometheusMetrics(config PrometheusConfig) *PrometheusMetrics {
	if config.Registry == nil {
		config.Registry = prometheus.NewRegistry()
	}

	m := &PrometheusMetrics{
		registry: config.Registry,
		config:   config,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Subsystem: config.Subsystem,
			Name:      "requests_total",
			Help:      "Total number of requests by method and status.",
		}, []string{"method", "status"}),
	}
	m.registry.MustRegister(m.requests)

	if config.EnableLatency {
		m.latency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: config.Namespace,
			Subsystem: config.Subsystem,
			Name:      "request_duration_seconds",
			Help:      "Request duration in seconds by method.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"})
		m.registry.MustRegister(m.latency)
	}

	if config.EnableFaults {
		m.faults = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Subsystem: config.Subsystem,
			Name:      "request_faults_total",
			Help:      "Total number of faulted requests by method.",
		}, []string{"method"})
		m.registry.MustRegister(m.faults)
	}

	return m
}

// Registry returns the registry the collectors are registered with.
func (m *PrometheusMetrics) Registry() *prometheus.Registry { return m.registry }

// Handler returns the pipeline handler that records request metrics on the
// way out of the pipeline.
func (m *PrometheusMetrics) Handler() app.Handler {
	return func(c *app.Context, next app.Next) error {
		start := time.Now()

		err := next()

		method := c.Request.Method()
		m.requests.WithLabelValues(method, strconv.Itoa(c.Status())).Inc()
		if m.latency != nil {
			m.latency.WithLabelValues(method).Observe(time.Since(start).Seconds())
		}
		if m.faults != nil && err != nil {
			m.faults.WithLabelValues(method).Inc()
		}

		return err
	}
}

// ExpositionHandler returns an HTTP handler for exposing the collected
// Prometheus metrics, typically bound next to the App on a /metrics path.
func (m *PrometheusMetrics) ExpositionHandler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
