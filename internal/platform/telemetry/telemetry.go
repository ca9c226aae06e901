// Package telemetry exposes Prometheus metrics for the dental service:
// HTTP request duration and in-flight gauges, and counters for state store
// mutations and persistence failures.
package telemetry

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var defaultDurationBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}

// Provider owns a registry and the collectors registered on it.
type Provider struct {
	registry       *prometheus.Registry
	requestSeconds *prometheus.HistogramVec
	activeRequests prometheus.Gauge
	mutations      *prometheus.CounterVec
	failures       *prometheus.CounterVec
}

// NewProvider builds a provider on a fresh registry. Process and Go runtime
// collectors are included when withRuntime is true.
func NewProvider(withRuntime bool) *Provider {
	reg := prometheus.NewRegistry()
	p := &Provider{
		registry: reg,
		requestSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "dental",
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds.",
			Buckets:   defaultDurationBuckets,
		}, []string{"method", "route", "status"}),
		activeRequests: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "dental",
			Name:      "http_active_requests",
			Help:      "Number of in-flight HTTP requests.",
		}),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dental",
			Name:      "store_mutations_total",
			Help:      "Committed store mutations by collection and operation.",
		}, []string{"collection", "operation"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dental",
			Name:      "store_persist_failures_total",
			Help:      "Store writes that failed to persist, by collection.",
		}, []string{"collection"}),
	}
	reg.MustRegister(p.requestSeconds, p.activeRequests, p.mutations, p.failures)
	if withRuntime {
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	return p
}

// Registry returns the underlying registry.
func (p *Provider) Registry() *prometheus.Registry { return p.registry }

// RecordMutation counts a committed mutation. Safe on a nil provider.
func (p *Provider) RecordMutation(collection, operation string) {
	if p == nil {
		return
	}
	p.mutations.WithLabelValues(collection, operation).Inc()
}

// RecordPersistFailure counts a failed write. Safe on a nil provider.
func (p *Provider) RecordPersistFailure(collection string) {
	if p == nil {
		return
	}
	p.failures.WithLabelValues(collection).Inc()
}

// MetricsMiddleware records request duration labelled by route pattern.
func (p *Provider) MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p.activeRequests.Inc()
			defer p.activeRequests.Dec()

			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
			route := c.Path()
			if route == "" {
				route = c.Request().URL.Path
			}
			p.requestSeconds.
				WithLabelValues(c.Request().Method, route, strconv.Itoa(status)).
				Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// PrometheusHandler serves the registry in the Prometheus exposition format.
func (p *Provider) PrometheusHandler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{}))
}
