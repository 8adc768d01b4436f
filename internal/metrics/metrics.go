// Package metrics exposes Prometheus counters for the dispatch flow.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the dispatch instrumentation.
type Metrics struct {
	registry   *prometheus.Registry
	dispatches *prometheus.CounterVec
	duration   prometheus.Histogram
}

// New creates and registers the dispatch metrics on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hookboard",
			Name:      "dispatches_total",
			Help:      "Webhook dispatch attempts by outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "hookboard",
			Name:      "dispatch_duration_seconds",
			Help:      "Time spent on the outbound webhook request.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	registry.MustRegister(m.dispatches, m.duration)
	return m
}

// ObserveDispatch records one dispatch attempt.
func (m *Metrics) ObserveDispatch(outcome string, duration time.Duration) {
	m.dispatches.WithLabelValues(outcome).Inc()
	m.duration.Observe(duration.Seconds())
}

// Handler serves the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
