// Package metrics exposes Prometheus instrumentation for the API server.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector groups the application metrics behind a private registry so
// multiple server instances in tests never collide on registration.
type Collector struct {
	registry *prometheus.Registry

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	DestinationsCreated prometheus.Counter
	DestinationsDeleted prometheus.Counter
	NotesCreated        prometheus.Counter
	QuestionsAsked      prometheus.Counter
	WeatherLookups      *prometheus.CounterVec

	RateLimitedRequests *prometheus.CounterVec
	ActiveRateClients   *prometheus.GaugeVec
}

// NewCollector builds the metric set under the given namespace and registers
// it with a fresh registry.
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	collector := &Collector{
		registry: registry,
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		DestinationsCreated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "destinations_created_total",
				Help:      "Total number of destinations created",
			},
		),
		DestinationsDeleted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "destinations_deleted_total",
				Help:      "Total number of destinations deleted",
			},
		),
		NotesCreated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "notes_created_total",
				Help:      "Total number of notes created",
			},
		),
		QuestionsAsked: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "questions_asked_total",
				Help:      "Total number of advisory questions asked",
			},
		),
		WeatherLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "weather_lookups_total",
				Help:      "Total number of weather lookups by outcome",
			},
			[]string{"outcome"},
		),
		RateLimitedRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limited_requests_total",
				Help:      "Total number of requests rejected by the rate limiter",
			},
			[]string{"class"},
		),
		ActiveRateClients: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "rate_limiter_active_clients",
				Help:      "Number of clients currently tracked by the rate limiter",
			},
			[]string{"class"},
		),
	}

	registry.MustRegister(
		collector.HTTPRequests,
		collector.HTTPDuration,
		collector.DestinationsCreated,
		collector.DestinationsDeleted,
		collector.NotesCreated,
		collector.QuestionsAsked,
		collector.WeatherLookups,
		collector.RateLimitedRequests,
		collector.ActiveRateClients,
	)

	return collector
}

// ObserveRequest records one completed HTTP request.
func (c *Collector) ObserveRequest(method, route, status string, elapsed time.Duration) {
	c.HTTPRequests.WithLabelValues(method, route, status).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// Handler serves the collector's registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for test assertions.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
