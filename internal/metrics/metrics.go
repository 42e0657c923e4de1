// Package metrics holds the Prometheus collectors exported at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinema_http_requests_total",
			Help: "HTTP requests by method, route and status code.",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cinema_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	CacheResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinema_cache_results_total",
			Help: "Response cache lookups by result (hit, miss, error).",
		},
		[]string{"result"},
	)

	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinema_events_published_total",
			Help: "Activity events published to the broker by type and outcome.",
		},
		[]string{"type", "outcome"},
	)

	ImportItems = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinema_import_items_total",
			Help: "Movies seen by the import job by outcome (imported, skipped, failed).",
		},
		[]string{"outcome"},
	)

	TMDBRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cinema_tmdb_request_duration_seconds",
			Help:    "Latency of calls to the movie metadata provider.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"endpoint", "status"},
	)
)

// CircuitBreakerState is 0 closed, 1 half-open, 2 open.
var CircuitBreakerState = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "cinema_circuit_breaker_state",
		Help: "Circuit breaker state per upstream (0 closed, 1 half-open, 2 open).",
	},
	[]string{"name"},
)
