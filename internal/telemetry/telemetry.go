// Package telemetry exposes Prometheus collectors for the content API.
package telemetry

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec
	publishesTotal             *prometheus.CounterVec
	rateLimitedTotal           prometheus.Counter
	revalidationsTotal         *prometheus.CounterVec

	once sync.Once
)

// Init initializes the Prometheus collectors. Safe to call multiple times.
func Init() {
	once.Do(func() {
		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "contentapi_http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "contentapi_http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)

		publishesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "contentapi_publishes_total",
				Help: "Total number of publish attempts, labeled by action and outcome.",
			},
			[]string{"action", "outcome"},
		)

		rateLimitedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "contentapi_rate_limited_total",
				Help: "Total number of publish requests rejected by the rate limiter.",
			},
		)

		revalidationsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "contentapi_revalidations_total",
				Help: "Total number of revalidation signals, labeled by outcome.",
			},
			[]string{"outcome"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObservePublish increments the publish counter.
func ObservePublish(action, outcome string) {
	publishesTotal.WithLabelValues(action, outcome).Inc()
}

// ObserveRateLimited increments the rate limit rejection counter.
func ObserveRateLimited() {
	rateLimitedTotal.Inc()
}

// ObserveRevalidation increments the revalidation counter.
func ObserveRevalidation(outcome string) {
	revalidationsTotal.WithLabelValues(outcome).Inc()
}
