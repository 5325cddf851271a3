package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "remotefs_http_requests_total",
		Help: "Total HTTP requests processed, by route and status code.",
	}, []string{"route", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name: "remotefs_http_request_duration_seconds",
		Help: "HTTP request latency in seconds, by route.",
	}, []string{"route"})
)

// MetricsHandler exposes the /metrics endpoint for Prometheus scraping.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// metricsMiddleware records request count and latency per request URL path
// (the concrete path, not the matched route pattern).
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := r.URL.Path
		requestsTotal.WithLabelValues(route, strconv.Itoa(ww.Status())).Inc()
		requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}
