package api

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// serverMetrics holds the Prometheus instrumentation for the API server.
// Each server owns its own registry so tests never collide on the global one.
type serverMetrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	registrations prometheus.Counter
	logins        prometheus.Counter
	loginFailures prometheus.Counter
	refreshes     prometheus.Counter
}

// newServerMetrics creates and registers all server collectors.
func newServerMetrics() *serverMetrics {
	registry := prometheus.NewRegistry()

	m := &serverMetrics{
		registry: registry,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "authcore",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, path, and status.",
		}, []string{"method", "path", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "authcore",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by method and path.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
		registrations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "authcore",
			Subsystem: "auth",
			Name:      "registrations_total",
			Help:      "Successful account registrations.",
		}),
		logins: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "authcore",
			Subsystem: "auth",
			Name:      "logins_total",
			Help:      "Successful logins.",
		}),
		loginFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "authcore",
			Subsystem: "auth",
			Name:      "login_failures_total",
			Help:      "Rejected login attempts.",
		}),
		refreshes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "authcore",
			Subsystem: "auth",
			Name:      "token_refreshes_total",
			Help:      "Successful refresh token rotations.",
		}),
	}

	registry.MustRegister(
		m.httpRequests,
		m.httpDuration,
		m.registrations,
		m.logins,
		m.loginFailures,
		m.refreshes,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// observeRequest records one completed HTTP request.
func (m *serverMetrics) observeRequest(method, path, status string, duration time.Duration) {
	m.httpRequests.WithLabelValues(method, path, status).Inc()
	m.httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// handler returns the Prometheus scrape endpoint for this server's registry.
func (m *serverMetrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
