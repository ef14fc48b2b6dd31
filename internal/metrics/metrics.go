// Package metrics exposes Prometheus metrics for the Steppy service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every collector on a private registry.
type Metrics struct {
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	FallbacksTotal   *prometheus.CounterVec
	CompletionsTotal *prometheus.CounterVec
	BadgesAwarded    *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates and registers all metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "steppy_http_requests_total",
				Help: "HTTP requests by route pattern and status code.",
			},
			[]string{"route", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "steppy_http_request_duration_seconds",
				Help:    "HTTP request latency by route pattern.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		FallbacksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "steppy_fallbacks_total",
				Help: "Responses served from a fallback tier, by operation and tier.",
			},
			[]string{"operation", "tier"},
		),
		CompletionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "steppy_task_completions_total",
				Help: "Submitted task results by category and outcome.",
			},
			[]string{"category", "completed"},
		),
		BadgesAwarded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "steppy_badges_awarded_total",
				Help: "Badge levels awarded by family and level.",
			},
			[]string{"type", "level"},
		),
		registry: reg,
	}

	reg.MustRegister(m.RequestsTotal, m.RequestDuration, m.FallbacksTotal, m.CompletionsTotal, m.BadgesAwarded)
	return m
}

// Handler returns an http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordFallback counts a response served from tier for operation.
func (m *Metrics) RecordFallback(operation, tier string) {
	if m == nil {
		return
	}
	m.FallbacksTotal.WithLabelValues(operation, tier).Inc()
}

// RecordCompletion counts a submitted result.
func (m *Metrics) RecordCompletion(category string, completed bool) {
	if m == nil {
		return
	}
	m.CompletionsTotal.WithLabelValues(category, strconv.FormatBool(completed)).Inc()
}

// RecordBadge counts an awarded badge level.
func (m *Metrics) RecordBadge(badgeType string, level int) {
	if m == nil {
		return
	}
	m.BadgesAwarded.WithLabelValues(badgeType, strconv.Itoa(level)).Inc()
}

// Middleware records request count and latency by chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		started := time.Now()
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.RequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
		m.RequestDuration.WithLabelValues(route).Observe(time.Since(started).Seconds())
	})
}
