// Package metrics exposes Prometheus collectors for the HTTP surface and the
// tracker itself.
package metrics

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTP records request counts and latencies per route.
type HTTP struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewHTTP registers the HTTP collectors against reg.
func NewHTTP(reg prometheus.Registerer) (*HTTP, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &HTTP{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30, 300},
			},
			[]string{"method", "route"},
		),
	}
	for _, c := range []prometheus.Collector{m.requests, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register http collector: %w", err)
		}
	}
	return m, nil
}

// Middleware is a chi middleware that records HTTP request metrics. The
// wrapped writer keeps http.Flusher available for streaming handlers.
func (m *HTTP) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unknown"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.requests.WithLabelValues(r.Method, strconv.Itoa(status)).Inc()
		m.duration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// TrackerStats is the read-only view of a tracker exported as metrics.
type TrackerStats interface {
	Emitted() uint64
	Subscribers() int
}

// RegisterTracker exports the tracker's emitted report count and live
// subscription count.
func RegisterTracker(reg prometheus.Registerer, stats TrackerStats) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	emitted := prometheus.NewCounterFunc(prometheus.CounterOpts{
		Name: "progress_tracker_reports_emitted_total",
		Help: "Reports emitted by the aggregator.",
	}, func() float64 { return float64(stats.Emitted()) })
	subscribers := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "progress_tracker_subscribers",
		Help: "Live subscriptions attached to the tracker.",
	}, func() float64 { return float64(stats.Subscribers()) })
	for _, c := range []prometheus.Collector{emitted, subscribers} {
		if err := reg.Register(c); err != nil {
			return fmt.Errorf("register tracker collector: %w", err)
		}
	}
	return nil
}

// Handler returns an http.Handler exposing the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
