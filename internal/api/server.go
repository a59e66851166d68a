package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/JakeFAU/progress-relay/internal/config"
	"github.com/JakeFAU/progress-relay/internal/metrics"
	"github.com/JakeFAU/progress-relay/internal/progress"
)

// Tracker is the part of *progress.Tracker the HTTP surface relies on.
type Tracker interface {
	Apply(u progress.Update)
	Last() (progress.Report, bool)
	Emitted() uint64
	Subscribers() int
	Subscribe(ctx context.Context, opts ...progress.Option) *progress.Subscription
}

// Server wires HTTP handlers to a progress tracker.
type Server struct {
	router  chi.Router
	tracker Tracker
	logger  *zap.Logger
}

// NewServer constructs a Server with middleware and routes. httpMetrics and
// gatherer are optional; without a gatherer /metrics serves the default
// Prometheus registry.
func NewServer(
	tracker Tracker,
	cfg config.Config,
	logger *zap.Logger,
	httpMetrics *metrics.HTTP,
	gatherer prometheus.Gatherer,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		tracker: tracker,
		logger:  logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	if httpMetrics != nil {
		r.Use(httpMetrics.Middleware)
	}

	r.Get("/healthz", s.healthz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler(gatherer))

	r.Route("/v1/progress", func(r chi.Router) {
		if cfg.Auth.Enabled {
			r.Use(s.apiKeyMiddleware(cfg.Auth.APIKey))
		}
		// The stream outlives any request timeout and needs http.Flusher.
		r.Get("/stream", s.streamReports)
		r.Group(func(r chi.Router) {
			r.Use(timeoutMiddleware(requestTimeout(cfg.Server.RequestTimeout)))
			r.Get("/", s.lastReport)
			r.Post("/updates", s.applyUpdate)
		})
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func requestTimeout(d time.Duration) time.Duration {
	if d <= 0 {
		return 30 * time.Second
	}
	return d
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("write JSON failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
