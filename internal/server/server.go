// Package server builds the progress relay from configuration and runs it.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/progress-relay/internal/api"
	"github.com/JakeFAU/progress-relay/internal/config"
	"github.com/JakeFAU/progress-relay/internal/metrics"
	"github.com/JakeFAU/progress-relay/internal/progress"
	"github.com/JakeFAU/progress-relay/internal/progress/sinks"
	memorypublisher "github.com/JakeFAU/progress-relay/internal/publisher/memory"
	gcppublisher "github.com/JakeFAU/progress-relay/internal/publisher/pubsub"
	redispublisher "github.com/JakeFAU/progress-relay/internal/publisher/redis"
)

const pingTimeout = 5 * time.Second

// App contains the application's dependencies.
type App struct {
	cfg       config.Config
	logger    *zap.Logger
	registry  *prometheus.Registry
	tracker   *progress.Tracker
	forwarder *progress.Forwarder
	publisher sinks.Publisher
	apiServer *api.Server
}

// NewApp creates the tracker, sinks, forwarder, and HTTP surface described by cfg.
func NewApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("creating application",
		zap.Int("server_port", cfg.Server.Port),
		zap.String("publisher", cfg.Sinks.Publisher),
		zap.Duration("min_interval", cfg.Tracker.MinInterval),
		zap.Bool("auto_done", cfg.Tracker.AutoDone),
	)

	a := &App{
		cfg:      cfg,
		logger:   logger,
		registry: prometheus.NewRegistry(),
	}
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	a.tracker = progress.New(
		progress.WithMinInterval(cfg.Tracker.MinInterval),
		progress.WithAutoDone(cfg.Tracker.AutoDone),
		progress.WithBufferSize(cfg.Tracker.BufferSize),
		progress.WithLogger(logger.Named("tracker")),
	)
	if err := metrics.RegisterTracker(a.registry, a.tracker); err != nil {
		return nil, a.abort(err)
	}
	httpMetrics, err := metrics.NewHTTP(a.registry)
	if err != nil {
		return nil, a.abort(err)
	}

	sinkList, err := a.buildSinks(ctx)
	if err != nil {
		return nil, a.abort(err)
	}
	a.forwarder = progress.NewForwarder(progress.ForwarderConfig{
		MaxBatchReports: cfg.Forwarder.MaxBatchReports,
		MaxBatchWait:    cfg.Forwarder.MaxBatchWait,
		SinkTimeout:     cfg.Forwarder.SinkTimeout,
		Logger:          logger.Named("forwarder"),
	}, sinkList...)

	a.apiServer = api.NewServer(a.tracker, cfg, logger.Named("http"), httpMetrics, a.registry)
	return a, nil
}

func (a *App) buildSinks(ctx context.Context) ([]progress.Sink, error) {
	var out []progress.Sink
	if a.cfg.Sinks.Log {
		out = append(out, sinks.NewLogSink(a.logger.Named("reports")))
	}
	if a.cfg.Sinks.Prometheus {
		promSink, err := sinks.NewPrometheusSink(a.registry)
		if err != nil {
			return nil, fmt.Errorf("init prometheus sink: %w", err)
		}
		out = append(out, promSink)
	}
	pub, err := a.buildPublisher(ctx)
	if err != nil {
		return nil, err
	}
	if pub != nil {
		a.publisher = pub
		publishSink, err := sinks.NewPublishSink(pub, a.cfg.Sinks.Topic, a.logger.Named("publish"))
		if err != nil {
			return nil, fmt.Errorf("init publish sink: %w", err)
		}
		out = append(out, publishSink)
	}
	return out, nil
}

func (a *App) buildPublisher(ctx context.Context) (sinks.Publisher, error) {
	switch a.cfg.Sinks.Publisher {
	case config.PublisherNone, "":
		return nil, nil //nolint:nilnil // no publisher configured
	case config.PublisherMemory:
		a.logger.Info("using in-memory publisher; reports are kept in process")
		return memorypublisher.New(), nil
	case config.PublisherPubSub:
		a.logger.Info("connecting to GCP Pub/Sub", zap.String("project_id", a.cfg.PubSub.ProjectID))
		pub, err := gcppublisher.New(ctx, a.cfg.PubSub.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("init pubsub publisher: %w", err)
		}
		return pub, nil
	case config.PublisherRedis:
		a.logger.Info("connecting to Redis", zap.String("addr", a.cfg.Redis.Addr))
		pub, err := redispublisher.New(redispublisher.Options{
			Addr:     a.cfg.Redis.Addr,
			Password: a.cfg.Redis.Password,
			DB:       a.cfg.Redis.DB,
		})
		if err != nil {
			return nil, fmt.Errorf("init redis publisher: %w", err)
		}
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()
		if err := pub.Ping(pingCtx); err != nil {
			_ = pub.Close()
			return nil, fmt.Errorf("init redis publisher: %w", err)
		}
		return pub, nil
	default:
		return nil, fmt.Errorf("unknown publisher %q", a.cfg.Sinks.Publisher)
	}
}

// abort releases whatever was built before a construction failure.
func (a *App) abort(err error) error {
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if closeErr := a.tracker.Close(ctx); closeErr != nil {
		a.logger.Warn("tracker close failed", zap.Error(closeErr))
	}
	a.closePublisher()
	return err
}

// Tracker exposes the tracker so in-process producers can report progress.
func (a *App) Tracker() *progress.Tracker {
	return a.tracker
}

// Handler returns the HTTP handler serving the API and metrics.
func (a *App) Handler() http.Handler {
	return a.apiServer.Handler()
}

// Run listens on the configured port and blocks until ctx is cancelled or
// the server fails.
func (a *App) Run(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", a.cfg.Server.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return a.abort(fmt.Errorf("listen %s: %w", addr, err))
	}
	return a.Serve(ctx, ln)
}

// Serve runs the forwarder and the HTTP server on ln until ctx is cancelled
// or either fails, then shuts everything down. Closing the tracker first ends
// every stream so the HTTP shutdown is not held open by SSE clients.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           a.apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	feed := a.tracker.Subscribe(context.Background(),
		progress.WithAutoDone(false),
		progress.WithMinInterval(a.cfg.Forwarder.MinInterval),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info("forwarder started", zap.String("subscription_id", feed.ID()))
		// Ends once the tracker is closed and the remaining reports are flushed.
		return a.forwarder.Run(context.WithoutCancel(gctx), feed)
	})
	g.Go(func() error {
		a.logger.Info("http server started", zap.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve http: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("shutdown initiated")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout())
		defer cancel()
		var errs []error
		if err := a.tracker.Close(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
		if err := srv.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown http server: %w", err))
		}
		return errors.Join(errs...)
	})

	err := g.Wait()
	a.closePublisher()
	a.logger.Info("shutdown complete", zap.Uint64("reports_emitted", a.tracker.Emitted()))
	return err
}

func (a *App) shutdownTimeout() time.Duration {
	if a.cfg.Server.ShutdownTimeout <= 0 {
		return 10 * time.Second
	}
	return a.cfg.Server.ShutdownTimeout
}

func (a *App) closePublisher() {
	closer, ok := a.publisher.(io.Closer)
	if !ok {
		return
	}
	if err := closer.Close(); err != nil {
		a.logger.Warn("publisher close failed", zap.Error(err))
	}
}
