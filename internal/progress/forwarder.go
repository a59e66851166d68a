package progress

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ForwarderConfig controls batching for a Forwarder.
//   - MaxBatchReports: flush once this many reports queue (default 100).
//   - MaxBatchWait: flush after this duration even if the batch is small (default 250ms).
//   - SinkTimeout: per-sink timeout while flushing or closing (default 5s).
//   - Logger: optional structured logger used for warnings.
type ForwarderConfig struct {
	MaxBatchReports int
	MaxBatchWait    time.Duration
	SinkTimeout     time.Duration
	Logger          *zap.Logger
}

const (
	defaultMaxBatchReports = 100
	defaultMaxBatchWait    = 250 * time.Millisecond
	defaultSinkTimeout     = 5 * time.Second
)

// Forwarder drains a report stream into sinks in batches.
type Forwarder struct {
	cfg    ForwarderConfig
	sinks  []Sink
	logger *zap.Logger
}

// NewForwarder builds a Forwarder for the supplied sinks.
func NewForwarder(cfg ForwarderConfig, sinks ...Sink) *Forwarder {
	if cfg.MaxBatchReports <= 0 {
		cfg.MaxBatchReports = defaultMaxBatchReports
	}
	if cfg.MaxBatchWait <= 0 {
		cfg.MaxBatchWait = defaultMaxBatchWait
	}
	if cfg.SinkTimeout <= 0 {
		cfg.SinkTimeout = defaultSinkTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Forwarder{
		cfg:    cfg,
		sinks:  append([]Sink(nil), sinks...),
		logger: logger,
	}
}

// Run consumes src until it ends or ctx is cancelled, flushing whatever is
// batched and closing the sinks before returning. It returns the wrapped
// context error on cancellation.
func (f *Forwarder) Run(ctx context.Context, src Source) error {
	defer f.closeSinks()
	reports := src.Reports()
	batch := make([]Report, 0, f.cfg.MaxBatchReports)
	timer := time.NewTimer(f.cfg.MaxBatchWait)
	timer.Stop()
	timerActive := false
	for {
		select {
		case r, ok := <-reports:
			if !ok {
				stopTimer(timer, &timerActive)
				f.flush(batch)
				return nil
			}
			batch = append(batch, r)
			if len(batch) >= f.cfg.MaxBatchReports {
				f.flush(batch)
				batch = batch[:0]
				stopTimer(timer, &timerActive)
			} else if !timerActive {
				timer.Reset(f.cfg.MaxBatchWait)
				timerActive = true
			}
		case <-timer.C:
			timerActive = false
			f.flush(batch)
			batch = batch[:0]
		case <-ctx.Done():
			stopTimer(timer, &timerActive)
			f.flush(batch)
			return fmt.Errorf("forward reports: %w", ctx.Err())
		}
	}
}

func stopTimer(timer *time.Timer, timerActive *bool) {
	if !*timerActive {
		return
	}
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
	*timerActive = false
}

func (f *Forwarder) flush(batch []Report) {
	if len(batch) == 0 {
		return
	}
	copyBatch := append([]Report(nil), batch...)
	for _, sink := range f.sinks {
		if sink == nil {
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), f.cfg.SinkTimeout)
		if err := sink.Consume(ctx, copyBatch); err != nil {
			f.logger.Warn("progress sink consume failed", zap.Error(err), zap.Int("batch", len(copyBatch)))
		}
		cancel()
	}
}

func (f *Forwarder) closeSinks() {
	for _, sink := range f.sinks {
		if sink == nil {
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), f.cfg.SinkTimeout)
		if err := sink.Close(ctx); err != nil {
			f.logger.Warn("progress sink close failed", zap.Error(err))
		}
		cancel()
	}
}
