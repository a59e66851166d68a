package sinks

import (
	"context"

	"go.uber.org/zap"

	"github.com/JakeFAU/progress-relay/internal/progress"
)

// LogSink emits a structured log line per report. It is useful during
// development when no metrics backend is scraping.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink wires a Zap logger to the sink interface.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Consume logs each report in the batch using structured fields.
func (s *LogSink) Consume(_ context.Context, batch []progress.Report) error {
	for _, r := range batch {
		fields := []zap.Field{zap.Int64("value", r.Value()), zap.Bool("done", r.Done())}
		if target, ok := r.Target(); ok {
			fields = append(fields, zap.Int64("target", target))
		}
		if pct, ok := r.Percent(); ok {
			fields = append(fields, zap.Int64("percent", pct))
		}
		s.logger.Info("progress report", fields...)
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *LogSink) Close(context.Context) error {
	return nil
}
