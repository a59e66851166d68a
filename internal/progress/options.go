package progress

import (
	"time"

	"go.uber.org/zap"
)

const defaultBufferSize = 0

// Option configures a Tracker. WithMinInterval and WithAutoDone may also be
// passed to Subscribe to override the tracker defaults for one subscription;
// the remaining options only apply at construction.
type Option func(*settings)

type settings struct {
	minInterval time.Duration
	autoDone    bool
	bufferSize  int
	logger      *zap.Logger
	newTicker   func(time.Duration) (<-chan time.Time, func())
}

func defaultSettings() settings {
	return settings{
		autoDone:   true,
		bufferSize: defaultBufferSize,
		newTicker:  realTicker,
	}
}

// WithMinInterval enables throttling: at most one non-completion report is
// delivered per interval. Zero or negative disables throttling.
func WithMinInterval(d time.Duration) Option {
	return func(s *settings) {
		s.minInterval = d
	}
}

// WithAutoDone controls whether a subscription ends once a report's value
// equals its target. Enabled by default.
func WithAutoDone(enabled bool) Option {
	return func(s *settings) {
		s.autoDone = enabled
	}
}

// WithBufferSize sets the capacity of each subscription's Reports channel.
func WithBufferSize(n int) Option {
	return func(s *settings) {
		if n >= 0 {
			s.bufferSize = n
		}
	}
}

// WithLogger sets the logger used for lifecycle messages.
func WithLogger(logger *zap.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

func withTicker(fn func(time.Duration) (<-chan time.Time, func())) Option {
	return func(s *settings) {
		s.newTicker = fn
	}
}

func realTicker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}
