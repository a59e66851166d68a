package progress

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/progress-relay/internal/id/uuid"
)

// Subscription is one consumer's live view of a Tracker. Reports emitted
// before Subscribe returned are never delivered. The Reports channel is
// closed when the stream ends.
type Subscription struct {
	id      string
	tracker *Tracker
	inbox   *mailbox[Report]
	out     chan Report
	stopCh  chan struct{}
	doneCh  chan struct{}
	logger  *zap.Logger

	minInterval time.Duration
	autoDone    autoDone
	newTicker   func(time.Duration) (<-chan time.Time, func())

	stopOnce sync.Once
}

// Subscribe attaches a new subscription. WithMinInterval and WithAutoDone
// override the tracker defaults for this subscription only. The subscription
// ends when ctx is cancelled, Close is called, the tracker is closed, or (with
// auto-done) a completion report has been delivered. Subscribing to a nil or
// closed tracker yields a subscription that has already ended.
func (t *Tracker) Subscribe(ctx context.Context, opts ...Option) *Subscription {
	s := defaultSettings()
	logger := zap.NewNop()
	if t != nil {
		s = t.defaults
		logger = t.logger
	}
	for _, opt := range opts {
		opt(&s)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	sub := &Subscription{
		id:          uuid.NewID(),
		tracker:     t,
		inbox:       newMailbox[Report](),
		out:         make(chan Report, s.bufferSize),
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
		logger:      logger,
		minInterval: s.minInterval,
		autoDone:    autoDone(s.autoDone),
		newTicker:   s.newTicker,
	}
	if t == nil || !t.attach(sub) {
		close(sub.out)
		close(sub.doneCh)
		return sub
	}
	sub.logger.Debug("progress subscription attached",
		zap.String("subscription_id", sub.id),
		zap.Duration("min_interval", sub.minInterval),
		zap.Bool("auto_done", bool(sub.autoDone)),
	)
	go sub.run(ctx)
	return sub
}

// ID returns the subscription's unique identifier.
func (s *Subscription) ID() string {
	return s.id
}

// Reports returns the stream of delivered reports.
func (s *Subscription) Reports() <-chan Report {
	return s.out
}

// Done is closed once the subscription has ended and Reports is closed.
func (s *Subscription) Done() <-chan struct{} {
	return s.doneCh
}

// Close detaches the subscription and waits for its stream to end. Other
// subscriptions and the tracker are unaffected.
func (s *Subscription) Close() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	<-s.doneCh
}

func (s *Subscription) run(ctx context.Context) {
	defer close(s.doneCh)
	defer close(s.out)
	defer s.tracker.detach(s)
	defer s.logger.Debug("progress subscription detached", zap.String("subscription_id", s.id))

	var (
		th   *throttle
		tick <-chan time.Time
	)
	if s.minInterval > 0 {
		var stop func()
		tick, stop = s.newTicker(s.minInterval)
		defer stop()
		th = &throttle{}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-s.inbox.ready:
			if !s.process(ctx, th) {
				return
			}
		case <-tick:
			// Reports already broadcast are handled before the tick so a
			// tick never overtakes them.
			if !s.process(ctx, th) {
				return
			}
			if r, ok := th.tick(); ok && !s.deliver(ctx, r) {
				return
			}
		}
	}
}

// process runs every queued report through the stages. It returns false when
// the subscription must end. When the tracker has shut down, a report still
// held back by the throttle is delivered first.
func (s *Subscription) process(ctx context.Context, th *throttle) bool {
	reports, closed := s.inbox.drain()
	for _, r := range reports {
		if out, ok := th.offer(r); ok && !s.deliver(ctx, out) {
			return false
		}
		if s.autoDone.finished(r) {
			return false
		}
	}
	if closed {
		if r, ok := th.flush(); ok {
			s.deliver(ctx, r)
		}
		return false
	}
	return true
}

func (s *Subscription) deliver(ctx context.Context, r Report) bool {
	select {
	case s.out <- r:
		return true
	case <-ctx.Done():
		return false
	case <-s.stopCh:
		return false
	}
}
