package progress

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Tracker accepts updates from any number of goroutines and broadcasts one
// Report per update to its live subscriptions. All update methods are safe
// for concurrent use, never block, and are no-ops on a nil *Tracker.
type Tracker struct {
	defaults settings
	logger   *zap.Logger
	inbox    *mailbox[Update]
	doneCh   chan struct{}

	mu   sync.Mutex
	subs map[*Subscription]struct{}
	last Report
	seen bool

	emitted   atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

// New starts a Tracker. WithMinInterval and WithAutoDone set the defaults for
// every subscription.
func New(opts ...Option) *Tracker {
	s := defaultSettings()
	for _, opt := range opts {
		opt(&s)
	}
	logger := s.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	t := &Tracker{
		defaults: s,
		logger:   logger,
		inbox:    newMailbox[Update](),
		doneCh:   make(chan struct{}),
		subs:     make(map[*Subscription]struct{}),
	}
	go t.run()
	return t
}

// Increment adds one to the value.
func (t *Tracker) Increment() {
	t.Apply(Update{Kind: KindIncrement})
}

// Add adds n to the value.
func (t *Tracker) Add(n int64) {
	t.Apply(Update{Kind: KindAdd, Amount: n})
}

// SetValue replaces the value.
func (t *Tracker) SetValue(v int64) {
	t.Apply(Update{Kind: KindSetValue, Amount: v})
}

// IncrementTarget adds one to the target, treating an unset target as zero.
func (t *Tracker) IncrementTarget() {
	t.AddTarget(1)
}

// AddTarget adds n to the target, treating an unset target as zero.
func (t *Tracker) AddTarget(n int64) {
	t.Apply(Update{Kind: KindAddTarget, Amount: n})
}

// SetTarget replaces the target.
func (t *Tracker) SetTarget(target int64) {
	t.Apply(Update{Kind: KindSetTarget, Amount: target})
}

// Apply enqueues a raw update. Updates with an unknown kind are dropped.
func (t *Tracker) Apply(u Update) {
	if t == nil {
		return
	}
	if _, ok := kindNames[u.Kind]; !ok {
		t.logger.Debug("discarding update with unknown kind", zap.Stringer("kind", u.Kind))
		return
	}
	t.inbox.push(u)
}

// Last returns the most recently emitted report, if any.
func (t *Tracker) Last() (Report, bool) {
	if t == nil {
		return Report{}, false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last, t.seen
}

// Emitted returns how many reports the aggregator has produced.
func (t *Tracker) Emitted() uint64 {
	if t == nil {
		return 0
	}
	return t.emitted.Load()
}

// Subscribers returns the number of attached subscriptions.
func (t *Tracker) Subscribers() int {
	if t == nil {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.subs)
}

// Close stops accepting updates, applies and broadcasts those already queued,
// ends every subscription, and waits for the aggregator to exit. It is safe to
// call multiple times.
func (t *Tracker) Close(ctx context.Context) error {
	if t == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	t.closeOnce.Do(func() {
		t.closed.Store(true)
		t.inbox.close()
	})
	select {
	case <-t.doneCh:
		t.logger.Info("progress tracker closed", zap.Uint64("emitted", t.Emitted()))
		return nil
	case <-ctx.Done():
		return fmt.Errorf("progress tracker close wait: %w", ctx.Err())
	}
}

func (t *Tracker) run() {
	defer close(t.doneCh)
	var st state
	for range t.inbox.ready {
		updates, closed := t.inbox.drain()
		for _, u := range updates {
			st.apply(u)
			t.broadcast(st.report())
		}
		if closed {
			t.endSubscriptions()
			return
		}
	}
}

func (t *Tracker) broadcast(r Report) {
	t.mu.Lock()
	t.last, t.seen = r, true
	for sub := range t.subs {
		sub.inbox.push(r)
	}
	t.mu.Unlock()
	t.emitted.Add(1)
}

func (t *Tracker) attach(sub *Subscription) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed.Load() {
		return false
	}
	t.subs[sub] = struct{}{}
	return true
}

func (t *Tracker) detach(sub *Subscription) {
	t.mu.Lock()
	delete(t.subs, sub)
	t.mu.Unlock()
}

func (t *Tracker) endSubscriptions() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for sub := range t.subs {
		sub.inbox.close()
		delete(t.subs, sub)
	}
}
