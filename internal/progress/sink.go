package progress

import "context"

// Sink consumes batches of reports. Implementations must honor ctx deadlines
// and be safe for repeated calls; a Forwarder calls a sink from a single
// goroutine.
type Sink interface {
	Consume(ctx context.Context, batch []Report) error
	Close(ctx context.Context) error
}

// Source is the consumer view of a report stream; *Subscription satisfies it.
type Source interface {
	Reports() <-chan Report
}
