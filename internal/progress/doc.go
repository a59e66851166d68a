// Package progress aggregates concurrent "N of M" progress updates into an
// ordered stream of immutable Report snapshots. Producers call the Tracker's
// update methods from any goroutine; a single aggregator goroutine applies
// them in arrival order and broadcasts one Report per update to every live
// Subscription. Subscriptions can be throttled and can end on their own once
// the target is reached. A Forwarder drains a Subscription into pluggable
// sinks such as Prometheus metrics or message publishers.
package progress
