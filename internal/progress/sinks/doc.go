// Package sinks implements concrete report consumers: Prometheus gauges,
// structured logging, and message publishing. Each sink satisfies the
// progress.Sink interface and is driven by a progress.Forwarder.
package sinks
