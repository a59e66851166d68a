// Package main hosts the progress relay entrypoint.
//
// Architecture overview:
//   - Tracker: internal/progress.Tracker serializes updates from any number of producers through a single
//     aggregator goroutine and broadcasts one immutable Report per update to every live subscription.
//   - Subscriptions: each subscriber owns its auto-done and throttle stages, so one slow or throttled consumer never
//     affects another or the producers.
//   - HTTP API: internal/api.Server accepts updates (POST /v1/progress/updates), serves the last report
//     (GET /v1/progress), and streams reports as Server-Sent Events (GET /v1/progress/stream).
//   - Fan-out: a Forwarder drains one subscription in batches into the configured sinks (zap log, Prometheus
//     gauges, and a Pub/Sub or Redis publisher).
//   - Configuration & plumbing: Viper populates config from env/files; zap provides structured logging; Prometheus
//     metrics are exported on /metrics.
//
// Quick checklist:
//   - Configure env vars: PROGRESS_SERVER_PORT, PROGRESS_TRACKER_MIN_INTERVAL, PROGRESS_SINKS_PUBLISHER,
//     PROGRESS_PUBSUB_PROJECT_ID or PROGRESS_REDIS_ADDR when publishing beyond the process.
//   - Run locally: go run ./cmd/progressd serve --config config.yaml
//   - Try the pipeline without a server: go run ./cmd/progressd demo --workers 4 --steps 25 --min-interval 50ms
package main
