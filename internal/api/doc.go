// Package api hosts the HTTP server, middleware, and REST handlers that feed
// and observe a progress tracker. Notable routes:
//   - GET /healthz for probes.
//   - GET /metrics for Prometheus scraping.
//   - POST /v1/progress/updates to apply an update.
//   - GET /v1/progress for the last emitted report.
//   - GET /v1/progress/stream for a Server-Sent Events report stream.
package api
