// Package telemetry groups the gateway's observability concerns.
//
//   - logging: structured slog logging with credential redaction
//   - metrics: Prometheus metric families and the /metrics handler
//   - health: liveness and readiness probes for the admin server
//
// Components receive their logger and collector at construction; nothing
// in telemetry reaches into the gateway's request path on its own.
package telemetry
