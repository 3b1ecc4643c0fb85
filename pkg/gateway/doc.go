// Package gateway orchestrates the safety pipeline in front of a graph
// database: admission check, sanitization, execution, and on-demand
// plan analysis.
//
// The gateway owns no database connection. Query execution goes through
// the caller-supplied Executor and plan fetching through the analyzer's
// PlanSource, so the package works against any transport. Outcomes are
// emitted as structured audit events through an audit.Sink and as
// Prometheus metrics; rejection reasons never echo raw query text.
//
// Errors split into two families. A Rejection (admission denial or
// sanitizer verdict) is an expected outcome carrying a machine-readable
// code; callers inspect it with errors.As. Everything else is fatal:
// executor failures, plan-source failures, and analysis timeouts are
// surfaced to the caller and never retried here, since a retried
// PROFILE may re-run a side-effecting query.
package gateway
