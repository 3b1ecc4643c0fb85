// Package analyzer diagnoses query performance from database execution
// plans.
//
// The analyzer asks a caller-supplied PlanSource for a plan (EXPLAIN mode
// never executes the query, PROFILE mode executes it to collect runtime
// statistics) and then walks the operator tree looking for structural
// bottlenecks: cartesian products, label scans that an index could serve,
// unbounded variable-length expansions, unbounded result sets, and calls to
// procedures on the configured expensive list. Each bottleneck yields one
// ranked recommendation with a concrete example fix.
//
// PROFILE is gated: a query classified as a write is refused before the
// PlanSource is ever invoked with execution enabled, unless the caller
// passes the explicit override. The gate is deliberate double coverage on
// top of the sanitizer, because a profiling run of a write query mutates
// data.
//
// The PlanSource call is the only I/O in this package. It is bounded by
// the caller's context; a timeout surfaces as ErrAnalysisTimeout and is
// never retried here, since a timed-out PROFILE may already have executed.
package analyzer
