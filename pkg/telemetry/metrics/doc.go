// Package metrics exposes the gateway's Prometheus metrics.
//
// The Collector owns a registry and pre-registered metric families for
// the four gateway stages: request outcomes and latency, sanitizer
// verdicts by reason code, admission decisions, and plan analysis
// results with plan-source fetch latency. All labels are drawn from
// closed enumerations (operation names, reason codes, risk tiers), so
// cardinality stays bounded by construction.
package metrics
