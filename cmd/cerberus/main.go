// Cerberus is a safety gateway between agent query interfaces and a
// Cypher-style graph database.
//
// It guards every query with:
//   - Injection and Unicode-smuggling sanitization
//   - Query plan analysis with bottleneck detection
//   - Per-operation, per-client admission control
//   - A persistent audit trail of every outcome
//
// Usage:
//
//	# Start the gateway admin server with default configuration
//	cerberus run
//
//	# Start with custom configuration file
//	cerberus run --config /path/to/cerberus.yaml
//
//	# Check a query against the sanitizer without executing it
//	cerberus sanitize "MATCH (n:Person) RETURN n LIMIT 10"
//
//	# Analyze a saved plan document
//	cerberus analyze --plan plan.json
//
//	# Validate a configuration file
//	cerberus validate --config cerberus.yaml
//
//	# Query the audit trail
//	cerberus audit query --client-id agent-7 --limit 50
//
// For complete documentation, see: https://github.com/kronos-hq/cerberus
package main

func main() {
	Execute()
}
