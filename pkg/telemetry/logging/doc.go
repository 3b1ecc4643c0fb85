// Package logging wraps log/slog with the gateway's conventions:
// level and format parsing from configuration, credential redaction on
// log arguments, and extraction of request-scoped fields (request_id,
// client_id, operation) from context.
//
// Query text is never logged at any level. Components log reason codes,
// positions, and counts instead.
//
// # Usage
//
//	logger, err := logging.New(logging.Config{
//	    Level:  "info",
//	    Format: "json",
//	    Redact: true,
//	})
//
//	logger.Info("query admitted",
//	    "request_id", "req-123",
//	    "bolt_uri", "bolt://neo4j:secret@db:7687", // userinfo redacted
//	    "duration_ms", 12,
//	)
//
// # Redaction
//
// With Redact enabled, connection URI userinfo, password fields, bearer
// tokens, and values under sensitive keys (password, secret, token,
// credential, auth) are masked before the record is emitted.
package logging
