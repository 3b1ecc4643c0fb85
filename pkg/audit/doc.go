// Package audit defines the gateway's audit trail: one event per
// consequential gateway outcome (admission denial, sanitizer rejection,
// executed query, completed analysis, schema refresh).
//
// Events are plain data. The recorder subpackage writes them
// asynchronously so the request path never blocks on storage; the
// storage subpackage provides in-memory and SQLite backends; the
// retention subpackage prunes old events on a cron schedule.
//
// Events never carry raw query text. Rejection events carry the
// machine-readable reason code and positional detail only, matching the
// sanitizer's no-echo rule.
package audit
