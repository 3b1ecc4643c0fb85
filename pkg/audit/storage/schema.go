package storage

// SchemaVersion is bumped whenever the audit table layout changes.
const SchemaVersion = 1

// Schema creates the audit tables.
const Schema = `
CREATE TABLE IF NOT EXISTS audit_events (
	id               TEXT PRIMARY KEY,
	request_id       TEXT NOT NULL,
	client_id        TEXT NOT NULL,
	operation        TEXT NOT NULL,
	kind             TEXT NOT NULL,
	reason_code      TEXT,
	risk_tier        TEXT,
	severity         INTEGER,
	complexity_score INTEGER,
	duration_ms      INTEGER NOT NULL,
	details          TEXT,
	recorded_at      INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_audit_recorded_at ON audit_events(recorded_at);
CREATE INDEX IF NOT EXISTS idx_audit_client ON audit_events(client_id, operation);
CREATE INDEX IF NOT EXISTS idx_audit_kind ON audit_events(kind);

CREATE TABLE IF NOT EXISTS schema_version (
	version    INTEGER PRIMARY KEY,
	applied_at INTEGER NOT NULL
);
`

// InsertSchemaVersion records the current schema version.
const InsertSchemaVersion = `
INSERT OR IGNORE INTO schema_version (version, applied_at)
VALUES (?, strftime('%s', 'now'));
`

// GetSchemaVersion reads the highest applied schema version.
const GetSchemaVersion = `
SELECT MAX(version) FROM schema_version;
`
