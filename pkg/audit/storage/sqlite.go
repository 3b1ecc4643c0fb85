package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"kronos-hq/cerberus/pkg/audit"
)

// SQLiteConfig contains configuration for the SQLite audit store.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string `yaml:"path"`

	// MaxOpenConns limits open connections. Default: 10.
	MaxOpenConns int `yaml:"max_open_conns"`

	// MaxIdleConns limits idle connections. Default: 5.
	MaxIdleConns int `yaml:"max_idle_conns"`

	// WALMode enables write-ahead logging. Default: true.
	WALMode bool `yaml:"wal_mode"`

	// BusyTimeout is how long to wait on a locked database. Default: 5s.
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/audit.db",
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteStorage implements audit.Storage using SQLite.
type SQLiteStorage struct {
	db     *sql.DB
	config *SQLiteConfig
	logger *slog.Logger
}

// NewSQLiteStorage opens the database, applies the schema, and verifies
// the schema version.
func NewSQLiteStorage(config *SQLiteConfig) (*SQLiteStorage, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}
	if config.Path == "" {
		return nil, fmt.Errorf("audit sqlite: path cannot be empty")
	}

	db, err := sql.Open("sqlite3", config.Path)
	if err != nil {
		return nil, fmt.Errorf("audit sqlite open: %w", err)
	}
	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)

	s := &SQLiteStorage{
		db:     db,
		config: config,
		logger: slog.Default().With("component", "audit.storage.sqlite"),
	}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	s.logger.Info("audit storage initialized",
		"path", config.Path,
		"wal_mode", config.WALMode,
	)
	return s, nil
}

func (s *SQLiteStorage) initialize() error {
	if s.config.WALMode {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return fmt.Errorf("audit sqlite enable wal: %w", err)
		}
	}
	if s.config.BusyTimeout > 0 {
		_, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", s.config.BusyTimeout.Milliseconds()))
		if err != nil {
			return fmt.Errorf("audit sqlite busy timeout: %w", err)
		}
	}

	if _, err := s.db.Exec(Schema); err != nil {
		return fmt.Errorf("audit sqlite create schema: %w", err)
	}
	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return fmt.Errorf("audit sqlite record schema version: %w", err)
	}

	var version int
	if err := s.db.QueryRow(GetSchemaVersion).Scan(&version); err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("audit sqlite read schema version: %w", err)
	}
	if version != SchemaVersion {
		return fmt.Errorf("audit sqlite schema version mismatch: expected %d, got %d",
			SchemaVersion, version)
	}
	return nil
}

// Store persists one audit event.
func (s *SQLiteStorage) Store(ctx context.Context, event *audit.Event) error {
	details, err := json.Marshal(event.Details)
	if err != nil {
		return fmt.Errorf("audit sqlite encode details: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO audit_events
			(id, request_id, client_id, operation, kind, reason_code,
			 risk_tier, severity, complexity_score, duration_ms, details, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID, event.RequestID, event.ClientID, event.Operation,
		string(event.Kind), event.ReasonCode, event.RiskTier, event.Severity,
		event.ComplexityScore, event.DurationMillis, string(details),
		event.RecordedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("audit sqlite insert: %w", err)
	}
	return nil
}

// Query returns events matching the filter, oldest first.
func (s *SQLiteStorage) Query(ctx context.Context, filter audit.Filter) ([]*audit.Event, error) {
	var (
		conds []string
		args  []any
	)
	if filter.ClientID != "" {
		conds = append(conds, "client_id = ?")
		args = append(args, filter.ClientID)
	}
	if filter.Operation != "" {
		conds = append(conds, "operation = ?")
		args = append(args, filter.Operation)
	}
	if filter.Kind != "" {
		conds = append(conds, "kind = ?")
		args = append(args, string(filter.Kind))
	}
	if !filter.Since.IsZero() {
		conds = append(conds, "recorded_at >= ?")
		args = append(args, filter.Since.UnixNano())
	}
	if !filter.Until.IsZero() {
		conds = append(conds, "recorded_at < ?")
		args = append(args, filter.Until.UnixNano())
	}

	query := `SELECT id, request_id, client_id, operation, kind, reason_code,
		risk_tier, severity, complexity_score, duration_ms, details, recorded_at
		FROM audit_events`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY recorded_at ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("audit sqlite query: %w", err)
	}
	defer rows.Close()

	var events []*audit.Event
	for rows.Next() {
		var (
			e          audit.Event
			kind       string
			details    sql.NullString
			recordedAt int64
		)
		err := rows.Scan(&e.ID, &e.RequestID, &e.ClientID, &e.Operation, &kind,
			&e.ReasonCode, &e.RiskTier, &e.Severity, &e.ComplexityScore,
			&e.DurationMillis, &details, &recordedAt)
		if err != nil {
			return nil, fmt.Errorf("audit sqlite scan: %w", err)
		}
		e.Kind = audit.EventKind(kind)
		e.RecordedAt = time.Unix(0, recordedAt)
		if details.Valid && details.String != "" && details.String != "null" {
			if err := json.Unmarshal([]byte(details.String), &e.Details); err != nil {
				return nil, fmt.Errorf("audit sqlite decode details: %w", err)
			}
		}
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("audit sqlite iterate: %w", err)
	}
	return events, nil
}

// Count returns the number of stored events.
func (s *SQLiteStorage) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_events`).Scan(&n); err != nil {
		return 0, fmt.Errorf("audit sqlite count: %w", err)
	}
	return n, nil
}

// DeleteBefore removes events recorded before the cutoff.
func (s *SQLiteStorage) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM audit_events WHERE recorded_at < ?`, cutoff.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("audit sqlite delete: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("audit sqlite rows affected: %w", err)
	}
	return deleted, nil
}

// Close closes the underlying database.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
