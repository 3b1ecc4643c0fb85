package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteBackend persists admission windows in a SQLite database. Suitable
// for single-instance deployments; WAL mode keeps the periodic snapshot
// writes from blocking reads.
type SQLiteBackend struct {
	db *sql.DB
}

// NewSQLiteBackend opens (or creates) the database at path and ensures
// the schema exists.
func NewSQLiteBackend(path string) (*SQLiteBackend, error) {
	if path == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=%d&_synchronous=NORMAL",
		path, int((5 * time.Second).Milliseconds()))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open admission db: %w", err)
	}

	// SQLite supports a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	b := &SQLiteBackend{db: db}
	if err := b.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init admission schema: %w", err)
	}
	return b, nil
}

func (b *SQLiteBackend) initSchema() error {
	_, err := b.db.Exec(`
	CREATE TABLE IF NOT EXISTS admission_windows (
		key        TEXT PRIMARY KEY,
		timestamps TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	)`)
	return err
}

// SaveWindows replaces the stored snapshot inside one transaction.
func (b *SQLiteBackend) SaveWindows(ctx context.Context, windows map[string][]time.Time) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin snapshot tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM admission_windows`); err != nil {
		return fmt.Errorf("clear admission windows: %w", err)
	}

	now := time.Now().Unix()
	for key, ts := range windows {
		encoded, err := json.Marshal(ts)
		if err != nil {
			return fmt.Errorf("encode window %q: %w", key, err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO admission_windows (key, timestamps, updated_at) VALUES (?, ?, ?)`,
			key, string(encoded), now)
		if err != nil {
			return fmt.Errorf("insert window %q: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot tx: %w", err)
	}
	return nil
}

// LoadWindows reads the full stored snapshot.
func (b *SQLiteBackend) LoadWindows(ctx context.Context) (map[string][]time.Time, error) {
	rows, err := b.db.QueryContext(ctx, `SELECT key, timestamps FROM admission_windows`)
	if err != nil {
		return nil, fmt.Errorf("query admission windows: %w", err)
	}
	defer rows.Close()

	windows := make(map[string][]time.Time)
	for rows.Next() {
		var key, encoded string
		if err := rows.Scan(&key, &encoded); err != nil {
			return nil, fmt.Errorf("scan admission window: %w", err)
		}
		var ts []time.Time
		if err := json.Unmarshal([]byte(encoded), &ts); err != nil {
			return nil, fmt.Errorf("decode window %q: %w", key, err)
		}
		windows[key] = ts
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate admission windows: %w", err)
	}
	return windows, nil
}

// Close closes the underlying database.
func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}
