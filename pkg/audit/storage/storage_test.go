package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"kronos-hq/cerberus/pkg/audit"
)

func testStorages(t *testing.T) map[string]audit.Storage {
	t.Helper()
	sqlite, err := NewSQLiteStorage(&SQLiteConfig{
		Path:         filepath.Join(t.TempDir(), "audit.db"),
		MaxOpenConns: 2,
		MaxIdleConns: 1,
		WALMode:      true,
		BusyTimeout:  time.Second,
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { sqlite.Close() })
	return map[string]audit.Storage{
		"memory": NewMemoryStorage(),
		"sqlite": sqlite,
	}
}

func event(id, client, operation string, kind audit.EventKind, at time.Time) *audit.Event {
	return &audit.Event{
		ID:         id,
		RequestID:  "req-" + id,
		ClientID:   client,
		Operation:  operation,
		Kind:       kind,
		RecordedAt: at,
		Details:    map[string]string{"note": "test"},
	}
}

// ============================================================================
// Store and query
// ============================================================================

func TestStorage_StoreAndQuery(t *testing.T) {
	base := time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)

	for name, store := range testStorages(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			events := []*audit.Event{
				event("1", "client-1", "execute_query", audit.KindQueryExecuted, base),
				event("2", "client-1", "execute_query", audit.KindQueryRejected, base.Add(time.Minute)),
				event("3", "client-2", "analyze_query", audit.KindAnalysisCompleted, base.Add(2*time.Minute)),
			}
			for _, e := range events {
				if err := store.Store(ctx, e); err != nil {
					t.Fatal(err)
				}
			}

			n, err := store.Count(ctx)
			if err != nil {
				t.Fatal(err)
			}
			if n != 3 {
				t.Fatalf("Expected 3 events, got %d", n)
			}

			byClient, err := store.Query(ctx, audit.Filter{ClientID: "client-1"})
			if err != nil {
				t.Fatal(err)
			}
			if len(byClient) != 2 {
				t.Errorf("Expected 2 events for client-1, got %d", len(byClient))
			}

			byKind, err := store.Query(ctx, audit.Filter{Kind: audit.KindQueryRejected})
			if err != nil {
				t.Fatal(err)
			}
			if len(byKind) != 1 || byKind[0].ID != "2" {
				t.Errorf("Expected event 2 for the rejection filter, got %+v", byKind)
			}

			inRange, err := store.Query(ctx, audit.Filter{
				Since: base.Add(30 * time.Second),
				Until: base.Add(90 * time.Second),
			})
			if err != nil {
				t.Fatal(err)
			}
			if len(inRange) != 1 || inRange[0].ID != "2" {
				t.Errorf("Expected only event 2 in the window, got %+v", inRange)
			}

			limited, err := store.Query(ctx, audit.Filter{Limit: 2})
			if err != nil {
				t.Fatal(err)
			}
			if len(limited) != 2 {
				t.Errorf("Expected the limit to cap results at 2, got %d", len(limited))
			}
		})
	}
}

func TestStorage_DetailsRoundTrip(t *testing.T) {
	for name, store := range testStorages(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			e := event("1", "client-1", "execute_query", audit.KindQueryRejected, time.Now())
			e.ReasonCode = "invisible_character"
			e.Details = map[string]string{"position": "14"}

			if err := store.Store(ctx, e); err != nil {
				t.Fatal(err)
			}
			got, err := store.Query(ctx, audit.Filter{})
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != 1 {
				t.Fatalf("Expected 1 event, got %d", len(got))
			}
			if got[0].ReasonCode != "invisible_character" {
				t.Errorf("Expected reason code to survive, got %q", got[0].ReasonCode)
			}
			if got[0].Details["position"] != "14" {
				t.Errorf("Expected details to survive, got %v", got[0].Details)
			}
		})
	}
}

// ============================================================================
// Retention support
// ============================================================================

func TestStorage_DeleteBefore(t *testing.T) {
	base := time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)

	for name, store := range testStorages(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for i, at := range []time.Time{base, base.Add(time.Hour), base.Add(2 * time.Hour)} {
				e := event(string(rune('1'+i)), "c", "execute_query", audit.KindQueryExecuted, at)
				if err := store.Store(ctx, e); err != nil {
					t.Fatal(err)
				}
			}

			deleted, err := store.DeleteBefore(ctx, base.Add(90*time.Minute))
			if err != nil {
				t.Fatal(err)
			}
			if deleted != 2 {
				t.Errorf("Expected 2 deletions, got %d", deleted)
			}

			n, _ := store.Count(ctx)
			if n != 1 {
				t.Errorf("Expected 1 surviving event, got %d", n)
			}
		})
	}
}
