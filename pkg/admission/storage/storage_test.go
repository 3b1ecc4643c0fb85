package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func sampleWindows() map[string][]time.Time {
	base := time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)
	return map[string][]time.Time{
		"execute_query\x00client-1": {base, base.Add(time.Second), base.Add(2 * time.Second)},
		"analyze_query\x00client-2": {base.Add(30 * time.Second)},
	}
}

func testBackends(t *testing.T) map[string]Backend {
	t.Helper()
	sqlite, err := NewSQLiteBackend(filepath.Join(t.TempDir(), "admission.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { sqlite.Close() })
	return map[string]Backend{
		"memory": NewMemoryBackend(),
		"sqlite": sqlite,
	}
}

func TestBackend_RoundTrip(t *testing.T) {
	for name, backend := range testBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			want := sampleWindows()

			if err := backend.SaveWindows(ctx, want); err != nil {
				t.Fatal(err)
			}
			got, err := backend.LoadWindows(ctx)
			if err != nil {
				t.Fatal(err)
			}

			if len(got) != len(want) {
				t.Fatalf("Expected %d keys, got %d", len(want), len(got))
			}
			for key, ts := range want {
				loaded, ok := got[key]
				if !ok {
					t.Fatalf("Expected key %q in loaded snapshot", key)
				}
				if len(loaded) != len(ts) {
					t.Fatalf("Expected %d timestamps for %q, got %d", len(ts), key, len(loaded))
				}
				for i := range ts {
					if !loaded[i].Equal(ts[i]) {
						t.Errorf("Timestamp %d of %q = %v, want %v", i, key, loaded[i], ts[i])
					}
				}
			}
		})
	}
}

func TestBackend_SaveReplacesPreviousSnapshot(t *testing.T) {
	for name, backend := range testBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			if err := backend.SaveWindows(ctx, sampleWindows()); err != nil {
				t.Fatal(err)
			}
			replacement := map[string][]time.Time{
				"execute_query\x00client-3": {time.Now().UTC().Truncate(time.Second)},
			}
			if err := backend.SaveWindows(ctx, replacement); err != nil {
				t.Fatal(err)
			}

			got, err := backend.LoadWindows(ctx)
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != 1 {
				t.Fatalf("Expected the snapshot to be replaced wholesale, got %d keys", len(got))
			}
			if _, ok := got["execute_query\x00client-3"]; !ok {
				t.Error("Expected only the replacement key to remain")
			}
		})
	}
}

func TestBackend_EmptyLoad(t *testing.T) {
	for name, backend := range testBackends(t) {
		t.Run(name, func(t *testing.T) {
			got, err := backend.LoadWindows(context.Background())
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != 0 {
				t.Errorf("Expected an empty snapshot from a fresh backend, got %d keys", len(got))
			}
		})
	}
}
