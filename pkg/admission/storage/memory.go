package storage

import (
	"context"
	"sync"
	"time"
)

// MemoryBackend keeps snapshots in process memory. State is lost on
// restart; use the SQLite backend when that matters.
type MemoryBackend struct {
	mu      sync.RWMutex
	windows map[string][]time.Time
}

// NewMemoryBackend returns an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{windows: make(map[string][]time.Time)}
}

// SaveWindows replaces the stored snapshot.
func (m *MemoryBackend) SaveWindows(_ context.Context, windows map[string][]time.Time) error {
	copied := make(map[string][]time.Time, len(windows))
	for k, ts := range windows {
		copied[k] = append([]time.Time(nil), ts...)
	}
	m.mu.Lock()
	m.windows = copied
	m.mu.Unlock()
	return nil
}

// LoadWindows returns a copy of the stored snapshot.
func (m *MemoryBackend) LoadWindows(_ context.Context) (map[string][]time.Time, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string][]time.Time, len(m.windows))
	for k, ts := range m.windows {
		out[k] = append([]time.Time(nil), ts...)
	}
	return out, nil
}

// Close is a no-op for the memory backend.
func (m *MemoryBackend) Close() error { return nil }
