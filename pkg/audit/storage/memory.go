package storage

import (
	"context"
	"sync"
	"time"

	"kronos-hq/cerberus/pkg/audit"
)

// MemoryStorage keeps audit events in memory, ordered by insertion.
type MemoryStorage struct {
	mu     sync.RWMutex
	events []*audit.Event
}

// NewMemoryStorage returns an empty in-memory store.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

// Store appends one event.
func (m *MemoryStorage) Store(_ context.Context, event *audit.Event) error {
	copied := *event
	m.mu.Lock()
	m.events = append(m.events, &copied)
	m.mu.Unlock()
	return nil
}

// Query returns events matching the filter in insertion order.
func (m *MemoryStorage) Query(_ context.Context, filter audit.Filter) ([]*audit.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*audit.Event
	for _, e := range m.events {
		if !matches(e, filter) {
			continue
		}
		copied := *e
		out = append(out, &copied)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

// Count returns the number of stored events.
func (m *MemoryStorage) Count(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.events)), nil
}

// DeleteBefore removes events recorded before the cutoff.
func (m *MemoryStorage) DeleteBefore(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.events[:0]
	var deleted int64
	for _, e := range m.events {
		if e.RecordedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, e)
	}
	m.events = kept
	return deleted, nil
}

// Close is a no-op for the memory store.
func (m *MemoryStorage) Close() error { return nil }

func matches(e *audit.Event, f audit.Filter) bool {
	if f.ClientID != "" && e.ClientID != f.ClientID {
		return false
	}
	if f.Operation != "" && e.Operation != f.Operation {
		return false
	}
	if f.Kind != "" && e.Kind != f.Kind {
		return false
	}
	if !f.Since.IsZero() && e.RecordedAt.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && !e.RecordedAt.Before(f.Until) {
		return false
	}
	return true
}
