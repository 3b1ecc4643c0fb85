package recorder

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"kronos-hq/cerberus/pkg/audit"
	"kronos-hq/cerberus/pkg/audit/storage"
)

// blockingStorage holds every Store call until released. Used to fill
// the recorder buffer deterministically.
type blockingStorage struct {
	release chan struct{}
	stored  chan *audit.Event
}

func newBlockingStorage() *blockingStorage {
	return &blockingStorage{
		release: make(chan struct{}),
		stored:  make(chan *audit.Event, 100),
	}
}

func (b *blockingStorage) Store(ctx context.Context, e *audit.Event) error {
	select {
	case <-b.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	b.stored <- e
	return nil
}

func (b *blockingStorage) Query(context.Context, audit.Filter) ([]*audit.Event, error) {
	return nil, errors.New("not implemented")
}
func (b *blockingStorage) Count(context.Context) (int64, error)                 { return 0, nil }
func (b *blockingStorage) DeleteBefore(context.Context, time.Time) (int64, error) { return 0, nil }
func (b *blockingStorage) Close() error                                          { return nil }

// ============================================================================
// Recording
// ============================================================================

func TestRecorder_AssignsIDAndTimestamp(t *testing.T) {
	store := storage.NewMemoryStorage()
	r := NewRecorder(store, DefaultConfig(), nil)

	r.Record(&audit.Event{
		Kind:      audit.KindQueryExecuted,
		RequestID: "req-1",
		ClientID:  "client-1",
		Operation: "execute_query",
	})
	if err := r.Close(); err != nil {
		t.Fatal(err)
	}

	events, err := store.Query(context.Background(), audit.Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 {
		t.Fatalf("Expected 1 stored event, got %d", len(events))
	}
	if events[0].ID == "" {
		t.Error("Expected the recorder to assign an event ID")
	}
	if events[0].RecordedAt.IsZero() {
		t.Error("Expected the recorder to stamp the event")
	}
}

func TestRecorder_DisabledDropsSilently(t *testing.T) {
	store := storage.NewMemoryStorage()
	cfg := DefaultConfig()
	cfg.Enabled = false
	r := NewRecorder(store, cfg, nil)

	r.Record(&audit.Event{Kind: audit.KindQueryExecuted})
	if err := r.Close(); err != nil {
		t.Fatal(err)
	}

	n, _ := store.Count(context.Background())
	if n != 0 {
		t.Errorf("Expected no stored events when disabled, got %d", n)
	}
}

func TestRecorder_CloseDrainsQueue(t *testing.T) {
	store := storage.NewMemoryStorage()
	r := NewRecorder(store, DefaultConfig(), nil)

	const count = 50
	for i := 0; i < count; i++ {
		r.Record(&audit.Event{Kind: audit.KindQueryExecuted, RequestID: "req"})
	}
	if err := r.Close(); err != nil {
		t.Fatal(err)
	}

	n, _ := store.Count(context.Background())
	if n != count {
		t.Errorf("Expected all %d events flushed on close, got %d", count, n)
	}
}

func TestRecorder_FullBufferDropsInsteadOfBlocking(t *testing.T) {
	blocking := newBlockingStorage()
	cfg := DefaultConfig()
	cfg.AsyncBuffer = 2
	cfg.WriteTimeout = 50 * time.Millisecond
	r := NewRecorder(blocking, cfg, nil)

	// One event occupies the worker; two fill the buffer; the rest drop.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			r.Record(&audit.Event{Kind: audit.KindQueryExecuted})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Expected Record to never block on a full buffer")
	}
	if r.Dropped() == 0 {
		t.Error("Expected dropped events to be counted")
	}

	close(blocking.release)
	r.Close()
}

func TestRecorder_ConcurrentRecords(t *testing.T) {
	store := storage.NewMemoryStorage()
	r := NewRecorder(store, DefaultConfig(), nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				r.Record(&audit.Event{Kind: audit.KindAnalysisCompleted})
			}
		}()
	}
	wg.Wait()
	if err := r.Close(); err != nil {
		t.Fatal(err)
	}

	n, _ := store.Count(context.Background())
	if n != 200 {
		t.Errorf("Expected 200 stored events, got %d", n)
	}
}
