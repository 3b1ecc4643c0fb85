package retention

import (
	"context"
	"testing"
	"time"

	"kronos-hq/cerberus/pkg/audit"
	"kronos-hq/cerberus/pkg/audit/storage"
)

func storeEventAt(t *testing.T, store audit.Storage, at time.Time) {
	t.Helper()
	err := store.Store(context.Background(), &audit.Event{
		ID:         at.Format(time.RFC3339Nano),
		RequestID:  "req",
		ClientID:   "client",
		Operation:  "execute_query",
		Kind:       audit.KindQueryExecuted,
		RecordedAt: at,
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestPruner_DeletesOldEvents(t *testing.T) {
	store := storage.NewMemoryStorage()
	now := time.Now()
	storeEventAt(t, store, now.AddDate(0, 0, -100))
	storeEventAt(t, store, now.AddDate(0, 0, -91))
	storeEventAt(t, store, now.AddDate(0, 0, -1))

	p := NewPruner(store, Config{RetentionDays: 90}, nil)
	deleted, err := p.Prune(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if deleted != 2 {
		t.Errorf("Expected 2 pruned events, got %d", deleted)
	}

	n, _ := store.Count(context.Background())
	if n != 1 {
		t.Errorf("Expected 1 surviving event, got %d", n)
	}
}

func TestPruner_ZeroRetentionDisablesPruning(t *testing.T) {
	store := storage.NewMemoryStorage()
	storeEventAt(t, store, time.Now().AddDate(0, 0, -365))

	p := NewPruner(store, Config{RetentionDays: 0}, nil)
	deleted, err := p.Prune(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if deleted != 0 {
		t.Errorf("Expected no pruning with zero retention, got %d", deleted)
	}
}

func TestScheduler_StartAndStop(t *testing.T) {
	store := storage.NewMemoryStorage()
	p := NewPruner(store, Config{RetentionDays: 90, PruneSchedule: "0 3 * * *"}, nil)
	s := NewScheduler(p)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := s.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if !s.IsRunning() {
		t.Error("Expected the scheduler to be running")
	}
	if s.NextRun() == nil {
		t.Error("Expected a next run time")
	}

	s.Stop()
	if s.IsRunning() {
		t.Error("Expected the scheduler to stop")
	}
}

func TestScheduler_RejectsInvalidSchedule(t *testing.T) {
	store := storage.NewMemoryStorage()
	p := NewPruner(store, Config{RetentionDays: 90, PruneSchedule: "not a cron"}, nil)
	s := NewScheduler(p)

	if err := s.Start(context.Background()); err == nil {
		t.Error("Expected an invalid cron expression to be rejected")
	}
}

func TestScheduler_EmptyScheduleIsNoOp(t *testing.T) {
	store := storage.NewMemoryStorage()
	p := NewPruner(store, Config{RetentionDays: 90}, nil)
	s := NewScheduler(p)

	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if s.IsRunning() {
		t.Error("Expected an empty schedule to leave the scheduler idle")
	}
}
