package storage

import (
	"context"
	"time"
)

// Backend stores admission window snapshots. SaveWindows replaces the
// stored state wholesale; partial updates are not part of the contract
// because a snapshot is only consistent as a whole.
type Backend interface {
	SaveWindows(ctx context.Context, windows map[string][]time.Time) error
	LoadWindows(ctx context.Context) (map[string][]time.Time, error)
	Close() error
}
