package admission

import (
	"context"
	"fmt"
	"time"

	"kronos-hq/cerberus/pkg/admission/storage"
)

// Snapshot copies every non-empty window log, keyed the same way the
// controller keys them internally. Timestamps stay ordered oldest first.
func (c *Controller) Snapshot() map[string][]time.Time {
	c.mu.Lock()
	logs := make(map[string]*windowLog, len(c.keys))
	for k, wl := range c.keys {
		logs[k] = wl
	}
	c.mu.Unlock()

	out := make(map[string][]time.Time, len(logs))
	for k, wl := range logs {
		wl.mu.Lock()
		if len(wl.timestamps) > 0 {
			out[k] = append([]time.Time(nil), wl.timestamps...)
		}
		wl.mu.Unlock()
	}
	return out
}

// Restore replaces the controller's windows with the snapshot. Stale
// timestamps need no special handling; the next check of each key purges
// them.
func (c *Controller) Restore(windows map[string][]time.Time) {
	keys := make(map[string]*windowLog, len(windows))
	for k, ts := range windows {
		keys[k] = &windowLog{timestamps: append([]time.Time(nil), ts...)}
	}
	c.mu.Lock()
	c.keys = keys
	c.mu.Unlock()
}

// Save persists the current windows to the backend.
func (c *Controller) Save(ctx context.Context, backend storage.Backend) error {
	if err := backend.SaveWindows(ctx, c.Snapshot()); err != nil {
		return fmt.Errorf("save admission windows: %w", err)
	}
	return nil
}

// Load restores windows from the backend, replacing the current state.
func (c *Controller) Load(ctx context.Context, backend storage.Backend) error {
	windows, err := backend.LoadWindows(ctx)
	if err != nil {
		return fmt.Errorf("load admission windows: %w", err)
	}
	c.Restore(windows)
	return nil
}
