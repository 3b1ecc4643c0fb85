package config

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

// ============================================================================
// Watcher
// ============================================================================

func TestWatcher_ReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cerberus.yaml")
	if err := os.WriteFile(path, []byte("gateway:\n  listen_address: \":7000\"\n"), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	w, err := NewWatcher(path, nil)
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}

	reloaded := make(chan *Config, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		_ = w.Watch(ctx, func(cfg *Config) {
			select {
			case reloaded <- cfg:
			default:
			}
		})
	}()

	// Give the watcher time to register before writing.
	time.Sleep(200 * time.Millisecond)

	if err := os.WriteFile(path, []byte("gateway:\n  listen_address: \":7001\"\n"), 0o644); err != nil {
		t.Fatalf("Failed to rewrite config: %v", err)
	}

	select {
	case cfg := <-reloaded:
		if cfg.Gateway.ListenAddress != ":7001" {
			t.Errorf("Expected reloaded address :7001, got %q", cfg.Gateway.ListenAddress)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for reload")
	}

	cancel()
	if err := w.Stop(); err != nil {
		t.Errorf("Stop failed: %v", err)
	}
}

func TestWatcher_InvalidReloadKeepsPrevious(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cerberus.yaml")
	if err := os.WriteFile(path, []byte("gateway:\n  listen_address: \":7000\"\n"), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	w, err := NewWatcher(path, nil)
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}

	var reloads atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		_ = w.Watch(ctx, func(cfg *Config) {
			reloads.Add(1)
		})
	}()

	time.Sleep(200 * time.Millisecond)

	if err := os.WriteFile(path, []byte("telemetry:\n  logging:\n    level: \"verbose\"\n"), 0o644); err != nil {
		t.Fatalf("Failed to rewrite config: %v", err)
	}

	// The debounced reload attempt fails validation; the callback must
	// never fire.
	time.Sleep(500 * time.Millisecond)
	if n := reloads.Load(); n != 0 {
		t.Errorf("Expected no reload callback for invalid config, got %d", n)
	}

	cancel()
	_ = w.Stop()
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cerberus.yaml")
	if err := os.WriteFile(path, []byte(""), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	w, err := NewWatcher(path, nil)
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}

	var reloads atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		_ = w.Watch(ctx, func(cfg *Config) {
			reloads.Add(1)
		})
	}()

	time.Sleep(200 * time.Millisecond)

	if err := os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x: 1\n"), 0o644); err != nil {
		t.Fatalf("Failed to write sibling file: %v", err)
	}

	time.Sleep(500 * time.Millisecond)
	if n := reloads.Load(); n != 0 {
		t.Errorf("Expected sibling file writes to be ignored, got %d reloads", n)
	}

	cancel()
	_ = w.Stop()
}

// ============================================================================
// Debouncer
// ============================================================================

func TestDebouncer_CollapsesBursts(t *testing.T) {
	d := newDebouncer(50 * time.Millisecond)
	defer d.stop()

	var fires atomic.Int32
	for i := 0; i < 10; i++ {
		d.trigger(func() { fires.Add(1) })
		time.Sleep(5 * time.Millisecond)
	}

	time.Sleep(200 * time.Millisecond)
	if n := fires.Load(); n != 1 {
		t.Errorf("Expected a burst to collapse to 1 fire, got %d", n)
	}
}

func TestDebouncer_StopCancelsPending(t *testing.T) {
	d := newDebouncer(100 * time.Millisecond)

	var fires atomic.Int32
	d.trigger(func() { fires.Add(1) })
	d.stop()

	time.Sleep(250 * time.Millisecond)
	if n := fires.Load(); n != 0 {
		t.Errorf("Expected stop to cancel pending callback, got %d fires", n)
	}
}
