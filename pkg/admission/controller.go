package admission

import (
	"log/slog"
	"sync"
	"time"
)

// Controller tracks admission windows for every (operation, client) key.
//
// The controller holds one timestamp log per key. A key's check-and-record
// runs under that key's own mutex, so concurrent requests for the same key
// serialize and can never over-admit, while requests for different keys
// proceed in parallel. The outer mutex only guards the key map.
type Controller struct {
	cfg    Config
	clock  func() time.Time
	logger *slog.Logger

	mu   sync.Mutex
	keys map[string]*windowLog
}

// windowLog is the timestamp log for one key, ordered oldest first.
type windowLog struct {
	mu         sync.Mutex
	timestamps []time.Time
}

// Option customizes a Controller.
type Option func(*Controller)

// WithClock replaces the time source. Tests use this to step through
// windows without sleeping.
func WithClock(clock func() time.Time) Option {
	return func(c *Controller) { c.clock = clock }
}

// NewController builds a Controller for the given budgets. logger may be
// nil.
func NewController(cfg Config, logger *slog.Logger, opts ...Option) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Controller{
		cfg:    cfg,
		clock:  time.Now,
		logger: logger.With("component", "admission"),
		keys:   make(map[string]*windowLog),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Admit checks the configured budget for the operation and, if a slot is
// free, records the request. Check and record are one atomic step.
func (c *Controller) Admit(operation, clientID string) Decision {
	if !c.cfg.Enabled {
		return Decision{Allowed: true, Remaining: -1}
	}
	rule := c.cfg.rule(operation)
	return c.CheckAndRecord(operation, clientID, rule.Limit, rule.Window)
}

// CheckAndRecord applies an explicit limit and window to the
// (operation, clientID) key. A zero limit disables the budget for the
// key and always admits.
func (c *Controller) CheckAndRecord(operation, clientID string, limit int, window time.Duration) Decision {
	if limit <= 0 || window <= 0 {
		return Decision{Allowed: true, Remaining: -1}
	}

	wl := c.logFor(keyOf(operation, clientID))

	wl.mu.Lock()
	defer wl.mu.Unlock()

	now := c.clock()
	wl.purge(now.Add(-window))

	if len(wl.timestamps) >= limit {
		free := wl.timestamps[0].Add(window).Sub(now)
		c.logger.Debug("admission denied",
			"operation", operation,
			"client_id", clientID,
			"limit", limit,
			"retry_after", free,
		)
		return Decision{
			Allowed:    false,
			Remaining:  0,
			ResetIn:    free,
			RetryAfter: free,
		}
	}

	wl.timestamps = append(wl.timestamps, now)
	return Decision{
		Allowed:   true,
		Remaining: limit - len(wl.timestamps),
		ResetIn:   wl.timestamps[0].Add(window).Sub(now),
	}
}

// Usage reports how many admitted requests the key currently holds inside
// the window. Primarily for diagnostics and snapshot tests.
func (c *Controller) Usage(operation, clientID string, window time.Duration) int {
	wl := c.logFor(keyOf(operation, clientID))
	wl.mu.Lock()
	defer wl.mu.Unlock()
	wl.purge(c.clock().Add(-window))
	return len(wl.timestamps)
}

// Reset drops every recorded window. Used after a config swap changes the
// budgets wholesale.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.keys = make(map[string]*windowLog)
}

func (c *Controller) logFor(key string) *windowLog {
	c.mu.Lock()
	defer c.mu.Unlock()
	wl, ok := c.keys[key]
	if !ok {
		wl = &windowLog{}
		c.keys[key] = wl
	}
	return wl
}

// purge drops timestamps at or before the cutoff. The log is ordered, so
// only a prefix can expire. Caller holds wl.mu.
func (wl *windowLog) purge(cutoff time.Time) {
	i := 0
	for i < len(wl.timestamps) && !wl.timestamps[i].After(cutoff) {
		i++
	}
	if i > 0 {
		wl.timestamps = append(wl.timestamps[:0], wl.timestamps[i:]...)
	}
}

// keyOf joins operation and client into one map key. NUL cannot appear in
// either part, so the join is unambiguous.
func keyOf(operation, clientID string) string {
	return operation + "\x00" + clientID
}
