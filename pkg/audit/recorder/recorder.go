// Package recorder writes audit events asynchronously. The request path
// enqueues and returns; a single background worker drains the queue into
// storage with a per-write timeout. Close drains the queue before
// returning so a clean shutdown loses nothing.
package recorder

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"kronos-hq/cerberus/pkg/audit"
)

// Config contains configuration for the audit recorder.
type Config struct {
	// Enabled enables audit recording.
	Enabled bool `yaml:"enabled"`

	// AsyncBuffer is the size of the async write channel buffer.
	// Default: 1000
	AsyncBuffer int `yaml:"async_buffer"`

	// WriteTimeout bounds each storage write.
	// Default: 5 seconds
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// DefaultConfig returns the default recorder configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:      true,
		AsyncBuffer:  1000,
		WriteTimeout: 5 * time.Second,
	}
}

func (c *Config) applyDefaults() {
	if c.AsyncBuffer <= 0 {
		c.AsyncBuffer = 1000
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 5 * time.Second
	}
}

// Recorder enqueues audit events for asynchronous storage writes.
type Recorder struct {
	storage   audit.Storage
	config    Config
	eventChan chan *audit.Event
	wg        sync.WaitGroup
	done      chan struct{}
	closeOnce sync.Once
	logger    *slog.Logger

	mu      sync.Mutex
	dropped int64
}

// NewRecorder builds a Recorder over the given storage and starts its
// worker. logger may be nil.
func NewRecorder(storage audit.Storage, config Config, logger *slog.Logger) *Recorder {
	config.applyDefaults()
	if logger == nil {
		logger = slog.Default()
	}

	r := &Recorder{
		storage:   storage,
		config:    config,
		eventChan: make(chan *audit.Event, config.AsyncBuffer),
		done:      make(chan struct{}),
		logger:    logger.With("component", "audit.recorder"),
	}

	r.wg.Add(1)
	go r.worker()

	r.logger.Info("audit recorder initialized",
		"async_buffer", config.AsyncBuffer,
		"write_timeout", config.WriteTimeout,
	)
	return r
}

// Record enqueues one event. The event gets an ID and timestamp if it
// has none. Record never blocks the caller beyond a full-buffer check;
// when the buffer is full the event is dropped and counted rather than
// stalling the request path.
func (r *Recorder) Record(event *audit.Event) {
	if !r.config.Enabled || event == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.RecordedAt.IsZero() {
		event.RecordedAt = time.Now()
	}

	select {
	case r.eventChan <- event:
	default:
		r.mu.Lock()
		r.dropped++
		dropped := r.dropped
		r.mu.Unlock()
		r.logger.Error("audit buffer full, dropping event",
			"event_id", event.ID,
			"kind", string(event.Kind),
			"dropped_total", dropped,
		)
	}
}

// Dropped reports how many events the recorder has dropped because the
// buffer was full.
func (r *Recorder) Dropped() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}

// Close drains the queue and stops the worker.
func (r *Recorder) Close() error {
	r.closeOnce.Do(func() {
		close(r.done)
		r.wg.Wait()
	})
	return nil
}

func (r *Recorder) worker() {
	defer r.wg.Done()

	for {
		select {
		case event := <-r.eventChan:
			r.writeEvent(event)

		case <-r.done:
			// Drain remaining events before exit.
			for {
				select {
				case event := <-r.eventChan:
					r.writeEvent(event)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) writeEvent(event *audit.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), r.config.WriteTimeout)
	defer cancel()

	if err := r.storage.Store(ctx, event); err != nil {
		r.logger.Error("failed to store audit event",
			"event_id", event.ID,
			"kind", string(event.Kind),
			"error", err,
		)
		return
	}

	r.logger.Debug("audit event recorded",
		"event_id", event.ID,
		"kind", string(event.Kind),
		"request_id", event.RequestID,
	)
}
