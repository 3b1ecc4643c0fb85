// Package retention prunes old audit events. A Pruner applies the
// age-based policy on demand; a Scheduler runs it on a cron schedule.
package retention

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"kronos-hq/cerberus/pkg/audit"
)

// Config contains retention configuration.
type Config struct {
	// RetentionDays is how long events are kept. Zero disables pruning.
	// Default: 90.
	RetentionDays int `yaml:"retention_days"`

	// PruneSchedule is a cron expression for scheduled pruning, e.g.
	// "0 3 * * *" for daily at 3 AM. Empty disables the scheduler.
	PruneSchedule string `yaml:"prune_schedule"`
}

// DefaultConfig returns the default retention configuration.
func DefaultConfig() Config {
	return Config{
		RetentionDays: 90,
		PruneSchedule: "0 3 * * *",
	}
}

// Pruner deletes audit events older than the retention period.
type Pruner struct {
	storage audit.Storage
	config  Config
	logger  *slog.Logger
}

// NewPruner builds a Pruner. logger may be nil.
func NewPruner(storage audit.Storage, config Config, logger *slog.Logger) *Pruner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pruner{
		storage: storage,
		config:  config,
		logger:  logger.With("component", "audit.retention"),
	}
}

// Prune deletes events older than the retention period and reports how
// many were removed.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	if p.config.RetentionDays <= 0 {
		return 0, nil
	}

	cutoff := time.Now().AddDate(0, 0, -p.config.RetentionDays)
	deleted, err := p.storage.DeleteBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune audit events: %w", err)
	}

	if deleted > 0 {
		p.logger.Info("pruned audit events",
			"deleted_count", deleted,
			"cutoff", cutoff.Format(time.RFC3339),
		)
	}
	return deleted, nil
}
