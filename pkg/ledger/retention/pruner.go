// Package retention prunes the delivery ledger by age and by row count,
// on demand or on a cron schedule.
package retention

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/FireTail-io/firetail-go-lib/pkg/config"
	"github.com/FireTail-io/firetail-go-lib/pkg/ledger"
	"github.com/FireTail-io/firetail-go-lib/pkg/telemetry/metrics"
)

// Config contains configuration for the retention pruner.
type Config struct {
	// RetentionDays keeps entries younger than this many days.
	// 0 keeps entries forever.
	RetentionDays int

	// MaxRecords is the maximum number of entries to keep.
	// 0 means unlimited.
	MaxRecords int64

	// PruneSchedule is a standard cron expression, e.g. "0 3 * * *".
	// Empty disables scheduled pruning.
	PruneSchedule string
}

// ConfigFrom maps the ledger retention settings.
func ConfigFrom(cfg config.RetentionConfig) *Config {
	return &Config{
		RetentionDays: cfg.Days,
		MaxRecords:    cfg.MaxRecords,
		PruneSchedule: cfg.PruneSchedule,
	}
}

// Pruner enforces retention on a ledger store.
type Pruner struct {
	storage   ledger.Storage
	config    *Config
	metrics   *metrics.Collector
	logger    *slog.Logger
	scheduler *Scheduler
	now       func() time.Time
}

// NewPruner creates a pruner. metrics may be nil; a nil logger uses
// slog.Default. Scheduled runs log through the same logger.
func NewPruner(storage ledger.Storage, cfg *Config, m *metrics.Collector, logger *slog.Logger) *Pruner {
	if cfg == nil {
		cfg = &Config{RetentionDays: config.DefaultLedgerRetentionDays, PruneSchedule: config.DefaultLedgerRetentionSchedule}
	}

	if logger == nil {
		logger = slog.Default()
	}

	p := &Pruner{
		storage: storage,
		config:  cfg,
		metrics: m,
		logger:  logger.With("component", "ledger.retention"),
		now:     time.Now,
	}
	p.scheduler = NewScheduler(p, logger)
	return p
}

// Prune deletes entries older than the retention period, then the oldest
// entries beyond MaxRecords. It returns the total removed.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	var total int64

	if p.config.RetentionDays > 0 {
		deleted, err := p.pruneByAge(ctx)
		if err != nil {
			return total, fmt.Errorf("prune by age failed: %w", err)
		}
		total += deleted
	}

	if p.config.MaxRecords > 0 {
		deleted, err := p.pruneByCount(ctx)
		if err != nil {
			return total, fmt.Errorf("prune by count failed: %w", err)
		}
		total += deleted
	}

	p.metrics.RecordLedgerPruned(total)
	if total == 0 {
		p.logger.Debug("no ledger entries pruned",
			"retention_days", p.config.RetentionDays,
			"max_records", p.config.MaxRecords,
		)
	} else {
		p.logger.Info("ledger pruning completed",
			"total_deleted", total,
			"retention_days", p.config.RetentionDays,
			"max_records", p.config.MaxRecords,
		)
	}
	return total, nil
}

func (p *Pruner) pruneByAge(ctx context.Context) (int64, error) {
	cutoff := p.now().AddDate(0, 0, -p.config.RetentionDays)

	deleted, err := p.storage.Delete(ctx, &ledger.Query{Until: &cutoff})
	if err != nil {
		return 0, ledger.NewRetentionError(p.config.RetentionDays, p.config.MaxRecords, err)
	}
	return deleted, nil
}

// pruneByCount finds the RecordedAt of the last entry over the limit and
// deletes everything up to it.
func (p *Pruner) pruneByCount(ctx context.Context) (int64, error) {
	count, err := p.storage.Count(ctx, &ledger.Query{})
	if err != nil {
		return 0, fmt.Errorf("failed to count entries: %w", err)
	}
	if count <= p.config.MaxRecords {
		return 0, nil
	}

	excess := int(count - p.config.MaxRecords)
	oldest, err := p.storage.Query(ctx, &ledger.Query{Ascending: true, Limit: excess})
	if err != nil {
		return 0, fmt.Errorf("failed to query entries: %w", err)
	}
	if len(oldest) == 0 {
		return 0, nil
	}

	cutoff := oldest[len(oldest)-1].RecordedAt
	deleted, err := p.storage.Delete(ctx, &ledger.Query{Until: &cutoff})
	if err != nil {
		return 0, ledger.NewRetentionError(p.config.RetentionDays, p.config.MaxRecords, err)
	}

	p.logger.Info("ledger over limit, pruned oldest",
		"count", count,
		"max_records", p.config.MaxRecords,
		"deleted", deleted,
	)
	return deleted, nil
}

// Start starts scheduled pruning until ctx is done or Stop is called.
func (p *Pruner) Start(ctx context.Context) error {
	return p.scheduler.Start(ctx)
}

// Stop stops scheduled pruning and waits for a running prune.
func (p *Pruner) Stop() {
	p.scheduler.Stop()
}

// NextPruning returns the next scheduled run, or nil.
func (p *Pruner) NextPruning() *time.Time {
	return p.scheduler.NextRun()
}
