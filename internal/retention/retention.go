// Package retention purges soft-deleted posts and threads on a cron schedule.
package retention

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/radutopala/threads/internal/db"
)

// Store is the subset of db.Store the purger needs.
type Store interface {
	PurgeDeleted(ctx context.Context, before time.Time) (db.PurgeResult, error)
}

// Purger hard-deletes records that have been soft-deleted for longer than
// the retention period.
type Purger struct {
	store     Store
	retention time.Duration
	logger    *slog.Logger
	now       func() time.Time

	cron *cron.Cron
}

// NewPurger creates a new Purger. A zero retention disables purging.
func NewPurger(store Store, retention time.Duration, logger *slog.Logger) *Purger {
	return &Purger{
		store:     store,
		retention: retention,
		logger:    logger,
		now:       time.Now,
	}
}

// RunOnce purges everything deleted before now minus the retention period.
func (p *Purger) RunOnce(ctx context.Context) (db.PurgeResult, error) {
	if p.retention <= 0 {
		return db.PurgeResult{}, nil
	}
	cutoff := p.now().UTC().Add(-p.retention)
	res, err := p.store.PurgeDeleted(ctx, cutoff)
	if err != nil {
		return res, fmt.Errorf("purging deleted records: %w", err)
	}
	p.logger.Info("purge complete", "cutoff", cutoff, "posts", res.Posts, "threads", res.Threads)
	return res, nil
}

// Start schedules RunOnce according to a standard five-field cron expression
// (descriptors such as "@daily" are accepted too).
func (p *Purger) Start(ctx context.Context, schedule string) error {
	if p.retention <= 0 {
		p.logger.Info("purge disabled", "retention", p.retention)
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(schedule, func() {
		if _, err := p.RunOnce(ctx); err != nil {
			p.logger.Error("scheduled purge failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("parsing purge schedule %q: %w", schedule, err)
	}
	p.cron = c
	c.Start()
	p.logger.Info("purge scheduled", "schedule", schedule, "retention", p.retention)
	return nil
}

// Stop halts the schedule and waits for a running purge to finish.
func (p *Purger) Stop() {
	if p.cron == nil {
		return
	}
	<-p.cron.Stop().Done()
}
