// Package retention prunes recorded chat turns on a cron schedule.
package retention

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mkraev/courseforge/internal/config"
)

// turnPruner is the slice of store.Repository the pruner needs.
type turnPruner interface {
	DeleteTurnsBefore(ctx context.Context, cutoff time.Time) (int64, error)
	CountTurns(ctx context.Context) (int64, error)
}

// Pruner deletes chat turns older than the retention window.
type Pruner struct {
	cfg   config.RetentionConfig
	turns turnPruner
	cron  *cron.Cron
}

// New creates a pruner. A non-positive retention window disables it.
func New(cfg config.RetentionConfig, turns turnPruner) *Pruner {
	return &Pruner{
		cfg:   cfg,
		turns: turns,
		cron:  cron.New(cron.WithLocation(time.UTC)),
	}
}

// Start schedules the pruning job. A disabled pruner starts nothing.
func (p *Pruner) Start() error {
	if p.cfg.Days <= 0 {
		slog.Info("Turn retention disabled")
		return nil
	}

	if _, err := p.cron.AddFunc(p.cfg.Schedule, func() {
		p.Prune(context.Background())
	}); err != nil {
		return fmt.Errorf("schedule retention job: %w", err)
	}

	p.cron.Start()
	slog.Info("Turn retention scheduled", "schedule", p.cfg.Schedule, "days", p.cfg.Days)
	return nil
}

// Prune deletes turns that fell out of the retention window.
func (p *Pruner) Prune(ctx context.Context) {
	cutoff := time.Now().UTC().AddDate(0, 0, -p.cfg.Days)

	deleted, err := p.turns.DeleteTurnsBefore(ctx, cutoff)
	if err != nil {
		slog.Error("Turn pruning failed", "error", err)
		return
	}
	if deleted == 0 {
		return
	}
	slog.Info("Pruned old chat turns", "deleted", deleted, "cutoff", cutoff)

	remaining, err := p.turns.CountTurns(ctx)
	if err != nil {
		slog.Warn("Failed to count remaining turns", "error", err)
		return
	}
	slog.Info("Turn store size after prune", "remaining", remaining)
}

// Stop halts the schedule and waits for a running job to finish.
func (p *Pruner) Stop() {
	ctx := p.cron.Stop()
	<-ctx.Done()
}
