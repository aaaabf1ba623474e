package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/dealbroker/internal/domain"
	"github.com/alanyoungcy/dealbroker/internal/pipeline"
)

// SchedulerMode runs the auction lifecycle scheduler alone: opening due
// auctions, reopening restarted ones, closing expired ones and raising
// restart advice. Notifications and archiving are left to another process
// running in full mode.
func (a *App) SchedulerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting scheduler mode")
	return pipeline.NewOrchestrator(a.newScheduler(deps), nil, nil, "", a.logger).Run(ctx)
}

// ArchiveMode exports settled auctions older than the retention window once
// and returns.
func (a *App) ArchiveMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting archive mode")
	if deps.Archiver == nil {
		return errors.New("app: archive mode requires s3")
	}
	n, err := a.newArchiver(deps).Run(ctx)
	if err != nil {
		return err
	}
	a.logger.InfoContext(ctx, "archive run complete", slog.Int64("auctions", n))
	return nil
}

// FullMode runs the scheduler, the notification relay and, when object
// storage is configured, the archive cron.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode",
		slog.Bool("notify", deps.Notifier.Enabled()),
		slog.Bool("archive", deps.Archiver != nil),
	)

	var relay *pipeline.Relay
	if deps.Notifier.Enabled() {
		relay = pipeline.NewRelay(deps.SignalBus, deps.CursorStore, deps.Notifier, a.logger)
	}
	var archiver *pipeline.Archiver
	if deps.Archiver != nil {
		archiver = a.newArchiver(deps)
	}

	return pipeline.NewOrchestrator(a.newScheduler(deps), relay, archiver, a.cfg.Pipeline.ArchiveCron, a.logger).Run(ctx)
}

func (a *App) newScheduler(deps *Dependencies) *pipeline.Scheduler {
	return pipeline.NewScheduler(deps.Repository, deps.Orchestrator, schedulerConfig(a.cfg), a.logger)
}

func (a *App) newArchiver(deps *Dependencies) *pipeline.Archiver {
	return pipeline.NewArchiver(deps.Archiver, a.cfg.Pipeline.ArchiveRetentionDays, a.logger)
}

// AuditMode logs the audit entries recorded within the configured window,
// newest first, and returns.
func (a *App) AuditMode(ctx context.Context, deps *Dependencies) error {
	since := time.Now().UTC().Add(-a.cfg.Pipeline.AuditWindow.Duration)
	entries, err := deps.AuditStore.List(ctx, domain.ListOpts{Since: &since, Limit: a.cfg.Pipeline.AuditLimit})
	if err != nil {
		return fmt.Errorf("app: list audit entries: %w", err)
	}
	for _, e := range entries {
		a.logger.InfoContext(ctx, "audit",
			slog.Int64("id", e.ID),
			slog.String("event", e.Event),
			slog.Any("detail", e.Detail),
			slog.Time("at", e.CreatedAt),
		)
	}
	a.logger.InfoContext(ctx, "audit report complete",
		slog.Int("entries", len(entries)),
		slog.Time("since", since),
	)
	return nil
}
