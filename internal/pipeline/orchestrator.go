// Package pipeline runs the background workflows around the auction core:
// the lifecycle scheduler, the notification relay and cold-storage archival.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// Orchestrator runs the configured workers concurrently. Relay and archiver
// are optional.
type Orchestrator struct {
	scheduler   *Scheduler
	relay       *Relay
	archiver    *Archiver
	archiveCron string
	logger      *slog.Logger
}

// NewOrchestrator creates an Orchestrator. Pass nil for relay or archiver to
// leave that worker out.
func NewOrchestrator(scheduler *Scheduler, relay *Relay, archiver *Archiver, archiveCron string, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		scheduler:   scheduler,
		relay:       relay,
		archiver:    archiver,
		archiveCron: archiveCron,
		logger:      logger.With(slog.String("component", "pipeline")),
	}
}

// Run starts every worker and waits. A worker failing with anything other
// than cancellation stops the rest and is returned.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.logger.InfoContext(ctx, "pipeline starting",
		slog.Bool("relay", o.relay != nil),
		slog.Bool("archiver", o.archiver != nil),
		slog.String("archive_cron", o.archiveCron),
	)

	g, ctx := errgroup.WithContext(ctx)

	if o.scheduler != nil {
		g.Go(func() error {
			return cleanExit(ctx, "scheduler", o.scheduler.RunLoop(ctx))
		})
	}
	if o.relay != nil {
		g.Go(func() error {
			return cleanExit(ctx, "relay", o.relay.Run(ctx))
		})
	}
	if o.archiver != nil {
		g.Go(func() error {
			return cleanExit(ctx, "archiver", o.archiver.RunCron(ctx, o.archiveCron))
		})
	}

	if err := g.Wait(); err != nil {
		o.logger.ErrorContext(ctx, "pipeline stopped with error", slog.String("error", err.Error()))
		return err
	}
	o.logger.InfoContext(ctx, "pipeline stopped cleanly")
	return nil
}

func cleanExit(ctx context.Context, name string, err error) error {
	if ctx.Err() != nil || err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", name, err)
}
