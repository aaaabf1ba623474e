package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/dealbroker/internal/auction"
	"github.com/alanyoungcy/dealbroker/internal/domain"
)

// AuctionSource is the read side the scheduler polls.
type AuctionSource interface {
	ListAuctionsByStatus(ctx context.Context, status domain.AuctionStatus, opts domain.ListOpts) ([]domain.Auction, error)
	FindAuctionByID(ctx context.Context, id string) (domain.Auction, error)
	GetDealPackage(ctx context.Context, id string) (domain.DealPackage, error)
}

// AuctionLifecycle is the write side the scheduler drives.
type AuctionLifecycle interface {
	OpenAuction(ctx context.Context, auctionID string) (domain.Auction, error)
	ReopenAuction(ctx context.Context, auctionID string) (domain.Auction, error)
	CloseAuction(ctx context.Context, auctionID string) (domain.Auction, error)
	AdviseRestart(ctx context.Context, a domain.Auction, conds []domain.RestartCondition)
}

// SchedulerConfig tunes the scheduler.
type SchedulerConfig struct {
	Interval time.Duration
	// ReopenAfter is how long a RESTARTING auction waits before its next LIVE
	// cycle. Zero leaves reopening to the operator.
	ReopenAfter time.Duration
	// BatchSize caps how many auctions of each status one tick handles.
	BatchSize  int
	Conditions auction.ConditionPolicy
	// AdviceTTL suppresses repeating the same advice for the same cycle.
	AdviceTTL time.Duration
}

// DefaultSchedulerConfig returns the stock scheduler settings.
func DefaultSchedulerConfig() SchedulerConfig {
	conds := auction.DefaultConditionPolicy()
	return SchedulerConfig{
		Interval:    time.Minute,
		ReopenAfter: time.Hour,
		BatchSize:   500,
		Conditions:  conds,
		AdviceTTL:   conds.QuietWindow,
	}
}

// TickStats summarises one scheduler pass.
type TickStats struct {
	Opened   int
	Reopened int
	Closed   int
	Advised  int
	Failed   int
}

// Scheduler drives auctions through time-based transitions: it opens due
// SCHEDULED auctions, reopens RESTARTING ones after a cool-down, closes
// auctions past their end time and publishes restart advice for LIVE ones.
type Scheduler struct {
	source    AuctionSource
	lifecycle AuctionLifecycle
	cfg       SchedulerConfig
	advised   *Dedup
	logger    *slog.Logger
	now       func() time.Time
}

// NewScheduler creates a Scheduler.
func NewScheduler(source AuctionSource, lifecycle AuctionLifecycle, cfg SchedulerConfig, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		source:    source,
		lifecycle: lifecycle,
		cfg:       cfg,
		advised:   NewDedup(cfg.AdviceTTL),
		logger:    logger.With(slog.String("component", "scheduler")),
		now:       time.Now,
	}
}

// RunLoop ticks immediately and then every Interval until ctx is cancelled.
func (s *Scheduler) RunLoop(ctx context.Context) error {
	s.logger.InfoContext(ctx, "scheduler started", slog.Duration("interval", s.cfg.Interval))

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		if _, err := s.Tick(ctx); err != nil && ctx.Err() == nil {
			s.logger.ErrorContext(ctx, "scheduler tick failed", slog.String("error", err.Error()))
		}
		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Tick runs one pass. Per-auction failures are logged and counted; the
// returned error only reports listing failures.
func (s *Scheduler) Tick(ctx context.Context) (TickStats, error) {
	var (
		stats TickStats
		errs  []error
	)
	now := s.now().UTC()
	s.advised.Cleanup()

	scheduled, err := s.source.ListAuctionsByStatus(ctx, domain.AuctionStatusScheduled,
		domain.ListOpts{Until: &now, Limit: s.cfg.BatchSize})
	if err != nil {
		errs = append(errs, fmt.Errorf("list scheduled: %w", err))
	}
	for _, a := range scheduled {
		if !now.Before(a.EndsAt) {
			s.apply(ctx, "close", a.ID, s.lifecycle.CloseAuction, &stats.Closed, &stats.Failed)
			continue
		}
		s.apply(ctx, "open", a.ID, s.lifecycle.OpenAuction, &stats.Opened, &stats.Failed)
	}

	restarting, err := s.source.ListAuctionsByStatus(ctx, domain.AuctionStatusRestarting,
		domain.ListOpts{Limit: s.cfg.BatchSize})
	if err != nil {
		errs = append(errs, fmt.Errorf("list restarting: %w", err))
	}
	for _, a := range restarting {
		switch {
		case !now.Before(a.EndsAt):
			s.apply(ctx, "close", a.ID, s.lifecycle.CloseAuction, &stats.Closed, &stats.Failed)
		case s.cfg.ReopenAfter > 0 && a.RestartedAt != nil && now.Sub(*a.RestartedAt) >= s.cfg.ReopenAfter:
			s.apply(ctx, "reopen", a.ID, s.lifecycle.ReopenAuction, &stats.Reopened, &stats.Failed)
		}
	}

	live, err := s.source.ListAuctionsByStatus(ctx, domain.AuctionStatusLive,
		domain.ListOpts{Limit: s.cfg.BatchSize})
	if err != nil {
		errs = append(errs, fmt.Errorf("list live: %w", err))
	}
	for _, a := range live {
		if !now.Before(a.EndsAt) {
			s.apply(ctx, "close", a.ID, s.lifecycle.CloseAuction, &stats.Closed, &stats.Failed)
			continue
		}
		advised, err := s.advise(ctx, a.ID, now)
		if err != nil {
			stats.Failed++
			s.logger.WarnContext(ctx, "restart check failed",
				slog.String("auction_id", a.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		if advised {
			stats.Advised++
		}
	}

	if stats != (TickStats{}) {
		s.logger.InfoContext(ctx, "scheduler tick",
			slog.Int("opened", stats.Opened),
			slog.Int("reopened", stats.Reopened),
			slog.Int("closed", stats.Closed),
			slog.Int("advised", stats.Advised),
			slog.Int("failed", stats.Failed),
		)
	}
	if len(errs) > 0 {
		return stats, fmt.Errorf("pipeline: scheduler tick: %w", errors.Join(errs...))
	}
	return stats, nil
}

func (s *Scheduler) apply(
	ctx context.Context,
	op, id string,
	fn func(context.Context, string) (domain.Auction, error),
	ok, failed *int,
) {
	if _, err := fn(ctx, id); err != nil {
		*failed++
		level := slog.LevelWarn
		if errors.Is(err, domain.ErrInvalidTransition) || errors.Is(err, domain.ErrLockHeld) {
			level = slog.LevelInfo
		}
		s.logger.Log(ctx, level, "scheduled transition skipped",
			slog.String("op", op),
			slog.String("auction_id", id),
			slog.String("error", err.Error()),
		)
		return
	}
	*ok++
}

// advise evaluates the deal package's restart conditions and publishes the
// ones not already announced for this cycle.
func (s *Scheduler) advise(ctx context.Context, id string, now time.Time) (bool, error) {
	a, err := s.source.FindAuctionByID(ctx, id)
	if err != nil {
		return false, fmt.Errorf("find auction: %w", err)
	}
	pkg, err := s.source.GetDealPackage(ctx, a.DealPackageID)
	if err != nil {
		return false, fmt.Errorf("get deal package %s: %w", a.DealPackageID, err)
	}

	met := auction.EvaluateConditions(pkg.Strategy.RestartConditions, a, pkg.Valuation, now, s.cfg.Conditions)

	var fresh []domain.RestartCondition
	for _, c := range met {
		if !s.advised.IsDuplicate(fmt.Sprintf("%s:%s:%d", a.ID, c, a.RestartCount)) {
			fresh = append(fresh, c)
		}
	}
	if len(fresh) == 0 {
		return false, nil
	}
	s.lifecycle.AdviseRestart(ctx, a, fresh)
	return true, nil
}
