// Package service composes the effort ledger, deal architect and auction
// engine with the persistence, locking and messaging ports into the listing
// and bidding use cases.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/dealbroker/internal/auction"
	"github.com/alanyoungcy/dealbroker/internal/deal"
	"github.com/alanyoungcy/dealbroker/internal/domain"
	"github.com/alanyoungcy/dealbroker/internal/valuation"
)

// OrchestratorConfig holds the tunables for listing and bidding.
type OrchestratorConfig struct {
	Valuation valuation.Config
	// ValuationMultiplier is passed to Ledger.MinimumValuation; zero uses
	// the ledger default.
	ValuationMultiplier float64
	Auction             auction.Policy

	ScheduleDelay   time.Duration
	AuctionDuration time.Duration

	PersistenceTimeout time.Duration
	MaxRetries         int
	RetryBaseDelay     time.Duration
	RetryMaxDelay      time.Duration

	LockTTL  time.Duration
	LockWait time.Duration

	// BidRateLimit bids per BidRateWindow per bidder. Zero disables.
	BidRateLimit  int
	BidRateWindow time.Duration

	EngineCacheSize int
}

// DefaultOrchestratorConfig returns the stock tunables.
func DefaultOrchestratorConfig() OrchestratorConfig {
	return OrchestratorConfig{
		ValuationMultiplier: valuation.DefaultMultiplier,
		Auction:             auction.DefaultPolicy(),
		ScheduleDelay:       24 * time.Hour,
		AuctionDuration:     7 * 24 * time.Hour,
		PersistenceTimeout:  10 * time.Second,
		MaxRetries:          3,
		RetryBaseDelay:      50 * time.Millisecond,
		RetryMaxDelay:       time.Second,
		LockTTL:             15 * time.Second,
		LockWait:            3 * time.Second,
		BidRateLimit:        10,
		BidRateWindow:       time.Minute,
		EngineCacheSize:     1024,
	}
}

// Orchestrator implements the listing, bidding and lifecycle operations.
type Orchestrator struct {
	repo      domain.Repository
	efforts   domain.EffortStore
	locks     domain.LockManager
	limiter   domain.RateLimiter
	bus       domain.SignalBus
	audit     domain.AuditStore
	architect *deal.Architect
	engines   *engineCache
	cfg       OrchestratorConfig
	logger    *slog.Logger
	now       func() time.Time
}

// NewOrchestrator creates an Orchestrator with all required dependencies.
func NewOrchestrator(
	repo domain.Repository,
	efforts domain.EffortStore,
	locks domain.LockManager,
	limiter domain.RateLimiter,
	bus domain.SignalBus,
	audit domain.AuditStore,
	architect *deal.Architect,
	cfg OrchestratorConfig,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		repo:      repo,
		efforts:   efforts,
		locks:     locks,
		limiter:   limiter,
		bus:       bus,
		audit:     audit,
		architect: architect,
		engines:   newEngineCache(cfg.EngineCacheSize),
		cfg:       cfg,
		logger:    logger.With(slog.String("component", "orchestrator")),
		now:       time.Now,
	}
}

// acquire takes the distributed lock for key, polling until LockWait elapses.
func (o *Orchestrator) acquire(ctx context.Context, key string) (func(), error) {
	deadline := time.Now().Add(o.cfg.LockWait)
	poll := 25 * time.Millisecond
	for {
		unlock, err := o.locks.Acquire(ctx, key, o.cfg.LockTTL)
		if err == nil {
			return unlock, nil
		}
		if !errors.Is(err, domain.ErrLockHeld) {
			return nil, fmt.Errorf("service: lock %s: %w", key, err)
		}
		if !time.Now().Before(deadline) {
			return nil, fmt.Errorf("service: lock %s: %w", key, err)
		}
		timer := time.NewTimer(poll)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("service: lock %s: %w", key, ctx.Err())
		case <-timer.C:
		}
	}
}

// publish sends evt on the pub/sub channel and appends it to the durable
// stream. Failures are logged; the state change has already committed.
func (o *Orchestrator) publish(ctx context.Context, evt domain.AuctionEvent) {
	payload, err := json.Marshal(evt)
	if err != nil {
		o.logger.WarnContext(ctx, "marshal event failed",
			slog.String("event", evt.Event),
			slog.String("error", err.Error()),
		)
		return
	}
	if err := o.bus.Publish(ctx, domain.ChannelAuctions, payload); err != nil {
		o.logger.WarnContext(ctx, "publish event failed",
			slog.String("event", evt.Event),
			slog.String("auction_id", evt.AuctionID),
			slog.String("error", err.Error()),
		)
	}
	if err := o.bus.StreamAppend(ctx, domain.StreamAuctionEvents, payload); err != nil {
		o.logger.WarnContext(ctx, "stream append failed",
			slog.String("event", evt.Event),
			slog.String("auction_id", evt.AuctionID),
			slog.String("error", err.Error()),
		)
	}
}

func (o *Orchestrator) auditLog(ctx context.Context, event string, detail map[string]any) {
	if err := o.audit.Log(ctx, event, detail); err != nil {
		o.logger.WarnContext(ctx, "audit log failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}

func auctionEvent(name string, a domain.Auction, at time.Time) domain.AuctionEvent {
	return domain.AuctionEvent{
		Event:        name,
		AuctionID:    a.ID,
		Status:       a.Status,
		MinimumPrice: a.MinimumPrice,
		RestartCount: a.RestartCount,
		At:           at,
	}
}
