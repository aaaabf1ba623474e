package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/dealbroker/internal/domain"
)

// OpenAuction moves a SCHEDULED auction to LIVE.
func (o *Orchestrator) OpenAuction(ctx context.Context, auctionID string) (domain.Auction, error) {
	return o.transition(ctx, auctionID, domain.AuctionStatusLive, domain.EventAuctionOpened,
		[]domain.AuctionStatus{domain.AuctionStatusScheduled},
		func(p *domain.AuctionPatch, now *time.Time) { p.OpenedAt = now },
	)
}

// ReopenAuction starts a new LIVE cycle for a RESTARTING auction. The minimum
// price and restart count set by the restart carry over unchanged.
func (o *Orchestrator) ReopenAuction(ctx context.Context, auctionID string) (domain.Auction, error) {
	return o.transition(ctx, auctionID, domain.AuctionStatusLive, domain.EventAuctionOpened,
		[]domain.AuctionStatus{domain.AuctionStatusRestarting},
		func(p *domain.AuctionPatch, now *time.Time) { p.OpenedAt = now },
	)
}

// CloseAuction ends an auction without a sale.
func (o *Orchestrator) CloseAuction(ctx context.Context, auctionID string) (domain.Auction, error) {
	return o.transition(ctx, auctionID, domain.AuctionStatusClosed, domain.EventAuctionClosed, nil, nil)
}

// transition applies a status change under the auction lock. from restricts
// the accepted source states beyond the status machine; nil allows any
// source the machine permits.
func (o *Orchestrator) transition(
	ctx context.Context,
	auctionID string,
	to domain.AuctionStatus,
	event string,
	from []domain.AuctionStatus,
	mutate func(*domain.AuctionPatch, *time.Time),
) (domain.Auction, error) {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.PersistenceTimeout)
	defer cancel()

	unlock, err := o.acquire(ctx, "auction:"+auctionID)
	if err != nil {
		return domain.Auction{}, fmt.Errorf("service: %s: %w", event, err)
	}
	defer unlock()

	var (
		prev    domain.Auction
		updated domain.Auction
	)
	now := o.now().UTC()
	err = o.withRetry(ctx, event, func(ctx context.Context) error {
		a, err := o.repo.FindAuctionByID(ctx, auctionID)
		if err != nil {
			return fmt.Errorf("find auction: %w", err)
		}
		if !allowedSource(a.Status, from) || !domain.CanTransition(a.Status, to) {
			return fmt.Errorf("auction %s %s -> %s: %w", a.ID, a.Status, to, domain.ErrInvalidTransition)
		}

		patch := domain.AuctionPatch{ExpectedVersion: a.Version, Status: &to}
		if mutate != nil {
			mutate(&patch, &now)
		}
		updated, err = o.repo.UpdateAuction(ctx, a.ID, patch)
		if err != nil {
			return fmt.Errorf("update auction: %w", err)
		}
		prev = a
		return nil
	})
	if err != nil {
		return domain.Auction{}, fmt.Errorf("service: %s: %w", event, err)
	}

	if to.Terminal() {
		o.engines.drop(updated.ID)
	} else {
		o.engines.advance(updated.ID, prev.Version, updated.Version)
	}

	o.publish(ctx, auctionEvent(event, updated, now))
	o.auditLog(ctx, event, map[string]any{
		"auction_id":    updated.ID,
		"from":          string(prev.Status),
		"to":            string(to),
		"restart_count": updated.RestartCount,
		"minimum_price": updated.MinimumPrice,
	})
	o.logger.InfoContext(ctx, "auction status changed",
		slog.String("auction_id", updated.ID),
		slog.String("from", string(prev.Status)),
		slog.String("to", string(to)),
	)
	return updated, nil
}

func allowedSource(s domain.AuctionStatus, from []domain.AuctionStatus) bool {
	if len(from) == 0 {
		return true
	}
	for _, f := range from {
		if f == s {
			return true
		}
	}
	return false
}
