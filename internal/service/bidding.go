package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/google/uuid"

	"github.com/alanyoungcy/dealbroker/internal/auction"
	"github.com/alanyoungcy/dealbroker/internal/domain"
)

// BidRequest is an incoming offer.
type BidRequest struct {
	AuctionID string
	BidderID  string
	Amount    float64
	Notes     string
}

// BidResult reports the recorded bid, the engine's decision and the auction
// as persisted afterwards.
type BidResult struct {
	Bid      domain.Bid
	Decision domain.Decision
	Auction  domain.Auction
}

// ProcessLiveBid evaluates a bid without notes.
func (o *Orchestrator) ProcessLiveBid(ctx context.Context, auctionID, bidderID string, amount float64) (BidResult, error) {
	return o.SubmitBid(ctx, BidRequest{AuctionID: auctionID, BidderID: bidderID, Amount: amount})
}

// SubmitBid records a bid against a LIVE auction and applies the engine's
// decision. Bids on one auction are serialized by a distributed lock and the
// auction's version check; a lost race is retried against fresh state.
func (o *Orchestrator) SubmitBid(ctx context.Context, req BidRequest) (BidResult, error) {
	if strings.TrimSpace(req.AuctionID) == "" || strings.TrimSpace(req.BidderID) == "" {
		return BidResult{}, fmt.Errorf("service: submit bid: auction and bidder are required: %w", domain.ErrInvalidBid)
	}
	if req.Amount <= 0 || math.IsNaN(req.Amount) || math.IsInf(req.Amount, 0) {
		return BidResult{}, fmt.Errorf("service: submit bid: amount %v: %w", req.Amount, domain.ErrInvalidBid)
	}

	if o.cfg.BidRateLimit > 0 {
		allowed, err := o.limiter.Allow(ctx, "bids:"+req.BidderID, o.cfg.BidRateLimit, o.cfg.BidRateWindow)
		if err != nil {
			return BidResult{}, fmt.Errorf("service: submit bid: rate limiter: %w", err)
		}
		if !allowed {
			return BidResult{}, domain.ErrRateLimited
		}
	}

	ctx, cancel := context.WithTimeout(ctx, o.cfg.PersistenceTimeout)
	defer cancel()

	unlock, err := o.acquire(ctx, "auction:"+req.AuctionID)
	if err != nil {
		return BidResult{}, fmt.Errorf("service: submit bid: %w", err)
	}
	defer unlock()

	var res BidResult
	err = o.withRetry(ctx, "submit_bid", func(ctx context.Context) error {
		var err error
		res, err = o.evaluateBid(ctx, req)
		return err
	})
	if err != nil {
		return BidResult{}, fmt.Errorf("service: submit bid: %w", err)
	}

	o.announceBid(ctx, res)
	return res, nil
}

func (o *Orchestrator) evaluateBid(ctx context.Context, req BidRequest) (BidResult, error) {
	a, err := o.repo.FindAuctionByID(ctx, req.AuctionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return BidResult{}, &domain.AuctionNotActiveError{AuctionID: req.AuctionID}
		}
		return BidResult{}, fmt.Errorf("find auction: %w", err)
	}
	if a.Status != domain.AuctionStatusLive {
		return BidResult{}, &domain.AuctionNotActiveError{AuctionID: a.ID, Status: a.Status}
	}

	profile, err := o.repo.GetBidderProfile(ctx, req.BidderID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return BidResult{}, fmt.Errorf("bidder profile: %w", err)
		}
		profile = domain.UnknownBidder(req.BidderID)
	}

	engine, err := o.engineFor(ctx, a)
	if err != nil {
		return BidResult{}, err
	}

	now := o.now().UTC()
	bid := domain.Bid{
		ID:        uuid.New().String(),
		AuctionID: a.ID,
		Amount:    req.Amount,
		Bidder:    profile,
		Timestamp: now,
		Notes:     req.Notes,
		Cycle:     a.RestartCount,
	}

	decision, err := engine.ProcessBid(bid)
	if err != nil {
		return BidResult{}, fmt.Errorf("evaluate bid: %w", err)
	}

	patch := domain.AuctionPatch{
		ExpectedVersion: a.Version,
		MinimumPrice:    &decision.MinimumPrice,
		RestartCount:    &decision.RestartCount,
	}
	if bid.Amount > a.HighestBid {
		patch.HighestBid = &bid.Amount
		patch.HighestBidderID = &profile.ID
	}

	var next domain.AuctionStatus
	if decision.Restarted() {
		next = domain.AuctionStatusRestarting
		patch.Status = &next
		patch.RestartReason = &decision.Reason
		patch.Enhancements = decision.Enhancements
		patch.RestartedAt = &now
	} else {
		next = domain.AuctionStatusAccepted
		patch.Status = &next
		patch.WinningBidID = &bid.ID
	}

	var updated domain.Auction
	err = o.repo.RunInTx(ctx, func(tx domain.Repository) error {
		if err := tx.CreateBid(ctx, bid); err != nil {
			return fmt.Errorf("create bid: %w", err)
		}
		var err error
		updated, err = tx.UpdateAuction(ctx, a.ID, patch)
		if err != nil {
			return fmt.Errorf("update auction: %w", err)
		}
		if next == domain.AuctionStatusAccepted && a.Asset != nil {
			sold := *a.Asset
			sold.Status = domain.AssetStatusSold
			sold.UpdatedAt = now
			if err := tx.UpdateAsset(ctx, sold); err != nil {
				return fmt.Errorf("mark asset sold: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return BidResult{}, err
	}

	if next.Terminal() {
		o.engines.drop(a.ID)
	} else {
		o.engines.put(a.ID, updated.Version, engine)
	}

	updated.Asset = a.Asset
	updated.Bids = append(a.Bids, bid)
	return BidResult{Bid: bid, Decision: decision, Auction: updated}, nil
}

// engineFor returns an engine reflecting every recorded bid of a. A cached
// engine is used when its version matches; otherwise the bid log is replayed
// from the listing floor.
func (o *Orchestrator) engineFor(ctx context.Context, a domain.Auction) (*auction.Engine, error) {
	if e, ok := o.engines.get(a.ID, a.Version); ok {
		return e, nil
	}
	e, err := auction.Replay(o.cfg.Auction, a.BaseMinimumPrice, a.Bids)
	if err != nil {
		return nil, fmt.Errorf("replay auction %s: %w", a.ID, err)
	}
	if e.MinimumPrice() != a.MinimumPrice || e.RestartCount() != a.RestartCount {
		o.logger.WarnContext(ctx, "replayed engine differs from stored auction",
			slog.String("auction_id", a.ID),
			slog.Float64("replayed_minimum_price", e.MinimumPrice()),
			slog.Float64("stored_minimum_price", a.MinimumPrice),
			slog.Int("replayed_restart_count", e.RestartCount()),
			slog.Int("stored_restart_count", a.RestartCount),
		)
	}
	return e, nil
}

func (o *Orchestrator) announceBid(ctx context.Context, res BidResult) {
	a, d, bid := res.Auction, res.Decision, res.Bid

	evt := auctionEvent(domain.EventBidProcessed, a, bid.Timestamp)
	evt.BidID = bid.ID
	evt.Amount = bid.Amount
	evt.Reason = d.Reason
	o.publish(ctx, evt)

	if d.Restarted() {
		restart := auctionEvent(domain.EventAuctionRestarting, a, bid.Timestamp)
		restart.BidID = bid.ID
		restart.Amount = bid.Amount
		restart.Reason = d.Reason
		restart.Enhancements = d.Enhancements
		o.publish(ctx, restart)
	} else {
		accepted := auctionEvent(domain.EventAuctionAccepted, a, bid.Timestamp)
		accepted.BidID = bid.ID
		accepted.Amount = bid.Amount
		o.publish(ctx, accepted)
	}

	o.auditLog(ctx, "bid_processed", map[string]any{
		"auction_id":    a.ID,
		"bid_id":        bid.ID,
		"bidder_id":     bid.Bidder.ID,
		"bidder_type":   string(bid.Bidder.Type),
		"amount":        bid.Amount,
		"outcome":       string(d.Outcome),
		"reason":        string(d.Reason),
		"enhancements":  d.Enhancements,
		"minimum_price": d.MinimumPrice,
		"restart_count": d.RestartCount,
	})
	o.logger.InfoContext(ctx, "bid processed",
		slog.String("auction_id", a.ID),
		slog.String("bid_id", bid.ID),
		slog.Float64("amount", bid.Amount),
		slog.String("outcome", string(d.Outcome)),
		slog.String("reason", string(d.Reason)),
		slog.Float64("minimum_price", d.MinimumPrice),
	)
}
