// Package auction implements the per-auction bid-evaluation state machine.
//
// An Engine holds the current minimum price and the ordered bid history of
// one auction. It performs no I/O; callers persist the bid log and rebuild an
// engine by replaying it.
package auction

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/dealbroker/internal/domain"
)

// ErrSettled is returned when a bid reaches an engine that already accepted.
var ErrSettled = errors.New("auction: engine already accepted a bid")

// Engine evaluates bids for a single auction. It is not safe for concurrent
// use; callers serialize access per auction.
type Engine struct {
	policy       Policy
	minimumPrice decimal.Decimal
	restartCount int
	bids         []domain.Bid
	settled      bool
}

// NewEngine seeds an engine with a minimum price and restart count.
func NewEngine(policy Policy, minimumPrice float64, restartCount int) *Engine {
	return &Engine{
		policy:       policy,
		minimumPrice: decimal.NewFromFloat(minimumPrice),
		restartCount: restartCount,
	}
}

// Replay rebuilds an engine from the listing floor by folding every recorded
// bid through ProcessBid in order.
func Replay(policy Policy, baseMinimumPrice float64, bids []domain.Bid) (*Engine, error) {
	e := NewEngine(policy, baseMinimumPrice, 0)
	for i, b := range bids {
		if _, err := e.ProcessBid(b); err != nil {
			return nil, fmt.Errorf("auction: replay bid %d (%s): %w", i, b.ID, err)
		}
	}
	return e, nil
}

// ProcessBid appends bid to the history and evaluates it. The first matching
// rule wins:
//
//  1. amount below the minimum price restarts with PRICE_TOO_LOW
//  2. clustered amounts restart with SUSPICIOUS_PATTERNS
//  3. fewer than MinCompetingBids bids restarts with NO_COMPETITION
//  4. otherwise the bid is accepted and the engine settles
//
// Rules 2 and 3 look at the whole auction history, not only the current
// cycle. A live auction leaves its cycle on any decision other than
// acceptance, so a cycle never holds more than one evaluated bid and a
// per-cycle count could not reach MinCompetingBids.
//
// On error the engine state is unchanged.
func (e *Engine) ProcessBid(bid domain.Bid) (domain.Decision, error) {
	if e.settled {
		return domain.Decision{}, ErrSettled
	}
	if math.IsNaN(bid.Amount) || math.IsInf(bid.Amount, 0) || bid.Amount < 0 {
		return domain.Decision{}, fmt.Errorf("auction: amount %v: %w", bid.Amount, domain.ErrInvalidBid)
	}

	e.bids = append(e.bids, bid)

	amount := decimal.NewFromFloat(bid.Amount)
	if amount.LessThan(e.minimumPrice) {
		return e.restart(bid, domain.RestartPriceTooLow), nil
	}

	colluding, err := DetectCollusion(e.bids, e.policy.CollusionMinBids, e.policy.CollusionThreshold)
	if err != nil {
		e.bids = e.bids[:len(e.bids)-1]
		return domain.Decision{}, err
	}
	if colluding {
		return e.restart(bid, domain.RestartSuspiciousPatterns), nil
	}

	if len(e.bids) < e.policy.MinCompetingBids {
		return e.restart(bid, domain.RestartNoCompetition), nil
	}

	e.settled = true
	return domain.Decision{
		Outcome:      domain.OutcomeAccepted,
		MinimumPrice: e.MinimumPrice(),
		RestartCount: e.restartCount,
	}, nil
}

func (e *Engine) restart(bid domain.Bid, reason domain.RestartReason) domain.Decision {
	enh := Enhancements(e.policy, bid, e.minimumPrice)

	e.restartCount++
	growth := decimal.NewFromInt(int64(e.restartCount)).
		Mul(decimal.NewFromFloat(e.policy.RestartGrowth)).
		Add(decimal.NewFromInt(1))
	next := decimal.Max(e.minimumPrice.Mul(growth).Round(2), e.minimumPrice)
	if e.policy.MaxMinimumPrice > 0 {
		limit := decimal.NewFromFloat(e.policy.MaxMinimumPrice)
		if next.GreaterThan(limit) {
			next = decimal.Max(limit, e.minimumPrice)
		}
	}
	e.minimumPrice = next

	return domain.Decision{
		Outcome:      domain.OutcomeRestartWithEnhancements,
		Reason:       reason,
		Enhancements: enh,
		MinimumPrice: e.MinimumPrice(),
		RestartCount: e.restartCount,
	}
}

// MinimumPrice returns the current floor.
func (e *Engine) MinimumPrice() float64 {
	return e.minimumPrice.InexactFloat64()
}

// RestartCount returns how many restarts the engine has applied.
func (e *Engine) RestartCount() int {
	return e.restartCount
}

// Settled reports whether a bid has been accepted.
func (e *Engine) Settled() bool {
	return e.settled
}

// Bids returns a copy of the evaluated bid history.
func (e *Engine) Bids() []domain.Bid {
	out := make([]domain.Bid, len(e.bids))
	copy(out, e.bids)
	return out
}

// Clone returns an independent copy of the engine.
func (e *Engine) Clone() *Engine {
	c := *e
	c.bids = e.Bids()
	return &c
}
