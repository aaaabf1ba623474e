package auction

import (
	"time"

	"github.com/alanyoungcy/dealbroker/internal/domain"
)

// EvaluateConditions checks the advisory restart conditions a deal package
// declared against a LIVE auction's current cycle. It only reports; acting on
// the result is up to the operator. valuation is the deal package valuation.
func EvaluateConditions(
	conds []domain.RestartCondition,
	a domain.Auction,
	valuation float64,
	now time.Time,
	p ConditionPolicy,
) []domain.RestartCondition {
	if a.Status != domain.AuctionStatusLive {
		return nil
	}

	since := a.StartsAt
	if a.OpenedAt != nil {
		since = *a.OpenedAt
	}
	live := now.Sub(since)

	var (
		lastBid time.Time
		top     float64
		bidders = make(map[string]struct{})
	)
	for _, b := range a.Bids {
		if b.Cycle != a.RestartCount {
			continue
		}
		if b.Timestamp.After(lastBid) {
			lastBid = b.Timestamp
		}
		if b.Amount > top {
			top = b.Amount
		}
		bidders[b.Bidder.ID] = struct{}{}
	}

	var out []domain.RestartCondition
	for _, c := range conds {
		switch c {
		case domain.ConditionNoBids24h:
			ref := since
			if lastBid.After(ref) {
				ref = lastBid
			}
			if now.Sub(ref) >= p.QuietWindow {
				out = append(out, c)
			}
		case domain.ConditionTopBidBelowValuation:
			if live >= p.Grace && len(bidders) > 0 && top < valuation {
				out = append(out, c)
			}
		case domain.ConditionLessThanThreeBidders:
			if live >= p.Grace && len(bidders) < p.MinBidders {
				out = append(out, c)
			}
		}
	}
	return out
}
