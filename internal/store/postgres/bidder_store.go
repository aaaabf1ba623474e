package postgres

import (
	"context"

	"github.com/alanyoungcy/dealbroker/internal/domain"
)

// BidderStore implements domain.BidderDirectory over the bidders table.
type BidderStore struct {
	q querier
}

func (s *BidderStore) GetBidderProfile(ctx context.Context, bidderID string) (domain.BidderProfile, error) {
	const q = `SELECT id, type, prior_deals, risk_tolerance FROM bidders WHERE id = $1`

	var (
		p          domain.BidderProfile
		bidderType string
	)
	if err := s.q.QueryRow(ctx, q, bidderID).Scan(&p.ID, &bidderType, &p.PriorDeals, &p.RiskTolerance); err != nil {
		return domain.BidderProfile{}, classify("get bidder "+bidderID, err)
	}
	p.Type = domain.BidderType(bidderType)
	return p, nil
}

var _ domain.BidderDirectory = (*BidderStore)(nil)
