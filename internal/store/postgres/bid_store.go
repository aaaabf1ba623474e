package postgres

import (
	"context"

	"github.com/alanyoungcy/dealbroker/internal/domain"
)

// BidStore implements domain.BidStore. Each row snapshots the bidder profile
// as it was when the bid was placed.
type BidStore struct {
	q querier
}

func (s *BidStore) CreateBid(ctx context.Context, b domain.Bid) error {
	priorDeals := b.Bidder.PriorDeals
	if priorDeals == nil {
		priorDeals = []string{}
	}

	const q = `
		INSERT INTO bids (id, auction_id, amount, bidder_id, bidder_type, prior_deals,
		                  risk_tolerance, notes, cycle, placed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := s.q.Exec(ctx, q,
		b.ID, b.AuctionID, b.Amount, b.Bidder.ID, string(b.Bidder.Type), priorDeals,
		b.Bidder.RiskTolerance, b.Notes, b.Cycle, b.Timestamp,
	)
	return classify("create bid "+b.ID, err)
}

// listByAuction returns the bid logs of the given auctions keyed by auction
// ID, each ordered by placement time then insertion sequence.
func (s *BidStore) listByAuction(ctx context.Context, auctionIDs []string) (map[string][]domain.Bid, error) {
	const q = `
		SELECT id, auction_id, amount, bidder_id, bidder_type, prior_deals,
		       risk_tolerance, notes, cycle, placed_at
		FROM bids
		WHERE auction_id = ANY($1)
		ORDER BY auction_id, placed_at ASC, seq ASC`

	rows, err := s.q.Query(ctx, q, auctionIDs)
	if err != nil {
		return nil, classify("list bids", err)
	}
	defer rows.Close()

	out := make(map[string][]domain.Bid, len(auctionIDs))
	for rows.Next() {
		var (
			b          domain.Bid
			bidderType string
		)
		if err := rows.Scan(
			&b.ID, &b.AuctionID, &b.Amount, &b.Bidder.ID, &bidderType, &b.Bidder.PriorDeals,
			&b.Bidder.RiskTolerance, &b.Notes, &b.Cycle, &b.Timestamp,
		); err != nil {
			return nil, classify("scan bid", err)
		}
		b.Bidder.Type = domain.BidderType(bidderType)
		out[b.AuctionID] = append(out[b.AuctionID], b)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list bids rows", err)
	}
	return out, nil
}

var _ domain.BidStore = (*BidStore)(nil)
