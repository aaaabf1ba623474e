package domain

import "time"

// BidderType classifies a bidder for targeting and risk heuristics.
type BidderType string

const (
	BidderTypeVC         BidderType = "VC"
	BidderTypeStrategic  BidderType = "STRATEGIC"
	BidderTypeCompetitor BidderType = "COMPETITOR"
	BidderTypeUnknown    BidderType = "UNKNOWN"
)

// Risk tolerance bounds for BidderProfile.RiskTolerance.
const (
	MinRiskTolerance     = 1
	MaxRiskTolerance     = 10
	DefaultRiskTolerance = 5
)

// BidderProfile describes who is bidding.
type BidderProfile struct {
	ID            string     `json:"id"`
	Type          BidderType `json:"type"`
	PriorDeals    []string   `json:"prior_deals,omitempty"`
	RiskTolerance int        `json:"risk_tolerance"`
}

// UnknownBidder returns the profile used when the directory has no record of
// bidderID.
func UnknownBidder(bidderID string) BidderProfile {
	return BidderProfile{
		ID:            bidderID,
		Type:          BidderTypeUnknown,
		RiskTolerance: DefaultRiskTolerance,
	}
}

// Bid is a single offer against an auction. Bids are immutable once recorded.
type Bid struct {
	ID        string        `json:"id"`
	AuctionID string        `json:"auction_id"`
	Amount    float64       `json:"amount"`
	Bidder    BidderProfile `json:"bidder"`
	Timestamp time.Time     `json:"timestamp"`
	Notes     string        `json:"notes,omitempty"`
	// Cycle is the auction's restart count when the bid was placed.
	Cycle int `json:"cycle"`
}
