package domain

import "time"

// AuctionStatus tracks the auction lifecycle.
//
//	SCHEDULED -> LIVE -> RESTARTING -> LIVE (new cycle)
//	                  -> ACCEPTED
//	                  -> CLOSED
type AuctionStatus string

const (
	AuctionStatusScheduled  AuctionStatus = "SCHEDULED"
	AuctionStatusLive       AuctionStatus = "LIVE"
	AuctionStatusRestarting AuctionStatus = "RESTARTING"
	AuctionStatusAccepted   AuctionStatus = "ACCEPTED"
	AuctionStatusClosed     AuctionStatus = "CLOSED"
)

var auctionTransitions = map[AuctionStatus][]AuctionStatus{
	AuctionStatusScheduled:  {AuctionStatusLive, AuctionStatusClosed},
	AuctionStatusLive:       {AuctionStatusRestarting, AuctionStatusAccepted, AuctionStatusClosed},
	AuctionStatusRestarting: {AuctionStatusLive, AuctionStatusClosed},
}

// CanTransition reports whether the status machine allows from -> to.
// RESTARTING never moves on its own; something outside the engine must
// request the LIVE re-entry.
func CanTransition(from, to AuctionStatus) bool {
	for _, s := range auctionTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions are possible.
func (s AuctionStatus) Terminal() bool {
	return s == AuctionStatusAccepted || s == AuctionStatusClosed
}

// Outcome is the engine's verdict on a bid.
type Outcome string

const (
	OutcomeAccepted                Outcome = "ACCEPTED"
	OutcomeRestartWithEnhancements Outcome = "RESTART_WITH_ENHANCEMENTS"
)

// RestartReason explains why a bid triggered a restart.
type RestartReason string

const (
	RestartPriceTooLow        RestartReason = "PRICE_TOO_LOW"
	RestartSuspiciousPatterns RestartReason = "SUSPICIOUS_PATTERNS"
	RestartNoCompetition      RestartReason = "NO_COMPETITION"
)

// Decision is the result of evaluating one bid.
type Decision struct {
	Outcome      Outcome
	Reason       RestartReason // empty when accepted
	Enhancements []string
	// MinimumPrice is the engine's floor after the decision was applied.
	MinimumPrice float64
	RestartCount int
}

// Restarted reports whether the decision asks for a new bidding cycle.
func (d Decision) Restarted() bool {
	return d.Outcome == OutcomeRestartWithEnhancements
}

// Auction is the persisted auction record plus, when loaded through
// Repository.FindAuctionByID, its asset and full ordered bid log.
type Auction struct {
	ID            string
	AssetID       string
	DealPackageID string
	SellerID      string
	Status        AuctionStatus
	// BaseMinimumPrice is the floor the auction was listed with. Replaying the
	// bid log from this seed reproduces MinimumPrice.
	BaseMinimumPrice float64
	MinimumPrice     float64
	InitialPrice     float64
	RestartCount     int
	HighestBid       float64
	HighestBidderID  string
	WinningBidID     string
	RestartReason    RestartReason
	Enhancements     []string
	RestartedAt      *time.Time
	// OpenedAt is when the current LIVE cycle began.
	OpenedAt  *time.Time
	StartsAt  time.Time
	EndsAt    time.Time
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time

	Asset *Asset
	Bids  []Bid
}

// DistinctBidders counts unique bidder IDs in the loaded bid log.
func (a Auction) DistinctBidders() int {
	seen := make(map[string]struct{}, len(a.Bids))
	for _, b := range a.Bids {
		seen[b.Bidder.ID] = struct{}{}
	}
	return len(seen)
}

// LastBidAt returns the timestamp of the most recent bid, if any.
func (a Auction) LastBidAt() (time.Time, bool) {
	if len(a.Bids) == 0 {
		return time.Time{}, false
	}
	return a.Bids[len(a.Bids)-1].Timestamp, true
}

// AuctionPatch is a partial update. Nil fields are left untouched.
// ExpectedVersion must match the stored version; the store bumps it by one.
type AuctionPatch struct {
	ExpectedVersion int64

	Status          *AuctionStatus
	MinimumPrice    *float64
	RestartCount    *int
	HighestBid      *float64
	HighestBidderID *string
	WinningBidID    *string
	RestartReason   *RestartReason
	Enhancements    []string
	RestartedAt     *time.Time
	OpenedAt        *time.Time
}
