package domain

import "time"

// DealComponent is one negotiable element of a deal.
type DealComponent string

const (
	ComponentCash       DealComponent = "CASH"
	ComponentEquity     DealComponent = "EQUITY"
	ComponentRoyalty    DealComponent = "ROYALTY"
	ComponentConsulting DealComponent = "CONSULTING"
	ComponentIPLicense  DealComponent = "IP_LICENSE"
)

// BuyerProfile is a class of buyer an auction is marketed to. It is broader
// than BidderType: INDUSTRY buyers are targeted but not a bidder class.
type BuyerProfile string

const (
	BuyerVC         BuyerProfile = "VC"
	BuyerStrategic  BuyerProfile = "STRATEGIC"
	BuyerIndustry   BuyerProfile = "INDUSTRY"
	BuyerCompetitor BuyerProfile = "COMPETITOR"
)

// RestartCondition names an advisory policy an external scheduler watches.
type RestartCondition string

const (
	ConditionNoBids24h            RestartCondition = "NO_BIDS_24H"
	ConditionTopBidBelowValuation RestartCondition = "TOP_BID_BELOW_VALUATION"
	ConditionLessThanThreeBidders RestartCondition = "LESS_THAN_THREE_BIDDERS"
)

// Installment is one tranche of the payment schedule.
type Installment struct {
	Milestone string  `json:"milestone"`
	Percent   int     `json:"percent"`
	Amount    float64 `json:"amount"`
}

// ContractTerms are the default legal terms attached to a deal package.
type ContractTerms struct {
	EscrowRequired    bool          `json:"escrow_required"`
	PaymentSchedule   []Installment `json:"payment_schedule"`
	IPTransferTrigger string        `json:"ip_transfer_trigger"`
	NonCompeteMonths  int           `json:"non_compete_months"`
	DisputeResolution string        `json:"dispute_resolution"`
	GoverningLaw      string        `json:"governing_law"`
	MinimumCash       float64       `json:"minimum_cash"`
}

// AuctionStrategy seeds the auction built from a deal package.
type AuctionStrategy struct {
	InitialPrice      float64            `json:"initial_price"`
	RestartConditions []RestartCondition `json:"restart_conditions"`
	TargetBuyers      []BuyerProfile     `json:"target_buyers"`
}

// DealPackage is a structured, negotiable description of an offer.
type DealPackage struct {
	ID         string
	AssetID    string
	Components []DealComponent
	Valuation  float64
	Terms      ContractTerms
	Strategy   AuctionStrategy
	CreatedAt  time.Time
}

// HasComponent reports whether c is part of the package.
func (p DealPackage) HasComponent(c DealComponent) bool {
	for _, have := range p.Components {
		if have == c {
			return true
		}
	}
	return false
}
