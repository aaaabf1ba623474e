package domain

import "time"

// Bus channel and stream names.
const (
	ChannelAuctions     = "auctions"
	StreamAuctionEvents = "auction_events"
)

// Auction event types published on the signal bus.
const (
	EventAuctionListed     = "auction_listed"
	EventAuctionOpened     = "auction_opened"
	EventBidProcessed      = "bid_processed"
	EventAuctionRestarting = "auction_restarting"
	EventAuctionAccepted   = "auction_accepted"
	EventAuctionClosed     = "auction_closed"
	EventRestartAdvised    = "restart_advised"
)

// AuctionEvent is the JSON payload published for every auction state change.
type AuctionEvent struct {
	Event        string             `json:"event"`
	AuctionID    string             `json:"auction_id"`
	Status       AuctionStatus      `json:"status"`
	BidID        string             `json:"bid_id,omitempty"`
	Amount       float64            `json:"amount,omitempty"`
	MinimumPrice float64            `json:"minimum_price"`
	RestartCount int                `json:"restart_count"`
	Reason       RestartReason      `json:"reason,omitempty"`
	Enhancements []string           `json:"enhancements,omitempty"`
	Conditions   []RestartCondition `json:"conditions,omitempty"`
	At           time.Time          `json:"at"`
}
