package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// AssetStore persists listed assets.
type AssetStore interface {
	CreateAsset(ctx context.Context, asset Asset) error
	UpdateAsset(ctx context.Context, asset Asset) error
	GetAsset(ctx context.Context, id string) (Asset, error)
}

// DealPackageStore persists deal packages.
type DealPackageStore interface {
	CreateDealPackage(ctx context.Context, pkg DealPackage) error
	GetDealPackage(ctx context.Context, id string) (DealPackage, error)
}

// AuctionStore persists auction records. UpdateAuction is a compare-and-swap
// on AuctionPatch.ExpectedVersion and returns ErrVersionConflict on mismatch.
type AuctionStore interface {
	CreateAuction(ctx context.Context, auction Auction) error
	UpdateAuction(ctx context.Context, id string, patch AuctionPatch) (Auction, error)
	// FindAuctionByID returns the auction with its asset and bids ordered by
	// timestamp. It returns ErrNotFound when no auction has that ID.
	FindAuctionByID(ctx context.Context, id string) (Auction, error)
	ListAuctionsByStatus(ctx context.Context, status AuctionStatus, opts ListOpts) ([]Auction, error)
	// ListSettledAuctionsBefore returns ACCEPTED and CLOSED auctions last
	// updated before the cutoff, each with its bid log.
	ListSettledAuctionsBefore(ctx context.Context, before time.Time) ([]Auction, error)
}

// BidStore persists the append-only bid log.
type BidStore interface {
	CreateBid(ctx context.Context, bid Bid) error
}

// BidderDirectory resolves bidder profiles.
type BidderDirectory interface {
	// GetBidderProfile returns ErrNotFound for unknown bidders.
	GetBidderProfile(ctx context.Context, bidderID string) (BidderProfile, error)
}

// Repository is the persistence port the orchestrator depends on.
type Repository interface {
	AssetStore
	DealPackageStore
	AuctionStore
	BidStore
	BidderDirectory

	// RunInTx runs fn against a transactional view of the repository. The
	// transaction commits when fn returns nil and rolls back otherwise.
	RunInTx(ctx context.Context, fn func(tx Repository) error) error
}

// EffortStore keeps encoded ledger snapshots, one per seller scope.
type EffortStore interface {
	SaveSnapshot(ctx context.Context, snap EffortSnapshot) error
	// LoadSnapshot returns ErrNotFound when the scope has no snapshot.
	LoadSnapshot(ctx context.Context, scope string) (EffortSnapshot, error)
}

// AuditEntry is a single audit log row.
type AuditEntry struct {
	ID        int64
	Event     string
	Detail    map[string]any
	CreatedAt time.Time
}

// AuditStore persists an append-only audit log.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
}
