package domain

import "time"

// AssetType classifies what is being sold. Unknown types are allowed and fall
// back to neutral pricing.
type AssetType string

const (
	AssetTypeSoftware AssetType = "software"
	AssetTypeData     AssetType = "data"
	AssetTypeBrand    AssetType = "brand"
)

// AssetStatus tracks the asset lifecycle.
type AssetStatus string

const (
	AssetStatusDraft  AssetStatus = "draft"
	AssetStatusListed AssetStatus = "listed"
	AssetStatusSold   AssetStatus = "sold"
)

// AssetMetadata carries pricing hints supplied by the seller.
type AssetMetadata struct {
	// Demand scales the valuation. Nil means "no signal" (treated as 1.0).
	Demand     *float64          `json:"demand,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// DemandOr returns the demand multiplier, or def when none was supplied.
func (m AssetMetadata) DemandOr(def float64) float64 {
	if m.Demand == nil {
		return def
	}
	return *m.Demand
}

// Asset is a sellable item owned by a seller.
type Asset struct {
	ID        string
	SellerID  string
	Type      AssetType
	Title     string
	Metadata  AssetMetadata
	Valuation float64
	Status    AssetStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AssetInput is the seller-supplied data for a new listing.
type AssetInput struct {
	Type     AssetType
	Title    string
	Metadata AssetMetadata
	// InitialHours is logged as development effort before valuation.
	InitialHours float64
}

// Seller identifies the party listing an asset. The ID scopes the seller's
// effort ledger.
type Seller struct {
	ID   string
	Name string
}

// SellerPreferences constrain the deal package built for a listing.
type SellerPreferences struct {
	MinCash      float64
	OpenToEquity bool
}
