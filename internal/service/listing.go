package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/google/uuid"

	"github.com/alanyoungcy/dealbroker/internal/auction"
	"github.com/alanyoungcy/dealbroker/internal/domain"
	"github.com/alanyoungcy/dealbroker/internal/valuation"
)

// Listing is the result of putting an asset up for auction.
type Listing struct {
	Asset domain.Asset
	// Valuation is the seller's minimum viable price from the effort ledger.
	// It seeds the auction's minimum price.
	Valuation   float64
	DealPackage domain.DealPackage
	Auction     domain.Auction
}

func validateAsset(seller domain.Seller, in domain.AssetInput) error {
	var fields []string
	if strings.TrimSpace(seller.ID) == "" {
		fields = append(fields, "seller.id")
	}
	if strings.TrimSpace(string(in.Type)) == "" {
		fields = append(fields, "type")
	}
	if strings.TrimSpace(in.Title) == "" {
		fields = append(fields, "title")
	}
	if in.InitialHours < 0 || math.IsNaN(in.InitialHours) || math.IsInf(in.InitialHours, 0) {
		fields = append(fields, "initial_hours")
	}
	if d := in.Metadata.Demand; d != nil && (*d <= 0 || math.IsNaN(*d) || math.IsInf(*d, 0)) {
		fields = append(fields, "metadata.demand")
	}
	if len(fields) > 0 {
		return &domain.InvalidAssetError{Fields: fields}
	}
	return nil
}

// ListAssetForAuction logs the asset's initial hours against the seller's
// ledger, values the asset, builds its deal package and schedules an auction.
// The asset, package and auction are written in one transaction: either all
// exist afterwards or none do. The hours reach the seller's stored ledger only
// after that transaction commits, so a failed listing can be retried without
// counting them twice.
func (o *Orchestrator) ListAssetForAuction(
	ctx context.Context,
	seller domain.Seller,
	in domain.AssetInput,
	prefs domain.SellerPreferences,
) (Listing, error) {
	if err := validateAsset(seller, in); err != nil {
		return Listing{}, err
	}

	unlock, err := o.acquire(ctx, "effort:"+seller.ID)
	if err != nil {
		return Listing{}, fmt.Errorf("service: list asset: %w", err)
	}
	defer unlock()

	ledger, err := valuation.Load(ctx, seller.ID, o.cfg.Valuation, o.efforts, o.logger)
	if err != nil {
		return Listing{}, fmt.Errorf("service: list asset: %w", err)
	}
	if err := ledger.AddEffort(domain.ActivityDevelopment, in.InitialHours); err != nil {
		return Listing{}, fmt.Errorf("service: list asset: %w", err)
	}
	base := ledger.MinimumValuation(o.cfg.ValuationMultiplier)

	now := o.now().UTC()
	asset := domain.Asset{
		ID:        uuid.New().String(),
		SellerID:  seller.ID,
		Type:      in.Type,
		Title:     in.Title,
		Metadata:  in.Metadata,
		Status:    domain.AssetStatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}

	pkg, err := o.architect.CreatePackage(asset, prefs, base)
	if err != nil {
		return Listing{}, fmt.Errorf("service: list asset: %w", err)
	}
	pkg.ID = uuid.New().String()
	pkg.CreatedAt = now

	auc := domain.Auction{
		ID:               uuid.New().String(),
		AssetID:          asset.ID,
		DealPackageID:    pkg.ID,
		SellerID:         seller.ID,
		Status:           domain.AuctionStatusScheduled,
		BaseMinimumPrice: base,
		MinimumPrice:     base,
		InitialPrice:     pkg.Strategy.InitialPrice,
		StartsAt:         now.Add(o.cfg.ScheduleDelay),
		EndsAt:           now.Add(o.cfg.AuctionDuration),
		Version:          1,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	listed := asset
	listed.Valuation = pkg.Valuation
	listed.Status = domain.AssetStatusListed

	txCtx, cancel := context.WithTimeout(ctx, o.cfg.PersistenceTimeout)
	defer cancel()
	err = o.withRetry(txCtx, "list_asset", func(ctx context.Context) error {
		return o.repo.RunInTx(ctx, func(tx domain.Repository) error {
			if err := tx.CreateAsset(ctx, asset); err != nil {
				return fmt.Errorf("create asset: %w", err)
			}
			if err := tx.CreateDealPackage(ctx, pkg); err != nil {
				return fmt.Errorf("create deal package: %w", err)
			}
			if err := tx.CreateAuction(ctx, auc); err != nil {
				return fmt.Errorf("create auction: %w", err)
			}
			if err := tx.UpdateAsset(ctx, listed); err != nil {
				return fmt.Errorf("update asset: %w", err)
			}
			return nil
		})
	})
	if err != nil {
		return Listing{}, fmt.Errorf("service: list asset: %w", err)
	}

	ledger.Persist(ctx)
	o.engines.put(auc.ID, auc.Version, auction.NewEngine(o.cfg.Auction, base, 0))
	auc.Asset = &listed

	o.publish(ctx, auctionEvent(domain.EventAuctionListed, auc, now))
	o.auditLog(ctx, "asset_listed", map[string]any{
		"seller_id":       seller.ID,
		"asset_id":        asset.ID,
		"deal_package_id": pkg.ID,
		"auction_id":      auc.ID,
		"valuation":       base,
		"deal_valuation":  pkg.Valuation,
		"initial_price":   pkg.Strategy.InitialPrice,
	})
	o.logger.InfoContext(ctx, "asset listed",
		slog.String("seller_id", seller.ID),
		slog.String("auction_id", auc.ID),
		slog.Float64("valuation", base),
		slog.Float64("deal_valuation", pkg.Valuation),
	)

	return Listing{
		Asset:       listed,
		Valuation:   base,
		DealPackage: pkg,
		Auction:     auc,
	}, nil
}
