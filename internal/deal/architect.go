// Package deal turns a listed asset and the seller's preferences into a
// structured, negotiable deal package: which components are on the table,
// what the asset is worth, the default contract terms, and the opening
// auction strategy.
package deal

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/dealbroker/internal/domain"
)

// Architect builds deal packages. It holds no per-seller state and is safe
// for concurrent use.
type Architect struct {
	policy Policy
}

// NewArchitect creates an Architect using the given policy.
func NewArchitect(policy Policy) *Architect {
	return &Architect{policy: policy}
}

// Policy returns the packaging rules in effect.
func (a *Architect) Policy() Policy {
	return a.policy
}

// CreatePackage builds the deal package for asset. baseValuation is the
// seller's minimum valuation from the effort ledger. The returned package has
// no ID or timestamps; the caller assigns those when persisting it.
func (a *Architect) CreatePackage(asset domain.Asset, prefs domain.SellerPreferences, baseValuation float64) (domain.DealPackage, error) {
	if baseValuation < 0 {
		return domain.DealPackage{}, fmt.Errorf("deal: base valuation %v is negative", baseValuation)
	}
	if prefs.MinCash < 0 {
		return domain.DealPackage{}, fmt.Errorf("deal: minimum cash %v is negative", prefs.MinCash)
	}
	demand := asset.Metadata.DemandOr(a.policy.DefaultDemand)
	if demand <= 0 {
		return domain.DealPackage{}, &domain.InvalidAssetError{Fields: []string{"metadata.demand"}}
	}

	valuation := a.Valuation(asset.Type, demand, baseValuation)
	initial := decimal.NewFromFloat(valuation).
		Mul(decimal.NewFromFloat(a.policy.InitialPriceRatio)).
		Round(0)

	return domain.DealPackage{
		AssetID:    asset.ID,
		Components: a.components(prefs),
		Valuation:  valuation,
		Terms:      a.terms(asset.Type, valuation, prefs.MinCash),
		Strategy: domain.AuctionStrategy{
			InitialPrice:      initial.InexactFloat64(),
			RestartConditions: append([]domain.RestartCondition(nil), a.policy.RestartConditions...),
			TargetBuyers:      a.policy.targetBuyers(asset.Type),
		},
	}, nil
}

// Valuation returns round(base * typeMultiplier * demand).
func (a *Architect) Valuation(t domain.AssetType, demand, base float64) float64 {
	v := decimal.NewFromFloat(base).
		Mul(decimal.NewFromFloat(a.policy.typeMultiplier(t))).
		Mul(decimal.NewFromFloat(demand)).
		Round(0)
	return v.InexactFloat64()
}

func (a *Architect) components(prefs domain.SellerPreferences) []domain.DealComponent {
	out := []domain.DealComponent{domain.ComponentCash}
	if prefs.OpenToEquity {
		out = append(out, domain.ComponentEquity)
	}
	out = append(out, domain.ComponentRoyalty, domain.ComponentIPLicense)
	if a.policy.ConsultingAlways {
		out = append(out, domain.ComponentConsulting)
	}
	return out
}

func (a *Architect) terms(t domain.AssetType, valuation, minCash float64) domain.ContractTerms {
	tp := a.policy.Terms
	return domain.ContractTerms{
		EscrowRequired:    tp.EscrowRequired,
		PaymentSchedule:   schedule(tp.PaymentSplit, valuation),
		IPTransferTrigger: tp.IPTransferTrigger,
		NonCompeteMonths:  a.policy.nonCompeteMonths(t),
		DisputeResolution: tp.DisputeResolution,
		GoverningLaw:      tp.GoverningLaw,
		MinimumCash:       minCash,
	}
}

// schedule splits valuation into cent-rounded installments. The last
// installment absorbs rounding so the amounts always sum to valuation.
func schedule(split []Tranche, valuation float64) []domain.Installment {
	if len(split) == 0 {
		return nil
	}
	total := decimal.NewFromFloat(valuation)
	hundred := decimal.NewFromInt(100)
	allocated := decimal.Zero

	out := make([]domain.Installment, 0, len(split))
	for i, tr := range split {
		amount := total.Mul(decimal.NewFromInt(int64(tr.Percent))).Div(hundred).Round(2)
		if i == len(split)-1 {
			amount = total.Sub(allocated)
		}
		allocated = allocated.Add(amount)
		out = append(out, domain.Installment{
			Milestone: tr.Milestone,
			Percent:   tr.Percent,
			Amount:    amount.InexactFloat64(),
		})
	}
	return out
}
