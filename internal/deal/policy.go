package deal

import (
	"fmt"
	"strings"

	"github.com/alanyoungcy/dealbroker/internal/domain"
)

// Tranche is one configured slice of the payment schedule.
type Tranche struct {
	Milestone string
	Percent   int
}

// TermsPolicy holds the contract defaults stamped onto every package. These
// are example values; deployments override them through configuration.
type TermsPolicy struct {
	EscrowRequired          bool
	PaymentSplit            []Tranche
	IPTransferTrigger       string
	NonCompeteMonths        map[domain.AssetType]int
	DefaultNonCompeteMonths int
	DisputeResolution       string
	GoverningLaw            string
}

// Policy is the full set of packaging rules used by the Architect.
type Policy struct {
	TypeMultipliers       map[domain.AssetType]float64
	DefaultTypeMultiplier float64
	DefaultDemand         float64
	// InitialPriceRatio under-prices the opening ask to draw competition.
	InitialPriceRatio float64
	TargetBuyers      map[domain.AssetType][]domain.BuyerProfile
	// ForcedBuyer is added to every target set that lacks it.
	ForcedBuyer       domain.BuyerProfile
	RestartConditions []domain.RestartCondition
	// ConsultingAlways adds CONSULTING regardless of seller availability.
	ConsultingAlways bool
	Terms            TermsPolicy
}

// DefaultPolicy returns the stock packaging rules.
func DefaultPolicy() Policy {
	return Policy{
		TypeMultipliers: map[domain.AssetType]float64{
			domain.AssetTypeSoftware: 1.5,
			domain.AssetTypeData:     2.0,
			domain.AssetTypeBrand:    0.8,
		},
		DefaultTypeMultiplier: 1.0,
		DefaultDemand:         1.0,
		InitialPriceRatio:     0.7,
		TargetBuyers: map[domain.AssetType][]domain.BuyerProfile{
			domain.AssetTypeSoftware: {domain.BuyerVC, domain.BuyerStrategic, domain.BuyerIndustry},
			domain.AssetTypeData:     {domain.BuyerStrategic, domain.BuyerIndustry},
			domain.AssetTypeBrand:    {domain.BuyerStrategic, domain.BuyerCompetitor},
		},
		ForcedBuyer: domain.BuyerVC,
		RestartConditions: []domain.RestartCondition{
			domain.ConditionNoBids24h,
			domain.ConditionTopBidBelowValuation,
			domain.ConditionLessThanThreeBidders,
		},
		ConsultingAlways: true,
		Terms: TermsPolicy{
			EscrowRequired: true,
			PaymentSplit: []Tranche{
				{Milestone: "signing", Percent: 30},
				{Milestone: "delivery", Percent: 30},
				{Milestone: "ip_transfer", Percent: 20},
				{Milestone: "post_transfer_90d", Percent: 20},
			},
			IPTransferTrigger: "FULL_PAYMENT",
			NonCompeteMonths: map[domain.AssetType]int{
				domain.AssetTypeSoftware: 24,
			},
			DefaultNonCompeteMonths: 12,
			DisputeResolution:       "ARBITRATION",
			GoverningLaw:            "State of Delaware, USA",
		},
	}
}

// Validate checks the policy for values that would produce nonsense packages.
func (p Policy) Validate() error {
	var errs []string

	for t, m := range p.TypeMultipliers {
		if m <= 0 {
			errs = append(errs, fmt.Sprintf("type multiplier for %q must be > 0", t))
		}
	}
	if p.DefaultTypeMultiplier <= 0 {
		errs = append(errs, "default type multiplier must be > 0")
	}
	if p.DefaultDemand <= 0 {
		errs = append(errs, "default demand must be > 0")
	}
	if p.InitialPriceRatio <= 0 || p.InitialPriceRatio > 1 {
		errs = append(errs, "initial price ratio must be in (0, 1]")
	}

	total := 0
	for _, tr := range p.Terms.PaymentSplit {
		if tr.Percent <= 0 {
			errs = append(errs, fmt.Sprintf("payment tranche %q must have a positive percent", tr.Milestone))
		}
		total += tr.Percent
	}
	if total != 100 {
		errs = append(errs, fmt.Sprintf("payment split must total 100, got %d", total))
	}
	if p.Terms.DefaultNonCompeteMonths < 0 {
		errs = append(errs, "default non-compete months must be >= 0")
	}

	if len(errs) > 0 {
		return fmt.Errorf("deal policy invalid: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (p Policy) typeMultiplier(t domain.AssetType) float64 {
	if m, ok := p.TypeMultipliers[t]; ok {
		return m
	}
	return p.DefaultTypeMultiplier
}

func (p Policy) nonCompeteMonths(t domain.AssetType) int {
	if m, ok := p.Terms.NonCompeteMonths[t]; ok {
		return m
	}
	return p.Terms.DefaultNonCompeteMonths
}

func (p Policy) targetBuyers(t domain.AssetType) []domain.BuyerProfile {
	base := p.TargetBuyers[t]
	out := make([]domain.BuyerProfile, 0, len(base)+1)
	out = append(out, base...)
	if p.ForcedBuyer == "" {
		return out
	}
	for _, b := range out {
		if b == p.ForcedBuyer {
			return out
		}
	}
	return append(out, p.ForcedBuyer)
}
