package auction

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/dealbroker/internal/domain"
)

// Advisory enhancement texts attached to restart decisions.
const (
	EnhancementFeatureAddition  = "Add the features bidders are asking for before the next cycle"
	EnhancementHigherRiskBuyers = "Re-target buyers with a higher risk tolerance"
	EnhancementTieredPricing    = "Offer tiered pricing to close the gap to the minimum price"
)

// Enhancements derives operator suggestions from the bid that caused a
// restart. minimumPrice is the floor the bid was evaluated against.
func Enhancements(p Policy, bid domain.Bid, minimumPrice decimal.Decimal) []string {
	var out []string
	if p.FeatureKeyword != "" && strings.Contains(strings.ToLower(bid.Notes), strings.ToLower(p.FeatureKeyword)) {
		out = append(out, EnhancementFeatureAddition)
	}
	if bid.Bidder.RiskTolerance < p.LowRiskTolerance {
		out = append(out, EnhancementHigherRiskBuyers)
	}
	tier := minimumPrice.Mul(decimal.NewFromFloat(p.TieredPricingRatio))
	if decimal.NewFromFloat(bid.Amount).LessThan(tier) {
		out = append(out, EnhancementTieredPricing)
	}
	return out
}
