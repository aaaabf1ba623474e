package auction

import (
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/dealbroker/internal/domain"
)

// DetectCollusion flags tight price clustering: with at least minBids bids,
// every amount lies within threshold (relative) of the mean. A zero mean
// returns *domain.DivisionByZeroGuardError.
func DetectCollusion(bids []domain.Bid, minBids int, threshold float64) (bool, error) {
	if len(bids) < minBids || len(bids) == 0 {
		return false, nil
	}

	sum := decimal.Zero
	for _, b := range bids {
		sum = sum.Add(decimal.NewFromFloat(b.Amount))
	}
	mean := sum.Div(decimal.NewFromInt(int64(len(bids))))
	if mean.IsZero() {
		return false, &domain.DivisionByZeroGuardError{BidCount: len(bids)}
	}

	limit := decimal.NewFromFloat(threshold)
	absMean := mean.Abs()
	for _, b := range bids {
		dev := decimal.NewFromFloat(b.Amount).Sub(mean).Abs().Div(absMean)
		if !dev.LessThan(limit) {
			return false, nil
		}
	}
	return true, nil
}
