package auction

import (
	"fmt"
	"strings"
	"time"
)

// Policy holds the engine's tunable thresholds.
type Policy struct {
	// RestartGrowth is applied as old * (1 + restartCount*RestartGrowth).
	RestartGrowth float64
	// MaxMinimumPrice caps restart growth. Zero means uncapped. The cap never
	// lowers a price that is already above it.
	MaxMinimumPrice float64

	CollusionThreshold float64
	CollusionMinBids   int
	MinCompetingBids   int

	TieredPricingRatio float64
	LowRiskTolerance   int
	FeatureKeyword     string
}

// DefaultPolicy returns the stock engine thresholds.
func DefaultPolicy() Policy {
	return Policy{
		RestartGrowth:      0.15,
		CollusionThreshold: 0.10,
		CollusionMinBids:   3,
		MinCompetingBids:   2,
		TieredPricingRatio: 0.7,
		LowRiskTolerance:   5,
		FeatureKeyword:     "feature",
	}
}

// Validate reports every out-of-range threshold.
func (p Policy) Validate() error {
	var errs []string
	if p.RestartGrowth < 0 {
		errs = append(errs, "restart growth must be >= 0")
	}
	if p.MaxMinimumPrice < 0 {
		errs = append(errs, "max minimum price must be >= 0")
	}
	if p.CollusionThreshold <= 0 {
		errs = append(errs, "collusion threshold must be > 0")
	}
	if p.CollusionMinBids < 2 {
		errs = append(errs, "collusion min bids must be >= 2")
	}
	if p.MinCompetingBids < 1 {
		errs = append(errs, "min competing bids must be >= 1")
	}
	if p.TieredPricingRatio <= 0 || p.TieredPricingRatio > 1 {
		errs = append(errs, "tiered pricing ratio must be in (0, 1]")
	}
	if len(errs) > 0 {
		return fmt.Errorf("auction policy invalid: %s", strings.Join(errs, "; "))
	}
	return nil
}

// ConditionPolicy tunes the advisory restart-condition checks.
type ConditionPolicy struct {
	// QuietWindow is how long a live cycle may go without bids before
	// NO_BIDS_24H is advised.
	QuietWindow time.Duration
	// Grace is how long a cycle must have been live before the competition
	// and price conditions are evaluated.
	Grace      time.Duration
	MinBidders int
}

// DefaultConditionPolicy returns the stock advisory thresholds.
func DefaultConditionPolicy() ConditionPolicy {
	return ConditionPolicy{
		QuietWindow: 24 * time.Hour,
		Grace:       24 * time.Hour,
		MinBidders:  3,
	}
}
