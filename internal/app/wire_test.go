package app

import (
	"testing"
	"time"

	"github.com/alanyoungcy/dealbroker/internal/config"
	"github.com/alanyoungcy/dealbroker/internal/domain"
)

func TestNeedsRedis(t *testing.T) {
	tests := []struct {
		mode string
		want bool
	}{
		{"scheduler", true},
		{"full", true},
		{"archive", false},
		{"audit", false},
	}
	for _, tt := range tests {
		if got := needsRedis(tt.mode); got != tt.want {
			t.Errorf("needsRedis(%q) = %v, expected %v", tt.mode, got, tt.want)
		}
	}
}

func TestDealPolicyOverlaysConfig(t *testing.T) {
	cfg := config.Defaults()
	cfg.Deal.ConsultingAlways = false
	cfg.Deal.InitialPriceRatio = 0.8
	cfg.Deal.TypeMultipliers = map[string]float64{"data": 3, "media": 1.2}
	cfg.Deal.GoverningLaw = "England and Wales"

	p := dealPolicy(&cfg)

	if p.ConsultingAlways || p.InitialPriceRatio != 0.8 {
		t.Errorf("policy = %+v", p)
	}
	if p.TypeMultipliers[domain.AssetTypeData] != 3 || p.TypeMultipliers["media"] != 1.2 {
		t.Errorf("TypeMultipliers = %v", p.TypeMultipliers)
	}
	if p.TypeMultipliers[domain.AssetTypeSoftware] != 1.5 {
		t.Errorf("untouched multipliers should keep defaults, software = %g", p.TypeMultipliers[domain.AssetTypeSoftware])
	}
	if p.Terms.GoverningLaw != "England and Wales" || len(p.Terms.PaymentSplit) != 4 {
		t.Errorf("terms = %+v", p.Terms)
	}
	if len(p.RestartConditions) == 0 {
		t.Error("restart conditions should come from the stock policy")
	}
}

func TestOrchestratorConfigFromDefaults(t *testing.T) {
	cfg := config.Defaults()
	cfg.Auction.MaxMinimumPrice = 50_000
	cfg.Bidding.RateLimit = 0

	oc := orchestratorConfig(&cfg)

	if oc.Valuation.HourlyRate != 100 || oc.ValuationMultiplier != 2.5 {
		t.Errorf("valuation = %+v, multiplier %g", oc.Valuation, oc.ValuationMultiplier)
	}
	if oc.Auction.RestartGrowth != 0.15 || oc.Auction.MaxMinimumPrice != 50_000 || oc.Auction.FeatureKeyword != "feature" {
		t.Errorf("auction policy = %+v", oc.Auction)
	}
	if oc.AuctionDuration != 7*24*time.Hour || oc.ScheduleDelay != 24*time.Hour {
		t.Errorf("timing = %v / %v", oc.ScheduleDelay, oc.AuctionDuration)
	}
	if oc.BidRateLimit != 0 || oc.LockTTL != 15*time.Second || oc.MaxRetries != 3 {
		t.Errorf("bidding = limit %d ttl %v retries %d", oc.BidRateLimit, oc.LockTTL, oc.MaxRetries)
	}
}

func TestSchedulerConfig(t *testing.T) {
	cfg := config.Defaults()
	cfg.Scheduler.BatchSize = 50
	cfg.Scheduler.MinBidders = 4

	sc := schedulerConfig(&cfg)

	if sc.Interval != time.Minute || sc.ReopenAfter != time.Hour || sc.BatchSize != 50 {
		t.Errorf("scheduler = %+v", sc)
	}
	if sc.Conditions.MinBidders != 4 || sc.Conditions.QuietWindow != 24*time.Hour {
		t.Errorf("conditions = %+v", sc.Conditions)
	}
	if sc.AdviceTTL != 24*time.Hour {
		t.Errorf("AdviceTTL = %v", sc.AdviceTTL)
	}
}
