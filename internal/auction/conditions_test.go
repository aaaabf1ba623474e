package auction

import (
	"testing"
	"time"

	"github.com/alanyoungcy/dealbroker/internal/domain"
)

func TestEvaluateConditions(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	all := []domain.RestartCondition{
		domain.ConditionNoBids24h,
		domain.ConditionTopBidBelowValuation,
		domain.ConditionLessThanThreeBidders,
	}
	at := func(d time.Duration) *time.Time {
		ts := now.Add(-d)
		return &ts
	}
	bid := func(bidder string, amount float64, ago time.Duration, cycle int) domain.Bid {
		return domain.Bid{
			Amount:    amount,
			Bidder:    domain.BidderProfile{ID: bidder},
			Timestamp: now.Add(-ago),
			Cycle:     cycle,
		}
	}

	tests := []struct {
		name    string
		auction domain.Auction
		want    []domain.RestartCondition
	}{
		{
			name:    "quiet for two days",
			auction: domain.Auction{Status: domain.AuctionStatusLive, OpenedAt: at(48 * time.Hour)},
			want:    []domain.RestartCondition{domain.ConditionNoBids24h, domain.ConditionLessThanThreeBidders},
		},
		{
			name: "inside grace period",
			auction: domain.Auction{
				Status:   domain.AuctionStatusLive,
				OpenedAt: at(2 * time.Hour),
				Bids:     []domain.Bid{bid("a", 500, time.Hour, 0), bid("b", 550, time.Hour, 0)},
			},
			want: nil,
		},
		{
			name: "low top bid and thin field",
			auction: domain.Auction{
				Status:   domain.AuctionStatusLive,
				OpenedAt: at(30 * time.Hour),
				Bids:     []domain.Bid{bid("a", 500, time.Hour, 0), bid("b", 550, time.Hour, 0)},
			},
			want: []domain.RestartCondition{domain.ConditionTopBidBelowValuation, domain.ConditionLessThanThreeBidders},
		},
		{
			name: "healthy auction",
			auction: domain.Auction{
				Status:   domain.AuctionStatusLive,
				OpenedAt: at(30 * time.Hour),
				Bids: []domain.Bid{
					bid("a", 900, 3*time.Hour, 0),
					bid("b", 1100, 2*time.Hour, 0),
					bid("c", 1200, time.Hour, 0),
				},
			},
			want: nil,
		},
		{
			name: "previous cycle bids are ignored",
			auction: domain.Auction{
				Status:       domain.AuctionStatusLive,
				RestartCount: 1,
				OpenedAt:     at(25 * time.Hour),
				Bids: []domain.Bid{
					bid("a", 900, 40*time.Hour, 0),
					bid("b", 1100, 39*time.Hour, 0),
					bid("c", 1200, 38*time.Hour, 0),
				},
			},
			want: []domain.RestartCondition{domain.ConditionNoBids24h, domain.ConditionLessThanThreeBidders},
		},
		{
			name:    "not live",
			auction: domain.Auction{Status: domain.AuctionStatusRestarting, OpenedAt: at(72 * time.Hour)},
			want:    nil,
		},
		{
			name:    "falls back to StartsAt",
			auction: domain.Auction{Status: domain.AuctionStatusLive, StartsAt: now.Add(-25 * time.Hour)},
			want:    []domain.RestartCondition{domain.ConditionNoBids24h, domain.ConditionLessThanThreeBidders},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EvaluateConditions(all, tt.auction, 1000, now, DefaultConditionPolicy())
			if len(got) != len(tt.want) {
				t.Fatalf("EvaluateConditions() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("EvaluateConditions()[%d] = %s, want %s", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestEvaluateConditionsOnlyChecksDeclared(t *testing.T) {
	now := time.Now()
	opened := now.Add(-72 * time.Hour)
	a := domain.Auction{Status: domain.AuctionStatusLive, OpenedAt: &opened}

	got := EvaluateConditions([]domain.RestartCondition{domain.ConditionNoBids24h}, a, 1000, now, DefaultConditionPolicy())
	if len(got) != 1 || got[0] != domain.ConditionNoBids24h {
		t.Errorf("EvaluateConditions() = %v, want [NO_BIDS_24H]", got)
	}
}

func TestDetectCollusion(t *testing.T) {
	tests := []struct {
		name    string
		amounts []float64
		want    bool
	}{
		{"clustered", []float64{100, 105, 95}, true},
		{"too few bids", []float64{100, 101}, false},
		{"spread out", []float64{100, 150, 95}, false},
		{"boundary deviation is not collusion", []float64{90, 110, 100}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bids := make([]domain.Bid, len(tt.amounts))
			for i, a := range tt.amounts {
				bids[i] = domain.Bid{Amount: a}
			}
			got, err := DetectCollusion(bids, 3, 0.10)
			if err != nil {
				t.Fatalf("DetectCollusion() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("DetectCollusion(%v) = %v, want %v", tt.amounts, got, tt.want)
			}
		})
	}
}
