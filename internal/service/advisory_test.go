package service

import (
	"context"
	"reflect"
	"testing"

	"github.com/alanyoungcy/dealbroker/internal/domain"
)

func TestAdviseRestart(t *testing.T) {
	h := newHarness(t)
	h.seedLive("a1", 1000)
	a := h.repo.auctions["a1"]
	a.HighestBid = 800

	conds := []domain.RestartCondition{domain.ConditionTopBidBelowValuation, domain.ConditionLessThanThreeBidders}
	h.o.AdviseRestart(context.Background(), a, conds)

	if got := h.bus.events(); !reflect.DeepEqual(got, []string{domain.EventRestartAdvised}) {
		t.Fatalf("events = %v", got)
	}
	evt := h.bus.stream[0]
	if !reflect.DeepEqual(evt.Conditions, conds) || evt.Amount != 800 || evt.Status != domain.AuctionStatusLive {
		t.Errorf("event = %+v", evt)
	}
	if !h.audit.has(domain.EventRestartAdvised) {
		t.Error("advisory not audited")
	}
	if stored := h.repo.auctions["a1"]; stored.Version != 1 || stored.Status != domain.AuctionStatusLive {
		t.Errorf("advice must not change the auction: %+v", stored)
	}

	h.o.AdviseRestart(context.Background(), a, nil)
	if len(h.bus.events()) != 1 {
		t.Error("empty advice should publish nothing")
	}
}
