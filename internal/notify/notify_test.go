package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alanyoungcy/dealbroker/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordingServer struct {
	mu       sync.Mutex
	paths    []string
	payloads []map[string]any
	status   int
}

func (r *recordingServer) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	var body map[string]any
	_ = json.NewDecoder(req.Body).Decode(&body)

	r.mu.Lock()
	r.paths = append(r.paths, req.URL.Path)
	r.payloads = append(r.payloads, body)
	status := r.status
	r.mu.Unlock()

	if status == 0 {
		status = http.StatusNoContent
	}
	w.WriteHeader(status)
	if status >= 300 {
		_, _ = w.Write([]byte("rate limited"))
	}
}

func restartEvent() domain.AuctionEvent {
	return domain.AuctionEvent{
		Event:        domain.EventAuctionRestarting,
		AuctionID:    "a1",
		Status:       domain.AuctionStatusRestarting,
		BidID:        "b1",
		Amount:       1200,
		MinimumPrice: 1150,
		RestartCount: 1,
		Reason:       domain.RestartNoCompetition,
		Enhancements: []string{"higher_risk_buyers", "tiered_pricing"},
		At:           time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC),
	}
}

func TestDiscordSender(t *testing.T) {
	rec := &recordingServer{}
	srv := httptest.NewServer(rec)
	defer srv.Close()

	n := NewNotifier([]Sender{NewDiscordSender(srv.URL + "/hook")}, nil, discardLogger())
	if err := n.NotifyAuctionEvent(context.Background(), restartEvent()); err != nil {
		t.Fatalf("NotifyAuctionEvent: %v", err)
	}

	if len(rec.payloads) != 1 {
		t.Fatalf("requests = %d, expected 1", len(rec.payloads))
	}
	content, _ := rec.payloads[0]["content"].(string)
	for _, want := range []string{"**Auction restarting**", "Auction a1 (RESTARTING)", "Minimum price: 1150.00, restarts: 1",
		"Reason: NO_COMPETITION", "Suggested enhancements: higher_risk_buyers, tiered_pricing"} {
		if !strings.Contains(content, want) {
			t.Errorf("content %q missing %q", content, want)
		}
	}
}

func TestTelegramSender(t *testing.T) {
	rec := &recordingServer{status: http.StatusOK}
	srv := httptest.NewServer(rec)
	defer srv.Close()

	s := NewTelegramSender(srv.URL+"/", "TOKEN", "42")
	if err := s.Send(context.Background(), "Bid accepted", "Auction a1 (ACCEPTED)"); err != nil {
		t.Fatalf("Send: %v", err)
	}

	if rec.paths[0] != "/botTOKEN/sendMessage" {
		t.Errorf("path = %q", rec.paths[0])
	}
	if rec.payloads[0]["chat_id"] != "42" {
		t.Errorf("chat_id = %v", rec.payloads[0]["chat_id"])
	}
	if _, ok := rec.payloads[0]["parse_mode"]; ok {
		t.Error("messages should be sent as plain text")
	}
}

func TestNotifierFiltersEvents(t *testing.T) {
	rec := &recordingServer{}
	srv := httptest.NewServer(rec)
	defer srv.Close()

	n := NewNotifier([]Sender{NewDiscordSender(srv.URL)},
		[]string{domain.EventAuctionAccepted, " restart_advised "}, discardLogger())

	ctx := context.Background()
	_ = n.NotifyAuctionEvent(ctx, restartEvent())
	_ = n.NotifyAuctionEvent(ctx, domain.AuctionEvent{Event: domain.EventRestartAdvised, AuctionID: "a2",
		Conditions: []domain.RestartCondition{domain.ConditionNoBids24h}})

	if len(rec.payloads) != 1 {
		t.Fatalf("requests = %d, expected only the advisory", len(rec.payloads))
	}
	if !strings.Contains(rec.payloads[0]["content"].(string), "Conditions: NO_BIDS_24H") {
		t.Errorf("content = %q", rec.payloads[0]["content"])
	}
}

type failingSender struct{ calls int }

func (f *failingSender) Send(context.Context, string, string) error {
	f.calls++
	return errors.New("down")
}

func (f *failingSender) Name() string { return "failing" }

func TestNotifierContinuesPastFailedSender(t *testing.T) {
	rec := &recordingServer{}
	srv := httptest.NewServer(rec)
	defer srv.Close()

	bad := &failingSender{}
	n := NewNotifier([]Sender{bad, NewDiscordSender(srv.URL)}, nil, discardLogger())

	err := n.NotifyAuctionEvent(context.Background(), restartEvent())
	if err == nil || !strings.Contains(err.Error(), "failing: down") {
		t.Errorf("err = %v, expected the failing sender's error", err)
	}
	if bad.calls != 1 || len(rec.payloads) != 1 {
		t.Errorf("calls: failing=%d discord=%d, expected 1 each", bad.calls, len(rec.payloads))
	}
}

func TestSenderReportsHTTPStatus(t *testing.T) {
	srv := httptest.NewServer(&recordingServer{status: http.StatusTooManyRequests})
	defer srv.Close()

	err := NewDiscordSender(srv.URL).Send(context.Background(), "t", "m")
	if err == nil || !strings.Contains(err.Error(), "unexpected status 429: rate limited") {
		t.Errorf("err = %v", err)
	}
}

func TestFormatAuctionEvent(t *testing.T) {
	tests := []struct {
		name      string
		evt       domain.AuctionEvent
		wantTitle string
		wantBody  string
	}{
		{
			name:      "accepted",
			evt:       domain.AuctionEvent{Event: domain.EventAuctionAccepted, AuctionID: "a1", Status: domain.AuctionStatusAccepted, BidID: "b9", Amount: 1300, MinimumPrice: 1150, RestartCount: 1},
			wantTitle: "Bid accepted",
			wantBody:  "Auction a1 (ACCEPTED)\nBid: 1300.00 [b9]\nMinimum price: 1150.00, restarts: 1",
		},
		{
			name:      "unknown event keeps its name",
			evt:       domain.AuctionEvent{Event: "custom", AuctionID: "a2", Status: domain.AuctionStatusLive, MinimumPrice: 10},
			wantTitle: "custom",
			wantBody:  "Auction a2 (LIVE)\nMinimum price: 10.00, restarts: 0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			title, body := FormatAuctionEvent(tt.evt)
			if title != tt.wantTitle || body != tt.wantBody {
				t.Errorf("FormatAuctionEvent = %q, %q; expected %q, %q", title, body, tt.wantTitle, tt.wantBody)
			}
		})
	}
}
