package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/dealbroker/internal/domain"
)

// EventStream reads the durable auction event stream.
type EventStream interface {
	StreamRead(ctx context.Context, stream string, lastID string, count int) ([]domain.StreamMessage, error)
}

// CursorStore persists a consumer's position in a stream.
type CursorStore interface {
	LoadCursor(ctx context.Context, consumer string) (string, error)
	SaveCursor(ctx context.Context, consumer, id string) error
}

// EventNotifier delivers an auction event to operators.
type EventNotifier interface {
	NotifyAuctionEvent(ctx context.Context, evt domain.AuctionEvent) error
}

const (
	relayConsumer   = "notify_relay"
	relayBatch      = 100
	relayErrBackoff = 5 * time.Second
)

// Relay forwards auction events from the stream to operator notifications.
// Delivery is at most once per entry: a failed send is logged and the cursor
// still advances.
type Relay struct {
	stream   EventStream
	cursors  CursorStore
	notifier EventNotifier
	logger   *slog.Logger
}

// NewRelay creates a Relay.
func NewRelay(stream EventStream, cursors CursorStore, notifier EventNotifier, logger *slog.Logger) *Relay {
	return &Relay{
		stream:   stream,
		cursors:  cursors,
		notifier: notifier,
		logger:   logger.With(slog.String("component", "relay")),
	}
}

// Run relays events until ctx is cancelled. Without a saved cursor it starts
// from new entries only.
func (r *Relay) Run(ctx context.Context) error {
	cursor, err := r.cursors.LoadCursor(ctx, relayConsumer)
	if err != nil {
		return fmt.Errorf("pipeline: relay cursor: %w", err)
	}
	if cursor == "" {
		cursor = "$"
	}
	r.logger.InfoContext(ctx, "relay started", slog.String("cursor", cursor))

	for {
		next, err := r.Poll(ctx, cursor)
		if ctx.Err() != nil {
			r.logger.InfoContext(ctx, "relay stopped")
			return ctx.Err()
		}
		if err != nil {
			r.logger.WarnContext(ctx, "relay poll failed", slog.String("error", err.Error()))
			timer := time.NewTimer(relayErrBackoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
		cursor = next
	}
}

// Poll handles one batch after cursor and returns the new cursor.
func (r *Relay) Poll(ctx context.Context, cursor string) (string, error) {
	msgs, err := r.stream.StreamRead(ctx, domain.StreamAuctionEvents, cursor, relayBatch)
	if err != nil {
		return cursor, err
	}
	if len(msgs) == 0 {
		return cursor, nil
	}

	for _, m := range msgs {
		var evt domain.AuctionEvent
		if err := json.Unmarshal(m.Payload, &evt); err != nil {
			r.logger.WarnContext(ctx, "skipping undecodable event",
				slog.String("id", m.ID),
				slog.String("error", err.Error()),
			)
		} else if err := r.notifier.NotifyAuctionEvent(ctx, evt); err != nil {
			r.logger.WarnContext(ctx, "notification failed",
				slog.String("event", evt.Event),
				slog.String("auction_id", evt.AuctionID),
				slog.String("error", err.Error()),
			)
		}
		cursor = m.ID
	}

	if err := r.cursors.SaveCursor(ctx, relayConsumer, cursor); err != nil {
		return cursor, fmt.Errorf("pipeline: save relay cursor: %w", err)
	}
	return cursor, nil
}
