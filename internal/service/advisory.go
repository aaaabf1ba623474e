package service

import (
	"context"
	"log/slog"

	"github.com/alanyoungcy/dealbroker/internal/domain"
)

// AdviseRestart announces that a LIVE auction meets advisory restart
// conditions. The auction itself is not changed.
func (o *Orchestrator) AdviseRestart(ctx context.Context, a domain.Auction, conds []domain.RestartCondition) {
	if len(conds) == 0 {
		return
	}

	evt := auctionEvent(domain.EventRestartAdvised, a, o.now().UTC())
	evt.Amount = a.HighestBid
	evt.Conditions = conds
	o.publish(ctx, evt)

	names := make([]string, len(conds))
	for i, c := range conds {
		names[i] = string(c)
	}
	o.auditLog(ctx, domain.EventRestartAdvised, map[string]any{
		"auction_id":    a.ID,
		"conditions":    names,
		"restart_count": a.RestartCount,
		"highest_bid":   a.HighestBid,
		"minimum_price": a.MinimumPrice,
	})
	o.logger.InfoContext(ctx, "restart advised",
		slog.String("auction_id", a.ID),
		slog.Any("conditions", names),
	)
}
