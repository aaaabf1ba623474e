package notify

import (
	"fmt"
	"strings"

	"github.com/alanyoungcy/dealbroker/internal/domain"
)

// FormatAuctionEvent renders an event as a notification title and body.
func FormatAuctionEvent(evt domain.AuctionEvent) (string, string) {
	var title string
	switch evt.Event {
	case domain.EventAuctionRestarting:
		title = "Auction restarting"
	case domain.EventRestartAdvised:
		title = "Restart advised"
	case domain.EventAuctionAccepted:
		title = "Bid accepted"
	case domain.EventAuctionListed:
		title = "Auction listed"
	case domain.EventAuctionOpened:
		title = "Auction open"
	case domain.EventAuctionClosed:
		title = "Auction closed"
	case domain.EventBidProcessed:
		title = "Bid received"
	default:
		title = evt.Event
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Auction %s (%s)\n", evt.AuctionID, evt.Status)
	if evt.Amount > 0 {
		fmt.Fprintf(&b, "Bid: %.2f", evt.Amount)
		if evt.BidID != "" {
			fmt.Fprintf(&b, " [%s]", evt.BidID)
		}
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "Minimum price: %.2f, restarts: %d\n", evt.MinimumPrice, evt.RestartCount)
	if evt.Reason != "" {
		fmt.Fprintf(&b, "Reason: %s\n", evt.Reason)
	}
	if len(evt.Conditions) > 0 {
		conds := make([]string, len(evt.Conditions))
		for i, c := range evt.Conditions {
			conds[i] = string(c)
		}
		fmt.Fprintf(&b, "Conditions: %s\n", strings.Join(conds, ", "))
	}
	if len(evt.Enhancements) > 0 {
		fmt.Fprintf(&b, "Suggested enhancements: %s\n", strings.Join(evt.Enhancements, ", "))
	}
	return title, strings.TrimRight(b.String(), "\n")
}
