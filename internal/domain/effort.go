package domain

import "time"

// ActivityCategory is a kind of work a seller logs hours against.
type ActivityCategory string

const (
	ActivityDevelopment ActivityCategory = "development"
	ActivityResearch    ActivityCategory = "research"
	ActivityNegotiation ActivityCategory = "negotiation"
)

// ActivityCategories lists every accepted category in display order.
var ActivityCategories = []ActivityCategory{
	ActivityDevelopment,
	ActivityResearch,
	ActivityNegotiation,
}

// Valid reports whether c is a known category.
func (c ActivityCategory) Valid() bool {
	for _, known := range ActivityCategories {
		if c == known {
			return true
		}
	}
	return false
}

// EffortSnapshot is the durable encoding of one seller's ledger.
type EffortSnapshot struct {
	Scope      string                       `json:"scope"`
	Hours      map[ActivityCategory]float64 `json:"hours"`
	HourlyRate float64                      `json:"hourly_rate"`
	UpdatedAt  time.Time                    `json:"updated_at"`
}
