package models

import (
	"time"

	"github.com/google/uuid"
)

// CounterField selects which counter of a CounterRecord an event increments.
type CounterField string

const (
	FieldViews      CounterField = "views"
	FieldSaves      CounterField = "saves"
	FieldCodeCopies CounterField = "code_copies"
	FieldUses       CounterField = "uses"
)

// CounterRecord is the per-offer aggregate of view/save/copy/use events.
// Exactly one record exists per offer once any event has been recorded.
type CounterRecord struct {
	// ID is the unique identifier of the record in the database.
	ID int64
	// OfferID is the owning offer.
	OfferID uuid.UUID
	// Views is the number of recorded view events.
	Views int64
	// Saves is the number of recorded save events.
	Saves int64
	// CodeCopies is the number of recorded code-copy events.
	CodeCopies int64
	// Uses is the number of recorded use events.
	Uses int64
	// LastViewedAt is the timestamp of the most recent view event.
	LastViewedAt *time.Time
}

// ConversionRate returns the saves-to-views ratio as a percentage,
// rounded to two decimal places. It is zero when no views have been recorded.
func (c *CounterRecord) ConversionRate() float64 {
	if c.Views == 0 {
		return 0
	}
	return float64(int64(float64(c.Saves)/float64(c.Views)*10000)) / 100
}

// OfferStats combines an offer's counters with its reporting dimensions.
type OfferStats struct {
	Offer          *Offer
	Counters       *CounterRecord
	Section        Section
	ConversionRate float64
}

// TopOffer is one entry of the top-viewed offers list.
type TopOffer struct {
	OfferID uuid.UUID
	Slug    string
	Title   string
	Views   int64
}
