// Package counters maintains per-offer analytics counters under
// concurrent, unordered event traffic. The counter record is created
// lazily on the first event using the same optimistic
// create-then-repair pattern slug minting uses: try the increment,
// try the insert on absence, and fall back to the increment when the
// insert loses a creation race.
package counters

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/coupradise/catalog/internal/database"
	"github.com/coupradise/catalog/internal/models"
	"github.com/coupradise/catalog/internal/section"
	"github.com/google/uuid"
)

var (
	// ErrOfferExpired is returned by RecordUse when the offer's expiry
	// date has passed.
	ErrOfferExpired = errors.New("offer expired")
	// ErrUsageLimitReached is returned by RecordUse when the offer's
	// usage limit is set and already reached.
	ErrUsageLimitReached = errors.New("usage limit reached")
)

// CounterRepository defines the atomic counter operations the aggregator
// relies on. Both operations delegate races to the store's own constraint
// enforcement; the aggregator never locks.
type CounterRepository interface {
	// Increment atomically bumps one counter of an existing record,
	// returning database.ErrCounterNotFound when no record exists yet.
	// Incrementing views also refreshes the last-viewed timestamp.
	Increment(ctx context.Context, offerID uuid.UUID, field models.CounterField) (*models.CounterRecord, error)

	// Create inserts the offer's counter record seeded with the given
	// counter at one, returning database.ErrCounterExists when another
	// creator won the race.
	Create(ctx context.Context, offerID uuid.UUID, field models.CounterField) (*models.CounterRecord, error)
}

// OfferRepository provides the offer snapshots the aggregator validates
// events against.
type OfferRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Offer, error)
}

// Aggregator records view, save, code-copy and use events per offer.
type Aggregator struct {
	counters CounterRepository
	offers   OfferRepository
	logger   *slog.Logger
	now      func() time.Time
}

// New creates an Aggregator.
func New(counters CounterRepository, offers OfferRepository, logger *slog.Logger) *Aggregator {
	return &Aggregator{
		counters: counters,
		offers:   offers,
		logger:   logger,
		now:      time.Now,
	}
}

// RecordView increments the offer's view counter and refreshes its
// last-viewed timestamp.
func (a *Aggregator) RecordView(ctx context.Context, offerID uuid.UUID) (*models.CounterRecord, error) {
	return a.record(ctx, offerID, models.FieldViews)
}

// RecordSave increments the offer's save counter.
func (a *Aggregator) RecordSave(ctx context.Context, offerID uuid.UUID) (*models.CounterRecord, error) {
	return a.record(ctx, offerID, models.FieldSaves)
}

// RecordCodeCopy increments the offer's code-copy counter.
func (a *Aggregator) RecordCodeCopy(ctx context.Context, offerID uuid.UUID) (*models.CounterRecord, error) {
	return a.record(ctx, offerID, models.FieldCodeCopies)
}

// RecordUse increments the offer's use counter after validating the
// redemption gates against the offer snapshot: an expired offer is
// rejected with ErrOfferExpired, an exhausted usage limit with
// ErrUsageLimitReached. Once the gates pass the counter always succeeds.
func (a *Aggregator) RecordUse(ctx context.Context, offerID uuid.UUID) (*models.CounterRecord, error) {
	const op = "counters.Aggregator.RecordUse"

	offer, err := a.offers.GetByID(ctx, offerID)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get offer: %w", op, err)
	}

	if offer.Expired(a.now()) {
		return nil, fmt.Errorf("%s: %w", op, ErrOfferExpired)
	}
	if offer.UsageExhausted() {
		return nil, fmt.Errorf("%s: %w", op, ErrUsageLimitReached)
	}

	return a.recordFor(ctx, offer, models.FieldUses)
}

func (a *Aggregator) record(ctx context.Context, offerID uuid.UUID, field models.CounterField) (*models.CounterRecord, error) {
	const op = "counters.Aggregator.record"

	offer, err := a.offers.GetByID(ctx, offerID)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get offer: %w", op, err)
	}

	return a.recordFor(ctx, offer, field)
}

// recordFor runs the optimistic increment sequence. Events are not
// idempotent: an at-least-once redelivery of the same logical event
// double-counts, which is accepted since callers supply no event id.
func (a *Aggregator) recordFor(ctx context.Context, offer *models.Offer, field models.CounterField) (*models.CounterRecord, error) {
	const op = "counters.Aggregator.recordFor"

	rec, err := a.counters.Increment(ctx, offer.ID, field)
	if errors.Is(err, database.ErrCounterNotFound) {
		rec, err = a.counters.Create(ctx, offer.ID, field)
		if errors.Is(err, database.ErrCounterExists) {
			rec, err = a.counters.Increment(ctx, offer.ID, field)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%s: failed to record %s event: %w", op, field, err)
	}

	// Section tags the event for reporting dimensions only.
	a.logger.Debug(
		"offer event recorded",
		slog.String("offerId", offer.ID.String()),
		slog.String("event", string(field)),
		slog.String("section", string(section.Classify(offer.View()))),
	)

	return rec, nil
}
