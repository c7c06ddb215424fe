package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/coupradise/catalog/internal/models"
)

// EventAggregator records engagement events against an offer id.
type EventAggregator interface {
	RecordView(ctx context.Context, offerID uuid.UUID) (*models.CounterRecord, error)
	RecordSave(ctx context.Context, offerID uuid.UUID) (*models.CounterRecord, error)
	RecordCodeCopy(ctx context.Context, offerID uuid.UUID) (*models.CounterRecord, error)
	RecordUse(ctx context.Context, offerID uuid.UUID) (*models.CounterRecord, error)
}

// UsageBumper advances the redemption tally on the offer row itself.
type UsageBumper interface {
	GetBySlug(ctx context.Context, slug string) (*models.Offer, error)
	IncrementUsage(ctx context.Context, id uuid.UUID) (*models.Offer, error)
}

// EventService resolves slugs from the request path to offer ids and
// forwards engagement events to the aggregator. Redemptions additionally
// advance the offer's usage count, which future RecordUse gates read.
type EventService struct {
	offers     UsageBumper
	aggregator EventAggregator
}

func NewEventService(offers UsageBumper, aggregator EventAggregator) *EventService {
	return &EventService{
		offers:     offers,
		aggregator: aggregator,
	}
}

func (s *EventService) RecordView(ctx context.Context, slugStr string) (*models.CounterRecord, error) {
	const op = "service.EventService.RecordView"

	offer, err := s.offers.GetBySlug(ctx, slugStr)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get offer: %w", op, err)
	}

	rec, err := s.aggregator.RecordView(ctx, offer.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to record view: %w", op, err)
	}

	return rec, nil
}

func (s *EventService) RecordSave(ctx context.Context, slugStr string) (*models.CounterRecord, error) {
	const op = "service.EventService.RecordSave"

	offer, err := s.offers.GetBySlug(ctx, slugStr)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get offer: %w", op, err)
	}

	rec, err := s.aggregator.RecordSave(ctx, offer.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to record save: %w", op, err)
	}

	return rec, nil
}

func (s *EventService) RecordCodeCopy(ctx context.Context, slugStr string) (*models.CounterRecord, error) {
	const op = "service.EventService.RecordCodeCopy"

	offer, err := s.offers.GetBySlug(ctx, slugStr)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get offer: %w", op, err)
	}

	rec, err := s.aggregator.RecordCodeCopy(ctx, offer.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to record code copy: %w", op, err)
	}

	return rec, nil
}

func (s *EventService) RecordUse(ctx context.Context, slugStr string) (*models.CounterRecord, error) {
	const op = "service.EventService.RecordUse"

	offer, err := s.offers.GetBySlug(ctx, slugStr)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get offer: %w", op, err)
	}

	rec, err := s.aggregator.RecordUse(ctx, offer.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to record use: %w", op, err)
	}

	if _, err := s.offers.IncrementUsage(ctx, offer.ID); err != nil {
		return nil, fmt.Errorf("%s: failed to advance usage count: %w", op, err)
	}

	return rec, nil
}
