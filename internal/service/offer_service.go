package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/coupradise/catalog/internal/cache"
	"github.com/coupradise/catalog/internal/database"
	"github.com/coupradise/catalog/internal/invalidation"
	"github.com/coupradise/catalog/internal/models"
	"github.com/coupradise/catalog/internal/section"
	"github.com/coupradise/catalog/internal/slug"
)

const (
	// maxSlugAttempts bounds how many times a create or re-slug loop will
	// re-mint after the database reports a duplicate slug. Each mint already
	// walks its own collision ladder, so in practice this only fires under
	// heavy concurrent creates with identical titles.
	maxSlugAttempts = 5

	homeListingLimit = 12
	topOffersLimit   = 10
	listingPageSize  = 24
	expiringWindow   = 7 * 24 * time.Hour
)

// OfferInput carries the caller-supplied fields of an offer. Identity
// fields (id, slug, counters, timestamps) are owned by the service.
type OfferInput struct {
	Title         string
	Description   string
	Code          string
	StoreID       int64
	CategoryID    int64
	Source        models.Source
	Kind          models.Kind
	DiscountType  models.DiscountType
	DiscountValue *float64
	IsSpecial     bool
	IsPopular     bool
	IsFeatured    bool
	IsActive      bool
	UsageLimit    *int64
	StartsAt      time.Time
	ExpiresAt     *time.Time
}

type OfferRepository interface {
	Create(ctx context.Context, offer *models.Offer) (*models.Offer, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Offer, error)
	GetBySlug(ctx context.Context, slug string) (*models.Offer, error)
	Update(ctx context.Context, offer *models.Offer) (*models.Offer, error)
	Delete(ctx context.Context, id uuid.UUID) error
	SlugTaken(ctx context.Context, slug string) (bool, error)
	ListByStore(ctx context.Context, storeID int64, limit, offset int) ([]*models.Offer, error)
	ListByCategory(ctx context.Context, categoryID int64, limit, offset int) ([]*models.Offer, error)
	ListFeatured(ctx context.Context, limit int) ([]*models.Offer, error)
	ListLatest(ctx context.Context, limit int) ([]*models.Offer, error)
	ListExpiring(ctx context.Context, within time.Duration, limit int) ([]*models.Offer, error)
}

type CounterReader interface {
	GetByOfferID(ctx context.Context, offerID uuid.UUID) (*models.CounterRecord, error)
	TopByViews(ctx context.Context, limit int) ([]*models.TopOffer, error)
}

// Invalidator receives mutation events after the write has committed.
// It must never fail the caller.
type Invalidator interface {
	OnMutation(ctx context.Context, e models.MutationEvent)
}

// CacheTTL groups the expiry tiers used by cached listings.
type CacheTTL struct {
	Short  time.Duration
	Medium time.Duration
	Long   time.Duration
}

type OfferService struct {
	repo        OfferRepository
	counters    CounterReader
	cache       cache.Store
	invalidator Invalidator
	ttl         CacheTTL
}

func NewOfferService(repo OfferRepository, counters CounterReader, store cache.Store, inv Invalidator, ttl CacheTTL) *OfferService {
	return &OfferService{
		repo:        repo,
		counters:    counters,
		cache:       store,
		invalidator: inv,
		ttl:         ttl,
	}
}

// CreateOffer mints an id and a unique slug for the offer, persists it,
// and publishes the mutation. Duplicate-slug failures from the insert are
// repaired by re-minting and retrying up to a fixed ceiling.
func (s *OfferService) CreateOffer(ctx context.Context, in OfferInput) (*models.Offer, error) {
	const op = "service.OfferService.CreateOffer"

	id := uuid.New()
	offer := &models.Offer{
		ID:            id,
		Title:         in.Title,
		Description:   in.Description,
		Code:          in.Code,
		StoreID:       in.StoreID,
		CategoryID:    in.CategoryID,
		Source:        in.Source,
		Kind:          in.Kind,
		DiscountType:  in.DiscountType,
		DiscountValue: in.DiscountValue,
		IsSpecial:     in.IsSpecial,
		IsPopular:     in.IsPopular,
		IsFeatured:    in.IsFeatured,
		IsActive:      in.IsActive,
		UsageLimit:    in.UsageLimit,
		StartsAt:      in.StartsAt,
		ExpiresAt:     in.ExpiresAt,
	}

	if offer.Kind == models.KindCode && offer.Code == "" {
		code, err := mintCouponCode()
		if err != nil {
			return nil, fmt.Errorf("%s: failed to mint coupon code: %w", op, err)
		}
		offer.Code = code
	}

	for i := 0; i < maxSlugAttempts; i++ {
		sl, err := slug.Generate(in.Title, id, s.slugExists(ctx))
		if err != nil {
			return nil, fmt.Errorf("%s: failed to generate slug: %w", op, err)
		}
		offer.Slug = sl

		created, err := s.repo.Create(ctx, offer)
		if errors.Is(err, database.ErrSlugExists) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%s: failed to create offer: %w", op, err)
		}

		s.invalidator.OnMutation(ctx, models.OfferMutation(models.MutationCreate, nil, created))
		return created, nil
	}

	return nil, fmt.Errorf("%s: %w", op, slug.ErrSlugExhausted)
}

// UpdateOffer applies the input to the offer identified by its slug. The
// slug is re-minted only when the title changed; every other edit leaves
// it stable.
func (s *OfferService) UpdateOffer(ctx context.Context, slugStr string, in OfferInput) (*models.Offer, error) {
	const op = "service.OfferService.UpdateOffer"

	before, err := s.repo.GetBySlug(ctx, slugStr)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get offer: %w", op, err)
	}

	updated := *before
	updated.Title = in.Title
	updated.Description = in.Description
	updated.Code = in.Code
	updated.StoreID = in.StoreID
	updated.CategoryID = in.CategoryID
	updated.Source = in.Source
	updated.Kind = in.Kind
	updated.DiscountType = in.DiscountType
	updated.DiscountValue = in.DiscountValue
	updated.IsSpecial = in.IsSpecial
	updated.IsPopular = in.IsPopular
	updated.IsFeatured = in.IsFeatured
	updated.IsActive = in.IsActive
	updated.UsageLimit = in.UsageLimit
	updated.StartsAt = in.StartsAt
	updated.ExpiresAt = in.ExpiresAt

	reslug := in.Title != before.Title

	for i := 0; i < maxSlugAttempts; i++ {
		if reslug {
			sl, err := slug.Generate(in.Title, before.ID, s.slugExists(ctx))
			if err != nil {
				return nil, fmt.Errorf("%s: failed to generate slug: %w", op, err)
			}
			updated.Slug = sl
		}

		after, err := s.repo.Update(ctx, &updated)
		if errors.Is(err, database.ErrSlugExists) && reslug {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%s: failed to update offer: %w", op, err)
		}

		s.invalidator.OnMutation(ctx, models.OfferMutation(models.MutationUpdate, before, after))
		return after, nil
	}

	return nil, fmt.Errorf("%s: %w", op, slug.ErrSlugExhausted)
}

func (s *OfferService) DeleteOffer(ctx context.Context, slugStr string) error {
	const op = "service.OfferService.DeleteOffer"

	before, err := s.repo.GetBySlug(ctx, slugStr)
	if err != nil {
		return fmt.Errorf("%s: failed to get offer: %w", op, err)
	}

	if err := s.repo.Delete(ctx, before.ID); err != nil {
		return fmt.Errorf("%s: failed to delete offer: %w", op, err)
	}

	s.invalidator.OnMutation(ctx, models.OfferMutation(models.MutationDelete, before, nil))
	return nil
}

func (s *OfferService) GetOffer(ctx context.Context, slugStr string) (*models.Offer, error) {
	const op = "service.OfferService.GetOffer"

	offer, err := s.repo.GetBySlug(ctx, slugStr)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get offer: %w", op, err)
	}

	return offer, nil
}

// ListByStore returns one page of a store's active offers. The first page
// lives under the bare listing key the invalidator evicts; deeper pages are
// cached under page-suffixed keys with the short tier, so they age out on
// their own instead of being enumerated at eviction time.
func (s *OfferService) ListByStore(ctx context.Context, storeID int64, page int) ([]*models.Offer, error) {
	const op = "service.OfferService.ListByStore"

	key, ttl, page := s.pageKey(invalidation.StoreListingKey(storeID), page)

	return s.listCached(ctx, op, key, ttl, func(ctx context.Context) ([]*models.Offer, error) {
		return s.repo.ListByStore(ctx, storeID, listingPageSize, (page-1)*listingPageSize)
	})
}

// ListByCategory returns one page of a category's active offers, cached the
// same way as ListByStore.
func (s *OfferService) ListByCategory(ctx context.Context, categoryID int64, page int) ([]*models.Offer, error) {
	const op = "service.OfferService.ListByCategory"

	key, ttl, page := s.pageKey(invalidation.CategoryListingKey(categoryID), page)

	return s.listCached(ctx, op, key, ttl, func(ctx context.Context) ([]*models.Offer, error) {
		return s.repo.ListByCategory(ctx, categoryID, listingPageSize, (page-1)*listingPageSize)
	})
}

func (s *OfferService) ListFeatured(ctx context.Context) ([]*models.Offer, error) {
	const op = "service.OfferService.ListFeatured"

	return s.listCached(ctx, op, invalidation.KeyHomeFeatured, s.ttl.Medium, func(ctx context.Context) ([]*models.Offer, error) {
		return s.repo.ListFeatured(ctx, homeListingLimit)
	})
}

func (s *OfferService) ListLatest(ctx context.Context) ([]*models.Offer, error) {
	const op = "service.OfferService.ListLatest"

	return s.listCached(ctx, op, invalidation.KeyHomeLatest, s.ttl.Short, func(ctx context.Context) ([]*models.Offer, error) {
		return s.repo.ListLatest(ctx, homeListingLimit)
	})
}

func (s *OfferService) ListExpiring(ctx context.Context) ([]*models.Offer, error) {
	const op = "service.OfferService.ListExpiring"

	return s.listCached(ctx, op, invalidation.KeyHomeExpiring, s.ttl.Short, func(ctx context.Context) ([]*models.Offer, error) {
		return s.repo.ListExpiring(ctx, expiringWindow, homeListingLimit)
	})
}

// GetOfferStats joins the offer with its counter record. Offers that have
// never been viewed or saved report zeroed counters rather than an error.
func (s *OfferService) GetOfferStats(ctx context.Context, slugStr string) (*models.OfferStats, error) {
	const op = "service.OfferService.GetOfferStats"

	offer, err := s.repo.GetBySlug(ctx, slugStr)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get offer: %w", op, err)
	}

	rec, err := s.counters.GetByOfferID(ctx, offer.ID)
	switch {
	case errors.Is(err, database.ErrCounterNotFound):
		rec = &models.CounterRecord{OfferID: offer.ID}
	case err != nil:
		return nil, fmt.Errorf("%s: failed to get counters: %w", op, err)
	}

	return &models.OfferStats{
		Offer:          offer,
		Counters:       rec,
		Section:        section.Classify(offer.View()),
		ConversionRate: rec.ConversionRate(),
	}, nil
}

func (s *OfferService) TopOffers(ctx context.Context) ([]*models.TopOffer, error) {
	const op = "service.OfferService.TopOffers"

	top, err := s.counters.TopByViews(ctx, topOffersLimit)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to list top offers: %w", op, err)
	}

	return top, nil
}

// pageKey derives the cache key and expiry tier for one page of a listing,
// clamping the page to 1. Only the first page's bare key is reachable by
// the mutation fan-out, so deeper pages take the short tier.
func (s *OfferService) pageKey(base string, page int) (string, time.Duration, int) {
	if page < 1 {
		page = 1
	}

	ttl := s.ttl.Medium
	if page > 1 {
		ttl = s.ttl.Short
	}

	return invalidation.PageKey(base, page), ttl, page
}

// listCached serves the listing from cache when present and reads through
// to the repository otherwise. Cache failures never fail the read: a
// broken Get falls through to the database, a broken Set is dropped.
func (s *OfferService) listCached(ctx context.Context, op, key string, ttl time.Duration, fetch func(context.Context) ([]*models.Offer, error)) ([]*models.Offer, error) {
	if data, err := s.cache.Get(ctx, key); err == nil {
		var offers []*models.Offer
		if err := json.Unmarshal(data, &offers); err == nil {
			return offers, nil
		}
	}

	offers, err := fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to list offers: %w", op, err)
	}

	if data, err := json.Marshal(offers); err == nil {
		_ = s.cache.Set(ctx, key, data, ttl)
	}

	return offers, nil
}

func (s *OfferService) slugExists(ctx context.Context) func(string) bool {
	return func(candidate string) bool {
		taken, err := s.repo.SlugTaken(ctx, candidate)
		return err == nil && taken
	}
}
