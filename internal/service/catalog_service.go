package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/coupradise/catalog/internal/cache"
	"github.com/coupradise/catalog/internal/database"
	"github.com/coupradise/catalog/internal/invalidation"
	"github.com/coupradise/catalog/internal/models"
	"github.com/coupradise/catalog/internal/slug"
)

type StoreInput struct {
	Name        string
	Website     string
	Description string
	IsActive    bool
}

type CategoryInput struct {
	Name        string
	Description string
	IsActive    bool
}

type StoreRepository interface {
	Create(ctx context.Context, store *models.Store) (*models.Store, error)
	GetBySlug(ctx context.Context, slug string) (*models.Store, error)
	Update(ctx context.Context, store *models.Store) (*models.Store, error)
	Delete(ctx context.Context, id int64) error
	SlugTaken(ctx context.Context, slug string) (bool, error)
	List(ctx context.Context) ([]*models.Store, error)
}

type CategoryRepository interface {
	Create(ctx context.Context, category *models.Category) (*models.Category, error)
	GetBySlug(ctx context.Context, slug string) (*models.Category, error)
	Update(ctx context.Context, category *models.Category) (*models.Category, error)
	Delete(ctx context.Context, id int64) error
	SlugTaken(ctx context.Context, slug string) (bool, error)
	List(ctx context.Context) ([]*models.Category, error)
}

type SubscriberRepository interface {
	Subscribe(ctx context.Context, email string) (*models.Subscriber, error)
	Unsubscribe(ctx context.Context, email string) error
}

// CatalogService manages the entities offers hang off of: stores,
// categories, and the newsletter audience.
type CatalogService struct {
	stores      StoreRepository
	categories  CategoryRepository
	subscribers SubscriberRepository
	cache       cache.Store
	invalidator Invalidator
	ttl         CacheTTL
}

func NewCatalogService(stores StoreRepository, categories CategoryRepository, subscribers SubscriberRepository, store cache.Store, inv Invalidator, ttl CacheTTL) *CatalogService {
	return &CatalogService{
		stores:      stores,
		categories:  categories,
		subscribers: subscribers,
		cache:       store,
		invalidator: inv,
		ttl:         ttl,
	}
}

func (s *CatalogService) CreateStore(ctx context.Context, in StoreInput) (*models.Store, error) {
	const op = "service.CatalogService.CreateStore"

	store := &models.Store{
		Name:        in.Name,
		Website:     in.Website,
		Description: in.Description,
		IsActive:    in.IsActive,
	}

	for i := 0; i < maxSlugAttempts; i++ {
		sl, err := slug.Simple(in.Name, s.storeSlugExists(ctx))
		if err != nil {
			return nil, fmt.Errorf("%s: failed to generate slug: %w", op, err)
		}
		store.Slug = sl

		created, err := s.stores.Create(ctx, store)
		if errors.Is(err, database.ErrSlugExists) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%s: failed to create store: %w", op, err)
		}

		s.invalidator.OnMutation(ctx, models.StoreMutation(models.MutationCreate, created.ID))
		return created, nil
	}

	return nil, fmt.Errorf("%s: %w", op, slug.ErrSlugExhausted)
}

func (s *CatalogService) GetStore(ctx context.Context, slugStr string) (*models.Store, error) {
	const op = "service.CatalogService.GetStore"

	store, err := s.stores.GetBySlug(ctx, slugStr)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get store: %w", op, err)
	}

	return store, nil
}

func (s *CatalogService) UpdateStore(ctx context.Context, slugStr string, in StoreInput) (*models.Store, error) {
	const op = "service.CatalogService.UpdateStore"

	before, err := s.stores.GetBySlug(ctx, slugStr)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get store: %w", op, err)
	}

	updated := *before
	updated.Name = in.Name
	updated.Website = in.Website
	updated.Description = in.Description
	updated.IsActive = in.IsActive

	reslug := in.Name != before.Name

	for i := 0; i < maxSlugAttempts; i++ {
		if reslug {
			sl, err := slug.Simple(in.Name, s.storeSlugExists(ctx))
			if err != nil {
				return nil, fmt.Errorf("%s: failed to generate slug: %w", op, err)
			}
			updated.Slug = sl
		}

		after, err := s.stores.Update(ctx, &updated)
		if errors.Is(err, database.ErrSlugExists) && reslug {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%s: failed to update store: %w", op, err)
		}

		s.invalidator.OnMutation(ctx, models.StoreMutation(models.MutationUpdate, after.ID))
		return after, nil
	}

	return nil, fmt.Errorf("%s: %w", op, slug.ErrSlugExhausted)
}

func (s *CatalogService) DeleteStore(ctx context.Context, slugStr string) error {
	const op = "service.CatalogService.DeleteStore"

	before, err := s.stores.GetBySlug(ctx, slugStr)
	if err != nil {
		return fmt.Errorf("%s: failed to get store: %w", op, err)
	}

	if err := s.stores.Delete(ctx, before.ID); err != nil {
		return fmt.Errorf("%s: failed to delete store: %w", op, err)
	}

	s.invalidator.OnMutation(ctx, models.StoreMutation(models.MutationDelete, before.ID))
	return nil
}

func (s *CatalogService) ListStores(ctx context.Context) ([]*models.Store, error) {
	const op = "service.CatalogService.ListStores"

	if data, err := s.cache.Get(ctx, invalidation.KeyAllStores); err == nil {
		var stores []*models.Store
		if err := json.Unmarshal(data, &stores); err == nil {
			return stores, nil
		}
	}

	stores, err := s.stores.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to list stores: %w", op, err)
	}

	if data, err := json.Marshal(stores); err == nil {
		_ = s.cache.Set(ctx, invalidation.KeyAllStores, data, s.ttl.Long)
	}

	return stores, nil
}

func (s *CatalogService) CreateCategory(ctx context.Context, in CategoryInput) (*models.Category, error) {
	const op = "service.CatalogService.CreateCategory"

	category := &models.Category{
		Name:        in.Name,
		Description: in.Description,
		IsActive:    in.IsActive,
	}

	for i := 0; i < maxSlugAttempts; i++ {
		sl, err := slug.Simple(in.Name, s.categorySlugExists(ctx))
		if err != nil {
			return nil, fmt.Errorf("%s: failed to generate slug: %w", op, err)
		}
		category.Slug = sl

		created, err := s.categories.Create(ctx, category)
		if errors.Is(err, database.ErrSlugExists) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%s: failed to create category: %w", op, err)
		}

		s.invalidator.OnMutation(ctx, models.CategoryMutation(models.MutationCreate, created.ID))
		return created, nil
	}

	return nil, fmt.Errorf("%s: %w", op, slug.ErrSlugExhausted)
}

func (s *CatalogService) GetCategory(ctx context.Context, slugStr string) (*models.Category, error) {
	const op = "service.CatalogService.GetCategory"

	category, err := s.categories.GetBySlug(ctx, slugStr)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get category: %w", op, err)
	}

	return category, nil
}

func (s *CatalogService) UpdateCategory(ctx context.Context, slugStr string, in CategoryInput) (*models.Category, error) {
	const op = "service.CatalogService.UpdateCategory"

	before, err := s.categories.GetBySlug(ctx, slugStr)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get category: %w", op, err)
	}

	updated := *before
	updated.Name = in.Name
	updated.Description = in.Description
	updated.IsActive = in.IsActive

	reslug := in.Name != before.Name

	for i := 0; i < maxSlugAttempts; i++ {
		if reslug {
			sl, err := slug.Simple(in.Name, s.categorySlugExists(ctx))
			if err != nil {
				return nil, fmt.Errorf("%s: failed to generate slug: %w", op, err)
			}
			updated.Slug = sl
		}

		after, err := s.categories.Update(ctx, &updated)
		if errors.Is(err, database.ErrSlugExists) && reslug {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%s: failed to update category: %w", op, err)
		}

		s.invalidator.OnMutation(ctx, models.CategoryMutation(models.MutationUpdate, after.ID))
		return after, nil
	}

	return nil, fmt.Errorf("%s: %w", op, slug.ErrSlugExhausted)
}

func (s *CatalogService) DeleteCategory(ctx context.Context, slugStr string) error {
	const op = "service.CatalogService.DeleteCategory"

	before, err := s.categories.GetBySlug(ctx, slugStr)
	if err != nil {
		return fmt.Errorf("%s: failed to get category: %w", op, err)
	}

	if err := s.categories.Delete(ctx, before.ID); err != nil {
		return fmt.Errorf("%s: failed to delete category: %w", op, err)
	}

	s.invalidator.OnMutation(ctx, models.CategoryMutation(models.MutationDelete, before.ID))
	return nil
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]*models.Category, error) {
	const op = "service.CatalogService.ListCategories"

	if data, err := s.cache.Get(ctx, invalidation.KeyAllCategories); err == nil {
		var categories []*models.Category
		if err := json.Unmarshal(data, &categories); err == nil {
			return categories, nil
		}
	}

	categories, err := s.categories.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to list categories: %w", op, err)
	}

	if data, err := json.Marshal(categories); err == nil {
		_ = s.cache.Set(ctx, invalidation.KeyAllCategories, data, s.ttl.Long)
	}

	return categories, nil
}

func (s *CatalogService) Subscribe(ctx context.Context, email string) (*models.Subscriber, error) {
	const op = "service.CatalogService.Subscribe"

	sub, err := s.subscribers.Subscribe(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to subscribe: %w", op, err)
	}

	return sub, nil
}

func (s *CatalogService) Unsubscribe(ctx context.Context, email string) error {
	const op = "service.CatalogService.Unsubscribe"

	if err := s.subscribers.Unsubscribe(ctx, email); err != nil {
		return fmt.Errorf("%s: failed to unsubscribe: %w", op, err)
	}

	return nil
}

func (s *CatalogService) storeSlugExists(ctx context.Context) func(string) bool {
	return func(candidate string) bool {
		taken, err := s.stores.SlugTaken(ctx, candidate)
		return err == nil && taken
	}
}

func (s *CatalogService) categorySlugExists(ctx context.Context) func(string) bool {
	return func(candidate string) bool {
		taken, err := s.categories.SlugTaken(ctx, candidate)
		return err == nil && taken
	}
}
