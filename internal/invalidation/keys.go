package invalidation

import (
	"strconv"

	"github.com/coupradise/catalog/internal/models"
	"github.com/google/uuid"
)

// Cache keys for derived renderings live here and nowhere else, so the
// eviction fan-out can stay the single source of truth for what a
// mutation can make stale.
const (
	scopeDetail            = "detail"
	scopeListingByStore    = "listing-by-store"
	scopeListingByCategory = "listing-by-category"

	// KeyHomeFeatured caches the home featured-offers listing.
	KeyHomeFeatured = "listing-home-featured"
	// KeyHomeLatest caches the home latest-offers listing.
	KeyHomeLatest = "listing-home-latest"
	// KeyHomeExpiring caches the home expiring-soon listing.
	KeyHomeExpiring = "listing-home-expiring"
	// KeyAllStores caches the full store directory.
	KeyAllStores = "listing-all-stores"
	// KeyAllCategories caches the full category directory.
	KeyAllCategories = "listing-all-categories"
)

// DetailKey caches one offer's detail rendering.
func DetailKey(offerID uuid.UUID) string {
	return scopeDetail + ":" + offerID.String()
}

// StoreListingKey caches the offer listing of one store.
func StoreListingKey(storeID int64) string {
	return scopeListingByStore + ":" + strconv.FormatInt(storeID, 10)
}

// CategoryListingKey caches the offer listing of one category.
func CategoryListingKey(categoryID int64) string {
	return scopeListingByCategory + ":" + strconv.FormatInt(categoryID, 10)
}

// PageKey suffixes a listing key with a page number. The first page is
// the bare key, which is the only one the mutation fan-out evicts;
// deeper pages are cached with a short expiry and age out on their own.
func PageKey(key string, page int) string {
	if page <= 1 {
		return key
	}
	return key + ":" + strconv.Itoa(page)
}

// Keys computes the closed set of cache keys a mutation can make stale.
//
// Offer mutations evict the offer's detail key, the store and category
// listings of both the before- and after-snapshot (covering moves between
// stores or categories), and all home aggregate listings: membership in
// those is attribute-dependent and over-invalidating them is cheap,
// under-invalidating is not.
func Keys(e models.MutationEvent) []string {
	switch e.Entity {
	case models.EntityStore:
		return []string{StoreListingKey(e.EntityID), KeyAllStores}
	case models.EntityCategory:
		return []string{CategoryListingKey(e.EntityID), KeyAllCategories}
	}

	keys := make([]string, 0, 8)
	seen := make(map[string]struct{}, 8)
	add := func(k string) {
		if _, ok := seen[k]; !ok {
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
	}

	for _, ref := range []*models.OfferRef{e.Before, e.After} {
		if ref == nil {
			continue
		}
		add(DetailKey(ref.ID))
		add(StoreListingKey(ref.StoreID))
		add(CategoryListingKey(ref.CategoryID))
	}

	add(KeyHomeFeatured)
	add(KeyHomeLatest)
	add(KeyHomeExpiring)

	return keys
}
