package models

import "github.com/google/uuid"

// EntityKind identifies which catalog entity a mutation touched.
type EntityKind string

const (
	EntityOffer    EntityKind = "offer"
	EntityStore    EntityKind = "store"
	EntityCategory EntityKind = "category"
)

// MutationType identifies how an entity was mutated.
type MutationType string

const (
	MutationCreate MutationType = "CREATE"
	MutationUpdate MutationType = "UPDATE"
	MutationDelete MutationType = "DELETE"
)

// OfferRef is the slice of an offer snapshot that cache invalidation
// needs: the offer's identity and its listing memberships.
type OfferRef struct {
	ID         uuid.UUID
	StoreID    int64
	CategoryID int64
}

// Ref returns the offer's invalidation reference.
func (o *Offer) Ref() *OfferRef {
	return &OfferRef{
		ID:         o.ID,
		StoreID:    o.StoreID,
		CategoryID: o.CategoryID,
	}
}

// MutationEvent describes one committed mutation of a catalog entity.
// Before is nil on create, After is nil on delete. For store and category
// mutations EntityID carries the numeric entity id and the offer refs are nil.
type MutationEvent struct {
	Entity   EntityKind
	Type     MutationType
	EntityID int64
	Before   *OfferRef
	After    *OfferRef
}

// OfferMutation builds a mutation event for an offer.
func OfferMutation(t MutationType, before, after *Offer) MutationEvent {
	e := MutationEvent{Entity: EntityOffer, Type: t}
	if before != nil {
		e.Before = before.Ref()
	}
	if after != nil {
		e.After = after.Ref()
	}
	return e
}

// StoreMutation builds a mutation event for a store.
func StoreMutation(t MutationType, storeID int64) MutationEvent {
	return MutationEvent{Entity: EntityStore, Type: t, EntityID: storeID}
}

// CategoryMutation builds a mutation event for a category.
func CategoryMutation(t MutationType, categoryID int64) MutationEvent {
	return MutationEvent{Entity: EntityCategory, Type: t, EntityID: categoryID}
}
