package database

import "errors"

var (
	// ErrSlugExists is returned when an insert or re-slug collides with a
	// slug already present in the entity's namespace, including slugs
	// reserved by deleted entities.
	ErrSlugExists = errors.New("slug exists")
	// ErrOfferNotFound is returned when no offer matches the given slug or id.
	ErrOfferNotFound = errors.New("offer not found")
	// ErrStoreNotFound is returned when no store matches the given slug or id.
	ErrStoreNotFound = errors.New("store not found")
	// ErrCategoryNotFound is returned when no category matches the given slug or id.
	ErrCategoryNotFound = errors.New("category not found")
	// ErrCounterNotFound is returned by an increment when no counter record
	// exists yet for the offer.
	ErrCounterNotFound = errors.New("counter record not found")
	// ErrCounterExists is returned when creating a counter record races with
	// another creator and loses.
	ErrCounterExists = errors.New("counter record exists")
	// ErrSubscriberExists is returned when subscribing an email address that
	// is already subscribed.
	ErrSubscriberExists = errors.New("subscriber exists")
	// ErrSubscriberNotFound is returned when no subscriber matches the given email.
	ErrSubscriberNotFound = errors.New("subscriber not found")
)
