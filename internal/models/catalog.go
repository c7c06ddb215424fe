package models

import "time"

// Store represents a merchant whose offers are cataloged.
type Store struct {
	// ID is the unique identifier of the store in the database.
	ID int64
	// Slug is the human-readable unique identifier of the store.
	Slug string
	// Name is the display name of the store.
	Name string
	// Website is the store's homepage URL.
	Website string
	// Description is the free-text description of the store.
	Description string
	// IsActive controls whether the store is visible in listings.
	IsActive bool
	// CreatedAt is the timestamp indicating when the store was created.
	CreatedAt time.Time
	// UpdatedAt is the timestamp indicating when the store was last updated.
	UpdatedAt time.Time
}

// Category represents a browsing category offers are filed under.
type Category struct {
	// ID is the unique identifier of the category in the database.
	ID int64
	// Slug is the human-readable unique identifier of the category.
	Slug string
	// Name is the display name of the category.
	Name string
	// Description is the free-text description of the category.
	Description string
	// IsActive controls whether the category is visible in listings.
	IsActive bool
	// CreatedAt is the timestamp indicating when the category was created.
	CreatedAt time.Time
	// UpdatedAt is the timestamp indicating when the category was last updated.
	UpdatedAt time.Time
}

// Subscriber represents a newsletter subscriber.
type Subscriber struct {
	// ID is the unique identifier of the subscriber in the database.
	ID int64
	// Email is the subscriber's address, unique across all subscribers.
	Email string
	// IsActive reports whether the subscription is active.
	IsActive bool
	// SubscribedAt is the timestamp of the initial subscription.
	SubscribedAt time.Time
}
