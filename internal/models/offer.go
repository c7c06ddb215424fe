package models

import (
	"time"

	"github.com/google/uuid"
)

// Source identifies where an offer originates from.
type Source string

const (
	SourceDirect    Source = "DIRECT"
	SourceAmazon    Source = "AMAZON"
	SourceAffiliate Source = "AFFILIATE"
	SourceOther     Source = "OTHER"
)

// Kind identifies how an offer is redeemed.
type Kind string

const (
	KindCode         Kind = "CODE"
	KindDeal         Kind = "DEAL"
	KindPrintable    Kind = "PRINTABLE"
	KindFreeShipping Kind = "FREE_SHIPPING"
)

// DiscountType identifies how an offer's discount value is interpreted.
type DiscountType string

const (
	DiscountPercentage DiscountType = "PERCENTAGE"
	DiscountFixed      DiscountType = "FIXED"
	DiscountBOGO       DiscountType = "BOGO"
	DiscountFree       DiscountType = "FREE"
)

// Section is the display bucket an offer is routed into.
// It is always computed from the offer's attributes and never persisted.
type Section string

const (
	SectionSpecial Section = "special"
	SectionAmazon  Section = "amazon"
	SectionCoupons Section = "coupons"
	SectionDeals   Section = "deals"
)

// Offer represents a coupon or deal in the catalog.
type Offer struct {
	// ID is the immutable opaque identifier assigned at creation, never reused.
	ID uuid.UUID
	// Slug is the human-readable unique identifier derived from the title
	// plus a fragment of ID. It changes only through regeneration.
	Slug string
	// Title is the display title of the offer.
	Title string
	// Description is the free-text description shown on the detail page.
	Description string
	// Code is the redemption code, present for CODE offers.
	Code string
	// StoreID references the store the offer belongs to.
	StoreID int64
	// CategoryID references the category the offer belongs to.
	CategoryID int64
	// Source identifies where the offer originates from.
	Source Source
	// Kind identifies how the offer is redeemed.
	Kind Kind
	// DiscountType identifies how DiscountValue is interpreted.
	DiscountType DiscountType
	// DiscountValue is the discount amount, absent for BOGO and FREE discounts.
	DiscountValue *float64
	// IsSpecial marks the offer for the special section.
	IsSpecial bool
	// IsPopular marks the offer as popular.
	IsPopular bool
	// IsActive controls whether the offer is visible in listings.
	IsActive bool
	// IsFeatured marks the offer for the home featured listing.
	IsFeatured bool
	// UsageLimit caps the number of redemptions when set.
	UsageLimit *int64
	// UsageCount tracks the number of redemptions so far.
	UsageCount int64
	// StartsAt is when the offer becomes valid.
	StartsAt time.Time
	// ExpiresAt is when the offer expires, if ever.
	ExpiresAt *time.Time
	// CreatedAt is the timestamp indicating when the offer was created.
	CreatedAt time.Time
	// UpdatedAt is the timestamp indicating when the offer was last updated.
	UpdatedAt time.Time
}

// OfferView is the attribute subset that determines an offer's section.
type OfferView struct {
	IsSpecial bool
	Source    Source
	Kind      Kind
}

// View returns the attribute subset used for section classification.
func (o *Offer) View() OfferView {
	return OfferView{
		IsSpecial: o.IsSpecial,
		Source:    o.Source,
		Kind:      o.Kind,
	}
}

// Expired reports whether the offer's expiry date has passed at the given time.
func (o *Offer) Expired(now time.Time) bool {
	return o.ExpiresAt != nil && now.After(*o.ExpiresAt)
}

// UsageExhausted reports whether the offer's usage limit has been reached.
func (o *Offer) UsageExhausted() bool {
	return o.UsageLimit != nil && o.UsageCount >= *o.UsageLimit
}
