// Package section routes offers into display sections. The section label
// is recomputed from the offer's attributes on every call and never
// stored, so edits can't leave a stale label behind.
package section

import "github.com/coupradise/catalog/internal/models"

// Classify maps an offer's attributes to exactly one section label.
// Precedence, first match wins: special offers beat the amazon section,
// which beats the kind-based coupons/deals split.
//
// Unknown kinds fall through to deals. A new Kind value added without
// updating this switch will silently land there.
func Classify(v models.OfferView) models.Section {
	if v.IsSpecial {
		return models.SectionSpecial
	}
	if v.Source == models.SourceAmazon {
		return models.SectionAmazon
	}

	switch v.Kind {
	case models.KindCode, models.KindPrintable, models.KindFreeShipping:
		return models.SectionCoupons
	case models.KindDeal:
		return models.SectionDeals
	default:
		return models.SectionDeals
	}
}
