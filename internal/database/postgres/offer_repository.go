package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/coupradise/catalog/internal/database"
	"github.com/coupradise/catalog/internal/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type offerRecord struct {
	ID            uuid.UUID       `db:"id"`
	Slug          string          `db:"slug"`
	Title         string          `db:"title"`
	Description   string          `db:"description"`
	Code          sql.NullString  `db:"code"`
	StoreID       int64           `db:"store_id"`
	CategoryID    int64           `db:"category_id"`
	Source        string          `db:"source"`
	Kind          string          `db:"kind"`
	DiscountType  string          `db:"discount_type"`
	DiscountValue sql.NullFloat64 `db:"discount_value"`
	IsSpecial     bool            `db:"is_special"`
	IsPopular     bool            `db:"is_popular"`
	IsActive      bool            `db:"is_active"`
	IsFeatured    bool            `db:"is_featured"`
	UsageLimit    sql.NullInt64   `db:"usage_limit"`
	UsageCount    int64           `db:"usage_count"`
	StartsAt      time.Time       `db:"starts_at"`
	ExpiresAt     sql.NullTime    `db:"expires_at"`
	CreatedAt     time.Time       `db:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at"`
}

func (r *offerRecord) ToOffer() *models.Offer {
	o := &models.Offer{
		ID:           r.ID,
		Slug:         r.Slug,
		Title:        r.Title,
		Description:  r.Description,
		Code:         r.Code.String,
		StoreID:      r.StoreID,
		CategoryID:   r.CategoryID,
		Source:       models.Source(r.Source),
		Kind:         models.Kind(r.Kind),
		DiscountType: models.DiscountType(r.DiscountType),
		IsSpecial:    r.IsSpecial,
		IsPopular:    r.IsPopular,
		IsActive:     r.IsActive,
		IsFeatured:   r.IsFeatured,
		UsageCount:   r.UsageCount,
		StartsAt:     r.StartsAt,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}

	if r.DiscountValue.Valid {
		o.DiscountValue = &r.DiscountValue.Float64
	}
	if r.UsageLimit.Valid {
		o.UsageLimit = &r.UsageLimit.Int64
	}
	if r.ExpiresAt.Valid {
		t := r.ExpiresAt.Time
		o.ExpiresAt = &t
	}

	return o
}

func toOfferList(recs []offerRecord) []*models.Offer {
	offers := make([]*models.Offer, len(recs))
	for i := range recs {
		offers[i] = recs[i].ToOffer()
	}
	return offers
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullFloat64(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func nullInt64(n *int64) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *n, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

type OfferRepository struct {
	db *sqlx.DB
}

func NewOfferRepository(db *sqlx.DB) *OfferRepository {
	return &OfferRepository{
		db: db,
	}
}

// Create inserts a new offer. The slug's unique index is the hard
// uniqueness guarantee; a violation surfaces as database.ErrSlugExists so
// the caller can regenerate and retry.
func (r *OfferRepository) Create(ctx context.Context, offer *models.Offer) (*models.Offer, error) {
	const op = "database.postgres.OfferRepository.Create"

	rec := new(offerRecord)
	query := `INSERT INTO offers(id, slug, title, description, code, store_id, category_id,
			source, kind, discount_type, discount_value,
			is_special, is_popular, is_active, is_featured,
			usage_limit, starts_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING *`

	err := r.db.GetContext(ctx, rec, query,
		offer.ID, offer.Slug, offer.Title, offer.Description, nullString(offer.Code),
		offer.StoreID, offer.CategoryID,
		offer.Source, offer.Kind, offer.DiscountType, nullFloat64(offer.DiscountValue),
		offer.IsSpecial, offer.IsPopular, offer.IsActive, offer.IsFeatured,
		nullInt64(offer.UsageLimit), offer.StartsAt, nullTime(offer.ExpiresAt),
	)
	if err != nil {
		if isUniqueViolationError(err) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrSlugExists)
		}

		return nil, fmt.Errorf("%s: failed to create offer record: %w", op, err)
	}

	return rec.ToOffer(), nil
}

func (r *OfferRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Offer, error) {
	const op = "database.postgres.OfferRepository.GetByID"

	rec := new(offerRecord)
	query := `SELECT * FROM offers WHERE id = $1`

	err := r.db.GetContext(ctx, rec, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%s: %w", op, database.ErrOfferNotFound)
		}

		return nil, fmt.Errorf("%s: failed to get offer record: %w", op, err)
	}

	return rec.ToOffer(), nil
}

func (r *OfferRepository) GetBySlug(ctx context.Context, slug string) (*models.Offer, error) {
	const op = "database.postgres.OfferRepository.GetBySlug"

	rec := new(offerRecord)
	query := `SELECT * FROM offers WHERE slug = $1`

	err := r.db.GetContext(ctx, rec, query, slug)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%s: %w", op, database.ErrOfferNotFound)
		}

		return nil, fmt.Errorf("%s: failed to get offer record: %w", op, err)
	}

	return rec.ToOffer(), nil
}

// Update rewrites the offer's mutable attributes. A slug collision from a
// re-slug surfaces as database.ErrSlugExists.
func (r *OfferRepository) Update(ctx context.Context, offer *models.Offer) (*models.Offer, error) {
	const op = "database.postgres.OfferRepository.Update"

	rec := new(offerRecord)
	query := `UPDATE offers
		SET slug = $1, title = $2, description = $3, code = $4,
			store_id = $5, category_id = $6,
			source = $7, kind = $8, discount_type = $9, discount_value = $10,
			is_special = $11, is_popular = $12, is_active = $13, is_featured = $14,
			usage_limit = $15, starts_at = $16, expires_at = $17,
			updated_at = now()
		WHERE id = $18
		RETURNING *`

	err := r.db.GetContext(ctx, rec, query,
		offer.Slug, offer.Title, offer.Description, nullString(offer.Code),
		offer.StoreID, offer.CategoryID,
		offer.Source, offer.Kind, offer.DiscountType, nullFloat64(offer.DiscountValue),
		offer.IsSpecial, offer.IsPopular, offer.IsActive, offer.IsFeatured,
		nullInt64(offer.UsageLimit), offer.StartsAt, nullTime(offer.ExpiresAt),
		offer.ID,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%s: %w", op, database.ErrOfferNotFound)
		}
		if isUniqueViolationError(err) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrSlugExists)
		}

		return nil, fmt.Errorf("%s: failed to update offer record: %w", op, err)
	}

	return rec.ToOffer(), nil
}

// Delete removes the offer and retires its slug in the same transaction,
// so the slug can never be claimed by a later entity.
func (r *OfferRepository) Delete(ctx context.Context, id uuid.UUID) error {
	const op = "database.postgres.OfferRepository.Delete"

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}
	defer tx.Rollback() //nolint:errcheck

	var slug string
	err = tx.GetContext(ctx, &slug, `DELETE FROM offers WHERE id = $1 RETURNING slug`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return fmt.Errorf("%s: %w", op, database.ErrOfferNotFound)
		}

		return fmt.Errorf("%s: failed to delete offer record: %w", op, err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO retired_slugs(slug) VALUES ($1) ON CONFLICT (slug) DO NOTHING`, slug)
	if err != nil {
		return fmt.Errorf("%s: failed to retire slug: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	return nil
}

// SlugTaken reports whether a slug is claimed by a live offer or retired
// by a deleted one.
func (r *OfferRepository) SlugTaken(ctx context.Context, slug string) (bool, error) {
	const op = "database.postgres.OfferRepository.SlugTaken"

	var taken bool
	query := `SELECT EXISTS (SELECT 1 FROM offers WHERE slug = $1)
		OR EXISTS (SELECT 1 FROM retired_slugs WHERE slug = $1)`

	if err := r.db.GetContext(ctx, &taken, query, slug); err != nil {
		return false, fmt.Errorf("%s: failed to check slug: %w", op, err)
	}

	return taken, nil
}

// IncrementUsage atomically bumps the offer's redemption count.
func (r *OfferRepository) IncrementUsage(ctx context.Context, id uuid.UUID) (*models.Offer, error) {
	const op = "database.postgres.OfferRepository.IncrementUsage"

	rec := new(offerRecord)
	query := `UPDATE offers
		SET usage_count = usage_count + 1
		WHERE id = $1
		RETURNING *`

	err := r.db.GetContext(ctx, rec, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%s: %w", op, database.ErrOfferNotFound)
		}

		return nil, fmt.Errorf("%s: failed to increment usage count: %w", op, err)
	}

	return rec.ToOffer(), nil
}

func (r *OfferRepository) ListByStore(ctx context.Context, storeID int64, limit, offset int) ([]*models.Offer, error) {
	const op = "database.postgres.OfferRepository.ListByStore"

	var recs []offerRecord
	query := `SELECT * FROM offers
		WHERE store_id = $1 AND is_active = true
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	if err := r.db.SelectContext(ctx, &recs, query, storeID, limit, offset); err != nil {
		return nil, fmt.Errorf("%s: failed to list offers: %w", op, err)
	}

	return toOfferList(recs), nil
}

func (r *OfferRepository) ListByCategory(ctx context.Context, categoryID int64, limit, offset int) ([]*models.Offer, error) {
	const op = "database.postgres.OfferRepository.ListByCategory"

	var recs []offerRecord
	query := `SELECT * FROM offers
		WHERE category_id = $1 AND is_active = true
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	if err := r.db.SelectContext(ctx, &recs, query, categoryID, limit, offset); err != nil {
		return nil, fmt.Errorf("%s: failed to list offers: %w", op, err)
	}

	return toOfferList(recs), nil
}

func (r *OfferRepository) ListFeatured(ctx context.Context, limit int) ([]*models.Offer, error) {
	const op = "database.postgres.OfferRepository.ListFeatured"

	var recs []offerRecord
	query := `SELECT * FROM offers
		WHERE is_featured = true AND is_active = true
		ORDER BY created_at DESC
		LIMIT $1`

	if err := r.db.SelectContext(ctx, &recs, query, limit); err != nil {
		return nil, fmt.Errorf("%s: failed to list featured offers: %w", op, err)
	}

	return toOfferList(recs), nil
}

func (r *OfferRepository) ListLatest(ctx context.Context, limit int) ([]*models.Offer, error) {
	const op = "database.postgres.OfferRepository.ListLatest"

	var recs []offerRecord
	query := `SELECT * FROM offers
		WHERE is_active = true
		ORDER BY created_at DESC
		LIMIT $1`

	if err := r.db.SelectContext(ctx, &recs, query, limit); err != nil {
		return nil, fmt.Errorf("%s: failed to list latest offers: %w", op, err)
	}

	return toOfferList(recs), nil
}

// ListExpiring returns active offers expiring within the given window,
// soonest first.
func (r *OfferRepository) ListExpiring(ctx context.Context, within time.Duration, limit int) ([]*models.Offer, error) {
	const op = "database.postgres.OfferRepository.ListExpiring"

	until := time.Now().Add(within)

	var recs []offerRecord
	query := `SELECT * FROM offers
		WHERE is_active = true
			AND expires_at IS NOT NULL
			AND expires_at > now()
			AND expires_at <= $1
		ORDER BY expires_at ASC
		LIMIT $2`

	if err := r.db.SelectContext(ctx, &recs, query, until, limit); err != nil {
		return nil, fmt.Errorf("%s: failed to list expiring offers: %w", op, err)
	}

	return toOfferList(recs), nil
}
