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

type counterRecord struct {
	ID           int64        `db:"id"`
	OfferID      uuid.UUID    `db:"offer_id"`
	Views        int64        `db:"views"`
	Saves        int64        `db:"saves"`
	CodeCopies   int64        `db:"code_copies"`
	Uses         int64        `db:"uses"`
	LastViewedAt sql.NullTime `db:"last_viewed_at"`
}

func (r *counterRecord) ToCounterRecord() *models.CounterRecord {
	rec := &models.CounterRecord{
		ID:         r.ID,
		OfferID:    r.OfferID,
		Views:      r.Views,
		Saves:      r.Saves,
		CodeCopies: r.CodeCopies,
		Uses:       r.Uses,
	}

	if r.LastViewedAt.Valid {
		t := r.LastViewedAt.Time
		rec.LastViewedAt = &t
	}

	return rec
}

type CounterRepository struct {
	db *sqlx.DB
}

func NewCounterRepository(db *sqlx.DB) *CounterRepository {
	return &CounterRepository{
		db: db,
	}
}

// column maps a counter field to its column. The switch doubles as a
// whitelist since the column name is spliced into the query text.
func column(field models.CounterField) (string, error) {
	switch field {
	case models.FieldViews, models.FieldSaves, models.FieldCodeCopies, models.FieldUses:
		return string(field), nil
	default:
		return "", fmt.Errorf("unknown counter field %q", field)
	}
}

// Increment atomically bumps one counter of an existing record. A view
// increment also refreshes last_viewed_at. Returns
// database.ErrCounterNotFound when the offer has no record yet.
func (r *CounterRepository) Increment(ctx context.Context, offerID uuid.UUID, field models.CounterField) (*models.CounterRecord, error) {
	const op = "database.postgres.CounterRepository.Increment"

	col, err := column(field)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	query := fmt.Sprintf(`UPDATE offer_counters
		SET %[1]s = %[1]s + 1
		WHERE offer_id = $1
		RETURNING *`, col)
	if field == models.FieldViews {
		query = `UPDATE offer_counters
		SET views = views + 1, last_viewed_at = now()
		WHERE offer_id = $1
		RETURNING *`
	}

	rec := new(counterRecord)
	err = r.db.GetContext(ctx, rec, query, offerID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%s: %w", op, database.ErrCounterNotFound)
		}

		return nil, fmt.Errorf("%s: failed to increment counter: %w", op, err)
	}

	return rec.ToCounterRecord(), nil
}

// Create inserts the offer's counter record seeded with the given counter
// at one. The unique index on offer_id arbitrates concurrent first
// events: the loser gets database.ErrCounterExists and falls back to the
// increment path.
func (r *CounterRepository) Create(ctx context.Context, offerID uuid.UUID, field models.CounterField) (*models.CounterRecord, error) {
	const op = "database.postgres.CounterRepository.Create"

	if _, err := column(field); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	seed := map[models.CounterField]int64{field: 1}
	var lastViewed sql.NullTime
	if field == models.FieldViews {
		lastViewed = sql.NullTime{Time: time.Now(), Valid: true}
	}

	rec := new(counterRecord)
	query := `INSERT INTO offer_counters(offer_id, views, saves, code_copies, uses, last_viewed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING *`

	err := r.db.GetContext(ctx, rec, query, offerID,
		seed[models.FieldViews], seed[models.FieldSaves],
		seed[models.FieldCodeCopies], seed[models.FieldUses], lastViewed,
	)
	if err != nil {
		if isUniqueViolationError(err) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrCounterExists)
		}

		return nil, fmt.Errorf("%s: failed to create counter record: %w", op, err)
	}

	return rec.ToCounterRecord(), nil
}

func (r *CounterRepository) GetByOfferID(ctx context.Context, offerID uuid.UUID) (*models.CounterRecord, error) {
	const op = "database.postgres.CounterRepository.GetByOfferID"

	rec := new(counterRecord)
	query := `SELECT * FROM offer_counters WHERE offer_id = $1`

	err := r.db.GetContext(ctx, rec, query, offerID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%s: %w", op, database.ErrCounterNotFound)
		}

		return nil, fmt.Errorf("%s: failed to get counter record: %w", op, err)
	}

	return rec.ToCounterRecord(), nil
}

// TopByViews returns the most viewed offers with their titles, most
// viewed first.
func (r *CounterRepository) TopByViews(ctx context.Context, limit int) ([]*models.TopOffer, error) {
	const op = "database.postgres.CounterRepository.TopByViews"

	var rows []struct {
		OfferID uuid.UUID `db:"offer_id"`
		Slug    string    `db:"slug"`
		Title   string    `db:"title"`
		Views   int64     `db:"views"`
	}
	query := `SELECT c.offer_id, o.slug, o.title, c.views
		FROM offer_counters c
		JOIN offers o ON o.id = c.offer_id
		ORDER BY c.views DESC
		LIMIT $1`

	if err := r.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, fmt.Errorf("%s: failed to list top offers: %w", op, err)
	}

	top := make([]*models.TopOffer, len(rows))
	for i, row := range rows {
		top[i] = &models.TopOffer{
			OfferID: row.OfferID,
			Slug:    row.Slug,
			Title:   row.Title,
			Views:   row.Views,
		}
	}

	return top, nil
}
