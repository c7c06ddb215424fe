package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/coupradise/catalog/internal/database"
	"github.com/coupradise/catalog/internal/models"
	"github.com/jmoiron/sqlx"
)

type storeRecord struct {
	ID          int64     `db:"id"`
	Slug        string    `db:"slug"`
	Name        string    `db:"name"`
	Website     string    `db:"website"`
	Description string    `db:"description"`
	IsActive    bool      `db:"is_active"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (r *storeRecord) ToStore() *models.Store {
	return &models.Store{
		ID:          r.ID,
		Slug:        r.Slug,
		Name:        r.Name,
		Website:     r.Website,
		Description: r.Description,
		IsActive:    r.IsActive,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

type StoreRepository struct {
	db *sqlx.DB
}

func NewStoreRepository(db *sqlx.DB) *StoreRepository {
	return &StoreRepository{
		db: db,
	}
}

func (r *StoreRepository) Create(ctx context.Context, store *models.Store) (*models.Store, error) {
	const op = "database.postgres.StoreRepository.Create"

	rec := new(storeRecord)
	query := `INSERT INTO stores(slug, name, website, description, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING *`

	err := r.db.GetContext(ctx, rec, query,
		store.Slug, store.Name, store.Website, store.Description, store.IsActive)
	if err != nil {
		if isUniqueViolationError(err) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrSlugExists)
		}

		return nil, fmt.Errorf("%s: failed to create store record: %w", op, err)
	}

	return rec.ToStore(), nil
}

func (r *StoreRepository) GetBySlug(ctx context.Context, slug string) (*models.Store, error) {
	const op = "database.postgres.StoreRepository.GetBySlug"

	rec := new(storeRecord)
	query := `SELECT * FROM stores WHERE slug = $1`

	err := r.db.GetContext(ctx, rec, query, slug)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%s: %w", op, database.ErrStoreNotFound)
		}

		return nil, fmt.Errorf("%s: failed to get store record: %w", op, err)
	}

	return rec.ToStore(), nil
}

func (r *StoreRepository) Update(ctx context.Context, store *models.Store) (*models.Store, error) {
	const op = "database.postgres.StoreRepository.Update"

	rec := new(storeRecord)
	query := `UPDATE stores
		SET slug = $1, name = $2, website = $3, description = $4, is_active = $5,
			updated_at = now()
		WHERE id = $6
		RETURNING *`

	err := r.db.GetContext(ctx, rec, query,
		store.Slug, store.Name, store.Website, store.Description, store.IsActive, store.ID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%s: %w", op, database.ErrStoreNotFound)
		}
		if isUniqueViolationError(err) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrSlugExists)
		}

		return nil, fmt.Errorf("%s: failed to update store record: %w", op, err)
	}

	return rec.ToStore(), nil
}

func (r *StoreRepository) Delete(ctx context.Context, id int64) error {
	const op = "database.postgres.StoreRepository.Delete"

	res, err := r.db.ExecContext(ctx, `DELETE FROM stores WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%s: failed to delete store record: %w", op, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: failed to get affected rows: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, database.ErrStoreNotFound)
	}

	return nil
}

func (r *StoreRepository) List(ctx context.Context) ([]*models.Store, error) {
	const op = "database.postgres.StoreRepository.List"

	var recs []storeRecord
	query := `SELECT * FROM stores WHERE is_active = true ORDER BY name ASC`

	if err := r.db.SelectContext(ctx, &recs, query); err != nil {
		return nil, fmt.Errorf("%s: failed to list stores: %w", op, err)
	}

	stores := make([]*models.Store, len(recs))
	for i := range recs {
		stores[i] = recs[i].ToStore()
	}

	return stores, nil
}

func (r *StoreRepository) SlugTaken(ctx context.Context, slug string) (bool, error) {
	const op = "database.postgres.StoreRepository.SlugTaken"

	var taken bool
	query := `SELECT EXISTS (SELECT 1 FROM stores WHERE slug = $1)`

	if err := r.db.GetContext(ctx, &taken, query, slug); err != nil {
		return false, fmt.Errorf("%s: failed to check slug: %w", op, err)
	}

	return taken, nil
}
