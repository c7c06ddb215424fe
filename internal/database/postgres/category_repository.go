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

type categoryRecord struct {
	ID          int64     `db:"id"`
	Slug        string    `db:"slug"`
	Name        string    `db:"name"`
	Description string    `db:"description"`
	IsActive    bool      `db:"is_active"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (r *categoryRecord) ToCategory() *models.Category {
	return &models.Category{
		ID:          r.ID,
		Slug:        r.Slug,
		Name:        r.Name,
		Description: r.Description,
		IsActive:    r.IsActive,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

type CategoryRepository struct {
	db *sqlx.DB
}

func NewCategoryRepository(db *sqlx.DB) *CategoryRepository {
	return &CategoryRepository{
		db: db,
	}
}

func (r *CategoryRepository) Create(ctx context.Context, category *models.Category) (*models.Category, error) {
	const op = "database.postgres.CategoryRepository.Create"

	rec := new(categoryRecord)
	query := `INSERT INTO categories(slug, name, description, is_active)
		VALUES ($1, $2, $3, $4)
		RETURNING *`

	err := r.db.GetContext(ctx, rec, query,
		category.Slug, category.Name, category.Description, category.IsActive)
	if err != nil {
		if isUniqueViolationError(err) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrSlugExists)
		}

		return nil, fmt.Errorf("%s: failed to create category record: %w", op, err)
	}

	return rec.ToCategory(), nil
}

func (r *CategoryRepository) GetBySlug(ctx context.Context, slug string) (*models.Category, error) {
	const op = "database.postgres.CategoryRepository.GetBySlug"

	rec := new(categoryRecord)
	query := `SELECT * FROM categories WHERE slug = $1`

	err := r.db.GetContext(ctx, rec, query, slug)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%s: %w", op, database.ErrCategoryNotFound)
		}

		return nil, fmt.Errorf("%s: failed to get category record: %w", op, err)
	}

	return rec.ToCategory(), nil
}

func (r *CategoryRepository) Update(ctx context.Context, category *models.Category) (*models.Category, error) {
	const op = "database.postgres.CategoryRepository.Update"

	rec := new(categoryRecord)
	query := `UPDATE categories
		SET slug = $1, name = $2, description = $3, is_active = $4,
			updated_at = now()
		WHERE id = $5
		RETURNING *`

	err := r.db.GetContext(ctx, rec, query,
		category.Slug, category.Name, category.Description, category.IsActive, category.ID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%s: %w", op, database.ErrCategoryNotFound)
		}
		if isUniqueViolationError(err) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrSlugExists)
		}

		return nil, fmt.Errorf("%s: failed to update category record: %w", op, err)
	}

	return rec.ToCategory(), nil
}

func (r *CategoryRepository) Delete(ctx context.Context, id int64) error {
	const op = "database.postgres.CategoryRepository.Delete"

	res, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%s: failed to delete category record: %w", op, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: failed to get affected rows: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, database.ErrCategoryNotFound)
	}

	return nil
}

func (r *CategoryRepository) List(ctx context.Context) ([]*models.Category, error) {
	const op = "database.postgres.CategoryRepository.List"

	var recs []categoryRecord
	query := `SELECT * FROM categories WHERE is_active = true ORDER BY name ASC`

	if err := r.db.SelectContext(ctx, &recs, query); err != nil {
		return nil, fmt.Errorf("%s: failed to list categories: %w", op, err)
	}

	categories := make([]*models.Category, len(recs))
	for i := range recs {
		categories[i] = recs[i].ToCategory()
	}

	return categories, nil
}

func (r *CategoryRepository) SlugTaken(ctx context.Context, slug string) (bool, error) {
	const op = "database.postgres.CategoryRepository.SlugTaken"

	var taken bool
	query := `SELECT EXISTS (SELECT 1 FROM categories WHERE slug = $1)`

	if err := r.db.GetContext(ctx, &taken, query, slug); err != nil {
		return false, fmt.Errorf("%s: failed to check slug: %w", op, err)
	}

	return taken, nil
}
