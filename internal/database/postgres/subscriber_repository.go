package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/coupradise/catalog/internal/database"
	"github.com/coupradise/catalog/internal/models"
	"github.com/jmoiron/sqlx"
)

type subscriberRecord struct {
	ID           int64     `db:"id"`
	Email        string    `db:"email"`
	IsActive     bool      `db:"is_active"`
	SubscribedAt time.Time `db:"subscribed_at"`
}

func (r *subscriberRecord) ToSubscriber() *models.Subscriber {
	return &models.Subscriber{
		ID:           r.ID,
		Email:        r.Email,
		IsActive:     r.IsActive,
		SubscribedAt: r.SubscribedAt,
	}
}

type SubscriberRepository struct {
	db *sqlx.DB
}

func NewSubscriberRepository(db *sqlx.DB) *SubscriberRepository {
	return &SubscriberRepository{
		db: db,
	}
}

// Subscribe inserts a new subscriber. The unique index on email makes a
// repeated subscription surface as database.ErrSubscriberExists.
func (r *SubscriberRepository) Subscribe(ctx context.Context, email string) (*models.Subscriber, error) {
	const op = "database.postgres.SubscriberRepository.Subscribe"

	rec := new(subscriberRecord)
	query := `INSERT INTO newsletter_subscribers(email)
		VALUES ($1)
		RETURNING *`

	err := r.db.GetContext(ctx, rec, query, email)
	if err != nil {
		if isUniqueViolationError(err) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrSubscriberExists)
		}

		return nil, fmt.Errorf("%s: failed to create subscriber record: %w", op, err)
	}

	return rec.ToSubscriber(), nil
}

// Unsubscribe deactivates the subscription instead of deleting it, so a
// resubscribe keeps the original subscription date.
func (r *SubscriberRepository) Unsubscribe(ctx context.Context, email string) error {
	const op = "database.postgres.SubscriberRepository.Unsubscribe"

	res, err := r.db.ExecContext(ctx,
		`UPDATE newsletter_subscribers SET is_active = false WHERE email = $1`, email)
	if err != nil {
		return fmt.Errorf("%s: failed to update subscriber record: %w", op, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: failed to get affected rows: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, database.ErrSubscriberNotFound)
	}

	return nil
}
