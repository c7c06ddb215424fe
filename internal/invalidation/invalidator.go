// Package invalidation propagates catalog mutations into the derived
// cache. It owns cache-key derivation and evicts the closed set of keys
// a mutation can make stale, so stale listings never outlive the write
// that changed them.
package invalidation

import (
	"context"
	"log/slog"
	"time"

	"github.com/coupradise/catalog/internal/cache"
	"github.com/coupradise/catalog/internal/models"
)

const (
	defaultAttempts  = 3
	defaultBaseDelay = 100 * time.Millisecond
)

// Invalidator evicts derived-cache keys in response to mutation events.
type Invalidator struct {
	store     cache.Store
	logger    *slog.Logger
	attempts  int
	baseDelay time.Duration
}

type Option func(*Invalidator)

// WithAttempts overrides the eviction retry ceiling.
func WithAttempts(n int) Option {
	return func(i *Invalidator) {
		i.attempts = n
	}
}

// WithBaseDelay overrides the first backoff delay.
func WithBaseDelay(d time.Duration) Option {
	return func(i *Invalidator) {
		i.baseDelay = d
	}
}

// New creates an Invalidator over the given cache store.
func New(store cache.Store, logger *slog.Logger, opts ...Option) *Invalidator {
	inv := &Invalidator{
		store:     store,
		logger:    logger,
		attempts:  defaultAttempts,
		baseDelay: defaultBaseDelay,
	}

	for _, opt := range opts {
		opt(inv)
	}

	return inv
}

// OnMutation evicts every cache key the event can make stale. Eviction is
// retried with exponential backoff; if the cache store stays unreachable
// the event is logged as a cache-staleness incident and dropped. The
// source of truth has already committed, so cache freshness is the only
// thing at risk and no error reaches the mutation's caller.
//
// The eviction runs on a context detached from caller cancellation: the
// obligation to invalidate survives the HTTP request that caused the write.
func (i *Invalidator) OnMutation(ctx context.Context, e models.MutationEvent) {
	const op = "invalidation.Invalidator.OnMutation"

	ctx = context.WithoutCancel(ctx)
	keys := Keys(e)

	var err error
	delay := i.baseDelay

	for attempt := 0; attempt < i.attempts; attempt++ {
		if attempt > 0 {
			time.Sleep(delay)
			delay *= 2
		}

		if err = i.store.Delete(ctx, keys...); err == nil {
			return
		}
	}

	i.logger.Error(
		"cache staleness incident: evictions dropped after retries",
		slog.String("op", op),
		slog.String("entity", string(e.Entity)),
		slog.String("mutation", string(e.Type)),
		slog.Any("keys", keys),
		slog.Any("err", err),
	)
}
