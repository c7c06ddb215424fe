package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store on top of a Redis client.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore wraps the given Redis client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	const op = "cache.RedisStore.Get"

	val, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%s: %w", op, ErrCacheMiss)
		}

		return nil, fmt.Errorf("%s: failed to get key: %w", op, err)
	}

	return val, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	const op = "cache.RedisStore.Set"

	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("%s: failed to set key: %w", op, err)
	}

	return nil
}

func (s *RedisStore) Delete(ctx context.Context, keys ...string) error {
	const op = "cache.RedisStore.Delete"

	if len(keys) == 0 {
		return nil
	}

	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%s: failed to delete keys: %w", op, err)
	}

	return nil
}
