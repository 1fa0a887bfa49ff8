package cacheinfra

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
)

// RedisStore is a shared key/value store over redis. Values are msgpack encoded.
type RedisStore[T any] struct {
	client     redis.UniversalClient
	prefix     string
	expiration time.Duration
}

// NewRedisStore creates a store that namespaces keys with prefix. A zero
// expiration leaves entries without a TTL.
func NewRedisStore[T any](client redis.UniversalClient, prefix string, expiration time.Duration) *RedisStore[T] {
	return &RedisStore[T]{
		client:     client,
		prefix:     prefix,
		expiration: expiration,
	}
}

// Get returns the cached value for key. A missing key is a miss, not an error.
func (s *RedisStore[T]) Get(ctx context.Context, key string) (T, bool, error) {
	var zero T

	raw, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, fmt.Errorf("redis get %s: %w", key, err)
	}

	var value T
	if err := msgpack.Unmarshal(raw, &value); err != nil {
		return zero, false, fmt.Errorf("decode cached value %s: %w", key, err)
	}

	return value, true, nil
}

// Set stores value under key, replacing any previous entry.
func (s *RedisStore[T]) Set(ctx context.Context, key string, value T) error {
	raw, err := msgpack.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cached value %s: %w", key, err)
	}

	if err := s.client.Set(ctx, s.prefix+key, raw, s.expiration).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

