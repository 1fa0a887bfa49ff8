package cache

import (
	"time"

	"github.com/goliatone/go-feedvault/internal/cacheinfra"
	"github.com/redis/go-redis/v9"
)

// Config exposes in-process cache options for consumers of the cache package.
type Config struct {
	Capacity           int
	NumShards          int
	TTL                time.Duration
	EvictionPercentage int
	EvictionInterval   time.Duration
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() Config {
	return convertFromInternal(cacheinfra.DefaultConfig())
}

// Validate checks whether the configuration values are valid.
func (c Config) Validate() error {
	return c.toInternal().Validate()
}

// NewMemoryStore constructs the in-process store backed by sturdyc.
func NewMemoryStore[T any](cfg Config) (Store[T], error) {
	s, err := cacheinfra.NewSturdycStore[T](cfg.toInternal())
	if err != nil {
		return nil, err
	}
	return s, nil
}

// RedisConfig configures the redis backed store.
type RedisConfig struct {
	// Prefix is prepended to every key.
	Prefix string
	// Expiration is applied to every write. Zero keeps entries until evicted
	// by the redis server policy.
	Expiration time.Duration
}

// NewRedisStore constructs a store over a redis client.
func NewRedisStore[T any](client redis.UniversalClient, cfg RedisConfig) Store[T] {
	return cacheinfra.NewRedisStore[T](client, cfg.Prefix, cfg.Expiration)
}

func (c Config) toInternal() cacheinfra.Config {
	return cacheinfra.Config{
		Capacity:           c.Capacity,
		NumShards:          c.NumShards,
		TTL:                c.TTL,
		EvictionPercentage: c.EvictionPercentage,
		EvictionInterval:   c.EvictionInterval,
	}
}

func convertFromInternal(cfg cacheinfra.Config) Config {
	return Config{
		Capacity:           cfg.Capacity,
		NumShards:          cfg.NumShards,
		TTL:                cfg.TTL,
		EvictionPercentage: cfg.EvictionPercentage,
		EvictionInterval:   cfg.EvictionInterval,
	}
}
