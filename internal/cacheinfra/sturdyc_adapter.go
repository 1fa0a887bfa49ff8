package cacheinfra

import (
	"context"
	"time"

	"github.com/viccon/sturdyc"
)

// Config holds the configuration for the sturdyc cache adapter.
type Config struct {
	// Capacity defines the maximum number of entries that the cache can store.
	// Must be greater than 0.
	Capacity int

	// NumShards determines the number of cache shards for concurrent access.
	// Must be greater than 0. Default: 256
	NumShards int

	// TTL is how long sturdyc keeps an entry. Feed entries are overwritten on
	// every write, so this only bounds memory held by idle feeds.
	// Must be greater than 0.
	TTL time.Duration

	// EvictionPercentage specifies what percentage of entries to evict
	// when the cache reaches its capacity. Must be between 1-100.
	EvictionPercentage int

	// EvictionInterval sets how often the cache checks for expired entries.
	// Zero value uses the default interval.
	EvictionInterval time.Duration
}

// DefaultConfig returns a Config with sensible defaults for most use cases.
func DefaultConfig() Config {
	return Config{
		Capacity:           10000,
		NumShards:          256,
		TTL:                24 * time.Hour,
		EvictionPercentage: 10,
		EvictionInterval:   0, // Use default
	}
}

// ToSturdycOptions converts the optional parts of Config to sturdyc options.
// Capacity, NumShards, TTL, and EvictionPercentage are passed directly
// to sturdyc.New().
func (c Config) ToSturdycOptions() []sturdyc.Option {
	var options []sturdyc.Option

	if c.EvictionInterval > 0 {
		options = append(options, sturdyc.WithEvictionInterval(c.EvictionInterval))
	}

	return options
}

// Validate checks if the configuration values are valid.
func (c Config) Validate() error {
	if c.Capacity <= 0 {
		return &ConfigError{Field: "Capacity", Message: "must be greater than 0"}
	}

	if c.NumShards <= 0 {
		return &ConfigError{Field: "NumShards", Message: "must be greater than 0"}
	}

	if c.TTL <= 0 {
		return &ConfigError{Field: "TTL", Message: "must be greater than 0"}
	}

	if c.EvictionPercentage < 1 || c.EvictionPercentage > 100 {
		return &ConfigError{Field: "EvictionPercentage", Message: "must be between 1 and 100"}
	}

	if c.EvictionInterval < 0 {
		return &ConfigError{Field: "EvictionInterval", Message: "must be non-negative"}
	}

	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "config error in field " + e.Field + ": " + e.Message
}

// SturdycStore is an in-process key/value store over a sturdyc client.
type SturdycStore[T any] struct {
	client *sturdyc.Client[T]
}

// NewSturdycStore validates cfg and initializes a sturdyc client with it.
func NewSturdycStore[T any](cfg Config) (*SturdycStore[T], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := sturdyc.New[T](
		cfg.Capacity,
		cfg.NumShards,
		cfg.TTL,
		cfg.EvictionPercentage,
		cfg.ToSturdycOptions()...,
	)

	return &SturdycStore[T]{client: client}, nil
}

// Get returns the cached value for key.
func (s *SturdycStore[T]) Get(ctx context.Context, key string) (T, bool, error) {
	value, ok := s.client.Get(key)
	return value, ok, nil
}

// Set stores value under key, replacing any previous entry.
func (s *SturdycStore[T]) Set(ctx context.Context, key string, value T) error {
	s.client.Set(key, value)
	return nil
}

