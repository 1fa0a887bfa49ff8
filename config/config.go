// Package config loads feedvault settings from the environment.
package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-feedvault/cache"
	"github.com/goliatone/go-feedvault/idcodec"
	"github.com/goliatone/go-feedvault/store"
	"github.com/redis/go-redis/v9"
)

// Prefix is prepended to every environment variable name.
const Prefix = "FEEDVAULT_"

// Cache backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config is the process configuration.
type Config struct {
	Database    DatabaseConfig `envPrefix:"DB_"`
	Cache       CacheConfig    `envPrefix:"CACHE_"`
	IDSecret    string         `env:"ID_SECRET,required,notEmpty"`
	MetricsAddr string         `env:"METRICS_ADDR" envDefault:":9090"`
	LogLevel    string         `env:"LOG_LEVEL"    envDefault:"info"`
}

// DatabaseConfig selects the relational store.
type DatabaseConfig struct {
	Driver string `env:"DRIVER" envDefault:"sqlite3"`
	DSN    string `env:"DSN"    envDefault:"file:feedvault.db?_foreign_keys=on&_busy_timeout=5000"`
}

// CacheConfig selects and sizes the feed cache.
type CacheConfig struct {
	Backend            string        `env:"BACKEND"             envDefault:"memory"`
	Capacity           int           `env:"CAPACITY"            envDefault:"10000"`
	NumShards          int           `env:"NUM_SHARDS"          envDefault:"256"`
	TTL                time.Duration `env:"TTL"                 envDefault:"24h"`
	EvictionPercentage int           `env:"EVICTION_PERCENTAGE" envDefault:"10"`
	EvictionInterval   time.Duration `env:"EVICTION_INTERVAL"`
	RedisURL           string        `env:"REDIS_URL"`
	RedisPrefix        string        `env:"REDIS_PREFIX"        envDefault:"feedvault:feed:"`
	RedisExpiration    time.Duration `env:"REDIS_EXPIRATION"    envDefault:"24h"`
}

// Load parses the environment and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: Prefix}); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks c and its sections.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Database),
		validation.Field(&c.Cache),
		validation.Field(&c.IDSecret, validation.Required, validation.Length(idcodec.MinSecretLength, 0)),
		validation.Field(&c.MetricsAddr, validation.Required),
		validation.Field(&c.LogLevel, validation.By(func(value any) error {
			var level slog.Level
			return level.UnmarshalText([]byte(value.(string)))
		})),
	)
}

// SlogLevel returns the parsed log level, or info when it does not parse.
func (c Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// Validate checks the driver and DSN.
func (d DatabaseConfig) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.Driver, validation.Required, validation.In(store.DriverSQLite, store.DriverPostgres)),
		validation.Field(&d.DSN, validation.Required),
	)
}

// Validate checks the backend and the settings it needs.
func (c CacheConfig) Validate() error {
	isRedis := c.Backend == BackendRedis

	return validation.ValidateStruct(&c,
		validation.Field(&c.Backend, validation.Required, validation.In(BackendMemory, BackendRedis)),
		validation.Field(&c.Capacity, validation.When(!isRedis, validation.Required, validation.Min(1))),
		validation.Field(&c.NumShards, validation.When(!isRedis, validation.Required, validation.Min(1))),
		validation.Field(&c.TTL, validation.When(!isRedis, validation.Required, validation.Min(time.Second))),
		validation.Field(&c.EvictionPercentage, validation.When(!isRedis, validation.Required, validation.Min(1), validation.Max(100))),
		validation.Field(&c.EvictionInterval, validation.Min(time.Duration(0))),
		validation.Field(&c.RedisURL, validation.When(isRedis, validation.Required, validation.By(parseRedisURL))),
		validation.Field(&c.RedisExpiration, validation.Min(time.Duration(0))),
	)
}

// Memory returns the in-process cache settings.
func (c CacheConfig) Memory() cache.Config {
	return cache.Config{
		Capacity:           c.Capacity,
		NumShards:          c.NumShards,
		TTL:                c.TTL,
		EvictionPercentage: c.EvictionPercentage,
		EvictionInterval:   c.EvictionInterval,
	}
}

// Redis returns the redis cache settings.
func (c CacheConfig) Redis() cache.RedisConfig {
	return cache.RedisConfig{
		Prefix:     c.RedisPrefix,
		Expiration: c.RedisExpiration,
	}
}

func parseRedisURL(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if _, err := redis.ParseURL(s); err != nil {
		return validation.NewError("validation_redis_url", err.Error())
	}
	return nil
}
