package di

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/goliatone/go-feedvault/cache"
	"github.com/goliatone/go-feedvault/config"
	"github.com/goliatone/go-feedvault/feed"
	"github.com/goliatone/go-feedvault/idcodec"
	"github.com/goliatone/go-feedvault/repositorycache"
	"github.com/goliatone/go-feedvault/store"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"
)

// Container owns the process wide feedvault components.
// It opens the database and the cache backend described by the config
// and builds the feed service over them.
type Container struct {
	config     config.Config
	db         *bun.DB
	redis      *redis.Client
	store      *store.Store
	codec      *idcodec.Codec
	cacheStore cache.Store[store.Feed]
	feedCache  *repositorycache.FeedCache
	service    *feed.Service
}

// NewContainer wires every component from cfg. The schema is created when
// missing. Call Close to release the database and redis connections.
func NewContainer(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Container, error) {
	if logger == nil {
		logger = slog.Default()
	}

	codec, err := idcodec.New([]byte(cfg.IDSecret))
	if err != nil {
		return nil, fmt.Errorf("create id codec: %w", err)
	}

	db, err := store.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, err
	}

	c := &Container{
		config: cfg,
		db:     db,
		codec:  codec,
		store:  store.New(db, logger.With("component", "store")),
	}

	if err := c.store.CreateSchema(ctx); err != nil {
		return nil, errors.Join(err, c.Close())
	}

	if err := c.initCache(ctx); err != nil {
		return nil, errors.Join(err, c.Close())
	}

	c.feedCache = repositorycache.New(c.store, c.cacheStore, logger.With("component", "cache"))
	c.service = feed.New(c.store, c.feedCache, c.codec,
		feed.WithLogger(logger.With("component", "feed")),
	)

	logger.InfoContext(ctx, "Container ready",
		"driver", cfg.Database.Driver,
		"cacheBackend", cfg.Cache.Backend)

	return c, nil
}

func (c *Container) initCache(ctx context.Context) error {
	switch c.config.Cache.Backend {
	case config.BackendRedis:
		opts, err := redis.ParseURL(c.config.Cache.RedisURL)
		if err != nil {
			return fmt.Errorf("parse redis url: %w", err)
		}

		c.redis = redis.NewClient(opts)
		if err := c.redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("ping redis: %w", err)
		}

		c.cacheStore = cache.NewRedisStore[store.Feed](c.redis, c.config.Cache.Redis())
		return nil

	default:
		mem, err := cache.NewMemoryStore[store.Feed](c.config.Cache.Memory())
		if err != nil {
			return fmt.Errorf("create memory cache: %w", err)
		}
		c.cacheStore = mem
		return nil
	}
}

// Config returns the configuration the container was built from.
func (c *Container) Config() config.Config {
	return c.config
}

// DB returns the database handle.
func (c *Container) DB() *bun.DB {
	return c.db
}

// Store returns the feed store.
func (c *Container) Store() *store.Store {
	return c.store
}

// Codec returns the identifier codec.
func (c *Container) Codec() *idcodec.Codec {
	return c.codec
}

// CacheStore returns the backend the feed cache writes to.
func (c *Container) CacheStore() cache.Store[store.Feed] {
	return c.cacheStore
}

// FeedService returns the feed service.
func (c *Container) FeedService() *feed.Service {
	return c.service
}

// Close releases the redis client and the database.
func (c *Container) Close() error {
	var errs []error
	if c.redis != nil {
		if err := c.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if c.db != nil {
		if err := c.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}
	return errors.Join(errs...)
}
