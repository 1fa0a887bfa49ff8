package repositorycache

import (
	"context"
	"log/slog"

	"github.com/goliatone/go-feedvault/cache"
	"github.com/goliatone/go-feedvault/metrics"
	"github.com/goliatone/go-feedvault/store"
	"golang.org/x/sync/singleflight"
)

// FeedReader is the source of truth the cache falls back to.
type FeedReader interface {
	GetByID(ctx context.Context, id int64) (store.Feed, error)
}

// FeedCache puts a cache-aside layer in front of feed attribute lookups.
type FeedCache struct {
	base   FeedReader
	cache  cache.Store[store.Feed]
	group  singleflight.Group
	logger *slog.Logger
}

// New creates a FeedCache over base and cacheStore.
func New(base FeedReader, cacheStore cache.Store[store.Feed], logger *slog.Logger) *FeedCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &FeedCache{
		base:   base,
		cache:  cacheStore,
		logger: logger,
	}
}

// Lookup returns the feed with id, from the cache when present. A miss reads
// the store but does not populate the cache; only Refresh writes entries.
// Concurrent misses for the same id share one store read.
func (c *FeedCache) Lookup(ctx context.Context, id int64) (store.Feed, error) {
	key := cache.FeedKey(id)

	feed, ok, err := c.cache.Get(ctx, key)
	switch {
	case err != nil:
		metrics.RecordCacheLookup(metrics.CacheError)
		c.logger.WarnContext(ctx, "Feed cache read failed, falling back to store",
			"error", err,
			"feedID", id)
	case ok:
		metrics.RecordCacheLookup(metrics.CacheHit)
		return feed, nil
	default:
		metrics.RecordCacheLookup(metrics.CacheMiss)
	}

	// the shared read outlives any single caller's cancellation
	v, err, _ := c.group.Do(key, func() (any, error) {
		return c.base.GetByID(context.WithoutCancel(ctx), id)
	})
	if err != nil {
		return store.Feed{}, err
	}

	return v.(store.Feed), nil
}

// Refresh overwrites the cached entry for feed. Call it only after the write
// that produced feed has committed. A failed refresh is logged and counted;
// the committed write stands.
func (c *FeedCache) Refresh(ctx context.Context, feed store.Feed) {
	if err := c.cache.Set(ctx, cache.FeedKey(feed.ID), feed); err != nil {
		metrics.RecordCacheRefreshFailure()
		c.logger.ErrorContext(ctx, "Failed to refresh feed cache",
			"error", err,
			"feedID", feed.ID)
	}
}
