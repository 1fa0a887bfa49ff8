// Package cache defines the key/value contract used by the feed cache and
// constructs its backends.
//
// # Overview
//
// Store[T] has two methods, Get and Set, keyed by string. Keys are the
// decimal form of an internal feed id (see FeedKey). Expiry and eviction are
// properties of the backend configuration, not of callers.
//
// Two backends are provided:
//
//   - NewMemoryStore: an in-process sharded cache (sturdyc)
//   - NewRedisStore: a shared redis cache, values encoded with msgpack
//
// # Basic Usage
//
//	store, err := cache.NewMemoryStore[store.Feed](cache.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	err = store.Set(ctx, cache.FeedKey(feed.ID), feed)
//	cached, ok, err := store.Get(ctx, cache.FeedKey(feed.ID))
//
// # See Also
//
// The repositorycache package builds the feed cache-aside layer on top of Store.
package cache
