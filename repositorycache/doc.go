// Package repositorycache provides the cache-aside layer for feed lookups.
//
// # Overview
//
// FeedCache wraps a feed reader (normally *store.Store) and a cache.Store.
// Reads check the cache first and fall back to the reader on a miss. Writes
// never go through FeedCache: the feed service commits its transaction and
// then calls Refresh with the attributes it just wrote.
//
// # Caching Behavior
//
//  1. Check cache for the feed id
//  2. If cache hit, return cached feed
//  3. If cache miss, read the store (concurrent misses for one id are coalesced)
//  4. Return the stored feed without writing it to the cache
//
// Only committed writes populate the cache, so an entry always reflects a
// value that was durably stored. Cache read failures degrade to a miss.
//
// # Basic Usage
//
//	feeds := repositorycache.New(feedStore, cacheStore, logger)
//	feed, err := feeds.Lookup(ctx, id)
//
//	// after a successful commit
//	feeds.Refresh(ctx, updatedFeed)
package repositorycache
