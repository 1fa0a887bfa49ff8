package cache

import (
	"context"
	"strconv"
)

// Store is the key/value contract the feed cache is built on.
// Get reports a miss with ok == false and a nil error.
type Store[T any] interface {
	Get(ctx context.Context, key string) (value T, ok bool, err error)
	Set(ctx context.Context, key string, value T) error
}

// FeedKey returns the cache key for an internal feed id.
func FeedKey(id int64) string {
	return strconv.FormatInt(id, 10)
}
