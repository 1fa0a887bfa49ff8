package feed_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-feedvault/cache"
	"github.com/goliatone/go-feedvault/feed"
	"github.com/goliatone/go-feedvault/idcodec"
	"github.com/goliatone/go-feedvault/pkg/testsupport"
	"github.com/goliatone/go-feedvault/repositorycache"
	"github.com/goliatone/go-feedvault/store"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

var (
	now       = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	yesterday = now.AddDate(0, 0, -1)
	tomorrow  = now.AddDate(0, 0, 1)
)

// mutationHook records every write statement sent to the database
type mutationHook struct {
	mu      sync.Mutex
	queries []string
}

func (h *mutationHook) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

func (h *mutationHook) AfterQuery(_ context.Context, event *bun.QueryEvent) {
	q := strings.TrimSpace(event.Query)
	upper := strings.ToUpper(q)
	if !strings.HasPrefix(upper, "INSERT") &&
		!strings.HasPrefix(upper, "UPDATE") &&
		!strings.HasPrefix(upper, "DELETE") {
		return
	}

	h.mu.Lock()
	h.queries = append(h.queries, q)
	h.mu.Unlock()
}

func (h *mutationHook) reset() {
	h.mu.Lock()
	h.queries = nil
	h.mu.Unlock()
}

func (h *mutationHook) mutations() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.queries)
}

// membershipWrites counts INSERT and DELETE statements on user_feed_mapping
func (h *mutationHook) membershipWrites() (inserts, deletes int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, q := range h.queries {
		if !strings.Contains(q, "user_feed_mapping") {
			continue
		}
		switch {
		case strings.HasPrefix(strings.ToUpper(q), "INSERT"):
			inserts++
		case strings.HasPrefix(strings.ToUpper(q), "DELETE"):
			deletes++
		}
	}
	return inserts, deletes
}

type fixture struct {
	svc   *feed.Service
	store *store.Store
	cache cache.Store[store.Feed]
	codec *idcodec.Codec
	hook  *mutationHook
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	st := testsupport.NewStore(t)
	hook := &mutationHook{}
	st.DB().AddQueryHook(hook)

	mem, err := cache.NewMemoryStore[store.Feed](cache.DefaultConfig())
	require.NoError(t, err)

	codec, err := idcodec.New([]byte("feedvault-test-secret-0123456789"))
	require.NoError(t, err)

	svc := feed.New(st, repositorycache.New(st, mem, testsupport.Logger()), codec,
		feed.WithLogger(testsupport.Logger()),
		feed.WithClock(func() time.Time { return now }),
	)

	return &fixture{
		svc:   svc,
		store: st,
		cache: mem,
		codec: codec,
		hook:  hook,
	}
}

func attrs(name string, due time.Time) feed.Attrs {
	return feed.Attrs{
		Name:        name,
		Thumbnail:   name + ".png",
		Description: "about " + name,
		DueDate:     due,
	}
}

func (f *fixture) decode(t *testing.T, opaqueID string) int64 {
	t.Helper()

	id, err := f.codec.Decode(opaqueID)
	require.NoError(t, err)
	return id
}

func (f *fixture) members(t *testing.T, feedID int64) []int64 {
	t.Helper()

	ids, err := f.store.ListMembers(context.Background(), feedID)
	require.NoError(t, err)
	return ids
}

func (f *fixture) cached(t *testing.T, feedID int64) (store.Feed, bool) {
	t.Helper()

	got, ok, err := f.cache.Get(context.Background(), cache.FeedKey(feedID))
	require.NoError(t, err)
	return got, ok
}

func (f *fixture) countFeeds(t *testing.T) int {
	t.Helper()

	n, err := f.store.DB().NewSelect().Model((*store.Feed)(nil)).Count(context.Background())
	require.NoError(t, err)
	return n
}
