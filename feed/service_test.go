package feed_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-feedvault/feed"
	"github.com/goliatone/go-feedvault/idcodec"
	"github.com/goliatone/go-feedvault/pkg/testsupport"
	"github.com/goliatone/go-feedvault/repositorycache"
	"github.com/goliatone/go-feedvault/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateFeed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	opaqueID, err := f.svc.CreateFeed(ctx, attrs("diary", tomorrow), 1)
	require.NoError(t, err)
	feedID := f.decode(t, opaqueID)

	assert.Equal(t, []int64{1}, f.members(t, feedID))

	user, err := f.store.GetUser(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, user.LastVisitedFeedID)
	assert.Equal(t, feedID, *user.LastVisitedFeedID)

	cached, ok := f.cached(t, feedID)
	require.True(t, ok, "expected committed feed to be cached")
	assert.Equal(t, "diary", cached.Name)
	assert.False(t, cached.IsGroupFeed)
}

func TestCreateFeed_CachedDueDateMatchesStored(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	due := tomorrow.Add(123456789 * time.Nanosecond)
	opaqueID, err := f.svc.CreateFeed(ctx, attrs("diary", due), 1)
	require.NoError(t, err)
	feedID := f.decode(t, opaqueID)

	stored, err := f.store.GetByID(ctx, feedID)
	require.NoError(t, err)
	cached, ok := f.cached(t, feedID)
	require.True(t, ok)

	assert.True(t, cached.DueDate.Equal(stored.DueDate),
		"cached %v, stored %v", cached.DueDate, stored.DueDate)
	assert.Zero(t, cached.DueDate.Nanosecond()%int(time.Microsecond))
}

func TestCreateFeed_InvalidAttrs(t *testing.T) {
	tests := []struct {
		name  string
		attrs feed.Attrs
		field string
	}{
		{"missing name", attrs("", tomorrow), "Name"},
		{"name too long", attrs(string(make([]rune, 101)), tomorrow), "Name"},
		{"missing due date", feed.Attrs{Name: "diary"}, "DueDate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			_, err := f.svc.CreateFeed(context.Background(), tt.attrs, 1)
			require.ErrorIs(t, err, feed.ErrInvalidAttrs)

			var verrs validation.Errors
			require.True(t, errors.As(err, &verrs), "expected validation.Errors, got %T", err)
			assert.Contains(t, verrs, tt.field)
			assert.Zero(t, f.hook.mutations())
		})
	}
}

func TestCreateFeed_UnknownOwnerRollsBack(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateFeed(context.Background(), attrs("diary", tomorrow), 99)
	require.ErrorIs(t, err, store.ErrInvalidFKConstraint)

	assert.Zero(t, f.countFeeds(t))
	_, ok := f.cached(t, 1)
	assert.False(t, ok)
}

func TestCreateGroupFeed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	opaqueID, err := f.svc.CreateGroupFeed(ctx, attrs("team", tomorrow), []int64{1, 2})
	require.NoError(t, err)
	require.NotEmpty(t, opaqueID)

	feedID := f.decode(t, opaqueID)
	assert.Equal(t, []int64{1, 2}, f.members(t, feedID))

	cached, ok := f.cached(t, feedID)
	require.True(t, ok)
	assert.True(t, cached.IsGroupFeed)
}

func TestCreateGroupFeed_MemberCount(t *testing.T) {
	tooMany := make([]int64, feed.MaxGroupMembers+1)
	for i := range tooMany {
		tooMany[i] = int64(i + 1)
	}

	tests := []struct {
		name    string
		members []int64
	}{
		{"none", nil},
		{"single", []int64{1}},
		{"duplicated single", []int64{1, 1}},
		{"too many", tooMany},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			_, err := f.svc.CreateGroupFeed(context.Background(), attrs("team", tomorrow), tt.members)
			require.ErrorIs(t, err, feed.ErrGroupFeedMembersCount)
			assert.Zero(t, f.hook.mutations(), "no writes may happen before the count check")
		})
	}
}

func TestCreateGroupFeed_UnknownMemberRollsBack(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateGroupFeed(context.Background(), attrs("team", tomorrow), []int64{1, 99})
	require.ErrorIs(t, err, store.ErrInvalidFKConstraint)

	assert.Zero(t, f.countFeeds(t), "feed row must not survive the rollback")
	_, ok := f.cached(t, 1)
	assert.False(t, ok, "rolled back feed must not be cached")
}

func TestEditFeed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	opaqueID, err := f.svc.CreateFeed(ctx, attrs("diary", tomorrow), 1)
	require.NoError(t, err)
	feedID := f.decode(t, opaqueID)

	require.NoError(t, f.svc.EditFeed(ctx, attrs("journal", yesterday), opaqueID))

	stored, err := f.store.GetByID(ctx, feedID)
	require.NoError(t, err)
	assert.Equal(t, "journal", stored.Name)
	assert.True(t, stored.DueDate.Equal(yesterday))
	assert.False(t, stored.IsGroupFeed)

	cached, ok := f.cached(t, feedID)
	require.True(t, ok)
	assert.Equal(t, "journal", cached.Name)
	assert.True(t, cached.DueDate.Equal(yesterday))

	assert.Equal(t, []int64{1}, f.members(t, feedID))
}

func TestEditFeed_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.svc.EditFeed(ctx, attrs("journal", tomorrow), f.codec.Encode(999))
	require.ErrorIs(t, err, store.ErrNonExistFeed)

	err = f.svc.EditFeed(ctx, attrs("journal", tomorrow), "garbage")
	require.ErrorIs(t, err, idcodec.ErrInvalidIdentifier)
}

func TestEditGroupFeed_AddsOneMember(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	opaqueID, err := f.svc.CreateGroupFeed(ctx, attrs("team", tomorrow), []int64{1, 2})
	require.NoError(t, err)
	feedID := f.decode(t, opaqueID)

	f.hook.reset()
	require.NoError(t, f.svc.EditGroupFeed(ctx, attrs("crew", tomorrow), opaqueID, []int64{1, 2, 3}))

	inserts, deletes := f.hook.membershipWrites()
	assert.Equal(t, 1, inserts)
	assert.Equal(t, 0, deletes)
	assert.Equal(t, []int64{1, 2, 3}, f.members(t, feedID))

	cached, ok := f.cached(t, feedID)
	require.True(t, ok)
	assert.Equal(t, "crew", cached.Name)
	assert.True(t, cached.IsGroupFeed)
}

func TestEditGroupFeed_Reconciles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	opaqueID, err := f.svc.CreateGroupFeed(ctx, attrs("team", tomorrow), []int64{1, 2, 3})
	require.NoError(t, err)
	feedID := f.decode(t, opaqueID)

	f.hook.reset()
	require.NoError(t, f.svc.EditGroupFeed(ctx, attrs("team", tomorrow), opaqueID, []int64{2, 4, 4}))

	inserts, deletes := f.hook.membershipWrites()
	assert.Equal(t, 1, inserts)
	assert.Equal(t, 2, deletes)
	assert.Equal(t, []int64{2, 4}, f.members(t, feedID))

	f.hook.reset()
	require.NoError(t, f.svc.EditGroupFeed(ctx, attrs("team", tomorrow), opaqueID, []int64{4, 2}))

	inserts, deletes = f.hook.membershipWrites()
	assert.Zero(t, inserts+deletes, "reconciling to the same set must not write memberships")
	assert.Equal(t, []int64{2, 4}, f.members(t, feedID))
}

func TestEditGroupFeed_MemberCount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	opaqueID, err := f.svc.CreateGroupFeed(ctx, attrs("team", tomorrow), []int64{1, 2})
	require.NoError(t, err)

	f.hook.reset()
	err = f.svc.EditGroupFeed(ctx, attrs("crew", tomorrow), opaqueID, []int64{1})
	require.ErrorIs(t, err, feed.ErrGroupFeedMembersCount)
	assert.Zero(t, f.hook.mutations())
}

func TestEditGroupFeed_PersonalFeed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	opaqueID, err := f.svc.CreateFeed(ctx, attrs("diary", tomorrow), 1)
	require.NoError(t, err)
	feedID := f.decode(t, opaqueID)

	err = f.svc.EditGroupFeed(ctx, attrs("hijack", tomorrow), opaqueID, []int64{1, 2})
	require.ErrorIs(t, err, feed.ErrNotGroupFeed)

	stored, err := f.store.GetByID(ctx, feedID)
	require.NoError(t, err)
	assert.Equal(t, "diary", stored.Name)
	assert.Equal(t, []int64{1}, f.members(t, feedID))
}

func TestEditGroupFeed_UnknownMemberRollsBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	opaqueID, err := f.svc.CreateGroupFeed(ctx, attrs("team", tomorrow), []int64{1, 2})
	require.NoError(t, err)
	feedID := f.decode(t, opaqueID)

	err = f.svc.EditGroupFeed(ctx, attrs("crew", tomorrow), opaqueID, []int64{3, 99})
	require.ErrorIs(t, err, store.ErrInvalidFKConstraint)

	stored, err := f.store.GetByID(ctx, feedID)
	require.NoError(t, err)
	assert.Equal(t, "team", stored.Name, "attribute update must roll back with the membership change")
	assert.Equal(t, []int64{1, 2}, f.members(t, feedID))

	cached, ok := f.cached(t, feedID)
	require.True(t, ok)
	assert.Equal(t, "team", cached.Name)
}

func TestEditGroupFeed_NonExistFeed(t *testing.T) {
	f := newFixture(t)

	err := f.svc.EditGroupFeed(context.Background(), attrs("crew", tomorrow), f.codec.Encode(999), []int64{1, 2})
	require.ErrorIs(t, err, store.ErrNonExistFeed)
}

func TestEditGroupFeed_ConcurrentEditsOfOneFeed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	opaqueID, err := f.svc.CreateGroupFeed(ctx, attrs("team", tomorrow), []int64{1, 2})
	require.NoError(t, err)
	feedID := f.decode(t, opaqueID)

	sets := [][]int64{
		{1, 2, 3},
		{2, 4},
		{1, 5},
		{3, 4, 5},
		{1, 2, 3, 4, 5},
	}

	var wg sync.WaitGroup
	errs := make(chan error, len(sets))
	for i, set := range sets {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- f.svc.EditGroupFeed(ctx, attrs(fmt.Sprintf("team-%d", i), tomorrow), opaqueID, set)
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	got := f.members(t, feedID)
	assert.Contains(t, sets, got, "final membership must equal one submitted set")
}

// slowRefreshCache holds back the refresh of one feed name until released
type slowRefreshCache struct {
	feed.Cache
	slowName string
	delay    time.Duration
	entered  chan struct{}
}

func (c *slowRefreshCache) Refresh(ctx context.Context, f store.Feed) {
	if f.Name == c.slowName {
		close(c.entered)
		time.Sleep(c.delay)
	}
	c.Cache.Refresh(ctx, f)
}

func TestEdits_RefreshCacheInCommitOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	slow := &slowRefreshCache{
		Cache:    repositorycache.New(f.store, f.cache, testsupport.Logger()),
		slowName: "first",
		delay:    300 * time.Millisecond,
		entered:  make(chan struct{}),
	}
	svc := feed.New(f.store, slow, f.codec,
		feed.WithLogger(testsupport.Logger()),
		feed.WithClock(func() time.Time { return now }),
	)

	opaqueID, err := svc.CreateGroupFeed(ctx, attrs("team", tomorrow), []int64{1, 2})
	require.NoError(t, err)
	feedID := f.decode(t, opaqueID)

	firstDone := make(chan error, 1)
	go func() {
		firstDone <- svc.EditFeed(ctx, attrs("first", tomorrow), opaqueID)
	}()

	<-slow.entered
	require.NoError(t, svc.EditGroupFeed(ctx, attrs("second", tomorrow), opaqueID, []int64{1, 2, 3}))
	require.NoError(t, <-firstDone)

	stored, err := f.store.GetByID(ctx, feedID)
	require.NoError(t, err)
	require.Equal(t, "second", stored.Name)

	cached, ok := f.cached(t, feedID)
	require.True(t, ok)
	assert.Equal(t, stored.Name, cached.Name, "cache must hold the last committed write")

	info, err := svc.GetFeedInfo(ctx, opaqueID, 1)
	require.NoError(t, err)
	assert.Equal(t, "second", info.Name)
}
