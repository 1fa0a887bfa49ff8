// Package feed implements the feed management operations: creating and
// editing personal and group feeds, reading feed information, and gating
// posting routes on a feed's due date.
//
// Feeds are addressed by opaque identifiers on the way in and out. Writes run
// in a single transaction and refresh the feed cache only once committed.
package feed

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/goliatone/go-feedvault/guard"
	"github.com/goliatone/go-feedvault/membership"
	"github.com/goliatone/go-feedvault/store"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/uptrace/bun"
)

// Codec translates internal feed ids to opaque identifiers and back.
type Codec interface {
	Encode(id int64) string
	Decode(token string) (int64, error)
}

// Cache is the cache-aside view of feed attributes.
type Cache interface {
	Lookup(ctx context.Context, id int64) (store.Feed, error)
	Refresh(ctx context.Context, feed store.Feed)
}

// Service implements the feed operations.
type Service struct {
	store  *store.Store
	cache  Cache
	codec  Codec
	tx     *store.Coordinator
	guard  *guard.Guard
	locks  *xsync.MapOf[int64, *sync.Mutex]
	logger *slog.Logger
	now    func() time.Time
	txOpts *sql.TxOptions
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithClock replaces time.Now for due date decisions.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithTxOptions sets the options transactions are started with.
func WithTxOptions(opts *sql.TxOptions) Option {
	return func(s *Service) {
		s.txOpts = opts
	}
}

// New creates a Service.
func New(st *store.Store, cache Cache, codec Codec, opts ...Option) *Service {
	s := &Service{
		store:  st,
		cache:  cache,
		codec:  codec,
		locks:  xsync.NewMapOf[int64, *sync.Mutex](),
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.tx = store.NewCoordinator(st.DB(), s.logger, s.txOpts)
	s.guard = guard.New(s,
		guard.WithClock(s.now),
		guard.WithLogger(s.logger),
	)

	return s
}

// CreateFeed creates a personal feed owned by ownerID and records it as the
// owner's last visited feed.
func (s *Service) CreateFeed(ctx context.Context, attrs Attrs, ownerID int64) (string, error) {
	if err := validateAttrs(attrs); err != nil {
		return "", err
	}

	var created store.Feed
	err := s.tx.RunInTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		feed, err := s.store.InsertFeed(ctx, tx, attrs.toStore(), false)
		if err != nil {
			return err
		}
		if err := s.store.InsertMembership(ctx, tx, feed.ID, ownerID); err != nil {
			return err
		}
		if err := s.store.SetLastVisitedFeed(ctx, tx, ownerID, feed.ID); err != nil {
			return err
		}
		created = feed
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("create feed: %w", err)
	}

	s.cache.Refresh(ctx, created)
	s.logger.InfoContext(ctx, "Created personal feed",
		"feedID", created.ID,
		"ownerID", ownerID)

	return s.codec.Encode(created.ID), nil
}

// CreateGroupFeed creates a group feed with memberIDs as its members.
func (s *Service) CreateGroupFeed(ctx context.Context, attrs Attrs, memberIDs []int64) (string, error) {
	members, err := validateMembers(memberIDs)
	if err != nil {
		return "", err
	}
	if err := validateAttrs(attrs); err != nil {
		return "", err
	}

	var created store.Feed
	err = s.tx.RunInTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		feed, err := s.store.InsertFeed(ctx, tx, attrs.toStore(), true)
		if err != nil {
			return err
		}
		if err := membership.Apply(ctx, tx, s.store, feed.ID, membership.Delta{ToAdd: members}); err != nil {
			return err
		}
		created = feed
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("create group feed: %w", err)
	}

	s.cache.Refresh(ctx, created)
	s.logger.InfoContext(ctx, "Created group feed",
		"feedID", created.ID,
		"members", len(members))

	return s.codec.Encode(created.ID), nil
}

// EditFeed overwrites the attributes of the feed. Membership is untouched.
// Edits of the same feed are serialized through the cache refresh.
func (s *Service) EditFeed(ctx context.Context, attrs Attrs, opaqueID string) error {
	if err := validateAttrs(attrs); err != nil {
		return err
	}

	feedID, err := s.codec.Decode(opaqueID)
	if err != nil {
		return err
	}

	unlock := s.lockFeed(feedID)
	defer unlock()

	var updated store.Feed
	err = s.tx.RunInTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		if err := s.store.UpdateFeed(ctx, tx, feedID, attrs.toStore()); err != nil {
			return err
		}
		feed, err := s.store.GetByIDTx(ctx, tx, feedID)
		if err != nil {
			return err
		}
		updated = feed
		return nil
	})
	if err != nil {
		return fmt.Errorf("edit feed: %w", err)
	}

	s.cache.Refresh(ctx, updated)
	return nil
}

// EditGroupFeed overwrites the attributes of a group feed and reconciles its
// members to memberIDs in one transaction. Edits of the same feed are
// serialized through the cache refresh.
func (s *Service) EditGroupFeed(ctx context.Context, attrs Attrs, opaqueID string, memberIDs []int64) error {
	members, err := validateMembers(memberIDs)
	if err != nil {
		return err
	}
	if err := validateAttrs(attrs); err != nil {
		return err
	}

	feedID, err := s.codec.Decode(opaqueID)
	if err != nil {
		return err
	}

	unlock := s.lockFeed(feedID)
	defer unlock()

	var (
		updated store.Feed
		delta   membership.Delta
	)
	err = s.tx.RunInTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		feed, err := s.store.GetByIDTx(ctx, tx, feedID)
		if err != nil {
			return err
		}
		if !feed.IsGroupFeed {
			return ErrNotGroupFeed
		}

		next := attrs.toStore()
		if err := s.store.UpdateFeed(ctx, tx, feedID, next); err != nil {
			return err
		}

		previous, err := s.store.ListMembersTx(ctx, tx, feedID)
		if err != nil {
			return err
		}

		delta = membership.Reconcile(previous, members)
		if err := membership.Apply(ctx, tx, s.store, feedID, delta); err != nil {
			return err
		}

		updated = store.Feed{
			ID:          feed.ID,
			Name:        next.Name,
			Thumbnail:   next.Thumbnail,
			Description: next.Description,
			DueDate:     next.DueDate,
			IsGroupFeed: feed.IsGroupFeed,
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("edit group feed: %w", err)
	}

	s.cache.Refresh(ctx, updated)
	s.logger.InfoContext(ctx, "Edited group feed",
		"feedID", feedID,
		"added", len(delta.ToAdd),
		"removed", len(delta.ToRemove))

	return nil
}

// lockFeed serializes writers of one feed so their cache refreshes land in
// commit order.
func (s *Service) lockFeed(feedID int64) func() {
	mu, _ := s.locks.LoadOrCompute(feedID, func() *sync.Mutex {
		return &sync.Mutex{}
	})
	mu.Lock()
	return mu.Unlock
}
