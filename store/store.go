// Package store persists feeds, their memberships and postings with bun.
//
// Read methods run against the database handle the Store was built with;
// methods with a Tx suffix, and every write, take an explicit bun.IDB so they
// can be composed inside a unit of work run by Coordinator.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// Open returns a bun handle for driver and dsn.
func Open(driver, dsn string) (*bun.DB, error) {
	switch driver {
	case DriverSQLite:
		sqldb, err := sql.Open(DriverSQLite, dsn)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		// sqlite allows a single writer; a shared pool would surface SQLITE_BUSY
		sqldb.SetMaxOpenConns(1)
		return bun.NewDB(sqldb, sqlitedialect.New()), nil

	case DriverPostgres:
		sqldb, err := sql.Open(DriverPostgres, dsn)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return bun.NewDB(sqldb, pgdialect.New()), nil

	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// Store implements the feed persistence operations.
type Store struct {
	db     *bun.DB
	driver string
	logger *slog.Logger
	now    func() time.Time
}

// New creates a Store over db.
func New(db *bun.DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		db:     db,
		driver: repository.DetectDriver(db),
		logger: logger,
		now:    time.Now,
	}
}

// DB returns the underlying database handle.
func (s *Store) DB() *bun.DB {
	return s.db
}

func (s *Store) classify(op string, err error) error {
	return classify(s.driver, op, err)
}

func (s *Store) classifyLookup(op string, err error, notFound error) error {
	return classifyLookup(s.driver, op, err, notFound)
}

// GetByID returns the feed with id or ErrNonExistFeed.
func (s *Store) GetByID(ctx context.Context, id int64) (Feed, error) {
	return s.GetByIDTx(ctx, s.db, id)
}

// GetByIDTx is GetByID within tx.
func (s *Store) GetByIDTx(ctx context.Context, tx bun.IDB, id int64) (Feed, error) {
	var feed Feed
	err := tx.NewSelect().
		Model(&feed).
		Where("f.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return Feed{}, s.classifyLookup("get feed", err, ErrNonExistFeed)
	}
	return feed, nil
}

// GetByFilter returns every feed matching filter, ordered by id.
func (s *Store) GetByFilter(ctx context.Context, filter FeedFilter) ([]Feed, error) {
	feeds := []Feed{}
	err := filter.apply(s.db.NewSelect().Model(&feeds)).
		OrderExpr("f.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, s.classify("get feeds by filter", err)
	}
	return feeds, nil
}

// ListForUser returns the feeds userID is a member of, restricted to group
// or personal feeds.
func (s *Store) ListForUser(ctx context.Context, userID int64, isGroupFeed bool) ([]FeedSummary, error) {
	var feeds []Feed
	err := s.db.NewSelect().
		Model(&feeds).
		ColumnExpr("f.id, f.name, f.thumbnail").
		Join("JOIN user_feed_mapping AS ufm ON ufm.feed_id = f.id").
		Where("ufm.user_id = ?", userID).
		Where("f.is_group_feed = ?", isGroupFeed).
		OrderExpr("f.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, s.classify("list feeds for user", err)
	}

	out := make([]FeedSummary, 0, len(feeds))
	for _, f := range feeds {
		out = append(out, FeedSummary{ID: f.ID, Name: f.Name, Thumbnail: f.Thumbnail})
	}
	return out, nil
}

// GetPostingPage returns up to limit postings of feedID with an id greater
// than afterPostingID, ascending by id.
func (s *Store) GetPostingPage(ctx context.Context, feedID, afterPostingID int64, limit int) ([]Posting, error) {
	postings := []Posting{}
	if limit <= 0 {
		return postings, nil
	}

	err := s.db.NewSelect().
		Model(&postings).
		Column("id", "feed_id", "thumbnail").
		Where("p.feed_id = ?", feedID).
		Where("p.id > ?", afterPostingID).
		OrderExpr("p.id ASC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, s.classify("get posting page", err)
	}
	return postings, nil
}

// CountPostings returns the live number of postings under feedID.
func (s *Store) CountPostings(ctx context.Context, feedID int64) (int, error) {
	n, err := s.db.NewSelect().
		Model((*Posting)(nil)).
		Where("p.feed_id = ?", feedID).
		Count(ctx)
	if err != nil {
		return 0, s.classify("count postings", err)
	}
	return n, nil
}

// GetPosting returns the posting with id or ErrNonExistPosting.
func (s *Store) GetPosting(ctx context.Context, id int64) (Posting, error) {
	var posting Posting
	err := s.db.NewSelect().
		Model(&posting).
		Where("p.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return Posting{}, s.classifyLookup("get posting", err, ErrNonExistPosting)
	}
	return posting, nil
}

// GetUser returns the user with id or ErrNonExistUser.
func (s *Store) GetUser(ctx context.Context, id int64) (User, error) {
	var user User
	err := s.db.NewSelect().
		Model(&user).
		Where("u.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return User{}, s.classifyLookup("get user", err, ErrNonExistUser)
	}
	return user, nil
}

// ListMembers returns the user ids mapped to feedID, ascending.
func (s *Store) ListMembers(ctx context.Context, feedID int64) ([]int64, error) {
	return s.ListMembersTx(ctx, s.db, feedID)
}

// ListMembersTx is ListMembers within tx.
func (s *Store) ListMembersTx(ctx context.Context, tx bun.IDB, feedID int64) ([]int64, error) {
	userIDs := []int64{}
	err := tx.NewSelect().
		Model((*UserFeedMapping)(nil)).
		Column("user_id").
		Where("ufm.feed_id = ?", feedID).
		OrderExpr("ufm.user_id ASC").
		Scan(ctx, &userIDs)
	if err != nil {
		return nil, s.classify("list members", err)
	}
	return userIDs, nil
}

// GetMembership returns the mapping for (feedID, userID), or nil when the
// user is not a member.
func (s *Store) GetMembership(ctx context.Context, feedID, userID int64) (*UserFeedMapping, error) {
	mapping := new(UserFeedMapping)
	err := s.db.NewSelect().
		Model(mapping).
		Where("ufm.feed_id = ?", feedID).
		Where("ufm.user_id = ?", userID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, s.classify("get membership", err)
	}
	return mapping, nil
}
