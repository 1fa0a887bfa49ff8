package store

import (
	"context"

	"github.com/uptrace/bun"
)

// InsertFeed creates a feed row and returns it with its assigned id.
func (s *Store) InsertFeed(ctx context.Context, tx bun.IDB, attrs FeedAttrs, isGroupFeed bool) (Feed, error) {
	feed := Feed{
		Name:        attrs.Name,
		Thumbnail:   attrs.Thumbnail,
		Description: attrs.Description,
		DueDate:     attrs.DueDate,
		IsGroupFeed: isGroupFeed,
	}

	if _, err := tx.NewInsert().Model(&feed).Exec(ctx); err != nil {
		return Feed{}, s.classify("insert feed", err)
	}
	return feed, nil
}

// UpdateFeed overwrites the mutable attributes of feed id. IsGroupFeed is
// never touched.
func (s *Store) UpdateFeed(ctx context.Context, tx bun.IDB, id int64, attrs FeedAttrs) error {
	feed := Feed{
		ID:          id,
		Name:        attrs.Name,
		Thumbnail:   attrs.Thumbnail,
		Description: attrs.Description,
		DueDate:     attrs.DueDate,
	}

	res, err := tx.NewUpdate().
		Model(&feed).
		Column("name", "thumbnail", "description", "due_date").
		WherePK().
		Exec(ctx)
	if err != nil {
		return s.classify("update feed", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return s.classify("update feed", err)
	}
	if n == 0 {
		return ErrNonExistFeed
	}
	return nil
}

// InsertMembership maps userID to feedID.
func (s *Store) InsertMembership(ctx context.Context, tx bun.IDB, feedID, userID int64) error {
	mapping := UserFeedMapping{FeedID: feedID, UserID: userID}
	if _, err := tx.NewInsert().Model(&mapping).Exec(ctx); err != nil {
		return s.classify("insert membership", err)
	}
	return nil
}

// DeleteMembership removes the (feedID, userID) mapping only.
func (s *Store) DeleteMembership(ctx context.Context, tx bun.IDB, feedID, userID int64) error {
	_, err := tx.NewDelete().
		Model((*UserFeedMapping)(nil)).
		Where("feed_id = ?", feedID).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return s.classify("delete membership", err)
	}
	return nil
}

// SetLastVisitedFeed records feedID as the last feed userID opened.
func (s *Store) SetLastVisitedFeed(ctx context.Context, tx bun.IDB, userID, feedID int64) error {
	res, err := tx.NewUpdate().
		Model((*User)(nil)).
		Set("last_visited_feed_id = ?", feedID).
		Where("id = ?", userID).
		Exec(ctx)
	if err != nil {
		return s.classify("set last visited feed", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return s.classify("set last visited feed", err)
	}
	if n == 0 {
		return ErrNonExistUser
	}
	return nil
}

// InsertUser creates a user row. A zero ID is assigned by the database.
func (s *Store) InsertUser(ctx context.Context, tx bun.IDB, user User) (User, error) {
	if _, err := tx.NewInsert().Model(&user).Exec(ctx); err != nil {
		return User{}, s.classify("insert user", err)
	}
	return user, nil
}

// InsertPosting creates a posting under its feed and returns it with its id.
func (s *Store) InsertPosting(ctx context.Context, tx bun.IDB, posting Posting) (Posting, error) {
	if posting.CreatedAt.IsZero() {
		posting.CreatedAt = s.now().UTC()
	}
	posting.ID = 0

	if _, err := tx.NewInsert().Model(&posting).Exec(ctx); err != nil {
		return Posting{}, s.classify("insert posting", err)
	}
	return posting, nil
}
