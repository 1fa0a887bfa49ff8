package store

import (
	"time"

	"github.com/uptrace/bun"
)

// Feed is a container of postings gated behind DueDate.
type Feed struct {
	bun.BaseModel `bun:"table:feeds,alias:f" msgpack:"-"`

	ID          int64     `bun:"id,pk,autoincrement" msgpack:"id"`
	Name        string    `bun:"name,notnull" msgpack:"name"`
	Thumbnail   string    `bun:"thumbnail" msgpack:"thumbnail"`
	Description string    `bun:"description" msgpack:"description"`
	DueDate     time.Time `bun:"due_date,notnull" msgpack:"due_date"`
	IsGroupFeed bool      `bun:"is_group_feed,notnull" msgpack:"is_group_feed"`
}

// FeedAttrs are the mutable attributes of a feed.
type FeedAttrs struct {
	Name        string
	Thumbnail   string
	Description string
	DueDate     time.Time
}

// Attrs returns the mutable attributes of f.
func (f Feed) Attrs() FeedAttrs {
	return FeedAttrs{
		Name:        f.Name,
		Thumbnail:   f.Thumbnail,
		Description: f.Description,
		DueDate:     f.DueDate,
	}
}

// FeedSummary is the projection returned by feed listings.
type FeedSummary struct {
	ID        int64
	Name      string
	Thumbnail string
}

// UserFeedMapping states that a user is a member of a feed.
type UserFeedMapping struct {
	bun.BaseModel `bun:"table:user_feed_mapping,alias:ufm"`

	FeedID int64 `bun:"feed_id,pk"`
	UserID int64 `bun:"user_id,pk"`
}

// User is the subset of the user row this module reads and writes.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID                int64  `bun:"id,pk,autoincrement"`
	Nickname          string `bun:"nickname,notnull"`
	LastVisitedFeedID *int64 `bun:"last_visited_feed_id"`
}

// Posting is an item owned by a feed. IDs grow monotonically.
type Posting struct {
	bun.BaseModel `bun:"table:postings,alias:p"`

	ID        int64     `bun:"id,pk,autoincrement"`
	FeedID    int64     `bun:"feed_id,notnull"`
	Thumbnail string    `bun:"thumbnail"`
	Content   string    `bun:"content"`
	CreatedAt time.Time `bun:"created_at,notnull"`
}

// FeedFilter matches feeds by attribute equality. Nil fields are ignored.
type FeedFilter struct {
	ID          *int64
	Name        *string
	Thumbnail   *string
	Description *string
	IsGroupFeed *bool
}

func (f FeedFilter) apply(q *bun.SelectQuery) *bun.SelectQuery {
	if f.ID != nil {
		q = q.Where("f.id = ?", *f.ID)
	}
	if f.Name != nil {
		q = q.Where("f.name = ?", *f.Name)
	}
	if f.Thumbnail != nil {
		q = q.Where("f.thumbnail = ?", *f.Thumbnail)
	}
	if f.Description != nil {
		q = q.Where("f.description = ?", *f.Description)
	}
	if f.IsGroupFeed != nil {
		q = q.Where("f.is_group_feed = ?", *f.IsGroupFeed)
	}
	return q
}
