package feed

import (
	"context"
	"fmt"
	"time"

	"github.com/goliatone/go-feedvault/store"
)

// Info is the feed information shown to a caller.
type Info struct {
	Name        string
	Thumbnail   string
	Description string
	DueDate     time.Time
	IsGroupFeed bool
	PostingCnt  int
	IsOwner     bool
}

// Summary is an entry of a feed listing.
type Summary struct {
	ID        string
	Name      string
	Thumbnail string
}

// PostingThumbnail is an entry of a posting page.
type PostingThumbnail struct {
	ID        int64
	Thumbnail string
}

// Detail is a feed as returned by FindFeeds.
type Detail struct {
	ID          string
	Name        string
	Thumbnail   string
	Description string
	DueDate     time.Time
	IsGroupFeed bool
}

// Query filters FindFeeds. Empty ID and nil fields match everything.
type Query struct {
	ID          string
	Name        *string
	Thumbnail   *string
	Description *string
	IsGroupFeed *bool
}

// GetFeedInfo returns the feed's attributes together with its live posting
// count and whether callerID is a member. A member's read is recorded as
// their last visited feed.
func (s *Service) GetFeedInfo(ctx context.Context, opaqueID string, callerID int64) (Info, error) {
	feedID, err := s.codec.Decode(opaqueID)
	if err != nil {
		return Info{}, err
	}

	feed, err := s.cache.Lookup(ctx, feedID)
	if err != nil {
		return Info{}, fmt.Errorf("get feed info: %w", err)
	}

	owner, err := s.CheckFeedOwner(ctx, callerID, feedID)
	if err != nil {
		return Info{}, fmt.Errorf("get feed info: %w", err)
	}
	if owner != nil {
		if err := s.store.SetLastVisitedFeed(ctx, s.store.DB(), callerID, feedID); err != nil {
			return Info{}, fmt.Errorf("get feed info: %w", err)
		}
	}

	count, err := s.store.CountPostings(ctx, feedID)
	if err != nil {
		return Info{}, fmt.Errorf("get feed info: %w", err)
	}

	return Info{
		Name:        feed.Name,
		Thumbnail:   feed.Thumbnail,
		Description: feed.Description,
		DueDate:     feed.DueDate,
		IsGroupFeed: feed.IsGroupFeed,
		PostingCnt:  count,
		IsOwner:     owner != nil,
	}, nil
}

// ListPersonalFeeds returns the personal feeds userID belongs to.
func (s *Service) ListPersonalFeeds(ctx context.Context, userID int64) ([]Summary, error) {
	return s.listFeeds(ctx, userID, false)
}

// ListGroupFeeds returns the group feeds userID belongs to.
func (s *Service) ListGroupFeeds(ctx context.Context, userID int64) ([]Summary, error) {
	return s.listFeeds(ctx, userID, true)
}

func (s *Service) listFeeds(ctx context.Context, userID int64, isGroupFeed bool) ([]Summary, error) {
	feeds, err := s.store.ListForUser(ctx, userID, isGroupFeed)
	if err != nil {
		return nil, fmt.Errorf("list feeds: %w", err)
	}

	out := make([]Summary, 0, len(feeds))
	for _, f := range feeds {
		out = append(out, Summary{
			ID:        s.codec.Encode(f.ID),
			Name:      f.Name,
			Thumbnail: f.Thumbnail,
		})
	}
	return out, nil
}

// GetPostingThumbnails returns up to scrollSize postings of the feed whose
// id is greater than startPostingID, ascending by id.
func (s *Service) GetPostingThumbnails(ctx context.Context, opaqueID string, startPostingID int64, scrollSize int) ([]PostingThumbnail, error) {
	feedID, err := s.codec.Decode(opaqueID)
	if err != nil {
		return nil, err
	}

	if _, err := s.cache.Lookup(ctx, feedID); err != nil {
		return nil, fmt.Errorf("get posting thumbnails: %w", err)
	}

	postings, err := s.store.GetPostingPage(ctx, feedID, startPostingID, scrollSize)
	if err != nil {
		return nil, fmt.Errorf("get posting thumbnails: %w", err)
	}

	out := make([]PostingThumbnail, 0, len(postings))
	for _, p := range postings {
		out = append(out, PostingThumbnail{ID: p.ID, Thumbnail: p.Thumbnail})
	}
	return out, nil
}

// CheckFeedOwner returns the membership of userID in feedID, or nil when
// there is none.
func (s *Service) CheckFeedOwner(ctx context.Context, userID, feedID int64) (*store.UserFeedMapping, error) {
	return s.store.GetMembership(ctx, feedID, userID)
}

// FindFeeds returns the feeds matching q, ordered by id.
func (s *Service) FindFeeds(ctx context.Context, q Query) ([]Detail, error) {
	filter := store.FeedFilter{
		Name:        q.Name,
		Thumbnail:   q.Thumbnail,
		Description: q.Description,
		IsGroupFeed: q.IsGroupFeed,
	}
	if q.ID != "" {
		id, err := s.codec.Decode(q.ID)
		if err != nil {
			return nil, err
		}
		filter.ID = &id
	}

	feeds, err := s.store.GetByFilter(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("find feeds: %w", err)
	}

	out := make([]Detail, 0, len(feeds))
	for _, f := range feeds {
		out = append(out, Detail{
			ID:          s.codec.Encode(f.ID),
			Name:        f.Name,
			Thumbnail:   f.Thumbnail,
			Description: f.Description,
			DueDate:     f.DueDate,
			IsGroupFeed: f.IsGroupFeed,
		})
	}
	return out, nil
}
