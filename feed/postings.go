package feed

import (
	"context"
	"fmt"
	"time"

	"github.com/goliatone/go-feedvault/guard"
	"github.com/goliatone/go-feedvault/store"
)

// FeedDueDate returns the due date of feedID through the feed cache.
func (s *Service) FeedDueDate(ctx context.Context, feedID int64) (time.Time, error) {
	feed, err := s.cache.Lookup(ctx, feedID)
	if err != nil {
		return time.Time{}, err
	}
	return feed.DueDate, nil
}

// PostingDueDate returns the due date of the feed that owns postingID.
func (s *Service) PostingDueDate(ctx context.Context, postingID int64) (time.Time, error) {
	posting, err := s.store.GetPosting(ctx, postingID)
	if err != nil {
		return time.Time{}, err
	}
	return s.FeedDueDate(ctx, posting.FeedID)
}

// AuthorizePostingCreate allows creating a posting under the feed only
// before its due date.
func (s *Service) AuthorizePostingCreate(ctx context.Context, opaqueFeedID string) error {
	feedID, err := s.codec.Decode(opaqueFeedID)
	if err != nil {
		return err
	}
	return s.guard.Check(ctx, guard.Request{Intent: guard.IntentCreatePosting, FeedID: feedID})
}

// AuthorizePostingView allows reading postingID only once its feed's due
// date has passed.
func (s *Service) AuthorizePostingView(ctx context.Context, postingID int64) error {
	return s.guard.Check(ctx, guard.Request{Intent: guard.IntentView, PostingID: postingID})
}

// CreatePosting adds a posting to the feed and returns its id. It is
// rejected with guard.ErrAccessAfterDueDate once the due date has passed.
// The cached feed attributes are not affected.
func (s *Service) CreatePosting(ctx context.Context, opaqueFeedID string, attrs PostingAttrs) (int64, error) {
	if err := validateAttrs(attrs); err != nil {
		return 0, err
	}

	feedID, err := s.codec.Decode(opaqueFeedID)
	if err != nil {
		return 0, err
	}

	if err := s.guard.Check(ctx, guard.Request{Intent: guard.IntentCreatePosting, FeedID: feedID}); err != nil {
		return 0, err
	}

	posting, err := s.store.InsertPosting(ctx, s.store.DB(), store.Posting{
		FeedID:    feedID,
		Thumbnail: attrs.Thumbnail,
		Content:   attrs.Content,
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		return 0, fmt.Errorf("create posting: %w", err)
	}

	return posting.ID, nil
}
