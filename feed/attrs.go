package feed

import (
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-feedvault/membership"
	"github.com/goliatone/go-feedvault/store"
)

// Group feed member bounds, inclusive.
const (
	MinGroupMembers = 2
	MaxGroupMembers = 100
)

const (
	maxNameLength        = 100
	maxThumbnailLength   = 2048
	maxDescriptionLength = 1000
	maxContentLength     = 10000
)

// Attrs are the client supplied attributes of a feed.
type Attrs struct {
	Name        string
	Thumbnail   string
	Description string
	DueDate     time.Time
}

// Validate checks a against the feed attribute rules.
func (a Attrs) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.Name, validation.Required, validation.RuneLength(1, maxNameLength)),
		validation.Field(&a.Thumbnail, validation.RuneLength(0, maxThumbnailLength)),
		validation.Field(&a.Description, validation.RuneLength(0, maxDescriptionLength)),
		validation.Field(&a.DueDate, validation.Required),
	)
}

func (a Attrs) toStore() store.FeedAttrs {
	return store.FeedAttrs{
		Name:        a.Name,
		Thumbnail:   a.Thumbnail,
		Description: a.Description,
		DueDate:     a.DueDate.UTC().Truncate(time.Microsecond),
	}
}

// PostingAttrs are the client supplied attributes of a posting.
type PostingAttrs struct {
	Thumbnail string
	Content   string
}

// Validate checks p against the posting attribute rules.
func (p PostingAttrs) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Thumbnail, validation.RuneLength(0, maxThumbnailLength)),
		validation.Field(&p.Content, validation.RuneLength(0, maxContentLength)),
	)
}

type validatable interface {
	Validate() error
}

func validateAttrs(v validatable) error {
	if err := v.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidAttrs, err)
	}
	return nil
}

// validateMembers bounds both the submitted list and its distinct set, so
// duplicates cannot pad a list past the lower bound.
func validateMembers(memberIDs []int64) ([]int64, error) {
	if n := len(memberIDs); n < MinGroupMembers || n > MaxGroupMembers {
		return nil, fmt.Errorf("%w: got %d members", ErrGroupFeedMembersCount, n)
	}

	distinct := membership.Normalize(memberIDs)
	if n := len(distinct); n < MinGroupMembers {
		return nil, fmt.Errorf("%w: got %d distinct members", ErrGroupFeedMembersCount, n)
	}

	return distinct, nil
}
