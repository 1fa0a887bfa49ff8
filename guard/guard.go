// Package guard decides whether a posting route may proceed given the due
// date of the feed it targets.
//
// Before the due date a feed accepts new postings and hides existing ones.
// From the due date on it is sealed against new postings and its postings
// become viewable. The guard holds no state; it derives the phase from the
// due date and the current instant on every call.
package guard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/goliatone/go-feedvault/metrics"
)

var (
	// ErrAccessBeforeDueDate rejects viewing a feed's postings before its due date.
	ErrAccessBeforeDueDate = errors.New("access before due date")

	// ErrAccessAfterDueDate rejects creating a posting after its feed's due date.
	ErrAccessAfterDueDate = errors.New("access after due date")

	// ErrUnresolvedTarget is returned when a request names neither a feed nor a posting.
	ErrUnresolvedTarget = errors.New("request references neither a feed nor a posting")
)

// State is the phase of a feed relative to its due date.
type State int

const (
	BeforeDueDate State = iota
	AfterDueDate
)

func (s State) String() string {
	if s == BeforeDueDate {
		return "before_due_date"
	}
	return "after_due_date"
}

// Intent is what the guarded route is about to do.
type Intent int

const (
	// IntentView covers reading postings and every other non-creation route.
	IntentView Intent = iota
	// IntentCreatePosting covers creating a posting under a feed.
	IntentCreatePosting
)

func (i Intent) String() string {
	if i == IntentCreatePosting {
		return "create_posting"
	}
	return "view"
}

// StateAt returns BeforeDueDate while now is strictly before dueDate.
func StateAt(dueDate, now time.Time) State {
	if now.Before(dueDate) {
		return BeforeDueDate
	}
	return AfterDueDate
}

// Authorize applies the decision table: creation requires BeforeDueDate,
// everything else requires AfterDueDate.
func Authorize(intent Intent, dueDate, now time.Time) error {
	state := StateAt(dueDate, now)

	if intent == IntentCreatePosting {
		if state != BeforeDueDate {
			return ErrAccessAfterDueDate
		}
		return nil
	}

	if state != AfterDueDate {
		return ErrAccessBeforeDueDate
	}
	return nil
}

// Resolver finds the due date governing a request.
type Resolver interface {
	FeedDueDate(ctx context.Context, feedID int64) (time.Time, error)
	PostingDueDate(ctx context.Context, postingID int64) (time.Time, error)
}

// Request identifies the target of a guarded route. FeedID wins when both
// are set.
type Request struct {
	Intent    Intent
	FeedID    int64
	PostingID int64
}

// Guard authorizes requests against live due dates.
type Guard struct {
	resolver Resolver
	now      func() time.Time
	logger   *slog.Logger
}

// Option configures a Guard.
type Option func(*Guard)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(g *Guard) {
		g.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Guard) {
		g.logger = logger
	}
}

// New creates a Guard over resolver.
func New(resolver Resolver, opts ...Option) *Guard {
	g := &Guard{
		resolver: resolver,
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Check resolves the due date for req and authorizes it. Resolution errors
// are returned as is; rejections are ErrAccessBeforeDueDate or
// ErrAccessAfterDueDate.
func (g *Guard) Check(ctx context.Context, req Request) error {
	dueDate, err := g.resolve(ctx, req)
	if err != nil {
		return err
	}

	err = Authorize(req.Intent, dueDate, g.now())
	decision := "allow"
	if err != nil {
		decision = "deny"
		g.logger.DebugContext(ctx, "Guard rejected request",
			"intent", req.Intent.String(),
			"error", err)
	}
	metrics.RecordGuardDecision(req.Intent.String(), decision)

	return err
}

func (g *Guard) resolve(ctx context.Context, req Request) (time.Time, error) {
	switch {
	case req.FeedID > 0:
		due, err := g.resolver.FeedDueDate(ctx, req.FeedID)
		if err != nil {
			return time.Time{}, fmt.Errorf("resolve feed due date: %w", err)
		}
		return due, nil
	case req.PostingID > 0:
		due, err := g.resolver.PostingDueDate(ctx, req.PostingID)
		if err != nil {
			return time.Time{}, fmt.Errorf("resolve posting due date: %w", err)
		}
		return due, nil
	default:
		return time.Time{}, ErrUnresolvedTarget
	}
}
