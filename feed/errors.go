package feed

import "errors"

var (
	// ErrGroupFeedMembersCount is returned when a group feed member list is
	// outside [MinGroupMembers, MaxGroupMembers].
	ErrGroupFeedMembersCount = errors.New("group feed member count out of range")

	// ErrNotGroupFeed is returned when a group feed edit targets a personal feed.
	ErrNotGroupFeed = errors.New("feed is not a group feed")

	// ErrInvalidAttrs wraps the ozzo validation.Errors of a rejected request.
	ErrInvalidAttrs = errors.New("invalid feed attributes")
)
