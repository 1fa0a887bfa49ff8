// Package membership computes and applies the minimal set of changes that
// move a feed's member list from one state to another.
package membership

import (
	"context"
	"fmt"
	"slices"

	"github.com/uptrace/bun"
)

// Delta is the difference between a previous and a desired member set.
// Both slices are sorted ascending and free of duplicates.
type Delta struct {
	ToRemove []int64
	ToAdd    []int64
}

// Size is the number of store writes needed to apply the delta.
func (d Delta) Size() int {
	return len(d.ToRemove) + len(d.ToAdd)
}

// Empty reports whether the delta requires no writes.
func (d Delta) Empty() bool {
	return d.Size() == 0
}

// Normalize returns ids sorted ascending with duplicates removed.
func Normalize(ids []int64) []int64 {
	out := slices.Clone(ids)
	slices.Sort(out)
	return slices.Compact(out)
}

// Reconcile returns previous - desired as ToRemove and desired - previous as ToAdd.
// Users present in both sets are left untouched.
func Reconcile(previous, desired []int64) Delta {
	prev := toSet(previous)
	want := toSet(desired)

	var d Delta
	for id := range prev {
		if _, ok := want[id]; !ok {
			d.ToRemove = append(d.ToRemove, id)
		}
	}
	for id := range want {
		if _, ok := prev[id]; !ok {
			d.ToAdd = append(d.ToAdd, id)
		}
	}

	slices.Sort(d.ToRemove)
	slices.Sort(d.ToAdd)

	return d
}

// Writer is the subset of the feed store used to apply a delta.
type Writer interface {
	InsertMembership(ctx context.Context, tx bun.IDB, feedID, userID int64) error
	DeleteMembership(ctx context.Context, tx bun.IDB, feedID, userID int64) error
}

// Apply performs the removals and then the additions of d against feedID.
// It must run inside the same transaction as the feed update it accompanies.
func Apply(ctx context.Context, tx bun.IDB, w Writer, feedID int64, d Delta) error {
	for _, userID := range d.ToRemove {
		if err := w.DeleteMembership(ctx, tx, feedID, userID); err != nil {
			return fmt.Errorf("remove member %d: %w", userID, err)
		}
	}

	for _, userID := range d.ToAdd {
		if err := w.InsertMembership(ctx, tx, feedID, userID); err != nil {
			return fmt.Errorf("add member %d: %w", userID, err)
		}
	}

	return nil
}

func toSet(ids []int64) map[int64]struct{} {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
