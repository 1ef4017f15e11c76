// Package ranking places beers into owner lists through pairwise
// comparisons. It consumes a list store, a catalog and a step guard, and
// returns typed outcomes; it never logs.
package ranking

import (
	"context"
	"time"

	model "github.com/okian/brewrank/internal/domain/model"
)

// CountUpdate tells PatchEntryRating what to do with the comparison count.
type CountUpdate int

const (
	KeepCount CountUpdate = iota
	IncrementCount
	ResetCount
)

// RateFunc maps an entry's current rating to its new rating. Stores may
// call it more than once while retrying; only the last call is applied.
type RateFunc func(current int) int

// ListStore persists owner lists and their rated entries.
type ListStore interface {
	// GetList returns ErrListNotFound when the list does not exist.
	GetList(ctx context.Context, key model.ListKey) (model.List, error)

	// EnsureList returns the list, creating it empty when absent.
	EnsureList(ctx context.Context, key model.ListKey) (model.List, error)

	// InsertEntry adds entry, creating the list when absent. It returns
	// ErrDuplicateEntry when the beer is already a member.
	InsertEntry(ctx context.Context, key model.ListKey, entry model.RatedEntry) error

	// EnsureEntry returns the member for ref, inserting it with default
	// values when absent. The list must exist.
	EnsureEntry(ctx context.Context, key model.ListKey, ref model.BeerRef, addedAt time.Time) (model.RatedEntry, error)

	// PatchEntryRating atomically replaces the member's rating with
	// rate(current) and applies count. It returns the patched entry, or
	// ErrEntryNotFound when the beer is not a member.
	PatchEntryRating(ctx context.Context, key model.ListKey, ref model.BeerRef, rate RateFunc, count CountUpdate) (model.RatedEntry, error)

	// RemoveEntry deletes the member for ref.
	RemoveEntry(ctx context.Context, key model.ListKey, ref model.BeerRef) error

	// Lists returns every list of owner.
	Lists(ctx context.Context, owner string) ([]model.List, error)
}

// Catalog resolves beer refs to their descriptive attributes.
type Catalog interface {
	// ResolveBeer returns ErrBeerNotFound for unknown refs.
	ResolveBeer(ctx context.Context, ref model.BeerRef) (model.Beer, error)

	// ResolveBeers returns the beers it could resolve; unknown refs are
	// simply absent from the result.
	ResolveBeers(ctx context.Context, refs []model.BeerRef) (map[model.BeerRef]model.Beer, error)
}

// StepGuard remembers consumed comparison steps.
type StepGuard interface {
	// SeenAndRecord reports whether id was already recorded and records it
	// if not, atomically.
	SeenAndRecord(ctx context.Context, id string) (bool, error)

	// Unrecord forgets id so the step can be submitted again.
	Unrecord(ctx context.Context, id string) error
}
