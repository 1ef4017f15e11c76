package model

import "time"

const (
	// DefaultRating is the rating every entry starts from.
	DefaultRating = 1000

	// DefaultListName is the list every owner ranks into unless told otherwise.
	DefaultListName = "All Beers"
)

// ListKey addresses one owner's named list.
type ListKey struct {
	Owner string
	Name  string
}

// RatedEntry is a beer's standing within one list.
type RatedEntry struct {
	BeerRef         BeerRef
	Rating          int
	ComparisonCount int
	AddedAt         time.Time
}

// NewEntry returns an entry with the default rating and no comparisons.
func NewEntry(ref BeerRef, addedAt time.Time) RatedEntry {
	return RatedEntry{
		BeerRef: ref,
		Rating:  DefaultRating,
		AddedAt: addedAt,
	}
}

// List is a named, owner-scoped collection of rated entries. Entries keep
// the order in which they were first inserted.
type List struct {
	Owner     string
	Name      string
	Entries   []RatedEntry
	CreatedAt time.Time
}

// Find returns the entry for ref, if present.
func (l List) Find(ref BeerRef) (RatedEntry, bool) {
	for _, e := range l.Entries {
		if e.BeerRef == ref {
			return e, true
		}
	}
	return RatedEntry{}, false
}

// Others returns every entry except ref, preserving list order.
func (l List) Others(ref BeerRef) []RatedEntry {
	out := make([]RatedEntry, 0, len(l.Entries))
	for _, e := range l.Entries {
		if e.BeerRef != ref {
			out = append(out, e)
		}
	}
	return out
}
