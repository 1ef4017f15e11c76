// Package types contains the JSON shapes returned by the HTTP API.
package types

import (
	"time"

	model "github.com/okian/brewrank/internal/domain/model"
)

// Beer is a catalog beer.
type Beer struct {
	ID          string    `json:"_id"`
	Name        string    `json:"name"`
	Brewery     string    `json:"brewery"`
	Type        string    `json:"type"`
	ABV         *float64  `json:"abv,omitempty"`
	IBU         *int      `json:"ibu,omitempty"`
	Description string    `json:"description,omitempty"`
	ImageURL    string    `json:"image_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// FromBeer converts a catalog beer.
func FromBeer(b model.Beer) Beer {
	return Beer{
		ID:          string(b.Ref),
		Name:        b.Name,
		Brewery:     b.Brewery,
		Type:        b.Type,
		ABV:         b.ABV,
		IBU:         b.IBU,
		Description: b.Description,
		ImageURL:    b.ImageURL,
		CreatedAt:   b.CreatedAt,
	}
}

// ListEntry is one beer's standing within a list.
type ListEntry struct {
	BeerID      string    `json:"beer_id"`
	EloScore    int       `json:"elo_score"`
	Comparisons int       `json:"comparisons"`
	CreatedAt   time.Time `json:"created_at"`
}

// FromEntry converts a rated entry.
func FromEntry(e model.RatedEntry) ListEntry {
	return ListEntry{
		BeerID:      string(e.BeerRef),
		EloScore:    e.Rating,
		Comparisons: e.ComparisonCount,
		CreatedAt:   e.AddedAt,
	}
}

// List is an owner's list with its entries in insertion order.
type List struct {
	UserID    string      `json:"user_id"`
	Name      string      `json:"name"`
	Beers     []ListEntry `json:"beers"`
	CreatedAt time.Time   `json:"created_at"`
}

// FromList converts a list.
func FromList(l model.List) List {
	beers := make([]ListEntry, len(l.Entries))
	for i, e := range l.Entries {
		beers[i] = FromEntry(e)
	}
	return List{UserID: l.Owner, Name: l.Name, Beers: beers, CreatedAt: l.CreatedAt}
}

// RankedBeer is a list entry joined with its catalog attributes. Position
// is 1-based; tied ratings share a position.
type RankedBeer struct {
	Beer
	Position    int `json:"position"`
	EloScore    int `json:"elo_score"`
	Comparisons int `json:"comparisons"`
}

// RankedList is a list sorted best first.
type RankedList struct {
	Name  string       `json:"name"`
	Type  string       `json:"type,omitempty"`
	Beers []RankedBeer `json:"beers"`
}

// Prompt is the next comparison the caller has to decide.
type Prompt struct {
	Candidate       Beer `json:"candidate"`
	CandidateRating int  `json:"candidate_elo"`
	Opponent        Beer `json:"opponent"`
	OpponentRating  int  `json:"opponent_elo"`
	Remaining       int  `json:"remaining"`
	Step            int  `json:"step"`
}

// Placement is the response of adding a beer or submitting a comparison.
// Entry is set once the beer is committed; SessionToken and Prompt while
// comparisons are pending.
type Placement struct {
	State        string     `json:"state"`
	Merged       bool       `json:"merged,omitempty"`
	Entry        *ListEntry `json:"entry,omitempty"`
	SessionToken string     `json:"session_token,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	Prompt       *Prompt    `json:"prompt,omitempty"`
}

// ComparisonResult is the response of a direct comparison.
type ComparisonResult struct {
	Beer1 ListEntry `json:"beer1"`
	Beer2 ListEntry `json:"beer2"`
}
