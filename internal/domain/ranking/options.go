package ranking

import (
	"strings"
	"time"

	model "github.com/okian/brewrank/internal/domain/model"
)

// Option configures a Sequencer.
type Option func(*Sequencer)

// WithClock sets the time source used for addedAt timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Sequencer) {
		if now != nil {
			s.now = now
		}
	}
}

// WithSessionIDs sets the generator for session ids.
func WithSessionIDs(next func() string) Option {
	return func(s *Sequencer) {
		if next != nil {
			s.newID = next
		}
	}
}

// AddOption tunes a single AddCandidate call.
type AddOption func(*addOptions)

type addOptions struct {
	filter func(model.Beer) bool
}

// WithOpponentFilter restricts the opponents to beers accepted by keep.
func WithOpponentFilter(keep func(model.Beer) bool) AddOption {
	return func(o *addOptions) {
		o.filter = keep
	}
}

// WithOpponentType restricts the opponents to beers of the given type.
// An empty type or the default list name means no restriction.
func WithOpponentType(beerType string) AddOption {
	beerType = strings.TrimSpace(beerType)
	if beerType == "" || beerType == model.DefaultListName {
		return func(*addOptions) {}
	}
	return WithOpponentFilter(func(b model.Beer) bool {
		return strings.EqualFold(b.Type, beerType)
	})
}
