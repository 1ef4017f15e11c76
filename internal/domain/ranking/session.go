package ranking

import (
	"strconv"
	"time"

	model "github.com/okian/brewrank/internal/domain/model"
)

// State is the lifecycle state of a comparison session.
type State int

const (
	StateIdle State = iota
	StateAwaitingComparison
	StateCommitted
	StateAbandoned
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingComparison:
		return "awaiting_comparison"
	case StateCommitted:
		return "committed"
	case StateAbandoned:
		return "abandoned"
	default:
		return "unknown"
	}
}

// Session is the in-progress placement of one candidate into one list.
// It is a value: the sequencer never keeps it, callers carry it between
// steps. Queue holds the remaining opponents; its head is the current one.
type Session struct {
	ID          string
	Owner       string
	List        string
	Candidate   model.BeerRef
	Rating      int
	Comparisons int
	Queue       []model.BeerRef
	Step        int
	AddedAt     time.Time
}

// Key returns the address of the session's list.
func (s Session) Key() model.ListKey {
	return model.ListKey{Owner: s.Owner, Name: s.List}
}

// Current returns the opponent awaiting comparison.
func (s Session) Current() (model.BeerRef, bool) {
	if len(s.Queue) == 0 {
		return "", false
	}
	return s.Queue[0], true
}

// State reports whether the session still awaits a comparison.
func (s Session) State() State {
	if len(s.Queue) == 0 {
		return StateCommitted
	}
	return StateAwaitingComparison
}

// StepID identifies the pending step across every copy of the session.
func (s Session) StepID() string {
	return s.ID + ":" + strconv.Itoa(s.Step)
}

// Remaining is the number of comparisons left, the current one included.
func (s Session) Remaining() int { return len(s.Queue) }

// advance returns the session after the current comparison resolved with
// the candidate at candidateRating.
func (s Session) advance(candidateRating int) Session {
	next := s
	next.Rating = candidateRating
	next.Comparisons++
	next.Step++
	next.Queue = append([]model.BeerRef(nil), s.Queue[1:]...)
	return next
}

// drop removes the current opponent without counting a comparison.
func (s Session) drop() Session {
	next := s
	next.Queue = append([]model.BeerRef(nil), s.Queue[1:]...)
	return next
}
