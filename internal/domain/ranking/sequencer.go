package ranking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	model "github.com/okian/brewrank/internal/domain/model"
	"github.com/okian/brewrank/internal/domain/rating"
)

// Prompt is the next comparison a caller has to resolve.
type Prompt struct {
	Candidate       model.Beer
	CandidateRating int
	Opponent        model.Beer
	OpponentRating  int
	Remaining       int
	Step            int
}

// Outcome is the result of AddCandidate and SubmitComparison. Entry is set
// when State is StateCommitted; Session and Prompt when it is
// StateAwaitingComparison.
type Outcome struct {
	State   State
	Entry   model.RatedEntry
	Merged  bool
	Session *Session
	Prompt  *Prompt
}

// CompareResult holds both sides of a direct comparison after the update.
type CompareResult struct {
	A model.RatedEntry
	B model.RatedEntry
}

// Sequencer drives candidate insertion through pairwise comparisons.
// It holds no per-session state and is safe for concurrent use.
type Sequencer struct {
	lists   ListStore
	catalog Catalog
	guard   StepGuard
	now     func() time.Time
	newID   func() string
}

// NewSequencer builds a Sequencer over its collaborators.
func NewSequencer(lists ListStore, catalog Catalog, guard StepGuard, opts ...Option) (*Sequencer, error) {
	if lists == nil || catalog == nil || guard == nil {
		return nil, ErrNilDependency
	}
	s := &Sequencer{
		lists:   lists,
		catalog: catalog,
		guard:   guard,
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// AddCandidate starts placing ref into owner's list. A beer already in the
// list is merged toward the default rating; a list with no eligible
// opponents takes the beer directly. Otherwise a session is returned with
// its first prompt.
func (s *Sequencer) AddCandidate(ctx context.Context, owner, listName string, ref model.BeerRef, opts ...AddOption) (Outcome, error) {
	key, err := listKey(owner, listName)
	if err != nil {
		return Outcome{}, err
	}
	if ref.IsZero() {
		return Outcome{}, ErrMissingBeer
	}
	var o addOptions
	for _, opt := range opts {
		opt(&o)
	}

	candidate, err := s.catalog.ResolveBeer(ctx, ref)
	if err != nil {
		return Outcome{}, err
	}

	list, err := s.lists.EnsureList(ctx, key)
	if err != nil {
		return Outcome{}, err
	}
	if list.Owner != key.Owner {
		return Outcome{}, ErrOwnerMismatch
	}

	if _, ok := list.Find(ref); ok {
		entry, err := s.merge(ctx, key, ref)
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{State: StateCommitted, Entry: entry, Merged: true}, nil
	}

	opponents, err := s.opponents(ctx, list, ref, o.filter)
	if err != nil {
		return Outcome{}, err
	}

	addedAt := s.now()
	if len(opponents) == 0 {
		return s.commit(ctx, key, model.NewEntry(ref, addedAt))
	}

	sess := Session{
		ID:        s.newID(),
		Owner:     key.Owner,
		List:      key.Name,
		Candidate: ref,
		Rating:    model.DefaultRating,
		Queue:     opponents,
		AddedAt:   addedAt,
	}
	return s.await(ctx, sess, candidate)
}

// SubmitComparison resolves the session's current comparison with winner.
// The opponent's rating is persisted before the outcome is returned; the
// candidate is persisted only when the queue is exhausted. Each step is
// accepted once; replays fail with ErrStepConsumed.
func (s *Sequencer) SubmitComparison(ctx context.Context, owner, listName string, sess Session, winner model.BeerRef) (Outcome, error) {
	key, err := listKey(owner, listName)
	if err != nil {
		return Outcome{}, err
	}
	if sess.Owner != key.Owner {
		return Outcome{}, ErrOwnerMismatch
	}
	if sess.List != key.Name {
		return Outcome{}, ErrSessionMismatch
	}
	opponent, ok := sess.Current()
	if !ok {
		return Outcome{}, ErrSessionExhausted
	}
	if winner != sess.Candidate && winner != opponent {
		return Outcome{}, ErrInvalidWinner
	}

	stepID := sess.StepID()
	seen, err := s.guard.SeenAndRecord(ctx, stepID)
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: record step: %w", ErrUnavailable, err)
	}
	if seen {
		return Outcome{}, ErrStepConsumed
	}

	step, err := s.applyStep(ctx, key, sess, opponent, winner == sess.Candidate)
	if err != nil {
		// Nothing was written, so the step may be retried.
		if uerr := s.guard.Unrecord(ctx, stepID); uerr != nil {
			return Outcome{}, errors.Join(err, fmt.Errorf("release step: %w", uerr))
		}
		return Outcome{}, err
	}
	next := step.session

	if next.State() == StateCommitted {
		return s.commit(ctx, key, model.RatedEntry{
			BeerRef:         next.Candidate,
			Rating:          next.Rating,
			ComparisonCount: next.Comparisons,
			AddedAt:         next.AddedAt,
		})
	}
	return s.await(ctx, next, step.candidate)
}

type stepResult struct {
	session   Session
	candidate model.Beer
}

// applyStep writes the opponent's new rating and returns the advanced
// session. An error means the opponent was left untouched.
func (s *Sequencer) applyStep(ctx context.Context, key model.ListKey, sess Session, opponent model.BeerRef, candidateWon bool) (stepResult, error) {
	candidate, err := s.catalog.ResolveBeer(ctx, sess.Candidate)
	if err != nil {
		return stepResult{}, err
	}
	if _, err := s.catalog.ResolveBeer(ctx, opponent); err != nil {
		return stepResult{}, err
	}

	list, err := s.lists.GetList(ctx, key)
	if err != nil {
		return stepResult{}, err
	}
	if list.Owner != key.Owner {
		return stepResult{}, ErrOwnerMismatch
	}
	if _, err := s.lists.EnsureEntry(ctx, key, opponent, s.now()); err != nil {
		return stepResult{}, err
	}

	var candidateRating int
	_, err = s.lists.PatchEntryRating(ctx, key, opponent, func(current int) int {
		c, o := rating.Update(sess.Rating, current, candidateWon)
		candidateRating = c
		return o
	}, IncrementCount)
	if err != nil {
		return stepResult{}, err
	}
	return stepResult{session: sess.advance(candidateRating), candidate: candidate}, nil
}

// AbandonSession consumes the session's pending step without applying it,
// so the session can no longer be advanced. Ratings already written stay.
func (s *Sequencer) AbandonSession(ctx context.Context, owner, listName string, sess Session) (Outcome, error) {
	key, err := listKey(owner, listName)
	if err != nil {
		return Outcome{}, err
	}
	if sess.Owner != key.Owner {
		return Outcome{}, ErrOwnerMismatch
	}
	if sess.List != key.Name {
		return Outcome{}, ErrSessionMismatch
	}
	if _, ok := sess.Current(); !ok {
		return Outcome{}, ErrSessionExhausted
	}
	seen, err := s.guard.SeenAndRecord(ctx, sess.StepID())
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: record step: %w", ErrUnavailable, err)
	}
	if seen {
		return Outcome{}, ErrStepConsumed
	}
	return Outcome{State: StateAbandoned}, nil
}

// Compare applies one comparison between two beers of an existing list.
// Sides that are not members yet are inserted with default values first.
func (s *Sequencer) Compare(ctx context.Context, owner, listName string, a, b, winner model.BeerRef) (CompareResult, error) {
	key, err := listKey(owner, listName)
	if err != nil {
		return CompareResult{}, err
	}
	if a.IsZero() || b.IsZero() {
		return CompareResult{}, ErrMissingBeer
	}
	if a == b {
		return CompareResult{}, ErrSameBeer
	}
	if winner != a && winner != b {
		return CompareResult{}, ErrInvalidWinner
	}
	for _, ref := range []model.BeerRef{a, b} {
		if _, err := s.catalog.ResolveBeer(ctx, ref); err != nil {
			return CompareResult{}, err
		}
	}

	list, err := s.lists.GetList(ctx, key)
	if err != nil {
		return CompareResult{}, err
	}
	if list.Owner != key.Owner {
		return CompareResult{}, ErrOwnerMismatch
	}

	now := s.now()
	if _, err := s.lists.EnsureEntry(ctx, key, a, now); err != nil {
		return CompareResult{}, err
	}
	entryB, err := s.lists.EnsureEntry(ctx, key, b, now)
	if err != nil {
		return CompareResult{}, err
	}

	aWon := winner == a
	var ratingA int
	entryA, err := s.lists.PatchEntryRating(ctx, key, a, func(current int) int {
		ratingA = current
		na, _ := rating.Update(current, entryB.Rating, aWon)
		return na
	}, IncrementCount)
	if err != nil {
		return CompareResult{}, err
	}
	entryB, err = s.lists.PatchEntryRating(ctx, key, b, func(current int) int {
		_, nb := rating.Update(ratingA, current, aWon)
		return nb
	}, IncrementCount)
	if err != nil {
		return CompareResult{}, err
	}
	return CompareResult{A: entryA, B: entryB}, nil
}

// commit inserts entry, merging instead when a concurrent writer got the
// beer into the list first.
func (s *Sequencer) commit(ctx context.Context, key model.ListKey, entry model.RatedEntry) (Outcome, error) {
	err := s.lists.InsertEntry(ctx, key, entry)
	if err == nil {
		return Outcome{State: StateCommitted, Entry: entry}, nil
	}
	if !errors.Is(err, ErrDuplicateEntry) {
		return Outcome{}, err
	}
	merged, err := s.merge(ctx, key, entry.BeerRef)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{State: StateCommitted, Entry: merged, Merged: true}, nil
}

func (s *Sequencer) merge(ctx context.Context, key model.ListKey, ref model.BeerRef) (model.RatedEntry, error) {
	return s.lists.PatchEntryRating(ctx, key, ref, rating.Merge, ResetCount)
}

// await builds the prompt for the session's current opponent. Opponents
// that no longer resolve are dropped; if none remain the candidate is
// committed.
func (s *Sequencer) await(ctx context.Context, sess Session, candidate model.Beer) (Outcome, error) {
	key := sess.Key()
	for {
		ref, ok := sess.Current()
		if !ok {
			return s.commit(ctx, key, model.RatedEntry{
				BeerRef:         sess.Candidate,
				Rating:          sess.Rating,
				ComparisonCount: sess.Comparisons,
				AddedAt:         sess.AddedAt,
			})
		}
		opponent, err := s.catalog.ResolveBeer(ctx, ref)
		if errors.Is(err, ErrNotFound) {
			sess = sess.drop()
			continue
		}
		if err != nil {
			return Outcome{}, err
		}

		opponentRating := model.DefaultRating
		if list, err := s.lists.GetList(ctx, key); err == nil {
			if e, ok := list.Find(ref); ok {
				opponentRating = e.Rating
			}
		} else if !errors.Is(err, ErrNotFound) {
			return Outcome{}, err
		}

		out := sess
		return Outcome{
			State:   StateAwaitingComparison,
			Session: &out,
			Prompt: &Prompt{
				Candidate:       candidate,
				CandidateRating: sess.Rating,
				Opponent:        opponent,
				OpponentRating:  opponentRating,
				Remaining:       sess.Remaining(),
				Step:            sess.Step,
			},
		}, nil
	}
}

// opponents returns the members other than ref, in list order, that
// resolve in the catalog and pass keep.
func (s *Sequencer) opponents(ctx context.Context, list model.List, ref model.BeerRef, keep func(model.Beer) bool) ([]model.BeerRef, error) {
	others := list.Others(ref)
	if len(others) == 0 {
		return nil, nil
	}
	refs := make([]model.BeerRef, len(others))
	for i, e := range others {
		refs[i] = e.BeerRef
	}
	beers, err := s.catalog.ResolveBeers(ctx, refs)
	if err != nil {
		return nil, err
	}

	out := make([]model.BeerRef, 0, len(refs))
	for _, r := range refs {
		b, ok := beers[r]
		if !ok {
			continue
		}
		if keep != nil && !keep(b) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func listKey(owner, listName string) (model.ListKey, error) {
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return model.ListKey{}, ErrMissingOwner
	}
	listName = strings.TrimSpace(listName)
	if listName == "" {
		listName = model.DefaultListName
	}
	return model.ListKey{Owner: owner, Name: listName}, nil
}
