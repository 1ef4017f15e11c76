// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/okian/brewrank/internal/adapters/repository"
	"github.com/okian/brewrank/internal/adapters/sessiontoken"
	"github.com/okian/brewrank/internal/domain/dedupe"
	model "github.com/okian/brewrank/internal/domain/model"
	"github.com/okian/brewrank/internal/domain/ranking"
	"github.com/okian/brewrank/internal/domain/types"
	"github.com/okian/brewrank/internal/seed"
	"github.com/okian/brewrank/pkg/logger"
	"github.com/okian/brewrank/pkg/metrics"
)

// ErrNotStarted is returned by operations called before Start.
var ErrNotStarted = errors.New("service not started")

// StepGuard is a ranking.StepGuard that can report its health.
type StepGuard interface {
	ranking.StepGuard
	Ping(ctx context.Context) error
}

// memoryGuard adapts the in-process deduper.
type memoryGuard struct {
	*dedupe.Guard
}

func (memoryGuard) Ping(context.Context) error { return nil }

// Service implements the API dependencies for the ranking system.
type Service struct {
	mu sync.RWMutex

	// Core components
	store   repository.Store
	catalog repository.CatalogStore
	guard   StepGuard
	memory  *dedupe.Guard
	codec   *sessiontoken.Codec
	seq     *ranking.Sequencer

	// Configuration
	guardSize      int
	sessionSecret  string
	sessionTTL     time.Duration
	maxSearchLimit int
	seedCatalog    bool
	now            func() time.Time

	// State
	started bool

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the list store. The default is an in-memory store.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithCatalog sets the beer catalog. The default is an in-memory catalog.
func WithCatalog(catalog repository.CatalogStore) Option {
	return func(s *Service) {
		if catalog != nil {
			s.catalog = catalog
		}
	}
}

// WithStepGuard sets the replay guard. The default is an in-process guard.
func WithStepGuard(guard StepGuard) Option {
	return func(s *Service) {
		if guard != nil {
			s.guard = guard
		}
	}
}

// WithGuardSize bounds the in-process replay guard.
func WithGuardSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.guardSize = size
		}
	}
}

// WithSessionSecret sets the key session tokens are signed with.
func WithSessionSecret(secret string) Option {
	return func(s *Service) {
		s.sessionSecret = secret
	}
}

// WithSessionTTL sets the lifetime of session tokens.
func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.sessionTTL = ttl
		}
	}
}

// WithMaxSearchLimit caps catalog search results.
func WithMaxSearchLimit(limit int) Option {
	return func(s *Service) {
		if limit > 0 {
			s.maxSearchLimit = limit
		}
	}
}

// WithSeedCatalog loads the sample beers into an empty catalog on Start.
func WithSeedCatalog(seed bool) Option {
	return func(s *Service) {
		s.seedCatalog = seed
	}
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		guardSize:      100_000,
		sessionTTL:     24 * time.Hour,
		maxSearchLimit: 50,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	s.logger.Info(ctx, "starting ranking service...")

	if s.store == nil {
		s.store = repository.NewMemoryStore()
		s.logger.Info(ctx, "using in-memory list store")
	}
	if s.catalog == nil {
		s.catalog = repository.NewMemoryCatalog()
		s.logger.Info(ctx, "using in-memory catalog")
	}
	if s.guard == nil {
		// Step ids must outlive every token that can carry them.
		s.memory = dedupe.AsStepGuard(dedupe.NewInMemoryDeduper(
			dedupe.WithMaxSize(s.guardSize),
			dedupe.WithTTL(2*s.sessionTTL),
			dedupe.WithClock(s.now)))
		s.guard = memoryGuard{s.memory}
		s.logger.Info(ctx, "using in-process replay guard",
			logger.Int("size", s.guardSize),
			logger.Duration("ttl", 2*s.sessionTTL))
	}

	codec, err := sessiontoken.NewCodec(s.sessionSecret,
		sessiontoken.WithTTL(s.sessionTTL),
		sessiontoken.WithClock(s.now))
	if err != nil {
		return fmt.Errorf("session codec: %w", err)
	}
	seq, err := ranking.NewSequencer(s.store, s.catalog, s.guard, ranking.WithClock(s.now))
	if err != nil {
		return fmt.Errorf("sequencer: %w", err)
	}
	s.codec, s.seq = codec, seq

	if s.seedCatalog {
		res, err := seed.Run(ctx, s.catalog, seed.SampleBeers())
		if err != nil {
			return fmt.Errorf("seed catalog: %w", err)
		}
		s.logger.Info(ctx, "catalog seeded",
			logger.Int("inserted", res.Inserted),
			logger.Int("existing", res.Existing),
			logger.Bool("skipped", res.Skipped),
		)
	}

	s.started = true
	s.logger.Info(ctx, "ranking service started",
		logger.Duration("sessionTTL", s.sessionTTL),
		logger.Int("maxSearchLimit", s.maxSearchLimit),
	)
	return nil
}

// Stop marks the service stopped. Backends owned by the caller are not
// closed here.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.started = false
	s.logger.Info(context.Background(), "ranking service stopped")
}

func (s *Service) ready() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ErrNotStarted
	}
	return nil
}

// SearchBeers finds catalog beers whose name or brewery contains text.
// limit is capped at the configured maximum; a non-positive limit means
// the maximum.
func (s *Service) SearchBeers(ctx context.Context, text, beerType string, limit int) ([]types.Beer, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > s.maxSearchLimit {
		limit = s.maxSearchLimit
	}
	beers, err := s.catalog.SearchBeers(ctx, repository.SearchQuery{Text: text, Type: beerType, Limit: limit})
	if err != nil {
		return nil, s.fail(ctx, "search beers", err)
	}
	out := make([]types.Beer, len(beers))
	for i, b := range beers {
		out[i] = types.FromBeer(b)
	}
	return out, nil
}

// GetBeer returns one catalog beer.
func (s *Service) GetBeer(ctx context.Context, id string) (types.Beer, error) {
	if err := s.ready(); err != nil {
		return types.Beer{}, err
	}
	ref := model.BeerRef(strings.TrimSpace(id))
	if ref.IsZero() {
		return types.Beer{}, ranking.ErrMissingBeer
	}
	b, err := s.catalog.ResolveBeer(ctx, ref)
	if err != nil {
		return types.Beer{}, s.fail(ctx, "get beer", err)
	}
	return types.FromBeer(b), nil
}

// AddBeer adds a beer to the catalog.
func (s *Service) AddBeer(ctx context.Context, in model.NewBeer) (types.Beer, error) {
	if err := s.ready(); err != nil {
		return types.Beer{}, err
	}
	b, err := s.catalog.AddBeer(ctx, in)
	if err != nil {
		return types.Beer{}, s.fail(ctx, "add beer", err)
	}
	s.logger.Info(ctx, "beer added", logger.String("beer", b.Ref.String()), logger.String("name", b.Name))
	return types.FromBeer(b), nil
}

// Lists returns every list of owner.
func (s *Service) Lists(ctx context.Context, owner string) ([]types.List, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return nil, ranking.ErrMissingOwner
	}
	lists, err := s.store.Lists(ctx, owner)
	if err != nil {
		return nil, s.fail(ctx, "lists", err)
	}
	out := make([]types.List, len(lists))
	for i, l := range lists {
		out[i] = types.FromList(l)
	}
	return out, nil
}

// RankedList returns a list best first, joined with catalog attributes and
// optionally narrowed to one beer type. Entries whose beer left the
// catalog are skipped.
func (s *Service) RankedList(ctx context.Context, owner, listName, beerType string) (types.RankedList, error) {
	if err := s.ready(); err != nil {
		return types.RankedList{}, err
	}
	key, err := listKey(owner, listName)
	if err != nil {
		return types.RankedList{}, err
	}
	entries, err := s.store.Ranked(ctx, key)
	if err != nil {
		return types.RankedList{}, s.fail(ctx, "ranked list", err)
	}
	refs := make([]model.BeerRef, len(entries))
	for i, e := range entries {
		refs[i] = e.BeerRef
	}
	beers, err := s.catalog.ResolveBeers(ctx, refs)
	if err != nil {
		return types.RankedList{}, s.fail(ctx, "ranked list", err)
	}

	beerType = strings.TrimSpace(beerType)
	if beerType == model.DefaultListName {
		beerType = ""
	}
	out := types.RankedList{Name: key.Name, Type: beerType, Beers: make([]types.RankedBeer, 0, len(entries))}
	for _, e := range entries {
		b, ok := beers[e.BeerRef]
		if !ok {
			s.logger.Warn(ctx, "ranked entry missing from catalog",
				logger.String("list", key.Name),
				logger.String("beer", e.BeerRef.String()),
			)
			continue
		}
		if beerType != "" && !strings.EqualFold(b.Type, beerType) {
			continue
		}
		out.Beers = append(out.Beers, types.RankedBeer{
			Beer:        types.FromBeer(b),
			EloScore:    e.Rating,
			Comparisons: e.ComparisonCount,
		})
	}
	assignPositions(out.Beers)
	return out, nil
}

// assignPositions numbers entries already sorted by rating. Equal ratings
// share a position and the next rating takes the next position.
func assignPositions(beers []types.RankedBeer) {
	position := 0
	for i := range beers {
		if i == 0 || beers[i].EloScore != beers[i-1].EloScore {
			position++
		}
		beers[i].Position = position
	}
}

// AddCandidate starts placing a beer into owner's list. beerType narrows
// the opponents to one beer type.
func (s *Service) AddCandidate(ctx context.Context, owner, listName, beerID, beerType string) (types.Placement, error) {
	if err := s.ready(); err != nil {
		return types.Placement{}, err
	}
	ref := model.BeerRef(strings.TrimSpace(beerID))
	out, err := s.seq.AddCandidate(ctx, owner, listName, ref, ranking.WithOpponentType(beerType))
	if err != nil {
		return types.Placement{}, s.fail(ctx, "add candidate", err)
	}

	switch {
	case out.State == ranking.StateAwaitingComparison:
		metrics.RecordCandidate("session_started")
		s.logger.Debug(ctx, "comparison session started",
			logger.String("session", out.Session.ID),
			logger.String("beer", ref.String()),
			logger.Int("opponents", out.Session.Remaining()),
		)
	case out.Merged:
		metrics.RecordCandidate("merged")
		s.logger.Info(ctx, "beer merged into list",
			logger.String("beer", ref.String()),
			logger.Int("rating", out.Entry.Rating),
		)
	default:
		metrics.RecordCandidate("inserted")
		s.logger.Info(ctx, "beer inserted into list",
			logger.String("beer", ref.String()),
			logger.Int("rating", out.Entry.Rating),
		)
	}
	return s.placement(out)
}

// SubmitComparison resolves the pending comparison of the session carried
// by token.
func (s *Service) SubmitComparison(ctx context.Context, owner, listName, token, winnerID string) (types.Placement, error) {
	if err := s.ready(); err != nil {
		return types.Placement{}, err
	}
	sess, err := s.codec.Decode(token)
	if err != nil {
		return types.Placement{}, s.fail(ctx, "submit comparison", err)
	}
	winner := model.BeerRef(strings.TrimSpace(winnerID))
	out, err := s.seq.SubmitComparison(ctx, owner, listName, sess, winner)
	if err != nil {
		return types.Placement{}, s.fail(ctx, "submit comparison", err)
	}
	metrics.RecordComparisonApplied()

	if out.State == ranking.StateCommitted {
		metrics.RecordSessionCommitted()
		if out.Merged {
			metrics.RecordConflictMerge()
			s.logger.Warn(ctx, "session commit merged with concurrent insert",
				logger.String("session", sess.ID),
				logger.String("beer", sess.Candidate.String()),
				logger.Int("rating", out.Entry.Rating),
			)
		} else {
			s.logger.Info(ctx, "session committed",
				logger.String("session", sess.ID),
				logger.String("beer", sess.Candidate.String()),
				logger.Int("rating", out.Entry.Rating),
				logger.Int("comparisons", out.Entry.ComparisonCount),
			)
		}
	} else {
		s.logger.Debug(ctx, "comparison applied",
			logger.String("session", sess.ID),
			logger.Int("step", out.Session.Step),
			logger.Int("remaining", out.Session.Remaining()),
		)
	}
	return s.placement(out)
}

// AbandonSession ends the session carried by token without inserting its
// candidate.
func (s *Service) AbandonSession(ctx context.Context, owner, listName, token string) (types.Placement, error) {
	if err := s.ready(); err != nil {
		return types.Placement{}, err
	}
	sess, err := s.codec.Decode(token)
	if err != nil {
		return types.Placement{}, s.fail(ctx, "abandon session", err)
	}
	out, err := s.seq.AbandonSession(ctx, owner, listName, sess)
	if err != nil {
		return types.Placement{}, s.fail(ctx, "abandon session", err)
	}
	metrics.RecordSessionAbandoned()
	s.logger.Info(ctx, "session abandoned",
		logger.String("session", sess.ID),
		logger.Int("step", sess.Step),
	)
	return types.Placement{State: out.State.String()}, nil
}

// Compare applies one direct comparison between two beers of a list.
func (s *Service) Compare(ctx context.Context, owner, listName, beer1, beer2, winnerID string) (types.ComparisonResult, error) {
	if err := s.ready(); err != nil {
		return types.ComparisonResult{}, err
	}
	a := model.BeerRef(strings.TrimSpace(beer1))
	b := model.BeerRef(strings.TrimSpace(beer2))
	winner := model.BeerRef(strings.TrimSpace(winnerID))
	res, err := s.seq.Compare(ctx, owner, listName, a, b, winner)
	if err != nil {
		return types.ComparisonResult{}, s.fail(ctx, "compare", err)
	}
	metrics.RecordDirectComparison()
	s.logger.Info(ctx, "direct comparison applied",
		logger.String("winner", winner.String()),
		logger.Int("beer1Rating", res.A.Rating),
		logger.Int("beer2Rating", res.B.Rating),
	)
	return types.ComparisonResult{Beer1: types.FromEntry(res.A), Beer2: types.FromEntry(res.B)}, nil
}

// RemoveEntry removes a beer from owner's list.
func (s *Service) RemoveEntry(ctx context.Context, owner, listName, beerID string) error {
	if err := s.ready(); err != nil {
		return err
	}
	key, err := listKey(owner, listName)
	if err != nil {
		return err
	}
	ref := model.BeerRef(strings.TrimSpace(beerID))
	if ref.IsZero() {
		return ranking.ErrMissingBeer
	}
	list, err := s.store.GetList(ctx, key)
	if err != nil {
		return s.fail(ctx, "remove entry", err)
	}
	if list.Owner != key.Owner {
		return ranking.ErrOwnerMismatch
	}
	if err := s.store.RemoveEntry(ctx, key, ref); err != nil {
		return s.fail(ctx, "remove entry", err)
	}
	metrics.RecordEntryRemoved()
	s.logger.Info(ctx, "beer removed from list",
		logger.String("list", key.Name),
		logger.String("beer", ref.String()),
	)
	return nil
}

// Health pings the store and the replay guard.
func (s *Service) Health(ctx context.Context) error {
	if err := s.ready(); err != nil {
		return err
	}
	if err := s.store.Ping(ctx); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	if err := s.guard.Ping(ctx); err != nil {
		return fmt.Errorf("step guard: %w", err)
	}
	return nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":        s.started,
		"sessionTTL":     s.sessionTTL.String(),
		"maxSearchLimit": s.maxSearchLimit,
	}
	if !s.started {
		return stats
	}

	if n, err := s.catalog.CountBeers(ctx); err == nil {
		stats["catalogBeers"] = n
		metrics.UpdateCatalogBeers(n)
	}
	if n, err := s.store.CountLists(ctx); err == nil {
		stats["lists"] = n
		metrics.UpdateListsTotal(n)
	}
	if s.memory != nil {
		stats["stepGuardSize"] = s.memory.Size()
		stats["stepGuardEvicted"] = s.memory.Evicted()
		metrics.UpdateStepGuard(s.memory.Size(), s.memory.Evicted())
	}
	return stats
}

func (s *Service) placement(out ranking.Outcome) (types.Placement, error) {
	p := types.Placement{State: out.State.String(), Merged: out.Merged}
	if out.State == ranking.StateCommitted {
		e := types.FromEntry(out.Entry)
		p.Entry = &e
		return p, nil
	}

	token, err := s.codec.Encode(*out.Session)
	if err != nil {
		return types.Placement{}, err
	}
	expires := s.now().Add(s.codec.TTL()).UTC()
	p.SessionToken = token
	p.ExpiresAt = &expires
	p.Prompt = &types.Prompt{
		Candidate:       types.FromBeer(out.Prompt.Candidate),
		CandidateRating: out.Prompt.CandidateRating,
		Opponent:        types.FromBeer(out.Prompt.Opponent),
		OpponentRating:  out.Prompt.OpponentRating,
		Remaining:       out.Prompt.Remaining,
		Step:            out.Prompt.Step,
	}
	return p, nil
}

// fail logs err at a level matching its kind and returns it unchanged.
func (s *Service) fail(ctx context.Context, op string, err error) error {
	fields := []logger.Field{logger.String("op", op), logger.Error(err)}
	switch {
	case errors.Is(err, ranking.ErrStepConsumed):
		metrics.RecordReplayRejected()
		s.logger.Warn(ctx, "comparison replay rejected", fields...)
	case errors.Is(err, dedupe.ErrFull):
		metrics.RecordErrorByComponent("step_guard", op)
		s.logger.Error(ctx, "replay guard is full; step refused", fields...)
	case errors.Is(err, ranking.ErrNotFound),
		errors.Is(err, ranking.ErrInvalidArgument),
		errors.Is(err, ranking.ErrPermissionDenied),
		errors.Is(err, ranking.ErrConflict):
		s.logger.Debug(ctx, "request rejected", fields...)
	default:
		metrics.RecordErrorByComponent("service", op)
		s.logger.Error(ctx, "operation failed", fields...)
	}
	return err
}

func listKey(owner, listName string) (model.ListKey, error) {
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return model.ListKey{}, ranking.ErrMissingOwner
	}
	listName = strings.TrimSpace(listName)
	if listName == "" {
		listName = model.DefaultListName
	}
	return model.ListKey{Owner: owner, Name: listName}, nil
}
