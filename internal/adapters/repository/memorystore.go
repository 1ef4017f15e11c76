package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	model "github.com/okian/brewrank/internal/domain/model"
	"github.com/okian/brewrank/internal/domain/ranking"
)

// memList is one list plus its rank index. Entries keep insertion order.
type memList struct {
	owner     string
	name      string
	createdAt time.Time
	entries   []model.RatedEntry
	index     map[model.BeerRef]int
	root      *node
}

func (l *memList) snapshot() model.List {
	return model.List{
		Owner:     l.owner,
		Name:      l.name,
		Entries:   append([]model.RatedEntry(nil), l.entries...),
		CreatedAt: l.createdAt,
	}
}

func (l *memList) add(e model.RatedEntry) {
	l.index[e.BeerRef] = len(l.entries)
	l.entries = append(l.entries, e)
	l.root = insert(l.root, e.BeerRef, e.Rating)
}

func (l *memList) remove(ref model.BeerRef) {
	i := l.index[ref]
	l.root = deleteNode(l.root, ref, l.entries[i].Rating)
	l.entries = append(l.entries[:i], l.entries[i+1:]...)
	delete(l.index, ref)
	for j := i; j < len(l.entries); j++ {
		l.index[l.entries[j].BeerRef] = j
	}
}

// MemoryStore is an in-memory Store. A single mutex serialises writers,
// which makes every per-entry read-modify-write atomic.
type MemoryStore struct {
	mu    sync.RWMutex
	lists map[model.ListKey]*memList
	now   func() time.Time
}

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		lists: make(map[model.ListKey]*memList),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetList implements ranking.ListStore.
func (s *MemoryStore) GetList(ctx context.Context, key model.ListKey) (list model.List, err error) {
	defer observe(backendMemory, "get_list", time.Now(), &err)

	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.lists[key]
	if !ok {
		return model.List{}, ranking.ErrListNotFound
	}
	return l.snapshot(), nil
}

// EnsureList implements ranking.ListStore.
func (s *MemoryStore) EnsureList(ctx context.Context, key model.ListKey) (model.List, error) {
	defer observe(backendMemory, "ensure_list", time.Now(), nil)

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensure(key).snapshot(), nil
}

// ensure must be called with s.mu held for writing.
func (s *MemoryStore) ensure(key model.ListKey) *memList {
	l, ok := s.lists[key]
	if !ok {
		l = &memList{
			owner:     key.Owner,
			name:      key.Name,
			createdAt: s.now(),
			index:     make(map[model.BeerRef]int),
		}
		s.lists[key] = l
	}
	return l
}

// InsertEntry implements ranking.ListStore.
func (s *MemoryStore) InsertEntry(ctx context.Context, key model.ListKey, entry model.RatedEntry) (err error) {
	defer observe(backendMemory, "insert_entry", time.Now(), &err)

	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.ensure(key)
	if _, ok := l.index[entry.BeerRef]; ok {
		return ranking.ErrDuplicateEntry
	}
	l.add(entry)
	return nil
}

// EnsureEntry implements ranking.ListStore.
func (s *MemoryStore) EnsureEntry(ctx context.Context, key model.ListKey, ref model.BeerRef, addedAt time.Time) (entry model.RatedEntry, err error) {
	defer observe(backendMemory, "ensure_entry", time.Now(), &err)

	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.lists[key]
	if !ok {
		return model.RatedEntry{}, ranking.ErrListNotFound
	}
	if i, ok := l.index[ref]; ok {
		return l.entries[i], nil
	}
	entry = model.NewEntry(ref, addedAt)
	l.add(entry)
	return entry, nil
}

// PatchEntryRating implements ranking.ListStore.
func (s *MemoryStore) PatchEntryRating(ctx context.Context, key model.ListKey, ref model.BeerRef, rate ranking.RateFunc, count ranking.CountUpdate) (entry model.RatedEntry, err error) {
	defer observe(backendMemory, "patch_entry", time.Now(), &err)

	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.lists[key]
	if !ok {
		return model.RatedEntry{}, ranking.ErrListNotFound
	}
	i, ok := l.index[ref]
	if !ok {
		return model.RatedEntry{}, ranking.ErrEntryNotFound
	}

	e := l.entries[i]
	l.root = deleteNode(l.root, ref, e.Rating)
	e.Rating = rate(e.Rating)
	switch count {
	case ranking.IncrementCount:
		e.ComparisonCount++
	case ranking.ResetCount:
		e.ComparisonCount = 0
	}
	l.entries[i] = e
	l.root = insert(l.root, ref, e.Rating)
	return e, nil
}

// RemoveEntry implements ranking.ListStore.
func (s *MemoryStore) RemoveEntry(ctx context.Context, key model.ListKey, ref model.BeerRef) (err error) {
	defer observe(backendMemory, "remove_entry", time.Now(), &err)

	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.lists[key]
	if !ok {
		return ranking.ErrListNotFound
	}
	if _, ok := l.index[ref]; !ok {
		return ranking.ErrEntryNotFound
	}
	l.remove(ref)
	return nil
}

// Lists implements ranking.ListStore. Lists are ordered by creation time,
// then name.
func (s *MemoryStore) Lists(ctx context.Context, owner string) ([]model.List, error) {
	defer observe(backendMemory, "lists", time.Now(), nil)

	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.List, 0)
	for key, l := range s.lists {
		if key.Owner == owner {
			out = append(out, l.snapshot())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// Ranked implements Store by walking the list's treap in order.
func (s *MemoryStore) Ranked(ctx context.Context, key model.ListKey) (out []model.RatedEntry, err error) {
	defer observe(backendMemory, "ranked", time.Now(), &err)

	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.lists[key]
	if !ok {
		return nil, ranking.ErrListNotFound
	}
	refs := make([]model.BeerRef, 0, len(l.entries))
	collect(l.root, &refs)
	out = make([]model.RatedEntry, len(refs))
	for i, ref := range refs {
		out[i] = l.entries[l.index[ref]]
	}
	return out, nil
}

// CountLists implements Store.
func (s *MemoryStore) CountLists(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.lists), nil
}

// Ping implements Store.
func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}
