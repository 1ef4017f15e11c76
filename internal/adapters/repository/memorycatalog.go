package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	model "github.com/okian/brewrank/internal/domain/model"
	"github.com/okian/brewrank/internal/domain/ranking"
)

// MemoryCatalog is an in-memory CatalogStore. Beer refs are random uuids.
type MemoryCatalog struct {
	mu    sync.RWMutex
	beers map[model.BeerRef]model.Beer
	now   func() time.Time
	newID func() string
}

// NewMemoryCatalog constructs an empty catalog.
func NewMemoryCatalog(opts ...CatalogOption) *MemoryCatalog {
	c := &MemoryCatalog{
		beers: make(map[model.BeerRef]model.Beer),
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ResolveBeer implements ranking.Catalog.
func (c *MemoryCatalog) ResolveBeer(ctx context.Context, ref model.BeerRef) (b model.Beer, err error) {
	defer observe(backendMemory, "resolve_beer", time.Now(), &err)

	c.mu.RLock()
	defer c.mu.RUnlock()
	b, ok := c.beers[ref]
	if !ok {
		return model.Beer{}, ranking.ErrBeerNotFound
	}
	return b, nil
}

// ResolveBeers implements ranking.Catalog.
func (c *MemoryCatalog) ResolveBeers(ctx context.Context, refs []model.BeerRef) (map[model.BeerRef]model.Beer, error) {
	defer observe(backendMemory, "resolve_beers", time.Now(), nil)

	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[model.BeerRef]model.Beer, len(refs))
	for _, ref := range refs {
		if b, ok := c.beers[ref]; ok {
			out[ref] = b
		}
	}
	return out, nil
}

// SearchBeers implements CatalogStore.
func (c *MemoryCatalog) SearchBeers(ctx context.Context, q SearchQuery) (out []model.Beer, err error) {
	defer observe(backendMemory, "search_beers", time.Now(), &err)

	if q.Limit < 1 {
		return nil, ErrInvalidLimit
	}
	text := strings.ToLower(strings.TrimSpace(q.Text))
	typ := strings.TrimSpace(q.Type)

	c.mu.RLock()
	out = make([]model.Beer, 0)
	for _, b := range c.beers {
		if typ != "" && !strings.EqualFold(b.Type, typ) {
			continue
		}
		if text != "" &&
			!strings.Contains(strings.ToLower(b.Name), text) &&
			!strings.Contains(strings.ToLower(b.Brewery), text) {
			continue
		}
		out = append(out, b)
	}
	c.mu.RUnlock()

	sortBeers(out)
	if len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// AddBeer implements CatalogStore.
func (c *MemoryCatalog) AddBeer(ctx context.Context, in model.NewBeer) (b model.Beer, err error) {
	defer observe(backendMemory, "add_beer", time.Now(), &err)

	in, err = normalizeNewBeer(in)
	if err != nil {
		return model.Beer{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, existing := range c.beers {
		if sameBeer(existing, in) {
			return model.Beer{}, ranking.ErrDuplicateBeer
		}
	}
	b = model.Beer{
		Ref:         model.BeerRef(c.newID()),
		Name:        in.Name,
		Brewery:     in.Brewery,
		Type:        in.Type,
		ABV:         in.ABV,
		IBU:         in.IBU,
		Description: in.Description,
		ImageURL:    in.ImageURL,
		CreatedAt:   c.now(),
	}
	c.beers[b.Ref] = b
	return b, nil
}

// CountBeers implements CatalogStore.
func (c *MemoryCatalog) CountBeers(ctx context.Context) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.beers), nil
}

// normalizeNewBeer trims attributes and checks the required ones.
func normalizeNewBeer(in model.NewBeer) (model.NewBeer, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Brewery = strings.TrimSpace(in.Brewery)
	in.Type = strings.TrimSpace(in.Type)
	in.Description = strings.TrimSpace(in.Description)
	in.ImageURL = strings.TrimSpace(in.ImageURL)
	if in.Name == "" || in.Brewery == "" || in.Type == "" {
		return model.NewBeer{}, ranking.ErrInvalidBeer
	}
	return in, nil
}

func sameBeer(b model.Beer, in model.NewBeer) bool {
	return strings.EqualFold(b.Name, in.Name) && strings.EqualFold(b.Brewery, in.Brewery)
}

// sortBeers orders by name, then brewery, then ref.
func sortBeers(beers []model.Beer) {
	sort.Slice(beers, func(i, j int) bool {
		if beers[i].Name != beers[j].Name {
			return beers[i].Name < beers[j].Name
		}
		if beers[i].Brewery != beers[j].Brewery {
			return beers[i].Brewery < beers[j].Brewery
		}
		return beers[i].Ref < beers[j].Ref
	})
}
