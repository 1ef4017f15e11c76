// Package repository implements list and catalog storage, in memory and
// on MongoDB.
package repository

import (
	"context"
	"time"

	model "github.com/okian/brewrank/internal/domain/model"
	"github.com/okian/brewrank/internal/domain/ranking"
	"github.com/okian/brewrank/pkg/metrics"
)

// Backend names, used as metric labels.
const (
	backendMemory = "memory"
	backendMongo  = "mongo"
)

// Store is a ranking.ListStore that can also serve ranked views.
type Store interface {
	ranking.ListStore

	// Ranked returns the list's entries ordered by rating desc, then beer
	// ref asc. It returns ranking.ErrListNotFound for unknown lists.
	Ranked(ctx context.Context, key model.ListKey) ([]model.RatedEntry, error)

	// CountLists returns the number of lists across all owners.
	CountLists(ctx context.Context) (int, error)

	// Ping checks the backend is reachable.
	Ping(ctx context.Context) error
}

// SearchQuery filters catalog searches. Text matches name or brewery,
// case-insensitively; Type matches exactly, ignoring case.
type SearchQuery struct {
	Text  string
	Type  string
	Limit int
}

// CatalogStore is a ranking.Catalog that can also be searched and grown.
type CatalogStore interface {
	ranking.Catalog

	// SearchBeers returns at most q.Limit beers ordered by name.
	SearchBeers(ctx context.Context, q SearchQuery) ([]model.Beer, error)

	// AddBeer stores a new beer. It returns ranking.ErrInvalidBeer when a
	// required attribute is blank and ranking.ErrDuplicateBeer when a beer
	// with the same name and brewery exists.
	AddBeer(ctx context.Context, in model.NewBeer) (model.Beer, error)

	// CountBeers returns the catalog size.
	CountBeers(ctx context.Context) (int, error)
}

// observe records a store call. Use it deferred with a pointer to the
// named error result.
func observe(backend, op string, started time.Time, err *error) {
	var e error
	if err != nil {
		e = *err
	}
	metrics.RecordStoreOperation(backend, op, started, e)
}
