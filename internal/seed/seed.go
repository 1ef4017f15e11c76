// Package seed holds the sample catalog and loads it into an empty store.
package seed

import (
	"context"
	"errors"
	"fmt"

	model "github.com/okian/brewrank/internal/domain/model"
	"github.com/okian/brewrank/internal/domain/ranking"
)

// Catalog is the part of a catalog store seeding needs.
type Catalog interface {
	CountBeers(ctx context.Context) (int, error)
	AddBeer(ctx context.Context, in model.NewBeer) (model.Beer, error)
}

func floatPtr(v float64) *float64 { return &v }

func intPtr(v int) *int { return &v }

// SampleBeers is the bundled starter catalog.
func SampleBeers() []model.NewBeer {
	return []model.NewBeer{
		{
			Name:        "Pliny the Elder",
			Brewery:     "Russian River Brewing Company",
			Type:        "Double IPA",
			ABV:         floatPtr(8.0),
			IBU:         intPtr(100),
			Description: "A well-balanced Double IPA with citrusy hop flavors and a clean finish.",
			ImageURL:    "https://example.com/pliny.jpg",
		},
		{
			Name:        "Guinness Draught",
			Brewery:     "Guinness",
			Type:        "Stout",
			ABV:         floatPtr(4.2),
			IBU:         intPtr(45),
			Description: "A classic Irish dry stout with a creamy texture and roasted barley flavor.",
			ImageURL:    "https://example.com/guinness.jpg",
		},
		{
			Name:        "Sierra Nevada Pale Ale",
			Brewery:     "Sierra Nevada Brewing Co.",
			Type:        "Pale Ale",
			ABV:         floatPtr(5.6),
			IBU:         intPtr(38),
			Description: "A pioneering American pale ale with citrusy Cascade hops.",
			ImageURL:    "https://example.com/sierra-nevada.jpg",
		},
		{
			Name:        "Allagash White",
			Brewery:     "Allagash Brewing Company",
			Type:        "Witbier",
			ABV:         floatPtr(5.1),
			IBU:         intPtr(10),
			Description: "A traditional Belgian-style wheat beer brewed with coriander and orange peel.",
			ImageURL:    "https://example.com/allagash.jpg",
		},
		{
			Name:        "Heady Topper",
			Brewery:     "The Alchemist",
			Type:        "Double IPA",
			ABV:         floatPtr(8.0),
			IBU:         intPtr(120),
			Description: "A legendary Vermont Double IPA with tropical hop flavors.",
			ImageURL:    "https://example.com/heady-topper.jpg",
		},
	}
}

// Result reports what Run did.
type Result struct {
	Existing int
	Inserted int
	Skipped  bool
}

// Run inserts beers into c when c holds no beers. Beers that already
// exist, for instance from a concurrent seeder, are not an error.
func Run(ctx context.Context, c Catalog, beers []model.NewBeer) (Result, error) {
	n, err := c.CountBeers(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("count beers: %w", err)
	}
	if n > 0 {
		return Result{Existing: n, Skipped: true}, nil
	}

	var res Result
	for _, b := range beers {
		if _, err := c.AddBeer(ctx, b); err != nil {
			if errors.Is(err, ranking.ErrDuplicateBeer) {
				continue
			}
			return res, fmt.Errorf("add %q: %w", b.Name, err)
		}
		res.Inserted++
	}
	return res, nil
}
