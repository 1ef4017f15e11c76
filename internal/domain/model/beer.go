// Package model contains domain models passed between layers.
package model

import (
	"strings"
	"time"
)

// BeerRef is the canonical identifier of a catalog beer. Store adapters
// translate whatever representation they persist into this form.
type BeerRef string

// String returns the ref as a plain string.
func (r BeerRef) String() string { return string(r) }

// IsZero reports whether the ref is empty after trimming whitespace.
func (r BeerRef) IsZero() bool { return strings.TrimSpace(string(r)) == "" }

// Beer holds the descriptive attributes of a catalog beer.
type Beer struct {
	Ref         BeerRef
	Name        string
	Brewery     string
	Type        string
	ABV         *float64
	IBU         *int
	Description string
	ImageURL    string
	CreatedAt   time.Time
}

// NewBeer is the input for adding a beer to the catalog.
type NewBeer struct {
	Name        string
	Brewery     string
	Type        string
	ABV         *float64
	IBU         *int
	Description string
	ImageURL    string
}
