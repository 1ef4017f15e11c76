package repository

import "time"

// MemoryOption applies a configuration option to the MemoryStore.
type MemoryOption func(*MemoryStore)

// WithStoreClock sets the time source for list creation timestamps.
func WithStoreClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// CatalogOption applies a configuration option to the MemoryCatalog.
type CatalogOption func(*MemoryCatalog)

// WithCatalogClock sets the time source for beer creation timestamps.
func WithCatalogClock(now func() time.Time) CatalogOption {
	return func(c *MemoryCatalog) {
		if now != nil {
			c.now = now
		}
	}
}

// WithBeerIDs sets the generator for new beer refs.
func WithBeerIDs(next func() string) CatalogOption {
	return func(c *MemoryCatalog) {
		if next != nil {
			c.newID = next
		}
	}
}

// MongoOption applies a configuration option to the Mongo stores.
type MongoOption func(*mongoOptions)

type mongoOptions struct {
	listsCollection string
	beersCollection string
	maxPatchRetries int
	now             func() time.Time
}

func defaultMongoOptions() mongoOptions {
	return mongoOptions{
		listsCollection: "beer_lists",
		beersCollection: "beers",
		maxPatchRetries: 8,
		now:             time.Now,
	}
}

// WithListsCollection overrides the collection holding lists.
func WithListsCollection(name string) MongoOption {
	return func(o *mongoOptions) {
		if name != "" {
			o.listsCollection = name
		}
	}
}

// WithBeersCollection overrides the collection holding the catalog.
func WithBeersCollection(name string) MongoOption {
	return func(o *mongoOptions) {
		if name != "" {
			o.beersCollection = name
		}
	}
}

// WithMaxPatchRetries bounds the compare-and-set attempts of a rating patch.
func WithMaxPatchRetries(n int) MongoOption {
	return func(o *mongoOptions) {
		if n > 0 {
			o.maxPatchRetries = n
		}
	}
}

// WithMongoClock sets the time source for created_at fields.
func WithMongoClock(now func() time.Time) MongoOption {
	return func(o *mongoOptions) {
		if now != nil {
			o.now = now
		}
	}
}
