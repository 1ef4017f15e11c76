package dedupe

import "context"

// Guard exposes a Deduper through the step guard contract the ranking
// sequencer consumes.
type Guard struct {
	d Deduper
}

// AsStepGuard wraps d.
func AsStepGuard(d Deduper) *Guard {
	return &Guard{d: d}
}

// SeenAndRecord reports whether id was recorded before and records it.
func (g *Guard) SeenAndRecord(ctx context.Context, id string) (bool, error) {
	return g.d.SeenAndRecord(ctx, id)
}

// Unrecord forgets id.
func (g *Guard) Unrecord(ctx context.Context, id string) error {
	g.d.Unrecord(ctx, id)
	return nil
}

// Size is the number of ids currently held.
func (g *Guard) Size() int64 { return g.d.Size() }

// Evicted is the number of ids dropped after outliving the ttl.
func (g *Guard) Evicted() int64 { return g.d.Evicted() }
