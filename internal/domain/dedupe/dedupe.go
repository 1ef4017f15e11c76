// Package dedupe provides a bounded in-memory record of consumed ids.
package dedupe

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// ErrFull is returned when every slot holds an id younger than the ttl.
// The id is not recorded.
var ErrFull = errors.New("dedupe: set is full")

// Deduper records seen ids to ensure at-most-once processing.
type Deduper interface {
	// SeenAndRecord atomically checks if id was seen and records it if not.
	// Returns true if id was already seen, false if it was newly recorded.
	// A live id is never dropped to make room; ErrFull is returned instead.
	SeenAndRecord(ctx context.Context, id string) (bool, error)

	// Unrecord removes an id so it can be recorded again. Used when the
	// work guarded by id failed before producing any effect.
	Unrecord(ctx context.Context, id string)

	// Size is the number of ids currently held.
	Size() int64

	// Evicted is the number of ids dropped after outliving the ttl.
	Evicted() int64
}

// node is one recorded id. Nodes form a doubly linked list ordered by
// insertion, newest at head.
type node struct {
	id         string
	recordedAt time.Time
	prev, next *node
}

// inMemoryDeduper forgets ids once they are older than ttl and refuses new
// ids while maxSize live ones are held. maxSize <= 0 means unbounded; ttl <= 0
// means ids never expire.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]*node
	head    *node
	tail    *node
	maxSize int
	ttl     time.Duration
	now     func() time.Time
	size    atomic.Int64
	evicted atomic.Int64
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: 50000,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]*node)
	return d
}

// SeenAndRecord atomically checks if id was seen and records it if not.
func (d *inMemoryDeduper) SeenAndRecord(ctx context.Context, id string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	d.expire(now)

	if _, exists := d.seen[id]; exists {
		return true, nil
	}
	if d.maxSize > 0 && len(d.seen) >= d.maxSize {
		return false, ErrFull
	}

	n := &node{id: id, recordedAt: now, next: d.head}
	if d.head != nil {
		d.head.prev = n
	}
	d.head = n
	if d.tail == nil {
		d.tail = n
	}
	d.seen[id] = n
	d.size.Add(1)
	return false, nil
}

// Unrecord removes an id from the seen set, allowing it to be retried.
func (d *inMemoryDeduper) Unrecord(ctx context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if n, exists := d.seen[id]; exists {
		d.unlink(n)
	}
}

// Size returns the current number of entries in the deduper.
func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}

// Evicted returns how many ids expired without being unrecorded.
func (d *inMemoryDeduper) Evicted() int64 {
	return d.evicted.Load()
}

// expire drops ids older than ttl from the tail. Must be called with d.mu held.
func (d *inMemoryDeduper) expire(now time.Time) {
	if d.ttl <= 0 {
		return
	}
	for d.tail != nil && now.Sub(d.tail.recordedAt) >= d.ttl {
		d.unlink(d.tail)
		d.evicted.Add(1)
	}
}

// unlink removes n from the list and the map. Must be called with d.mu held.
func (d *inMemoryDeduper) unlink(n *node) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		d.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		d.tail = n.prev
	}
	n.prev, n.next = nil, nil
	delete(d.seen, n.id)
	d.size.Add(-1)
}
