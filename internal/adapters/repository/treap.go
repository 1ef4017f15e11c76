package repository

import (
	"hash/fnv"

	model "github.com/okian/brewrank/internal/domain/model"
)

// Treap index over one list's entries.
//
// Ordering: rating DESC, then beerRef ASC (deterministic). "less" means
// ranks earlier, so in-order traversal yields the list from best to worst.
// Priorities come from a hash of the ref, which keeps the shape of the
// tree independent of insertion order and rating.

type node struct {
	ref    model.BeerRef
	rating int
	prio   uint64
	left   *node
	right  *node
}

// less returns true if (aRating, aRef) should appear before (bRating, bRef).
func less(aRating int, aRef model.BeerRef, bRating int, bRef model.BeerRef) bool {
	if aRating != bRating {
		return aRating > bRating
	}
	return aRef < bRef
}

func priority(ref model.BeerRef) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(ref))
	return h.Sum64()
}

func rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
	return y
}

func insert(n *node, ref model.BeerRef, rating int) *node {
	if n == nil {
		return &node{ref: ref, rating: rating, prio: priority(ref)}
	}
	if less(rating, ref, n.rating, n.ref) {
		n.left = insert(n.left, ref, rating)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, ref, rating)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	return n
}

func deleteNode(n *node, ref model.BeerRef, rating int) *node {
	if n == nil {
		return nil
	}
	switch {
	case rating == n.rating && ref == n.ref:
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, ref, rating)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, ref, rating)
		}
	case less(rating, ref, n.rating, n.ref):
		n.left = deleteNode(n.left, ref, rating)
	default:
		n.right = deleteNode(n.right, ref, rating)
	}
	return n
}

// collect appends refs in rank order.
func collect(n *node, out *[]model.BeerRef) {
	if n == nil {
		return
	}
	collect(n.left, out)
	*out = append(*out, n.ref)
	collect(n.right, out)
}
