package trie

import "sync/atomic"

// C7 structural sharing. Every Node carries an atomic edge count: the
// number of parent slots (or persistent.Map/Set roots, via their own
// retain/release calls) currently pointing at it. A node may be mutated in
// place exactly when that count is 1 -- nobody else can observe the
// mutation. Otherwise it must be cloned first, and the clone's children are
// retained since they now have one more parent edge than before.
//
// This is a Go rendition of Swift's isKnownUniquelyReferenced/COW pattern
// using an explicit refcount rather than a runtime hook, since Go exposes
// no such hook. Edges are the only thing counted -- not "is this reachable
// from any live goroutine" -- so the count is always an exact, sound proxy
// for uniqueness: retain/release fire exactly when this package creates or
// destroys a parent-child edge, and persistent.Map/Set do the same for the
// root edge via runtime.SetFinalizer (see persistent/root.go).

// Retain increments n's edge count. Called whenever an existing node
// becomes reachable from one more parent slot than before.
func Retain[K comparable, V any](n *Node[K, V]) {
	if n == nil {
		return
	}
	atomic.AddInt32(&n.refs, 1)
}

// Release decrements n's edge count. Called whenever a parent slot that
// used to point at n stops doing so.
func Release[K comparable, V any](n *Node[K, V]) {
	if n == nil {
		return
	}
	atomic.AddInt32(&n.refs, -1)
}

// isUnique reports whether n has exactly one parent edge, i.e. it is safe
// to mutate in place.
func isUnique[K comparable, V any](n *Node[K, V]) bool {
	return atomic.LoadInt32(&n.refs) == 1
}

// clone makes a private, exclusively-owned copy of n with a fresh edge
// count of 1, retaining every child n currently holds (they now have one
// additional parent: the clone).
func clone[K comparable, V any](n *Node[K, V]) *Node[K, V] {
	fresh := &Node[K, V]{
		itemMap:       n.itemMap,
		childMap:      n.childMap,
		isCollision:   n.isCollision,
		collisionHash: n.collisionHash,
		count:         n.count,
		refs:          1,
	}
	fresh.slots = make([]slot[K, V], len(n.slots))
	copy(fresh.slots, n.slots)
	if !n.isCollision {
		nc := n.childCount()
		for i := uint(0); i < nc; i++ {
			Retain(fresh.slots[i].child)
		}
	}
	return fresh
}

// makeUnique returns a node that this call may freely mutate: n itself if
// it is already exclusively owned, or a fresh retained clone otherwise.
func makeUnique[K comparable, V any](n *Node[K, V]) *Node[K, V] {
	if n == nil {
		return nil
	}
	if isUnique(n) {
		return n
	}
	return clone(n)
}

// setChild installs child at logical child slot s of the (already unique)
// working node w, releasing whatever occupied that slot before. Both
// pointers may be nil (nil old means the slot didn't exist yet; that case
// is handled by the C5 insert helpers, which grow the slots array first).
func setChild[K comparable, V any](w *Node[K, V], s uint, child *Node[K, V]) {
	old := w.slots[s].child
	w.slots[s].child = child
	w.slots[s].key = *new(K)
	w.slots[s].val = *new(V)
	if old != child {
		Release(old)
	}
}
