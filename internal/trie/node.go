package trie

import "github.com/vinelabs/containers/internal/bitset"

// slot is one entry of a node's packed storage: either a child subtree or
// an item, never both. This is the safe, GC-aware Go rendition of the raw
// "children forward / items backward in one byte buffer" layout spec'd for
// C3/C4 -- a single Go slice is a single allocation, and which half of the
// slice a given index belongs to is determined purely by childMap/itemMap
// bookkeeping, never a tag on the slot itself.
type slot[K comparable, V any] struct {
	child *Node[K, V]
	key   K
	val   V
}

// Node is either a normal node (itemMap and childMap disjoint) or a
// collision node (isCollision true, every item sharing collisionHash).
// A Node is reference-counted (refs) so the copy-on-write walker in
// share.go can tell whether it may mutate a node in place or must
// duplicate it first.
type Node[K comparable, V any] struct {
	itemMap  bitset.Set32
	childMap bitset.Set32

	isCollision   bool
	collisionHash uint64

	count int // number of items in this node's entire subtree
	refs  int32

	// Children occupy slots[0:childCount) in ascending bucket order.
	// Items occupy slots[len(slots)-itemCount:len(slots)) with logical
	// item slot s stored at physical index len(slots)-1-s (spec §3's
	// "reverse" item layout; a storage detail only, never observable).
	// Collision nodes reuse this same field to hold every colliding item,
	// in append order, since a collision node has no children to share
	// the array with.
	slots []slot[K, V]
}

func (n *Node[K, V]) itemCount() uint {
	if n.isCollision {
		return uint(len(n.slots))
	}
	return n.itemMap.Count()
}

func (n *Node[K, V]) childCount() uint {
	if n.isCollision {
		return 0
	}
	return n.childMap.Count()
}

// itemPhysicalIndex converts a logical item slot to its physical index in
// slots, for normal nodes.
func (n *Node[K, V]) itemPhysicalIndex(logical uint) int {
	return len(n.slots) - 1 - int(logical)
}

// itemAt returns the key/value stored at logical item slot s of a normal
// node.
func (n *Node[K, V]) itemAt(s uint) (K, V) {
	sl := &n.slots[n.itemPhysicalIndex(s)]
	return sl.key, sl.val
}

// childAt returns the child stored at logical child slot s.
func (n *Node[K, V]) childAt(s uint) *Node[K, V] {
	return n.slots[s].child
}

// collisionItems returns every key/value pair of a collision node.
func (n *Node[K, V]) collisionItems() []slot[K, V] {
	return n.slots
}

// newLeafItem builds a fresh single-item normal node holding one item at
// bucket b.
func newLeafItem[K comparable, V any](b uint, key K, val V) *Node[K, V] {
	return &Node[K, V]{
		itemMap: bitset.Set32(0).Insert(b),
		count:   1,
		refs:    1,
		slots:   []slot[K, V]{{key: key, val: val}},
	}
}

// newCollision builds a fresh collision node from at least two items that
// all share hash. Per invariant 4, a collision node always has >= 2 items.
func newCollision[K comparable, V any](hash uint64, items []slot[K, V]) *Node[K, V] {
	return &Node[K, V]{
		isCollision:   true,
		collisionHash: hash,
		count:         len(items),
		refs:          1,
		slots:         items,
	}
}

// buildNormal reconstructs a normal node's slots array in the packed
// layout from a set of children and items, given the new bitmaps. Nodes
// built whole (spawnChild, expandCollision, finishSetOpNode) go through it;
// the C5 single-node mutations in mutate.go instead splice the existing
// slots array at the physical index of the touched slot.
func buildNormal[K comparable, V any](itemMap, childMap bitset.Set32, children []*Node[K, V], items []slot[K, V]) []slot[K, V] {
	nc := childMap.Count()
	ni := itemMap.Count()
	out := make([]slot[K, V], nc+ni)
	for i, c := range children {
		out[i] = slot[K, V]{child: c}
	}
	for logical, it := range items {
		out[len(out)-1-logical] = it
	}
	return out
}
