package persistent

import "github.com/vinelabs/containers/internal/trie"

// Iterator is a pull-style forward iterator over a Map's (or Set's)
// entries, yielding depth-first in ascending-bucket order (spec §4.9),
// each entry once, in O(1) amortized per step. It holds no reference back
// to its Map, so it is unaffected by later mutations of that Map (a new
// Map value, not the one the Iterator was built from); spec §6's
// invalidation rule instead applies to reusing an Iterator after further
// mutation of the SAME underlying node graph is never possible here,
// since persistent nodes are never mutated once shared -- the only true
// staleness risk is a caller holding an Iterator built from a root that
// isKnownUniquelyReferenced elsewhere and mutating THAT Map value with a
// method that mutates in place, which this package never does. Iterators
// are provided principally for API parity with spec §6, and for
// allocation-free early termination that ForEach's callback style cannot
// offer as conveniently in a for/range-shaped caller.
type Iterator[K comparable, V any] struct {
	stack   []*trie.Node[K, V]
	pending []trie.Item[K, V]
	idx     int
}

// Next returns the next (key, value) pair, or ok=false once exhausted.
// stack is a LIFO: a node's children are pushed in descending-bucket
// order so the smallest-bucket child ends up on top and pops first,
// giving the same depth-first, ascending-bucket order as ForEach with
// only a slice append/truncate per node -- O(1) amortized per step, total
// O(n), rather than the O(depth-remaining) it would cost to keep the
// stack in front-to-back order and splice children in at the front.
func (it *Iterator[K, V]) Next() (K, V, bool) {
	for it.idx >= len(it.pending) {
		if len(it.stack) == 0 {
			var zk K
			var zv V
			return zk, zv, false
		}
		n := it.stack[len(it.stack)-1]
		it.stack = it.stack[:len(it.stack)-1]
		if n == nil {
			continue
		}
		if trie.IsCollisionNode(n) {
			it.pending = trie.CollisionItems(n)
		} else {
			it.pending = trie.NormalItems(n)
			children := trie.Children(n)
			for i := len(children) - 1; i >= 0; i-- {
				it.stack = append(it.stack, children[i])
			}
		}
		it.idx = 0
	}
	item := it.pending[it.idx]
	it.idx++
	return item.Key, item.Val, true
}
