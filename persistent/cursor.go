package persistent

import "github.com/vinelabs/containers/internal/trie"

// Cursor is a lightweight index into one specific item of the Map it was
// derived from, identified by its path from the root (spec §4.9, §9). A
// Cursor is stable only against the exact root it was captured from: any
// mutation of that Map produces a logically new tree with a different
// root, and resolving a Cursor against it is a stale-cursor programmer
// error (spec §7 class 1), which panics rather than returning a sentinel,
// since a wrong-but-silent lookup would be far worse than a loud one.
type Cursor[K comparable, V any] struct {
	root     *trie.Node[K, V]
	path     []uint
	itemSlot uint
}

// Cursors returns a Cursor for every entry of m, in the same order as
// ForEach.
func (m *Map[K, V]) Cursors() []Cursor[K, V] {
	var out []Cursor[K, V]
	var walk func(n *trie.Node[K, V], path []uint)
	walk = func(n *trie.Node[K, V], path []uint) {
		if n == nil {
			return
		}
		if trie.IsCollisionNode(n) {
			for s := range trie.CollisionItems(n) {
				out = append(out, Cursor[K, V]{root: m.root, path: append([]uint(nil), path...), itemSlot: uint(s)})
			}
			return
		}
		for s := range trie.NormalItems(n) {
			out = append(out, Cursor[K, V]{root: m.root, path: append([]uint(nil), path...), itemSlot: uint(s)})
		}
		for cs, c := range trie.Children(n) {
			walk(c, append(append([]uint(nil), path...), uint(cs)))
		}
	}
	walk(m.root, nil)
	return out
}

// Get resolves c against m, panicking if c was not derived from m's
// current root.
func (c Cursor[K, V]) Get(m *Map[K, V]) (K, V) {
	if c.root != m.root {
		panic("persistent: stale index cursor")
	}
	n := m.root
	for _, cs := range c.path {
		n = trie.Children(n)[cs]
	}
	if trie.IsCollisionNode(n) {
		it := trie.CollisionItems(n)[c.itemSlot]
		return it.Key, it.Val
	}
	it := trie.NormalItems(n)[c.itemSlot]
	return it.Key, it.Val
}
