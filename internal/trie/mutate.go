package trie

// C5: single-node mutations. Every function here first obtains an
// exclusively-owned working node via makeUnique (mutate in place if
// already unique, clone-and-retain otherwise) and then edits that node's
// packed slots array directly -- safe, because nothing else can observe an
// exclusively-owned node change mid-edit.
//
// Physical placement within slots follows directly from the layout in
// node.go: a child at logical slot cs lives at physical index cs; an item
// at logical slot is lives at physical index childCount+itemCount-1-is.
// Inserting/removing at those physical indices with a standard slice
// shift reproduces the "shift reverse-items down/up" and "shift children
// forward/backward" operations spec'd in §4.5, without hand-tracking two
// independent shift directions.

func insertAt[T any](s []T, p int, v T) []T {
	s = append(s, v)
	copy(s[p+1:], s[p:len(s)-1])
	s[p] = v
	return s
}

func removeAt[T any](s []T, p int) []T {
	copy(s[p:], s[p+1:])
	var zero T
	s[len(s)-1] = zero
	return s[:len(s)-1]
}

// insertItem places a new item at bucket b (not present in either map)
// into node n, returning the exclusively-owned result.
func insertItem[K comparable, V any](n *Node[K, V], b uint, key K, val V) *Node[K, V] {
	w := makeUnique(n)
	is := w.itemMap.Rank(b)
	p := int(w.childCount()) + int(w.itemMap.Count()) - int(is)
	w.slots = insertAt(w.slots, p, slot[K, V]{key: key, val: val})
	w.itemMap = w.itemMap.Insert(b)
	w.count++
	return w
}

// removeItem deletes the item at bucket b (present in itemMap) from n.
func removeItem[K comparable, V any](n *Node[K, V], b uint) *Node[K, V] {
	w := makeUnique(n)
	rs := w.itemMap.Rank(b)
	p := int(w.childCount()) + int(w.itemMap.Count()) - 1 - int(rs)
	w.slots = removeAt(w.slots, p)
	w.itemMap = w.itemMap.Remove(b)
	w.count--
	return w
}

// replaceItem overwrites the value of the item at bucket b in place; the
// item count and bitmaps are unaffected.
func replaceItem[K comparable, V any](n *Node[K, V], b uint, key K, val V) *Node[K, V] {
	w := makeUnique(n)
	s := w.itemMap.Rank(b)
	idx := w.itemPhysicalIndex(s)
	w.slots[idx].key = key
	w.slots[idx].val = val
	return w
}

// removeChild deletes the child at bucket b (present in childMap).
func removeChild[K comparable, V any](n *Node[K, V], b uint) *Node[K, V] {
	w := makeUnique(n)
	cs := w.childMap.Rank(b)
	old := w.childAt(cs)
	w.slots = removeAt(w.slots, int(cs))
	w.childMap = w.childMap.Remove(b)
	Release(old)
	recount(w)
	return w
}

// replaceChild swaps the child at bucket b for a new subtree.
func replaceChild[K comparable, V any](n *Node[K, V], b uint, child *Node[K, V]) *Node[K, V] {
	w := makeUnique(n)
	cs := w.childMap.Rank(b)
	setChild(w, cs, child)
	recount(w)
	return w
}

// recount recomputes w's subtree count from its own items and its
// children's counts. A child that a recursive call edited in place already
// carries its new count, so the parent's count cannot be adjusted by the
// difference between the old and the new child's counts.
func recount[K comparable, V any](w *Node[K, V]) {
	total := int(w.itemMap.Count())
	for s := uint(0); s < w.childMap.Count(); s++ {
		total += w.childAt(s).count
	}
	w.count = total
}

// replaceItemWithChild fuses "remove the item at bucket b" and "insert a
// child at bucket b" into one edit, per spec §4.5, used when a second key
// lands on an already-occupied bucket and the existing item must expand
// into a subtree.
func replaceItemWithChild[K comparable, V any](n *Node[K, V], b uint, child *Node[K, V]) *Node[K, V] {
	w := makeUnique(n)
	is := w.itemMap.Rank(b)
	pi := int(w.childCount()) + int(w.itemMap.Count()) - 1 - int(is)
	w.slots = removeAt(w.slots, pi)
	w.itemMap = w.itemMap.Remove(b)

	cs := w.childMap.Rank(b)
	w.slots = insertAt(w.slots, int(cs), slot[K, V]{child: child})
	w.childMap = w.childMap.Insert(b)

	w.count += child.count - 1
	return w
}

// replaceChildWithItem is the inverse fusion, used by the collapse rule
// (§4.6) when a subtree atrophies back down to a single item.
func replaceChildWithItem[K comparable, V any](n *Node[K, V], b uint, key K, val V) *Node[K, V] {
	w := makeUnique(n)
	cs := w.childMap.Rank(b)
	old := w.childAt(cs)
	w.slots = removeAt(w.slots, int(cs))
	w.childMap = w.childMap.Remove(b)
	Release(old)

	is := w.itemMap.Rank(b)
	pi := int(w.childCount()) + int(w.itemMap.Count()) - int(is)
	w.slots = insertAt(w.slots, pi, slot[K, V]{key: key, val: val})
	w.itemMap = w.itemMap.Insert(b)

	recount(w)
	return w
}

// appendCollisionItem adds one more key/value pair to a collision node.
func appendCollisionItem[K comparable, V any](n *Node[K, V], key K, val V) *Node[K, V] {
	w := makeUnique(n)
	w.slots = append(w.slots, slot[K, V]{key: key, val: val})
	w.count++
	return w
}

// replaceCollisionItem overwrites the value at index i of a collision
// node's item list in place.
func replaceCollisionItem[K comparable, V any](n *Node[K, V], i int, key K, val V) *Node[K, V] {
	w := makeUnique(n)
	w.slots[i].key = key
	w.slots[i].val = val
	return w
}

// removeCollisionItem deletes index i from a collision node's item list.
func removeCollisionItem[K comparable, V any](n *Node[K, V], i int) *Node[K, V] {
	w := makeUnique(n)
	w.slots = removeAt(w.slots, i)
	w.count--
	return w
}
