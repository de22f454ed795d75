package trie

import "github.com/vinelabs/containers/internal/bitset"

// C8: bulk construction and set algebra. Every binary operation below
// short-circuits on pointer-identical subtrees before doing any work --
// the fast-identity path spec P10 requires for equality, and the same
// short-circuit gives union/intersection/difference their sublinear best
// case whenever the operands already share structure.
//
// Union/Intersect/Difference walk (a, b) together level by level, per
// §4.8: at each pair of normal nodes, classify every bucket present in
// either operand's itemMap/childMap union into one of six cases
// (item-item, item-child, child-item, child-child, item-only, child-only)
// and build the result node's bitmaps and slots from that classification
// directly, rather than flattening either side. A bucket classified
// "only in one operand" reuses that operand's subtree by reference --
// the sharing §4.8 asks for -- instead of walking and reinserting it.
// Recursion bottoms out through the ordinary isCollision check each
// function already opens with, so a child-child pair where either side
// has degenerated into a collision node falls through to the *ViaHashRouting
// helpers below, which reconcile items the same way Build does: by
// inserting into a freshly accumulated root that is never exposed to any
// other owner, so it needs none of the borrowed-retain protection
// insertAtLevel/removeAtLevel/upsertAtLevel require when they mutate a
// node reachable through a live predecessor.

// Pair is one key/value input to Build.
type Pair[K comparable, V any] struct {
	Key K
	Val V
}

// Build constructs a tree from a sequence of key/value pairs, later pairs
// overwriting earlier ones for the same key.
func Build[K comparable, V any](layout Layout, hasher Hasher[K], pairs []Pair[K, V]) *Node[K, V] {
	var root *Node[K, V]
	for _, p := range pairs {
		root, _ = Insert(root, layout, hasher, hasher(p.Key), p.Key, p.Val)
	}
	return root
}

// Equal reports whether two trees hold the same key/value pairs. Identical
// roots (including both nil) short-circuit immediately; per P10 this is
// the common outcome once set algebra discovers one operand entirely
// subsumes the other.
func Equal[K comparable, V any](a, b *Node[K, V], eq func(V, V) bool) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	if a.count != b.count {
		return false
	}
	return subtreeEqual(a, b, eq)
}

// subtreeEqual walks both trees together while their shapes agree
// (identical bitmaps at every visited normal node), falling back to a
// linear cross-check once they diverge -- which can happen even for
// value-equal trees, since bitmap layout also reflects insertion/removal
// history, not just current content.
func subtreeEqual[K comparable, V any](a, b *Node[K, V], eq func(V, V) bool) bool {
	if a == b {
		return true
	}
	if a.isCollision || b.isCollision || a.itemMap != b.itemMap || a.childMap != b.childMap {
		return sameItems(a, b, eq)
	}
	for s := uint(0); s < a.itemMap.Count(); s++ {
		ak, av := a.itemAt(s)
		bk, bv := b.itemAt(s)
		if ak != bk || !eq(av, bv) {
			return false
		}
	}
	for s := uint(0); s < a.childMap.Count(); s++ {
		if !subtreeEqual(a.childAt(s), b.childAt(s), eq) {
			return false
		}
	}
	return true
}

func sameItems[K comparable, V any](a, b *Node[K, V], eq func(V, V) bool) bool {
	ai := collectItems(a, nil)
	bi := collectItems(b, nil)
	if len(ai) != len(bi) {
		return false
	}
	for _, it := range ai {
		v, ok := lookupLinear(b, it.Key)
		if !ok || !eq(it.Val, v) {
			return false
		}
	}
	return true
}

// collectItems walks a subtree collecting every item, used by the slow
// paths above and below where the two operands' shapes disagree and a
// full key-by-key reconciliation is unavoidable.
func collectItems[K comparable, V any](n *Node[K, V], out []Pair[K, V]) []Pair[K, V] {
	if n == nil {
		return out
	}
	if n.isCollision {
		for _, s := range n.slots {
			out = append(out, Pair[K, V]{Key: s.key, Val: s.val})
		}
		return out
	}
	for s := uint(0); s < n.itemMap.Count(); s++ {
		k, v := n.itemAt(s)
		out = append(out, Pair[K, V]{Key: k, Val: v})
	}
	for s := uint(0); s < n.childMap.Count(); s++ {
		out = collectItems(n.childAt(s), out)
	}
	return out
}

func lookupLinear[K comparable, V any](n *Node[K, V], key K) (V, bool) {
	var zero V
	if n == nil {
		return zero, false
	}
	if n.isCollision {
		for _, s := range n.slots {
			if s.key == key {
				return s.val, true
			}
		}
		return zero, false
	}
	for s := uint(0); s < n.itemMap.Count(); s++ {
		k, v := n.itemAt(s)
		if k == key {
			return v, true
		}
	}
	for s := uint(0); s < n.childMap.Count(); s++ {
		if v, ok := lookupLinear(n.childAt(s), key); ok {
			return v, ok
		}
	}
	return zero, false
}

// insertFrom and lookupFrom are Insert/Lookup generalized to start at an
// arbitrary level, for set-algebra code that descends into a node already
// known to sit partway down a tree (a child reached via the bitmap
// classification below), where restarting bucket extraction from level 0
// would consume the wrong hash bits entirely.
func insertFrom[K comparable, V any](root *Node[K, V], layout Layout, hasher Hasher[K], level uint, hash uint64, key K, val V) (*Node[K, V], bool) {
	if root == nil {
		return newLeafItem[K, V](layout.Bucket(hash, level), key, val), true
	}
	return insertAtLevel(root, layout, hasher, level, hash, key, val)
}

func lookupFrom[K comparable, V any](root *Node[K, V], layout Layout, level uint, hash uint64, key K) (V, bool) {
	var zero V
	n := root
	for lvl := level; n != nil; lvl++ {
		if n.isCollision {
			if n.collisionHash != hash {
				return zero, false
			}
			for _, s := range n.slots {
				if s.key == key {
					return s.val, true
				}
			}
			return zero, false
		}
		b := layout.Bucket(hash, lvl)
		if n.itemMap.Contains(b) {
			s := n.itemMap.Rank(b)
			k, v := n.itemAt(s)
			if k == key {
				return v, true
			}
			return zero, false
		}
		if n.childMap.Contains(b) {
			n = n.childAt(n.childMap.Rank(b))
			continue
		}
		return zero, false
	}
	return zero, false
}

// Union returns a tree containing every key present in a or b; keys in
// both use combine(aVal, bVal). Every return path that hands back an
// existing node -- the a==b identity, a nil operand, or an only-in-one-
// operand subtree reused wholesale below -- retains it first, since the
// caller is about to wire it into a new edge (a fresh root, or a slot of
// a freshly built parent) on top of whatever edges it already carries.
func Union[K comparable, V any](a, b *Node[K, V], layout Layout, hasher Hasher[K], combine func(a, b V) V) *Node[K, V] {
	return unionAt(a, b, layout, hasher, 0, combine)
}

func unionAt[K comparable, V any](a, b *Node[K, V], layout Layout, hasher Hasher[K], level uint, combine func(a, b V) V) *Node[K, V] {
	if a == b {
		Retain(a)
		return a
	}
	if a == nil {
		Retain(b)
		return b
	}
	if b == nil {
		Retain(a)
		return a
	}
	if a.isCollision || b.isCollision {
		return unionViaHashRouting(a, b, layout, hasher, level, combine)
	}

	buckets := a.itemMap.Union(a.childMap).Union(b.itemMap).Union(b.childMap)
	var itemMap, childMap bitset.Set32
	var items []slot[K, V]
	var children []*Node[K, V]
	count := 0

	for m := buckets; ; {
		bkt, rest, ok := m.PopFirst()
		if !ok {
			break
		}
		m = rest

		aItem, aChild := a.itemMap.Contains(bkt), a.childMap.Contains(bkt)
		bItem, bChild := b.itemMap.Contains(bkt), b.childMap.Contains(bkt)

		switch {
		case aItem && bItem:
			ak, av := a.itemAt(a.itemMap.Rank(bkt))
			bk, bv := b.itemAt(b.itemMap.Rank(bkt))
			if ak == bk {
				items = append(items, slot[K, V]{key: ak, val: combine(av, bv)})
				itemMap = itemMap.Insert(bkt)
				count++
				continue
			}
			child := spawnChild[K, V](layout, level+1, ak, av, hasher(ak), bk, bv, hasher(bk))
			children = append(children, child)
			childMap = childMap.Insert(bkt)
			count += child.count
		case aItem && bChild:
			ak, av := a.itemAt(a.itemMap.Rank(bkt))
			bc := b.childAt(b.childMap.Rank(bkt))
			child := unionItemIntoSubtree(bc, layout, hasher, level+1, ak, av, combine, true)
			children = append(children, child)
			childMap = childMap.Insert(bkt)
			count += child.count
		case aChild && bItem:
			ac := a.childAt(a.childMap.Rank(bkt))
			bk, bv := b.itemAt(b.itemMap.Rank(bkt))
			child := unionItemIntoSubtree(ac, layout, hasher, level+1, bk, bv, combine, false)
			children = append(children, child)
			childMap = childMap.Insert(bkt)
			count += child.count
		case aChild && bChild:
			ac := a.childAt(a.childMap.Rank(bkt))
			bc := b.childAt(b.childMap.Rank(bkt))
			child := unionAt(ac, bc, layout, hasher, level+1, combine)
			children = append(children, child)
			childMap = childMap.Insert(bkt)
			count += child.count
		case aItem:
			ak, av := a.itemAt(a.itemMap.Rank(bkt))
			items = append(items, slot[K, V]{key: ak, val: av})
			itemMap = itemMap.Insert(bkt)
			count++
		case bItem:
			bk, bv := b.itemAt(b.itemMap.Rank(bkt))
			items = append(items, slot[K, V]{key: bk, val: bv})
			itemMap = itemMap.Insert(bkt)
			count++
		case aChild:
			ac := a.childAt(a.childMap.Rank(bkt))
			Retain(ac)
			children = append(children, ac)
			childMap = childMap.Insert(bkt)
			count += ac.count
		case bChild:
			bc := b.childAt(b.childMap.Rank(bkt))
			Retain(bc)
			children = append(children, bc)
			childMap = childMap.Insert(bkt)
			count += bc.count
		}
	}

	return finishSetOpNode(itemMap, childMap, children, items, count)
}

// unionItemIntoSubtree folds one item (key, val) into subtree, combining
// with any existing value at key. itemIsA reports which side of the
// caller's combine(a, b) the loose item is on, so the combine order
// matches regardless of whether the item came from a's node or b's.
// subtree may be reachable through a live predecessor of the caller's
// operand (it is never the caller's own top-level input, only one of its
// children), so the descent into it is borrow-protected exactly like
// insertAtLevel's.
func unionItemIntoSubtree[K comparable, V any](subtree *Node[K, V], layout Layout, hasher Hasher[K], level uint, key K, val V, combine func(a, b V) V, itemIsA bool) *Node[K, V] {
	hash := hasher(key)
	Retain(subtree)
	existing, ok := lookupFrom(subtree, layout, level, hash, key)
	var result *Node[K, V]
	switch {
	case !ok:
		result, _ = insertFrom(subtree, layout, hasher, level, hash, key, val)
	case itemIsA:
		result, _ = insertFrom(subtree, layout, hasher, level, hash, key, combine(val, existing))
	default:
		result, _ = insertFrom(subtree, layout, hasher, level, hash, key, combine(existing, val))
	}
	Release(subtree)
	return result
}

// unionViaHashRouting handles any Union call where a or b has degenerated
// into a collision node, where the bitmap classification above no longer
// applies. It reconciles both sides into a freshly accumulated root that
// is never exposed to another owner mid-build, the same safe pattern
// Build uses, so it needs no borrowed retains around its own insertFrom
// calls -- but that fresh root must still be built starting at level (the
// level a and b themselves occupy), not level 0, since it replaces a and
// b in place as a subtree of whatever ancestor is being assembled above.
func unionViaHashRouting[K comparable, V any](a, b *Node[K, V], layout Layout, hasher Hasher[K], level uint, combine func(a, b V) V) *Node[K, V] {
	var root *Node[K, V]
	for _, it := range collectItems(a, nil) {
		hash := hasher(it.Key)
		root, _ = insertFrom(root, layout, hasher, level, hash, it.Key, it.Val)
	}
	for _, it := range collectItems(b, nil) {
		hash := hasher(it.Key)
		if existing, ok := lookupFrom(root, layout, level, hash, it.Key); ok {
			root, _ = insertFrom(root, layout, hasher, level, hash, it.Key, combine(existing, it.Val))
		} else {
			root, _ = insertFrom(root, layout, hasher, level, hash, it.Key, it.Val)
		}
	}
	return root
}

func countOf[K comparable, V any](n *Node[K, V]) int {
	if n == nil {
		return 0
	}
	return n.count
}

// finishSetOpNode builds the result node of a bitmap-classified merge, or
// returns nil if nothing survived the merge (an empty node is never a
// valid tree shape). The returned node's refs is preloaded to 1 for the
// one edge its caller is about to create, matching every other node
// constructor in this package.
func finishSetOpNode[K comparable, V any](itemMap, childMap bitset.Set32, children []*Node[K, V], items []slot[K, V], count int) *Node[K, V] {
	if itemMap.IsEmpty() && childMap.IsEmpty() {
		return nil
	}
	n := &Node[K, V]{itemMap: itemMap, childMap: childMap, count: count, refs: 1}
	n.slots = buildNormal[K, V](itemMap, childMap, children, items)
	return n
}

// Intersect returns a tree of keys present in both a and b, with values
// combine(aVal, bVal).
func Intersect[K comparable, V any](a, b *Node[K, V], layout Layout, hasher Hasher[K], combine func(a, b V) V) *Node[K, V] {
	return intersectAt(a, b, layout, hasher, 0, combine)
}

func intersectAt[K comparable, V any](a, b *Node[K, V], layout Layout, hasher Hasher[K], level uint, combine func(a, b V) V) *Node[K, V] {
	if a == b {
		Retain(a)
		return a
	}
	if a == nil || b == nil {
		return nil
	}
	if a.isCollision || b.isCollision {
		return intersectViaHashRouting(a, b, layout, hasher, level, combine)
	}

	buckets := a.itemMap.Union(a.childMap).Intersect(b.itemMap.Union(b.childMap))
	var itemMap, childMap bitset.Set32
	var items []slot[K, V]
	var children []*Node[K, V]
	count := 0

	for m := buckets; ; {
		bkt, rest, ok := m.PopFirst()
		if !ok {
			break
		}
		m = rest

		aItem, aChild := a.itemMap.Contains(bkt), a.childMap.Contains(bkt)
		bItem, bChild := b.itemMap.Contains(bkt), b.childMap.Contains(bkt)

		switch {
		case aItem && bItem:
			ak, av := a.itemAt(a.itemMap.Rank(bkt))
			bk, bv := b.itemAt(b.itemMap.Rank(bkt))
			if ak != bk {
				continue
			}
			items = append(items, slot[K, V]{key: ak, val: combine(av, bv)})
			itemMap = itemMap.Insert(bkt)
			count++
		case aItem && bChild:
			ak, av := a.itemAt(a.itemMap.Rank(bkt))
			bc := b.childAt(b.childMap.Rank(bkt))
			if bv, ok := lookupFrom(bc, layout, level+1, hasher(ak), ak); ok {
				items = append(items, slot[K, V]{key: ak, val: combine(av, bv)})
				itemMap = itemMap.Insert(bkt)
				count++
			}
		case aChild && bItem:
			ac := a.childAt(a.childMap.Rank(bkt))
			bk, bv := b.itemAt(b.itemMap.Rank(bkt))
			if av, ok := lookupFrom(ac, layout, level+1, hasher(bk), bk); ok {
				items = append(items, slot[K, V]{key: bk, val: combine(av, bv)})
				itemMap = itemMap.Insert(bkt)
				count++
			}
		case aChild && bChild:
			ac := a.childAt(a.childMap.Rank(bkt))
			bc := b.childAt(b.childMap.Rank(bkt))
			child := intersectAt(ac, bc, layout, hasher, level+1, combine)
			if child == nil {
				continue
			}
			children = append(children, child)
			childMap = childMap.Insert(bkt)
			count += child.count
		}
	}

	return finishSetOpNode(itemMap, childMap, children, items, count)
}

func intersectViaHashRouting[K comparable, V any](a, b *Node[K, V], layout Layout, hasher Hasher[K], level uint, combine func(a, b V) V) *Node[K, V] {
	small, big, smallIsA := a, b, true
	if countOf(b) < countOf(a) {
		small, big, smallIsA = b, a, false
	}
	var root *Node[K, V]
	for _, it := range collectItems(small, nil) {
		hash := hasher(it.Key)
		v, ok := lookupFrom(big, layout, level, hash, it.Key)
		if !ok {
			continue
		}
		cv := combine(it.Val, v)
		if !smallIsA {
			cv = combine(v, it.Val)
		}
		root, _ = insertFrom(root, layout, hasher, level, hash, it.Key, cv)
	}
	return root
}

// Difference returns a tree of keys present in a but not b.
func Difference[K comparable, V any](a, b *Node[K, V], layout Layout, hasher Hasher[K]) *Node[K, V] {
	return differenceAt(a, b, layout, hasher, 0)
}

func differenceAt[K comparable, V any](a, b *Node[K, V], layout Layout, hasher Hasher[K], level uint) *Node[K, V] {
	if a == b {
		return nil
	}
	if a == nil {
		return nil
	}
	if b == nil {
		Retain(a)
		return a
	}
	if a.isCollision || b.isCollision {
		return differenceViaHashRouting(a, b, layout, hasher, level)
	}

	var itemMap, childMap bitset.Set32
	var items []slot[K, V]
	var children []*Node[K, V]
	count := 0

	for m := a.itemMap.Union(a.childMap); ; {
		bkt, rest, ok := m.PopFirst()
		if !ok {
			break
		}
		m = rest

		if a.itemMap.Contains(bkt) {
			ak, av := a.itemAt(a.itemMap.Rank(bkt))
			switch {
			case b.itemMap.Contains(bkt):
				if bk, _ := b.itemAt(b.itemMap.Rank(bkt)); bk == ak {
					continue
				}
			case b.childMap.Contains(bkt):
				bc := b.childAt(b.childMap.Rank(bkt))
				if _, ok := lookupFrom(bc, layout, level+1, hasher(ak), ak); ok {
					continue
				}
			}
			items = append(items, slot[K, V]{key: ak, val: av})
			itemMap = itemMap.Insert(bkt)
			count++
			continue
		}

		ac := a.childAt(a.childMap.Rank(bkt))
		switch {
		case b.childMap.Contains(bkt):
			bc := b.childAt(b.childMap.Rank(bkt))
			child := differenceAt(ac, bc, layout, hasher, level+1)
			if child == nil {
				continue
			}
			children = append(children, child)
			childMap = childMap.Insert(bkt)
			count += child.count
		case b.itemMap.Contains(bkt):
			bk, _ := b.itemAt(b.itemMap.Rank(bkt))
			hash := hasher(bk)
			Retain(ac)
			outcome, _, deleted := removeAtLevel(ac, layout, hasher, level+1, hash, bk)
			Release(ac)
			if !deleted {
				Retain(ac)
				children = append(children, ac)
				childMap = childMap.Insert(bkt)
				count += ac.count
				continue
			}
			switch outcome.kind {
			case outcomeEmpty:
			case outcomeSingleton:
				items = append(items, slot[K, V]{key: outcome.key, val: outcome.val})
				itemMap = itemMap.Insert(bkt)
				count++
			default:
				children = append(children, outcome.node)
				childMap = childMap.Insert(bkt)
				count += outcome.node.count
			}
		default:
			Retain(ac)
			children = append(children, ac)
			childMap = childMap.Insert(bkt)
			count += ac.count
		}
	}

	return finishSetOpNode(itemMap, childMap, children, items, count)
}

func differenceViaHashRouting[K comparable, V any](a, b *Node[K, V], layout Layout, hasher Hasher[K], level uint) *Node[K, V] {
	var root *Node[K, V]
	for _, it := range collectItems(a, nil) {
		hash := hasher(it.Key)
		if _, ok := lookupFrom(b, layout, level, hash, it.Key); !ok {
			root, _ = insertFrom(root, layout, hasher, level, hash, it.Key, it.Val)
		}
	}
	return root
}

// SymmetricDifference returns a tree of keys present in exactly one of a, b.
func SymmetricDifference[K comparable, V any](a, b *Node[K, V], layout Layout, hasher Hasher[K]) *Node[K, V] {
	if a == b {
		return nil
	}
	da := Difference(a, b, layout, hasher)
	db := Difference(b, a, layout, hasher)
	return Union(da, db, layout, hasher, func(x, _ V) V { return x })
}

// IsSubset reports whether every key of a is present in b with an equal
// value.
func IsSubset[K comparable, V any](a, b *Node[K, V], layout Layout, hasher Hasher[K], eq func(V, V) bool) bool {
	if a == b {
		return true
	}
	if a == nil {
		return true
	}
	if b == nil {
		return false
	}
	if countOf(a) > countOf(b) {
		return false
	}
	for _, it := range collectItems(a, nil) {
		v, ok := Lookup(b, layout, hasher(it.Key), it.Key)
		if !ok || !eq(it.Val, v) {
			return false
		}
	}
	return true
}
