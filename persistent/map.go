package persistent

import (
	"reflect"

	"github.com/vinelabs/containers/internal/trie"
)

// Map is a persistent, structurally-shared map from K to V. The zero
// value is not usable; construct one with New. Every mutating method
// returns a new *Map logically independent of the receiver -- the
// receiver is never modified, matching the teacher's own Hamt.Put/Del
// convention (lleo-go-hamt-functional/hamt32/hamt.go), generalized here
// from a value receiver returning a new Hamt to a pointer receiver
// returning a new *Map, so a Map's root-edge lifetime can be tracked by a
// finalizer (see root.go).
type Map[K comparable, V any] struct {
	root  *trie.Node[K, V]
	count int
	cfg   *config[K]
}

// New returns an empty Map configured by opts. Option validation, here
// and in Build, is the only error path in this whole package, per spec
// §7's mutation-path-is-error-free design.
func New[K comparable, V any](opts ...Option[K]) (*Map[K, V], error) {
	cfg, err := buildConfig[K](opts)
	if err != nil {
		return nil, err
	}
	return newMap[K, V](cfg, nil, 0), nil
}

// Build constructs a Map from a sequence of key/value pairs in one bulk
// pass, later pairs overwriting earlier ones for the same key -- spec
// §4.8's bulk build.
func Build[K comparable, V any](pairs []trie.Pair[K, V], opts ...Option[K]) (*Map[K, V], error) {
	cfg, err := buildConfig[K](opts)
	if err != nil {
		return nil, err
	}
	root := trie.Build(cfg.layout, cfg.hasher, pairs)
	return newMap(cfg, root, trie.Count(root)), nil
}

func newMap[K comparable, V any](cfg *config[K], root *trie.Node[K, V], count int) *Map[K, V] {
	m := &Map[K, V]{root: root, count: count, cfg: cfg}
	attachRoot(m, root)
	if cfg.internalChecks {
		checkInvariants[K, V](root, cfg.hasher, cfg.layout)
	}
	return m
}

// Count returns the number of entries.
func (m *Map[K, V]) Count() int { return m.count }

// IsEmpty reports whether the map holds no entries.
func (m *Map[K, V]) IsEmpty() bool { return m.count == 0 }

// Contains reports whether key is present.
func (m *Map[K, V]) Contains(key K) bool {
	_, ok := m.Get(key)
	return ok
}

// Get looks up key, implementing spec §4.9's lookup operation.
func (m *Map[K, V]) Get(key K) (V, bool) {
	return trie.Lookup(m.root, m.cfg.layout, m.cfg.hasher(key), key)
}

// Put returns a new Map with key mapped to val, implementing spec §4.9's
// insert operation. Putting an already-present key with a
// reflect.DeepEqual value is a documented no-op mirroring Delete's: the
// returned Map shares its root with m (spec §7), rather than walking and
// rebuilding a path that would end up holding the same value anyway.
// Overwriting with a genuinely new value is P3's last-write-wins.
func (m *Map[K, V]) Put(key K, val V) *Map[K, V] {
	if existing, ok := m.Get(key); ok && reflect.DeepEqual(existing, val) {
		return m
	}
	// m.root is borrowed here, not consumed: m stays live and unmodified
	// for as long as any caller holds it, so Insert must never conclude
	// m.root is uniquely owned by this call and mutate it in place. The
	// borrow's retain keeps refs above 1 for the duration of the call;
	// the matching release then hands the edge back to m alone.
	trie.Retain(m.root)
	root, added := trie.Insert(m.root, m.cfg.layout, m.cfg.hasher, m.cfg.hasher(key), key, val)
	trie.Release(m.root)
	count := m.count
	if added {
		count++
	}
	return newMap(m.cfg, root, count)
}

// Delete returns a new Map with key absent, implementing spec §4.9's
// remove operation. Deleting an absent key is a documented no-op: the
// returned Map shares its root with m (spec §7).
func (m *Map[K, V]) Delete(key K) *Map[K, V] {
	trie.Retain(m.root)
	root, _, deleted := trie.Remove(m.root, m.cfg.layout, m.cfg.hasher, m.cfg.hasher(key), key)
	trie.Release(m.root)
	if !deleted {
		return m
	}
	return newMap(m.cfg, root, m.count-1)
}

// Upsert applies update to the value already stored at key, or installs
// insertVal() if key is absent. insertVal is called at most once, and
// only on insertion, matching spec §4.9's "default evaluates exactly once
// and only when inserting."
func (m *Map[K, V]) Upsert(key K, insertVal func() V, update func(V) V) (*Map[K, V], V) {
	trie.Retain(m.root)
	root, newVal, added := trie.Upsert(m.root, m.cfg.layout, m.cfg.hasher, m.cfg.hasher(key), key, insertVal, update)
	trie.Release(m.root)
	count := m.count
	if added {
		count++
	}
	return newMap(m.cfg, root, count), newVal
}

// Merge combines m with other, using combine to resolve keys present in
// both -- spec §4.9's merge, invoking combine exactly once per duplicate
// key.
func (m *Map[K, V]) Merge(other *Map[K, V], combine func(a, b V) V) *Map[K, V] {
	root := trie.Union(m.root, other.root, m.cfg.layout, m.cfg.hasher, combine)
	return newMap(m.cfg, root, trie.Count(root))
}

// Intersect returns entries present in both m and other, with values
// combine(mVal, otherVal).
func (m *Map[K, V]) Intersect(other *Map[K, V], combine func(a, b V) V) *Map[K, V] {
	root := trie.Intersect(m.root, other.root, m.cfg.layout, m.cfg.hasher, combine)
	return newMap(m.cfg, root, trie.Count(root))
}

// Difference returns entries of m whose key is absent from other.
func (m *Map[K, V]) Difference(other *Map[K, V]) *Map[K, V] {
	root := trie.Difference(m.root, other.root, m.cfg.layout, m.cfg.hasher)
	return newMap(m.cfg, root, trie.Count(root))
}

// SymmetricDifference returns entries whose key is present in exactly one
// of m, other.
func (m *Map[K, V]) SymmetricDifference(other *Map[K, V]) *Map[K, V] {
	root := trie.SymmetricDifference(m.root, other.root, m.cfg.layout, m.cfg.hasher)
	return newMap(m.cfg, root, trie.Count(root))
}

// IsSubset reports whether every entry of m is present in other with an
// equal value.
func (m *Map[K, V]) IsSubset(other *Map[K, V], eq func(a, b V) bool) bool {
	return trie.IsSubset(m.root, other.root, m.cfg.layout, m.cfg.hasher, eq)
}

// Equal reports whether m and other hold the same entries. Fast-pathed on
// root identity per P10.
func (m *Map[K, V]) Equal(other *Map[K, V], eq func(a, b V) bool) bool {
	return trie.Equal(m.root, other.root, eq)
}

// Filter returns a new Map holding only the entries for which keep
// returns true. This is a bulk-rebuild operation (spec §3 SUPPLEMENTED
// FEATURES): it does not attempt to reuse subtrees of m, since keep may
// reject items scattered arbitrarily across the tree.
func (m *Map[K, V]) Filter(keep func(K, V) bool) *Map[K, V] {
	var root *trie.Node[K, V]
	count := 0
	m.ForEach(func(k K, v V) bool {
		if keep(k, v) {
			root, _ = trie.Insert(root, m.cfg.layout, m.cfg.hasher, m.cfg.hasher(k), k, v)
			count++
		}
		return true
	})
	return newMap(m.cfg, root, count)
}

// MapValues returns a new Map with every value replaced by fn(k, v),
// keys unchanged. Also a bulk rebuild (spec §3 SUPPLEMENTED FEATURES).
func (m *Map[K, V]) MapValues(fn func(K, V) V) *Map[K, V] {
	var root *trie.Node[K, V]
	m.ForEach(func(k K, v V) bool {
		root, _ = trie.Insert(root, m.cfg.layout, m.cfg.hasher, m.cfg.hasher(k), k, fn(k, v))
		return true
	})
	return newMap(m.cfg, root, m.count)
}

// ForEach calls fn once per entry, in the depth-first, ascending-bucket
// order spec §4.9 mandates, stopping early if fn returns false. Any
// mutation of m invalidates in-flight iteration, matching spec §6's
// iterator-invalidation contract -- ForEach itself never mutates, but
// holding onto m across a Put/Delete and continuing an old ForEach call
// is a programmer error the same way a stale Iterator would be.
func (m *Map[K, V]) ForEach(fn func(K, V) bool) {
	forEachNode(m.root, fn)
}

func forEachNode[K comparable, V any](n *trie.Node[K, V], fn func(K, V) bool) bool {
	if n == nil {
		return true
	}
	if trie.IsCollisionNode(n) {
		for _, it := range trie.CollisionItems(n) {
			if !fn(it.Key, it.Val) {
				return false
			}
		}
		return true
	}
	for _, it := range trie.NormalItems(n) {
		if !fn(it.Key, it.Val) {
			return false
		}
	}
	for _, c := range trie.Children(n) {
		if !forEachNode(c, fn) {
			return false
		}
	}
	return true
}

// Keys returns every key, in ForEach order.
func (m *Map[K, V]) Keys() []K {
	out := make([]K, 0, m.count)
	m.ForEach(func(k K, _ V) bool {
		out = append(out, k)
		return true
	})
	return out
}

// Values returns every value, in ForEach order.
func (m *Map[K, V]) Values() []V {
	out := make([]V, 0, m.count)
	m.ForEach(func(_ K, v V) bool {
		out = append(out, v)
		return true
	})
	return out
}

// Iterator returns a pull-style iterator over m's entries, in the same
// order as ForEach. Like the Cursors of m, it reads the tree under m's
// root as it was when the call was made; a Put or Delete returns a new Map
// and leaves that tree unchanged.
func (m *Map[K, V]) Iterator() *Iterator[K, V] {
	return &Iterator[K, V]{stack: []*trie.Node[K, V]{m.root}}
}
