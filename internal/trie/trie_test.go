package trie_test

import (
	"testing"
	"testing/quick"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vinelabs/containers/internal/trie"
)

// identityHash lets tests force bucket-level collisions deterministically
// by controlling exactly which bits two keys share, the same way the
// teacher's own hamt32/hamt32_test.go constructs keys with known hash
// prefixes to exercise deep chains.
type identityHash uint64

func idHasher(k identityHash) uint64 { return uint64(k) }

func TestLookupEmpty(t *testing.T) {
	_, ok := trie.Lookup[identityHash, string](nil, trie.DefaultLayout, 0, 0)
	assert.False(t, ok)
}

// S1: simple insert and lookup of a handful of unrelated keys.
func TestScenarioSimpleInsertLookup(t *testing.T) {
	layout := trie.DefaultLayout
	var root *trie.Node[identityHash, string]
	keys := []identityHash{0x01, 0x100, 0x20000, 0x3000000}
	for _, k := range keys {
		var added bool
		root, added = trie.Insert(root, layout, idHasher, uint64(k), k, "v")
		assert.True(t, added)
	}
	for _, k := range keys {
		v, ok := trie.Lookup(root, layout, uint64(k), k)
		require.True(t, ok)
		assert.Equal(t, "v", v)
	}
	_, ok := trie.Lookup(root, layout, uint64(0xdead), identityHash(0xdead))
	assert.False(t, ok)
}

// S2: two keys sharing bucket 0 at level 0 but diverging at level 1 force a
// one-level-deep child, resolved without a collision node.
func TestScenarioBucketCollisionResolvedAtNextLevel(t *testing.T) {
	layout := trie.DefaultLayout
	const bucketBits = trie.BucketBits
	k1 := identityHash(0)              // bucket 0 at every level
	k2 := identityHash(1 << bucketBits) // bucket 0 at level 0, bucket 1 at level 1

	var root *trie.Node[identityHash, string]
	root, _ = trie.Insert(root, layout, idHasher, uint64(k1), k1, "a")
	root, _ = trie.Insert(root, layout, idHasher, uint64(k2), k2, "b")

	assert.False(t, trie.IsCollisionNode(root))
	assert.EqualValues(t, 1, trie.ChildCount(root))
	assert.EqualValues(t, 0, trie.ItemCount(root))

	v1, ok1 := trie.Lookup(root, layout, uint64(k1), k1)
	v2, ok2 := trie.Lookup(root, layout, uint64(k2), k2)
	require.True(t, ok1)
	require.True(t, ok2)
	assert.Equal(t, "a", v1)
	assert.Equal(t, "b", v2)
}

// S3: two distinct keys with a fully identical hash produce a collision
// node once every level has been exhausted.
func TestScenarioFullHashCollisionProducesCollisionNode(t *testing.T) {
	layout := trie.Layout{HashWidth: 8} // shrink depth so the test is cheap
	const h = uint64(0x2a)

	type ck struct{ id int }
	hasher := func(ck) uint64 { return h }

	var root *trie.Node[ck, string]
	root, added1 := trie.Insert(root, layout, hasher, h, ck{1}, "one")
	root, added2 := trie.Insert(root, layout, hasher, h, ck{2}, "two")
	assert.True(t, added1)
	assert.True(t, added2)

	// walk down to the bottom: every level should be a single-child chain
	// ending in a collision node, since both keys share every bucket.
	n := root
	for !trie.IsCollisionNode(n) {
		require.EqualValues(t, 1, trie.ChildCount(n))
		require.EqualValues(t, 0, trie.ItemCount(n))
		n = trie.Children(n)[0]
	}
	assert.EqualValues(t, h, trie.CollisionHash(n))
	assert.Len(t, trie.CollisionItems(n), 2)

	v1, ok1 := trie.Lookup(root, layout, h, ck{1})
	v2, ok2 := trie.Lookup(root, layout, h, ck{2})
	require.True(t, ok1)
	require.True(t, ok2)
	assert.Equal(t, "one", v1)
	assert.Equal(t, "two", v2)
}

// S4: removing one item out of a two-item subtree collapses the parent's
// child edge back into a bare item (§4.6's atrophy-avoidance rule).
func TestScenarioRemovalCollapsesLoneChild(t *testing.T) {
	layout := trie.DefaultLayout
	const bucketBits = trie.BucketBits
	k1 := identityHash(0)
	k2 := identityHash(1 << bucketBits)
	k3 := identityHash(2) // distinct bucket at level 0, keeps root non-trivial

	var root *trie.Node[identityHash, string]
	root, _ = trie.Insert(root, layout, idHasher, uint64(k1), k1, "a")
	root, _ = trie.Insert(root, layout, idHasher, uint64(k2), k2, "b")
	root, _ = trie.Insert(root, layout, idHasher, uint64(k3), k3, "c")
	require.EqualValues(t, 1, trie.ChildCount(root))

	root, _, deleted := trie.Remove(root, layout, idHasher, uint64(k2), k2)
	require.True(t, deleted)

	// k1 must now be a plain item of root, not buried under a child.
	assert.EqualValues(t, 0, trie.ChildCount(root))
	assert.EqualValues(t, 2, trie.ItemCount(root))
	v, ok := trie.Lookup(root, layout, uint64(k1), k1)
	require.True(t, ok)
	assert.Equal(t, "a", v)
}

// A uniquely-owned root mutates its uniquely-owned children in place rather
// than cloning down the path: refcounting (C7) only forces a clone at a
// node once that node has more than one parent edge, and a chain built by
// a single caller that never shares an intermediate root never crosses
// that threshold.
func TestUniquelyOwnedChildMutatesInPlace(t *testing.T) {
	layout := trie.DefaultLayout
	const bucketBits = trie.BucketBits
	k1 := identityHash(0)
	k2 := identityHash(1 << bucketBits) // forces a child at bucket 0 of root
	k3 := identityHash(2)               // distinct bucket, keeps root non-trivial

	var root *trie.Node[identityHash, string]
	root, _ = trie.Insert(root, layout, idHasher, uint64(k1), k1, "a")
	root, _ = trie.Insert(root, layout, idHasher, uint64(k2), k2, "b")
	root, _ = trie.Insert(root, layout, idHasher, uint64(k3), k3, "c")
	require.EqualValues(t, 1, trie.ChildCount(root))
	child := trie.Children(root)[0]

	// Nothing besides root holds this tree, so overwriting k1 -- which
	// lives inside child -- must reuse both root and child by pointer
	// rather than cloning either.
	root2, added := trie.Insert(root, layout, idHasher, uint64(k1), k1, "a2")
	assert.False(t, added)
	assert.Same(t, root, root2)
	assert.Same(t, child, trie.Children(root2)[0])

	v, ok := trie.Lookup(root2, layout, uint64(k1), k1)
	require.True(t, ok)
	assert.Equal(t, "a2", v)
}

// Once a root is shared -- here by taking a second reference to it the way
// Union's a==b shortcut or a finalizer's borrow would -- the very next
// mutation must clone the whole path down to the touched leaf instead of
// mutating in place, so the older reference keeps seeing the original tree.
func TestSharedRootForcesCloneNotInPlaceMutation(t *testing.T) {
	layout := trie.DefaultLayout
	const bucketBits = trie.BucketBits
	k1 := identityHash(0)
	k2 := identityHash(1 << bucketBits)

	var root *trie.Node[identityHash, string]
	root, _ = trie.Insert(root, layout, idHasher, uint64(k1), k1, "a")
	root, _ = trie.Insert(root, layout, idHasher, uint64(k2), k2, "b")
	child := trie.Children(root)[0]

	trie.Retain(root) // simulate a second live owner of this exact root
	root2, _ := trie.Insert(root, layout, idHasher, uint64(k1), k1, "a2")
	trie.Release(root)

	assert.NotSame(t, root, root2)
	assert.NotSame(t, child, trie.Children(root2)[0])

	// the original tree, as seen through the still-live first owner, is
	// untouched.
	v, ok := trie.Lookup(root, layout, uint64(k1), k1)
	require.True(t, ok)
	assert.Equal(t, "a", v)
}

func TestRemoveLastItemYieldsNilRoot(t *testing.T) {
	layout := trie.DefaultLayout
	var root *trie.Node[identityHash, string]
	root, _ = trie.Insert(root, layout, idHasher, 42, identityHash(42), "solo")
	root, val, deleted := trie.Remove(root, layout, idHasher, 42, identityHash(42))
	require.True(t, deleted)
	assert.Equal(t, "solo", val)
	assert.Nil(t, root)
}

func TestRemoveAbsentKeyIsNoop(t *testing.T) {
	layout := trie.DefaultLayout
	var root *trie.Node[identityHash, string]
	root, _ = trie.Insert(root, layout, idHasher, 1, identityHash(1), "a")
	before := root
	after, _, deleted := trie.Remove(root, layout, idHasher, 999, identityHash(999))
	assert.False(t, deleted)
	assert.Same(t, before, after)
}

func TestCollisionNodeCollapsesToSingletonOnRemoval(t *testing.T) {
	layout := trie.Layout{HashWidth: 8}
	const h = uint64(7)
	type ck struct{ id int }
	hasher := func(ck) uint64 { return h }

	var root *trie.Node[ck, string]
	root, _ = trie.Insert(root, layout, hasher, h, ck{1}, "one")
	root, _ = trie.Insert(root, layout, hasher, h, ck{2}, "two")

	root, val, deleted := trie.Remove(root, layout, hasher, h, ck{1})
	require.True(t, deleted)
	assert.Equal(t, "one", val)

	v, ok := trie.Lookup(root, layout, h, ck{2})
	require.True(t, ok)
	assert.Equal(t, "two", v)
	assert.False(t, trie.IsCollisionNode(root))
}

// Removing an item that leaves its parent holding zero items and exactly
// one multi-item child promotes that child up to the parent's own,
// shallower position. Promotion must rebuild the child's bucket bits for
// the new depth (layout.Bucket consumes different hash bits per level),
// not splice it in unchanged, or every key underneath it becomes
// unreachable via Lookup while still counted by Count.
func TestScenarioPromotedChildRebuildsBucketsAtShallowerLevel(t *testing.T) {
	layout := trie.DefaultLayout
	kA := identityHash(3)
	kB := identityHash(71)
	kC := identityHash(295)

	var root *trie.Node[identityHash, string]
	root, _ = trie.Insert(root, layout, idHasher, uint64(kA), kA, "a")
	root, _ = trie.Insert(root, layout, idHasher, uint64(kB), kB, "b")
	root, _ = trie.Insert(root, layout, idHasher, uint64(kC), kC, "c")
	require.EqualValues(t, 1, trie.ItemCount(root))
	require.EqualValues(t, 1, trie.ChildCount(root))

	root, val, deleted := trie.Remove(root, layout, idHasher, uint64(kA), kA)
	require.True(t, deleted)
	assert.Equal(t, "a", val)
	assert.Equal(t, 2, trie.Count(root))

	vb, okB := trie.Lookup(root, layout, uint64(kB), kB)
	require.True(t, okB)
	assert.Equal(t, "b", vb)

	vc, okC := trie.Lookup(root, layout, uint64(kC), kC)
	require.True(t, okC)
	assert.Equal(t, "c", vc)
}

// Same defect, exercised with a narrower layout (the WithHashWidth knob,
// config.go): a 10-bit hash has only two levels, so level-0 bucket
// collisions, and with them children and promotions on removal, are the
// common case rather than a rare one.
func TestPropertyRemovalSurvivorsReachableUnderNarrowHashWidth(t *testing.T) {
	layout := trie.Layout{HashWidth: 10}
	f := func(raw []uint16) bool {
		if len(raw) < 2 {
			return true
		}
		keys := map[identityHash]struct{}{}
		var root *trie.Node[identityHash, uint16]
		for _, r := range raw {
			k := identityHash(r) % (1 << layout.HashWidth)
			root, _ = trie.Insert(root, layout, idHasher, uint64(k), k, r)
			keys[k] = struct{}{}
		}
		// remove roughly half the keys, then confirm every survivor is
		// still reachable and every removed key is genuinely gone.
		i := 0
		for k := range keys {
			if i%2 != 0 {
				i++
				continue
			}
			i++
			var deleted bool
			root, _, deleted = trie.Remove(root, layout, idHasher, uint64(k), k)
			if !deleted {
				return false
			}
			delete(keys, k)
		}
		if trie.Count(root) != len(keys) {
			return false
		}
		for k := range keys {
			if _, ok := trie.Lookup(root, layout, uint64(k), k); !ok {
				return false
			}
		}
		return true
	}
	if err := quick.Check(f, &quick.Config{MaxCount: 200}); err != nil {
		t.Error(err)
	}
}

func TestUpsertInsertsOnceAndUpdatesThereafter(t *testing.T) {
	layout := trie.DefaultLayout
	calls := 0
	insertVal := func() int { calls++; return 1 }
	update := func(v int) int { return v + 1 }

	var root *trie.Node[identityHash, int]
	root, v1, added1 := trie.Upsert(root, layout, idHasher, 5, identityHash(5), insertVal, update)
	require.True(t, added1)
	assert.Equal(t, 1, v1)

	root, v2, added2 := trie.Upsert(root, layout, idHasher, 5, identityHash(5), insertVal, update)
	require.False(t, added2)
	assert.Equal(t, 2, v2)
	assert.Equal(t, 1, calls) // insertVal ran exactly once

	got, ok := trie.Lookup(root, layout, 5, identityHash(5))
	require.True(t, ok)
	assert.Equal(t, 2, got)
}

// P3: last write wins on overwrite; Insert reports added=false and the old
// value is gone.
func TestInsertOverwriteLastWriteWins(t *testing.T) {
	layout := trie.DefaultLayout
	var root *trie.Node[identityHash, string]
	root, _ = trie.Insert(root, layout, idHasher, 1, identityHash(1), "old")
	root, added := trie.Insert(root, layout, idHasher, 1, identityHash(1), "new")
	assert.False(t, added)
	v, ok := trie.Lookup(root, layout, 1, identityHash(1))
	require.True(t, ok)
	assert.Equal(t, "new", v)
}

// P10: identical roots short-circuit Equal without inspecting contents.
func TestEqualIdentityFastPath(t *testing.T) {
	layout := trie.DefaultLayout
	var root *trie.Node[identityHash, int]
	root, _ = trie.Insert(root, layout, idHasher, 1, identityHash(1), 1)
	assert.True(t, trie.Equal(root, root, func(a, b int) bool { return a == b }))
	assert.True(t, trie.Equal[identityHash, int](nil, nil, func(a, b int) bool { return a == b }))
}

func TestSetAlgebraOnTrees(t *testing.T) {
	layout := trie.DefaultLayout
	eq := func(a, b int) bool { return a == b }
	combine := func(a, b int) int { return a + b }

	var a, b *trie.Node[identityHash, int]
	for _, k := range []identityHash{1, 2, 3} {
		a, _ = trie.Insert(a, layout, idHasher, uint64(k), k, int(k))
	}
	for _, k := range []identityHash{2, 3, 4} {
		b, _ = trie.Insert(b, layout, idHasher, uint64(k), k, int(k)*10)
	}

	union := trie.Union(a, b, layout, idHasher, combine)
	assert.EqualValues(t, 4, trie.Count(union))
	v2, _ := trie.Lookup(union, layout, 2, identityHash(2))
	assert.Equal(t, 2+20, v2) // combine(aVal, bVal)

	inter := trie.Intersect(a, b, layout, idHasher, combine)
	assert.EqualValues(t, 2, trie.Count(inter))

	diff := trie.Difference(a, b, layout, idHasher)
	assert.EqualValues(t, 1, trie.Count(diff))
	_, ok := trie.Lookup(diff, layout, 1, identityHash(1))
	assert.True(t, ok)

	symdiff := trie.SymmetricDifference(a, b, layout, idHasher)
	assert.EqualValues(t, 2, trie.Count(symdiff))

	// inter holds summed values, so the subset check against a uses an
	// intersection that keeps a's values.
	keepA := func(x, _ int) int { return x }
	assert.True(t, trie.IsSubset(trie.Intersect(a, b, layout, idHasher, keepA), a, layout, idHasher, eq))
	assert.False(t, trie.IsSubset(a, inter, layout, idHasher, eq))
	assert.True(t, trie.Equal(a, a, eq))
	assert.False(t, trie.Equal(a, b, eq))
}

func TestBuildLaterPairWins(t *testing.T) {
	layout := trie.DefaultLayout
	pairs := []trie.Pair[identityHash, string]{
		{Key: 1, Val: "first"},
		{Key: 1, Val: "second"},
		{Key: 2, Val: "only"},
	}
	root := trie.Build(layout, idHasher, pairs)
	v, ok := trie.Lookup(root, layout, 1, identityHash(1))
	require.True(t, ok)
	assert.Equal(t, "second", v)
	assert.EqualValues(t, 2, trie.Count(root))
}

// P1 property: for any sequence of keys (repeats allowed) inserted then
// looked up, every key is found with its inserted value, and Count matches
// the number of distinct keys -- grounded in the pack's testing/quick usage
// (kubernetes-kubernetes) for randomized structural properties.
func TestPropertyInsertThenLookupAll(t *testing.T) {
	layout := trie.DefaultLayout
	f := func(raw []uint32) bool {
		seen := map[identityHash]uint32{}
		var root *trie.Node[identityHash, uint32]
		for _, r := range raw {
			k := identityHash(r)
			var val uint32 = r
			root, _ = trie.Insert(root, layout, idHasher, uint64(k), k, val)
			seen[k] = val
		}
		if trie.Count(root) != len(seen) {
			return false
		}
		for k, v := range seen {
			got, ok := trie.Lookup(root, layout, uint64(k), k)
			if !ok || got != v {
				return false
			}
		}
		return true
	}
	if err := quick.Check(f, &quick.Config{MaxCount: 200}); err != nil {
		t.Error(err)
	}
}

// P2-flavored property: inserting then removing every key succeeds for
// each key and returns to an empty (nil) tree.
func TestPropertyInsertAllRemoveAllYieldsEmpty(t *testing.T) {
	layout := trie.DefaultLayout
	f := func(raw []uint32) bool {
		keys := map[identityHash]struct{}{}
		var root *trie.Node[identityHash, uint32]
		for _, r := range raw {
			k := identityHash(r)
			root, _ = trie.Insert(root, layout, idHasher, uint64(k), k, r)
			keys[k] = struct{}{}
		}
		for k := range keys {
			var deleted bool
			root, _, deleted = trie.Remove(root, layout, idHasher, uint64(k), k)
			if !deleted {
				return false
			}
		}
		return root == nil && trie.Count(root) == 0
	}
	if err := quick.Check(f, &quick.Config{MaxCount: 200}); err != nil {
		t.Error(err)
	}
}
