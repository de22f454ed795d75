package persistent

import (
	"runtime"

	"github.com/vinelabs/containers/internal/trie"
)

// attachRoot arranges for the edge from a live Map/Set value to root (nil
// is a valid, no-op root) to be released when the owning value is garbage
// collected. This is the root-level half of C7's reference-counting
// scheme: internal/trie's Retain/Release fire for every parent-child edge
// inside the tree, and this finalizer plays the same role for the "user
// holds a *Map" edge, which trie itself cannot see. Go has no
// isKnownUniquelyReferenced hook, so a finalizer is the only place this
// edge's end-of-life is observable at all.
//
// It does not itself Retain root: every root reaching here was already
// preloaded at refs:1 by the constructor that built it (a fresh node), or
// had that edge accounted for explicitly by its caller (a reused subtree,
// e.g. Union's a==b shortcut). Retaining again here would double-count
// the edge and make isUnique never observe refs==1 on a root-adjacent
// node, forcing every mutation to clone instead of reusing in place.
func attachRoot[K comparable, V any](owner *Map[K, V], root *trie.Node[K, V]) {
	runtime.SetFinalizer(owner, func(m *Map[K, V]) {
		trie.Release(m.root)
	})
}

