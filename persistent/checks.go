package persistent

import (
	"log"
	"os"

	"github.com/vinelabs/containers/internal/trie"
)

// Lgr is the package diagnostic logger, kept in the teacher's own idiom
// (lleo-go-hamt-functional/hamt.go's package-level "[hamt] "-prefixed
// logger) for the one thing this library ever logs: an internal-checks
// invariant violation, which is always fatal.
var Lgr = log.New(os.Stderr, "[persistent] ", log.Lshortfile)

// checkInvariants re-walks a whole tree verifying spec §3's invariants 2,
// 4 and 6 and the atrophy rule (P6, P7, P8 in §8). Bitmap disjointness and
// subtree counts are not checked. Called after every public
// mutation when WithInternalChecks(true) is set. A violation is a
// programmer-error-class fault per spec §7: fatal, non-recoverable.
func checkInvariants[K comparable, V any](root *trie.Node[K, V], hasher trie.Hasher[K], layout trie.Layout) {
	if root == nil {
		return
	}
	seen := make(map[K]struct{})
	walkCheck(root, hasher, layout, 0, seen)
}

func walkCheck[K comparable, V any](n *trie.Node[K, V], hasher trie.Hasher[K], layout trie.Layout, level uint, seen map[K]struct{}) {
	if n == nil {
		return
	}
	if trie.IsCollisionNode(n) {
		items := trie.CollisionItems(n)
		if len(items) < 2 {
			Lgr.Panicf("collision node at level %d has %d items, want >= 2", level, len(items))
		}
		for _, it := range items {
			if hasher(it.Key) != trie.CollisionHash(n) {
				Lgr.Panicf("collision item %v hash disagrees with collisionHash", it.Key)
			}
			if _, dup := seen[it.Key]; dup {
				Lgr.Panicf("duplicate key %v across tree", it.Key)
			}
			seen[it.Key] = struct{}{}
		}
		return
	}

	for _, it := range trie.NormalItems(n) {
		if layout.Bucket(hasher(it.Key), level) != it.Bucket {
			Lgr.Panicf("item %v stored at wrong bucket for level %d", it.Key, level)
		}
		if _, dup := seen[it.Key]; dup {
			Lgr.Panicf("duplicate key %v across tree", it.Key)
		}
		seen[it.Key] = struct{}{}
	}

	// A single-child chain is a normal shape (spawnChild builds one for as
	// many levels as two hashes agree); it is atrophied only when its one
	// child holds fewer than two items, which could sit here as a plain item.
	if level != 0 && trie.ChildCount(n) == 1 && trie.ItemCount(n) == 0 && trie.Count(trie.Children(n)[0]) < 2 {
		Lgr.Panicf("atrophied non-root node at level %d", level)
	}

	for _, c := range trie.Children(n) {
		walkCheck(c, hasher, layout, level+1, seen)
	}
}
