// Package persistent implements the public map and set facade (C9) over
// the trie engine in internal/trie: value-semantic, structurally-shared
// containers keyed by a hash of an arbitrary comparable Go type.
package persistent

import (
	"github.com/pkg/errors"

	"github.com/vinelabs/containers/internal/trie"
	"github.com/vinelabs/containers/internal/xhash"
)

// config holds every knob spec §6 names. It is built once by New and
// shared, read-only, by every Map/Set value descended from that call --
// persistent mutation only ever produces a new root, never a new config.
type config[K comparable] struct {
	layout         trie.Layout
	hasher         trie.Hasher[K]
	customHasher   bool
	internalChecks bool
}

// Option configures a Map or Set at construction time. Unlike the
// mutation API, Option application can fail (an invalid hash_width, for
// instance), which is why the constructors (New, Build, NewSet, BuildSet)
// return an error -- the only places this library returns one, per spec
// §7's "config validation is not on the mutation hot path" split.
type Option[K comparable] func(*config[K]) error

func newConfig[K comparable]() *config[K] {
	seed := xhash.NewSeed()
	return &config[K]{
		layout: trie.DefaultLayout,
		hasher: func(k K) uint64 { return xhash.Hash(seed, k) },
	}
}

func buildConfig[K comparable](opts []Option[K]) (*config[K], error) {
	cfg := newConfig[K]()
	for i, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, errors.Wrapf(err, "persistent: option %d", i)
		}
	}
	return cfg, nil
}

// WithHashWidth sets the number of hash bits consumed by the trie, in
// [8, 64]. Default is the platform word width (64). This is a
// compile-time-flavored knob per spec §6: it fixes the tree's on-the-wire
// shape for its lifetime, so it may only be set once, at construction.
func WithHashWidth[K comparable](bits uint) Option[K] {
	return func(c *config[K]) error {
		if bits < 8 || bits > 64 {
			return errors.Errorf("hash width %d out of range [8, 64]", bits)
		}
		c.layout = trie.Layout{HashWidth: bits}
		return nil
	}
}

// WithBucketBits validates the requested bucket width against the trie
// engine's compile-time constant (5). Package trie hard-codes bucket_bits
// as a Go const rather than a runtime field, since spec §6 itself
// documents it as a build-time knob that changes on-the-wire layout; this
// option exists so callers can still express the requirement declaratively
// and get a clear error rather than silently ignored configuration.
func WithBucketBits[K comparable](bits uint) Option[K] {
	return func(c *config[K]) error {
		if bits != trie.BucketBits {
			return errors.Errorf("bucket_bits %d unsupported; this build is compiled for %d", bits, trie.BucketBits)
		}
		return nil
	}
}

// WithDeterministicHashing fixes the default hasher's seed, so that two
// trees built from the same insertion sequence produce identical iteration
// order across process runs. Has no effect if WithHasher is also given.
func WithDeterministicHashing[K comparable](seed uint64) Option[K] {
	return func(c *config[K]) error {
		if c.customHasher {
			return nil
		}
		s := xhash.Seed(seed)
		c.hasher = func(k K) uint64 { return xhash.Hash(s, k) }
		return nil
	}
}

// WithInternalChecks enables re-verification of the whole tree's
// structural invariants after each public mutation, panicking (via the
// package's diagnostic logger, see checks.go) on the first violation. Off
// by default; meant for development and testing, not production hot paths.
func WithInternalChecks[K comparable](enabled bool) Option[K] {
	return func(c *config[K]) error {
		c.internalChecks = enabled
		return nil
	}
}

// WithHasher overrides the default xxhash-based hasher entirely. Required
// for key types the default hasher cannot hash correctly -- notably any
// struct containing a string or interface field, see internal/xhash's
// documentation of that limitation.
func WithHasher[K comparable](h func(K) uint64) Option[K] {
	return func(c *config[K]) error {
		if h == nil {
			return errors.New("hasher must not be nil")
		}
		c.hasher = h
		c.customHasher = true
		return nil
	}
}
