// Package xhash provides the default key hasher used by package persistent
// when a caller does not supply one via WithHasher. It combines
// github.com/cespare/xxhash/v2 with a hash/maphash-derived per-process
// seed, the same pairing G-M-twostay-Go-Utils/Maps/HopMap2/HopMap.go uses
// (there via runtime.memhash reached through go:linkname); this package
// reaches the same "hash raw memory, perturbed by a random seed" result
// through xxhash and reflect instead of a linkname into runtime internals,
// since a public library has no business depending on unexported runtime
// symbols that can change shape between Go releases.
package xhash

import (
	"hash/maphash"
	"reflect"
	"unsafe"

	"github.com/cespare/xxhash/v2"
)

// Seed perturbs every hash produced by Hash, so that repeated runs of the
// same program do not necessarily produce identical iteration order for
// keys an adversary controls. Any fixed Seed, the zero Seed included, is
// valid and deterministic; WithDeterministicHashing uses the seed it is
// given.
type Seed uint64

// NewSeed returns a fresh, unpredictable seed, one per call. persistent.New
// calls this once per tree unless WithDeterministicHashing overrides it.
func NewSeed() Seed {
	var h maphash.Hash
	h.SetSeed(maphash.MakeSeed())
	return Seed(h.Sum64())
}

// Hash computes the default hash of key under seed.
//
// Strings are hashed by content, matching Go's own `==` semantics for
// strings. Every other comparable type is hashed by its raw in-memory
// representation, which is exactly what `==` compares for numeric, bool,
// pointer, array and plain-field-struct keys -- but NOT for a struct
// containing a string or interface field, whose raw bytes are a header
// (pointer + length, or type + data word) rather than the referenced
// content: two value-equal such keys with different backing storage would
// hash unequal here. Callers with such keys must supply their own Hasher
// via persistent.WithHasher.
func Hash[K comparable](seed Seed, key K) uint64 {
	if s, ok := any(key).(string); ok {
		return xxhash.Sum64String(s) ^ uint64(seed)
	}

	v := reflect.ValueOf(key)
	addressable := reflect.New(v.Type())
	addressable.Elem().Set(v)
	size := v.Type().Size()
	if size == 0 {
		return uint64(seed)
	}
	b := unsafe.Slice((*byte)(unsafe.Pointer(addressable.Pointer())), size)
	return xxhash.Sum64(b) ^ uint64(seed)
}
