// Package bitset implements the 32-bit bitmap primitives a hash-array-mapped
// trie node uses to track which of its 32 buckets are populated: membership,
// rank (population count below a bit), and select (the bucket of the n-th
// set bit).
package bitset

import "math/bits"

// Capacity is the number of buckets a Set32 can index; buckets range over
// [0, Capacity).
const Capacity uint = 32

// Set32 is a 32-bit set of buckets in [0, 32).
type Set32 uint32

// Contains reports whether bucket b is a member of the set.
func (s Set32) Contains(b uint) bool {
	return s&(1<<b) != 0
}

// Insert returns a new set with bucket b added.
func (s Set32) Insert(b uint) Set32 {
	return s | (1 << b)
}

// Remove returns a new set with bucket b removed.
func (s Set32) Remove(b uint) Set32 {
	return s &^ (1 << b)
}

// Count returns the number of set bits.
func (s Set32) Count() uint {
	return uint(bits.OnesCount32(uint32(s)))
}

// IsEmpty reports whether no bucket is a member.
func (s Set32) IsEmpty() bool {
	return s == 0
}

// Rank returns the number of set bits strictly below bucket b, i.e. the
// dense slot index that bucket b would occupy in a packed array ordered by
// ascending bucket.
func (s Set32) Rank(b uint) uint {
	var below = uint32(1<<b) - 1
	return uint(bits.OnesCount32(uint32(s) & below))
}

// Select returns the bucket of the k'th lowest set bit (0-indexed). The
// caller must ensure k < s.Count().
func (s Set32) Select(k uint) uint {
	var word = uint32(s)
	for i := uint(0); i < k; i++ {
		word &= word - 1 // clear lowest set bit
	}
	return uint(bits.TrailingZeros32(word))
}

// First returns the bucket of the lowest set bit and whether the set is
// non-empty.
func (s Set32) First() (uint, bool) {
	if s == 0 {
		return 0, false
	}
	return uint(bits.TrailingZeros32(uint32(s))), true
}

// PopFirst returns the lowest set bucket, a set with that bucket removed,
// and whether the original set was non-empty.
func (s Set32) PopFirst() (uint, Set32, bool) {
	b, ok := s.First()
	if !ok {
		return 0, s, false
	}
	return b, s.Remove(b), true
}

// Union returns the bitwise union of two sets.
func (s Set32) Union(o Set32) Set32 { return s | o }

// Intersect returns the bitwise intersection of two sets.
func (s Set32) Intersect(o Set32) Set32 { return s & o }

// Difference returns the buckets in s but not in o.
func (s Set32) Difference(o Set32) Set32 { return s &^ o }

// SymmetricDifference returns the buckets in exactly one of s, o.
func (s Set32) SymmetricDifference(o Set32) Set32 { return s ^ o }
