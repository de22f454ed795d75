package persistent

import "github.com/vinelabs/containers/internal/trie"

// Set is a persistent, structurally-shared set of K, sharing every trie
// mechanism with Map by instantiating it with a zero-size value type
// (spec §4.9: "the set variant is the map variant with unit values,
// sharing all machinery"). It is a thin wrapper rather than a type alias
// so the public API reads as a set (Add/Remove/Contains) instead of a
// map with an always-struct{}{} value.
type Set[K comparable] struct {
	m *Map[K, struct{}]
}

// NewSet returns an empty Set configured by opts.
func NewSet[K comparable](opts ...Option[K]) (*Set[K], error) {
	m, err := New[K, struct{}](opts...)
	if err != nil {
		return nil, err
	}
	return &Set[K]{m: m}, nil
}

func newSet[K comparable](m *Map[K, struct{}]) *Set[K] { return &Set[K]{m: m} }

// BuildSet constructs a Set from a sequence of elements in one bulk pass.
func BuildSet[K comparable](elems []K, opts ...Option[K]) (*Set[K], error) {
	pairs := make([]trie.Pair[K, struct{}], len(elems))
	for i, e := range elems {
		pairs[i] = trie.Pair[K, struct{}]{Key: e}
	}
	m, err := Build(pairs, opts...)
	if err != nil {
		return nil, err
	}
	return newSet(m), nil
}

// Count returns the number of elements.
func (s *Set[K]) Count() int { return s.m.Count() }

// IsEmpty reports whether the set holds no elements.
func (s *Set[K]) IsEmpty() bool { return s.m.IsEmpty() }

// Contains reports whether key is a member.
func (s *Set[K]) Contains(key K) bool { return s.m.Contains(key) }

// Add returns a new Set with key present.
func (s *Set[K]) Add(key K) *Set[K] { return newSet(s.m.Put(key, struct{}{})) }

// Remove returns a new Set with key absent. Removing an absent key is a
// no-op (spec §7): the returned Set shares its underlying Map with s.
func (s *Set[K]) Remove(key K) *Set[K] { return newSet(s.m.Delete(key)) }

// Union returns the elements of s or other.
func (s *Set[K]) Union(other *Set[K]) *Set[K] {
	return newSet(s.m.Merge(other.m, func(a, _ struct{}) struct{} { return a }))
}

// Intersect returns the elements present in both s and other.
func (s *Set[K]) Intersect(other *Set[K]) *Set[K] {
	return newSet(s.m.Intersect(other.m, func(a, _ struct{}) struct{} { return a }))
}

// Difference returns the elements of s absent from other.
func (s *Set[K]) Difference(other *Set[K]) *Set[K] {
	return newSet(s.m.Difference(other.m))
}

// SymmetricDifference returns the elements present in exactly one of
// s, other.
func (s *Set[K]) SymmetricDifference(other *Set[K]) *Set[K] {
	return newSet(s.m.SymmetricDifference(other.m))
}

// IsSubset reports whether every element of s is a member of other.
func (s *Set[K]) IsSubset(other *Set[K]) bool {
	return s.m.IsSubset(other.m, func(struct{}, struct{}) bool { return true })
}

// Equal reports whether s and other hold the same elements.
func (s *Set[K]) Equal(other *Set[K]) bool {
	return s.m.Equal(other.m, func(struct{}, struct{}) bool { return true })
}

// ForEach calls fn once per element, stopping early if fn returns false.
func (s *Set[K]) ForEach(fn func(K) bool) {
	s.m.ForEach(func(k K, _ struct{}) bool { return fn(k) })
}

// Elements returns every member, in ForEach order.
func (s *Set[K]) Elements() []K { return s.m.Keys() }
