package persistent_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIteratorVisitsEveryEntryOnce(t *testing.T) {
	m := newTestMap(t)
	want := map[string]int{}
	for i := 0; i < 40; i++ {
		k := string(rune('a' + i%26))
		m = m.Put(k+string(rune('0'+i/26)), i)
		want[k+string(rune('0'+i/26))] = i
	}

	it := m.Iterator()
	got := map[string]int{}
	for {
		k, v, ok := it.Next()
		if !ok {
			break
		}
		got[k] = v
	}
	assert.Equal(t, want, got)
}

func TestIteratorOnEmptyMap(t *testing.T) {
	m := newTestMap(t)
	it := m.Iterator()
	_, _, ok := it.Next()
	require.False(t, ok)
}

func TestIteratorMatchesForEachOrder(t *testing.T) {
	m := newTestMap(t).Put("a", 1).Put("b", 2).Put("c", 3)
	var fromForEach []string
	m.ForEach(func(k string, _ int) bool {
		fromForEach = append(fromForEach, k)
		return true
	})

	var fromIterator []string
	it := m.Iterator()
	for {
		k, _, ok := it.Next()
		if !ok {
			break
		}
		fromIterator = append(fromIterator, k)
	}
	assert.Equal(t, fromForEach, fromIterator)
}
