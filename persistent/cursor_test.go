package persistent_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorsResolveEveryEntry(t *testing.T) {
	m := newTestMap(t).Put("a", 1).Put("b", 2).Put("c", 3)
	cursors := m.Cursors()
	require.Len(t, cursors, 3)

	got := map[string]int{}
	for _, c := range cursors {
		k, v := c.Get(m)
		got[k] = v
	}
	assert.Equal(t, map[string]int{"a": 1, "b": 2, "c": 3}, got)
}

func TestStaleCursorPanicsAfterMutation(t *testing.T) {
	m := newTestMap(t).Put("a", 1)
	cursors := m.Cursors()
	require.Len(t, cursors, 1)

	m2 := m.Put("b", 2)
	assert.Panics(t, func() {
		cursors[0].Get(m2)
	})

	// still resolves fine against the original Map.
	k, v := cursors[0].Get(m)
	assert.Equal(t, "a", k)
	assert.Equal(t, 1, v)
}
