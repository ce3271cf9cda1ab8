package crdt

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestORSetAddRemove(t *testing.T) {
	s := NewORSet[string]()
	s.Add("x", "t1")
	assert.True(t, s.Contains("x"))

	tags := s.Remove("x")
	assert.Equal(t, []string{"t1"}, tags)
	assert.False(t, s.Contains("x"))

	// re-add under a new tag revives membership
	s.Add("x", "t2")
	assert.True(t, s.Contains("x"))
}

func TestORSetAddWins(t *testing.T) {
	// replica A removes the member tagged t1; replica B concurrently adds
	// the same value under t2. After merging, t2 keeps the value alive.
	a := NewORSet[string]()
	a.Add("x", "t1")

	b := NewORSet[string]()
	b.Merge(a)

	removed := a.Remove("x")
	assert.Equal(t, []string{"t1"}, removed)
	b.Add("x", "t2")

	a.Merge(b)
	b.RemoveTags("x", removed)

	assert.True(t, a.Contains("x"))
	assert.True(t, b.Contains("x"))
}

func TestORSetMergeCommutesAndIsIdempotent(t *testing.T) {
	build := func() (*ORSet[string], *ORSet[string]) {
		a := NewORSet[string]()
		b := NewORSet[string]()
		a.Add("x", "t1")
		a.Add("y", "t2")
		a.RemoveTags("y", []string{"t2"})
		b.Add("x", "t3")
		b.Add("z", "t4")
		return a, b
	}

	a1, b1 := build()
	a1.Merge(b1)
	a2, b2 := build()
	b2.Merge(a2)

	assert.ElementsMatch(t, a1.Values(), b2.Values())

	snapshot := mustJSON(t, a1)
	a1.Merge(b1)
	assert.Equal(t, snapshot, mustJSON(t, a1))
}

func TestORSetRoundTrip(t *testing.T) {
	s := NewORSet[string]()
	s.Add("x", "t1")
	s.Add("x", "t2")
	s.Add("y", "t3")
	s.RemoveTags("x", []string{"t1"})

	data := mustJSON(t, s)
	loaded := NewORSet[string]()
	require.NoError(t, json.Unmarshal(data, loaded))

	assert.Equal(t, data, mustJSON(t, loaded))
	assert.ElementsMatch(t, s.Values(), loaded.Values())
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}
