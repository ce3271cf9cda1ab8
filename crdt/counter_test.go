package crdt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounterValue(t *testing.T) {
	c := NewCounter()
	require.NoError(t, c.Increment("op-1", 10))
	require.NoError(t, c.Increment("op-2", 3))
	require.NoError(t, c.Decrement("op-3", 4))
	assert.Equal(t, int64(9), c.Value())
}

func TestCounterRejectsNegativeAmounts(t *testing.T) {
	c := NewCounter()
	assert.Error(t, c.Increment("op-1", -1))
	assert.Error(t, c.Decrement("op-1", -1))
}

func TestCounterReplayIsNoOp(t *testing.T) {
	c := NewCounter()
	require.NoError(t, c.Increment("op-1", 5))
	require.NoError(t, c.Increment("op-1", 5))
	require.NoError(t, c.Decrement("op-2", 2))
	require.NoError(t, c.Decrement("op-2", 2))
	assert.Equal(t, int64(3), c.Value())
}

func TestCounterOfflineIncrementsMerge(t *testing.T) {
	// two replicas each increment by 5 while offline; merged value is 10
	a := NewCounter()
	b := NewCounter()
	require.NoError(t, a.Increment("op-a", 5))
	require.NoError(t, b.Increment("op-b", 5))

	a.Merge(b)
	b.Merge(a)
	assert.Equal(t, int64(10), a.Value())
	assert.Equal(t, int64(10), b.Value())
}

func TestCounterMergeIdempotent(t *testing.T) {
	a := NewCounter()
	b := NewCounter()
	require.NoError(t, a.Increment("op-a", 5))
	require.NoError(t, b.Increment("op-b", 7))
	require.NoError(t, b.Decrement("op-c", 2))

	a.Merge(b)
	assert.Equal(t, int64(10), a.Value())

	// repeated merges of the same snapshot must not double count
	a.Merge(b)
	a.Merge(b)
	assert.Equal(t, int64(10), a.Value())
}

func TestCounterMergeKeepsOwnProgress(t *testing.T) {
	a := NewCounter()
	b := NewCounter()
	require.NoError(t, a.Increment("op-1", 5))
	a.Merge(b) // b knows nothing about a
	require.NoError(t, a.Increment("op-2", 1))
	a.Merge(b)
	assert.Equal(t, int64(6), a.Value(), "merging a stale snapshot must not roll back")
}

func TestCounterMergeUnionsDisjointHistory(t *testing.T) {
	// one origin's operations split across two counters; the union holds both
	a := NewCounter()
	b := NewCounter()
	require.NoError(t, a.Increment("op-p", 5))
	require.NoError(t, b.Increment("op-q", 5))

	a.Merge(b)
	assert.Equal(t, int64(10), a.Value())

	// delivering either operation again changes nothing
	require.NoError(t, a.Increment("op-p", 5))
	require.NoError(t, a.Increment("op-q", 5))
	assert.Equal(t, int64(10), a.Value())
}
