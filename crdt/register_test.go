package crdt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func stamp(physical uint64, replica string) Stamp {
	return Stamp{Physical: physical, Replica: replica}
}

func TestRegisterLastWriteWins(t *testing.T) {
	r := NewRegister[string]()

	assert.True(t, r.Write("first", stamp(1, "a")))
	assert.True(t, r.Write("second", stamp(2, "b")))
	assert.False(t, r.Write("stale", stamp(1, "a")), "older write must not apply")
	assert.Equal(t, "second", r.Get())
}

func TestRegisterMergeCommutes(t *testing.T) {
	mk := func() (*Register[string], *Register[string]) {
		a := NewRegister[string]()
		b := NewRegister[string]()
		a.Write("from-a", stamp(5, "a"))
		b.Write("from-b", stamp(7, "b"))
		return a, b
	}

	a1, b1 := mk()
	a1.Merge(b1)

	a2, b2 := mk()
	b2.Merge(a2)

	assert.Equal(t, "from-b", a1.Get())
	assert.Equal(t, "from-b", b2.Get())
	assert.Equal(t, a1.Stamp, b2.Stamp)
}

func TestRegisterMergeIdempotent(t *testing.T) {
	a := NewRegister[int]()
	b := NewRegister[int]()
	a.Write(1, stamp(1, "a"))
	b.Write(2, stamp(2, "b"))

	a.Merge(b)
	once := *a
	a.Merge(b)
	assert.Equal(t, once, *a)
}
