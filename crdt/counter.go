package crdt

import "fmt"

// Counter is a PN-counter. Every increment and decrement is recorded under
// the unique id of the operation that produced it; an entry is written at
// most once and never changes, so merge is a plain union and re-applying a
// delivered operation is a no-op. Keeping running per-origin totals instead
// would lose deltas whenever state merge and operation delivery mix: a merge
// would overwrite a total whose missing operations can no longer be
// re-applied.
type Counter struct {
	Increments map[string]int64 `json:"increments"`
	Decrements map[string]int64 `json:"decrements"`
}

// NewCounter returns a counter at zero.
func NewCounter() *Counter {
	return &Counter{
		Increments: make(map[string]int64),
		Decrements: make(map[string]int64),
	}
}

// Increment records an increment of n under opID. n must not be negative.
// A second increment under the same opID is ignored.
func (c *Counter) Increment(opID string, n int64) error {
	if n < 0 {
		return fmt.Errorf("increment by negative amount %d", n)
	}
	if _, ok := c.Increments[opID]; !ok {
		c.Increments[opID] = n
	}
	return nil
}

// Decrement records a decrement of n under opID. n must not be negative.
// A second decrement under the same opID is ignored.
func (c *Counter) Decrement(opID string, n int64) error {
	if n < 0 {
		return fmt.Errorf("decrement by negative amount %d", n)
	}
	if _, ok := c.Decrements[opID]; !ok {
		c.Decrements[opID] = n
	}
	return nil
}

// Value returns the sum of all increments minus all decrements.
func (c *Counter) Value() int64 {
	var total int64
	for _, n := range c.Increments {
		total += n
	}
	for _, n := range c.Decrements {
		total -= n
	}
	return total
}

// Merge unions another counter's entries in. Entries are immutable per op
// id, so the union is commutative, associative, and idempotent.
func (c *Counter) Merge(other *Counter) {
	if other == nil {
		return
	}
	for id, n := range other.Increments {
		if _, ok := c.Increments[id]; !ok {
			c.Increments[id] = n
		}
	}
	for id, n := range other.Decrements {
		if _, ok := c.Decrements[id]; !ok {
			c.Decrements[id] = n
		}
	}
}
