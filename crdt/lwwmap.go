package crdt

// Entry is the register payload of an LWWMap key. Deletion is a write of an
// absent entry, not physical removal, so a delete and a concurrent set still
// resolve by stamp order.
type Entry[V any] struct {
	Value  V    `json:"value"`
	Absent bool `json:"absent,omitempty"`
}

// LWWMap is a last-write-wins keyed collection composed from registers, one
// per key ever written.
type LWWMap[K comparable, V any] struct {
	Entries map[K]*Register[Entry[V]] `json:"entries"`
}

// NewLWWMap returns an empty map.
func NewLWWMap[K comparable, V any]() *LWWMap[K, V] {
	return &LWWMap[K, V]{Entries: make(map[K]*Register[Entry[V]])}
}

func (m *LWWMap[K, V]) register(k K) *Register[Entry[V]] {
	r := m.Entries[k]
	if r == nil {
		r = NewRegister[Entry[V]]()
		m.Entries[k] = r
	}
	return r
}

// Set writes v under k. It reports whether the write won.
func (m *LWWMap[K, V]) Set(k K, v V, at Stamp) bool {
	return m.register(k).Write(Entry[V]{Value: v}, at)
}

// Delete writes an absent entry under k. It reports whether the write won.
func (m *LWWMap[K, V]) Delete(k K, at Stamp) bool {
	return m.register(k).Write(Entry[V]{Absent: true}, at)
}

// Get returns the live value of k, or false if k was never set or its
// latest write is a delete.
func (m *LWWMap[K, V]) Get(k K) (V, bool) {
	r := m.Entries[k]
	if r == nil || r.Stamp.IsZero() || r.Value.Absent {
		var zero V
		return zero, false
	}
	return r.Value.Value, true
}

// Keys returns the keys with live values, in unspecified order.
func (m *LWWMap[K, V]) Keys() []K {
	var out []K
	for k := range m.Entries {
		if _, ok := m.Get(k); ok {
			out = append(out, k)
		}
	}
	return out
}

// Len counts keys with live values.
func (m *LWWMap[K, V]) Len() int {
	return len(m.Keys())
}

// Merge folds another map in register by register. A key missing on one
// side is an uninitialized register there, so the present side wins.
func (m *LWWMap[K, V]) Merge(other *LWWMap[K, V]) {
	if other == nil {
		return
	}
	for k, r := range other.Entries {
		m.register(k).Merge(r)
	}
}
