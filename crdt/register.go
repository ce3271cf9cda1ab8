package crdt

// Register is a last-write-wins scalar. The stored value is whichever write
// carried the greatest stamp; identical stamps cannot occur between distinct
// writes because stamps embed the replica id.
type Register[T any] struct {
	Value T     `json:"value"`
	Stamp Stamp `json:"stamp"`
}

// NewRegister returns an empty register whose zero stamp loses to any write.
func NewRegister[T any]() *Register[T] {
	return &Register[T]{}
}

// Write stores v if at orders after the current stamp. It reports whether
// the register changed.
func (r *Register[T]) Write(v T, at Stamp) bool {
	if !r.Stamp.Less(at) {
		return false
	}
	r.Value = v
	r.Stamp = at
	return true
}

// Merge folds another register in; equivalent to replaying other's winning
// write.
func (r *Register[T]) Merge(other *Register[T]) {
	if other == nil {
		return
	}
	r.Write(other.Value, other.Stamp)
}

// Get returns the current value.
func (r *Register[T]) Get() T {
	return r.Value
}
