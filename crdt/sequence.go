package crdt

import (
	"errors"
	"sort"
)

// RootID is the predecessor of elements inserted at the head of a sequence.
const RootID = ""

var (
	// ErrUnknownPredecessor is returned when an insert references an element
	// id that has not been seen yet. Callers that receive operations out of
	// order buffer the insert and retry.
	ErrUnknownPredecessor = errors.New("unknown predecessor element")

	// ErrUnknownElement is returned when a removal targets an id that has
	// not been seen yet.
	ErrUnknownElement = errors.New("unknown sequence element")
)

// SequenceNode is one element of a Sequence. Links are ids into the node
// arena, never pointers, so concurrent deletion cannot dangle.
type SequenceNode[T any] struct {
	ID      string `json:"id"`
	Value   T      `json:"value"`
	Stamp   Stamp  `json:"stamp"`
	Deleted bool   `json:"deleted,omitempty"`
	Pred    string `json:"pred,omitempty"`
}

// Sequence is a replicated growing array. Every element names the element it
// was inserted after; concurrent inserts after the same predecessor are
// ordered by descending stamp, so the latest write lands nearest its
// predecessor and every replica linearizes identically. Removed elements
// stay as tombstones to anchor inserts that have not arrived yet.
type Sequence[T any] struct {
	Nodes map[string]*SequenceNode[T] `json:"nodes"`

	order []string // cached traversal over all nodes, tombstones included
	dirty bool
}

// NewSequence returns an empty sequence.
func NewSequence[T any]() *Sequence[T] {
	return &Sequence[T]{Nodes: make(map[string]*SequenceNode[T])}
}

// Insert places v with the given id immediately after pred, subject to the
// sibling tie-break. Inserting an id that already exists is a no-op, which
// makes replayed operations harmless.
func (s *Sequence[T]) Insert(id string, pred string, v T, at Stamp) error {
	if s.Nodes == nil {
		s.Nodes = make(map[string]*SequenceNode[T])
	}
	if _, ok := s.Nodes[id]; ok {
		return nil
	}
	if pred != RootID {
		if _, ok := s.Nodes[pred]; !ok {
			return ErrUnknownPredecessor
		}
	}
	s.Nodes[id] = &SequenceNode[T]{ID: id, Value: v, Stamp: at, Pred: pred}
	s.dirty = true
	return nil
}

// Remove tombstones the element. The node stays in the arena so concurrent
// inserts that name it as predecessor still resolve.
func (s *Sequence[T]) Remove(id string) error {
	n, ok := s.Nodes[id]
	if !ok {
		return ErrUnknownElement
	}
	if !n.Deleted {
		n.Deleted = true
		s.dirty = true
	}
	return nil
}

// Contains reports whether id has been seen, tombstoned or not.
func (s *Sequence[T]) Contains(id string) bool {
	_, ok := s.Nodes[id]
	return ok
}

// Merge unions the node arenas. A node present on both sides keeps its
// tombstone if either side removed it; deletion is monotone.
func (s *Sequence[T]) Merge(other *Sequence[T]) {
	if other == nil {
		return
	}
	if s.Nodes == nil {
		s.Nodes = make(map[string]*SequenceNode[T])
	}
	for id, n := range other.Nodes {
		mine, ok := s.Nodes[id]
		if !ok {
			clone := *n
			s.Nodes[id] = &clone
			s.dirty = true
			continue
		}
		if n.Deleted && !mine.Deleted {
			mine.Deleted = true
			s.dirty = true
		}
	}
}

// ensure rebuilds the traversal cache: depth-first over predecessor links,
// siblings in descending stamp order.
func (s *Sequence[T]) ensure() {
	if !s.dirty && s.order != nil {
		return
	}
	children := make(map[string][]string, len(s.Nodes))
	for id, n := range s.Nodes {
		children[n.Pred] = append(children[n.Pred], id)
	}
	for _, ids := range children {
		sort.Slice(ids, func(i, j int) bool {
			return s.Nodes[ids[j]].Stamp.Less(s.Nodes[ids[i]].Stamp)
		})
	}

	s.order = make([]string, 0, len(s.Nodes))
	stack := make([]string, 0, len(children[RootID]))
	push := func(ids []string) {
		for i := len(ids) - 1; i >= 0; i-- {
			stack = append(stack, ids[i])
		}
	}
	push(children[RootID])
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		s.order = append(s.order, id)
		push(children[id])
	}
	s.dirty = false
}

// Slice returns the visible values in traversal order.
func (s *Sequence[T]) Slice() []T {
	s.ensure()
	out := make([]T, 0, len(s.order))
	for _, id := range s.order {
		if n := s.Nodes[id]; !n.Deleted {
			out = append(out, n.Value)
		}
	}
	return out
}

// VisibleIDs returns the ids of visible elements in traversal order.
func (s *Sequence[T]) VisibleIDs() []string {
	s.ensure()
	out := make([]string, 0, len(s.order))
	for _, id := range s.order {
		if !s.Nodes[id].Deleted {
			out = append(out, id)
		}
	}
	return out
}

// Positions maps every element id, tombstoned or not, to its index in the
// full traversal. Tombstones keep their slot so ranges anchored on deleted
// elements still resolve.
func (s *Sequence[T]) Positions() map[string]int {
	s.ensure()
	pos := make(map[string]int, len(s.order))
	for i, id := range s.order {
		pos[id] = i
	}
	return pos
}

// IDAt returns the id of the visible element at index.
func (s *Sequence[T]) IDAt(index int) (string, error) {
	ids := s.VisibleIDs()
	if index < 0 || index >= len(ids) {
		return "", ErrUnknownElement
	}
	return ids[index], nil
}

// Len counts visible elements.
func (s *Sequence[T]) Len() int {
	return len(s.VisibleIDs())
}
