package crdt

import (
	"encoding/json"
	"sort"

	mapset "github.com/deckarep/golang-set/v2"
)

// ORSet is an observed-remove set. Every add carries a globally unique tag;
// removal tombstones only the tags the remover had observed, so an add that
// was concurrent with the removal survives the merge (add-wins).
type ORSet[T comparable] struct {
	observed   map[T]mapset.Set[string]
	tombstoned map[T]mapset.Set[string]
}

// NewORSet returns an empty set.
func NewORSet[T comparable]() *ORSet[T] {
	return &ORSet[T]{
		observed:   make(map[T]mapset.Set[string]),
		tombstoned: make(map[T]mapset.Set[string]),
	}
}

// Add records v under a fresh unique tag.
func (s *ORSet[T]) Add(v T, tag string) {
	if s.observed[v] == nil {
		s.observed[v] = mapset.NewSet[string]()
	}
	s.observed[v].Add(tag)
}

// Remove tombstones every currently observed tag of v and returns them, so
// the removal can be shipped to other replicas as an explicit tag list. Tags
// this replica has not seen are untouched.
func (s *ORSet[T]) Remove(v T) []string {
	tags := s.Tags(v)
	s.RemoveTags(v, tags)
	return tags
}

// RemoveTags tombstones the given tags of v, whether or not they have been
// observed locally yet. This is the remote half of Remove.
func (s *ORSet[T]) RemoveTags(v T, tags []string) {
	if len(tags) == 0 {
		return
	}
	if s.tombstoned[v] == nil {
		s.tombstoned[v] = mapset.NewSet[string]()
	}
	s.tombstoned[v].Append(tags...)
}

// Contains reports whether v has at least one live add-tag.
func (s *ORSet[T]) Contains(v T) bool {
	added := s.observed[v]
	if added == nil {
		return false
	}
	dead := s.tombstoned[v]
	if dead == nil {
		return added.Cardinality() > 0
	}
	return added.Difference(dead).Cardinality() > 0
}

// Tags returns the observed add-tags of v, sorted, including tombstoned
// ones.
func (s *ORSet[T]) Tags(v T) []string {
	added := s.observed[v]
	if added == nil {
		return nil
	}
	tags := added.ToSlice()
	sort.Strings(tags)
	return tags
}

// Values returns the current members in unspecified order.
func (s *ORSet[T]) Values() []T {
	var out []T
	for v := range s.observed {
		if s.Contains(v) {
			out = append(out, v)
		}
	}
	return out
}

// Merge unions both tag mappings; membership falls out of the live-tag
// invariant.
func (s *ORSet[T]) Merge(other *ORSet[T]) {
	if other == nil {
		return
	}
	for v, tags := range other.observed {
		if s.observed[v] == nil {
			s.observed[v] = mapset.NewSet[string]()
		}
		s.observed[v] = s.observed[v].Union(tags)
	}
	for v, tags := range other.tombstoned {
		if s.tombstoned[v] == nil {
			s.tombstoned[v] = mapset.NewSet[string]()
		}
		s.tombstoned[v] = s.tombstoned[v].Union(tags)
	}
}

type orsetState[T comparable] struct {
	Observed   map[T][]string `json:"observed"`
	Tombstoned map[T][]string `json:"tombstoned"`
}

// MarshalJSON encodes the tag sets as sorted slices so serialization is
// deterministic across replicas with identical state.
func (s *ORSet[T]) MarshalJSON() ([]byte, error) {
	state := orsetState[T]{
		Observed:   make(map[T][]string, len(s.observed)),
		Tombstoned: make(map[T][]string, len(s.tombstoned)),
	}
	for v, tags := range s.observed {
		slice := tags.ToSlice()
		sort.Strings(slice)
		state.Observed[v] = slice
	}
	for v, tags := range s.tombstoned {
		slice := tags.ToSlice()
		sort.Strings(slice)
		state.Tombstoned[v] = slice
	}
	return json.Marshal(state)
}

// UnmarshalJSON rebuilds the tag sets from their slice encoding.
func (s *ORSet[T]) UnmarshalJSON(data []byte) error {
	var state orsetState[T]
	if err := json.Unmarshal(data, &state); err != nil {
		return err
	}
	s.observed = make(map[T]mapset.Set[string], len(state.Observed))
	s.tombstoned = make(map[T]mapset.Set[string], len(state.Tombstoned))
	for v, tags := range state.Observed {
		s.observed[v] = mapset.NewSet(tags...)
	}
	for v, tags := range state.Tombstoned {
		s.tombstoned[v] = mapset.NewSet(tags...)
	}
	return nil
}
