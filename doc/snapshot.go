package doc

import (
	"encoding/json"
	"fmt"
	"sort"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/kevinxiao27/quill/crdt"
)

// snapshotState is the serialized form of a document. Maps marshal with
// sorted keys and the seen set is sorted, so two replicas holding identical
// state produce byte-identical snapshots.
type snapshotState struct {
	Replica   string                                  `json:"replica_id"`
	Clock     crdt.Stamp                              `json:"clock"`
	Registers map[string]*crdt.Register[string]       `json:"registers,omitempty"`
	Counters  map[string]*crdt.Counter                `json:"counters,omitempty"`
	Sets      map[string]*crdt.ORSet[string]          `json:"sets,omitempty"`
	Maps      map[string]*crdt.LWWMap[string, string] `json:"maps,omitempty"`
	Lists     map[string]*crdt.Sequence[string]       `json:"lists,omitempty"`
	Texts     map[string]*crdt.RichText               `json:"texts,omitempty"`
	Seen      []string                                `json:"seen,omitempty"`
	Pending   []Operation                             `json:"pending,omitempty"`
}

// Snapshot exports the full document state for persistence or new-peer
// bootstrap.
func (d *Document) Snapshot() ([]byte, error) {
	seen := d.seen.ToSlice()
	sort.Strings(seen)
	pending := make([]Operation, 0, len(d.pending))
	for _, p := range d.pending {
		pending = append(pending, p.op)
	}
	state := snapshotState{
		Replica:   d.replica,
		Clock:     d.clock.Last(),
		Registers: d.registers,
		Counters:  d.counters,
		Sets:      d.sets,
		Maps:      d.maps,
		Lists:     d.lists,
		Texts:     d.texts,
		Seen:      seen,
		Pending:   pending,
	}
	return json.Marshal(state)
}

// Load rebuilds a document from a snapshot produced by Snapshot.
func Load(data []byte) (*Document, error) {
	var state snapshotState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	if state.Replica == "" {
		return nil, fmt.Errorf("load snapshot: missing replica id")
	}
	d := NewDocument(state.Replica)
	d.clock = crdt.RestoreClock(state.Replica, state.Clock)
	if state.Registers != nil {
		d.registers = state.Registers
	}
	if state.Counters != nil {
		d.counters = state.Counters
	}
	if state.Sets != nil {
		d.sets = state.Sets
	}
	if state.Maps != nil {
		d.maps = state.Maps
	}
	if state.Lists != nil {
		d.lists = state.Lists
	}
	if state.Texts != nil {
		d.texts = state.Texts
	}
	d.seen = mapset.NewSet(state.Seen...)
	for _, op := range state.Pending {
		payload, err := op.decodePayload()
		if err != nil {
			return nil, fmt.Errorf("load snapshot: pending op %s: %w", op.ID, err)
		}
		d.pending = append(d.pending, &pendingOp{op: op, payload: payload})
	}
	return d, nil
}
