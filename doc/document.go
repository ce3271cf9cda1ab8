package doc

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/google/uuid"

	"github.com/kevinxiao27/quill/crdt"
	"github.com/kevinxiao27/quill/util"
)

// Engine defaults, overridable per document.
const (
	// DefaultPendingRetryLimit is how many retry rounds a buffered dangling
	// operation survives before it is dropped and reported.
	DefaultPendingRetryLimit = 64

	// DefaultClockSkewThreshold is how far a remote stamp's physical time
	// may run ahead of local wall time before a warning is logged. Merge
	// correctness does not depend on wall clocks, so skew is never fatal.
	DefaultClockSkewThreshold = 5 * time.Minute
)

// Mutation is a local edit intent. Index-based fields are resolved against
// the current state when the mutation is applied; the resulting Operation
// carries only element ids, so remote replicas never resolve indices.
type Mutation struct {
	Kind   Kind
	Target string
	Value  string
	Key    string
	Amount int64
	Index  int
	Length int
	Text   string
	Format string
}

type pendingOp struct {
	op       Operation
	payload  any
	attempts int
}

// Document is one replica's copy of the full replicated state: named
// registers, counters, sets, maps, lists, and rich-text bodies, all keyed by
// target name and created lazily on first write.
//
// A Document is single-threaded: all mutation flows through ApplyLocal and
// ApplyRemote one operation at a time, and no operation partially applies.
// Operations may arrive in any order and any number of times; application is
// idempotent and order-tolerant.
type Document struct {
	replica string
	clock   *crdt.Clock
	logger  *slog.Logger

	registers map[string]*crdt.Register[string]
	counters  map[string]*crdt.Counter
	sets      map[string]*crdt.ORSet[string]
	maps      map[string]*crdt.LWWMap[string, string]
	lists     map[string]*crdt.Sequence[string]
	texts     map[string]*crdt.RichText

	seen     mapset.Set[string]
	pending  []*pendingOp
	dangling []Operation

	RetryLimit    int
	SkewThreshold time.Duration
}

// NewDocument returns an empty document for the given replica id.
func NewDocument(replica string) *Document {
	return &Document{
		replica:       replica,
		clock:         crdt.NewClock(replica),
		logger:        slog.With("component", "doc", "replica", replica),
		registers:     make(map[string]*crdt.Register[string]),
		counters:      make(map[string]*crdt.Counter),
		sets:          make(map[string]*crdt.ORSet[string]),
		maps:          make(map[string]*crdt.LWWMap[string, string]),
		lists:         make(map[string]*crdt.Sequence[string]),
		texts:         make(map[string]*crdt.RichText),
		seen:          mapset.NewSet[string](),
		RetryLimit:    DefaultPendingRetryLimit,
		SkewThreshold: DefaultClockSkewThreshold,
	}
}

// Replica returns this document's replica id.
func (d *Document) Replica() string {
	return d.replica
}

func (d *Document) register(target string) *crdt.Register[string] {
	r := d.registers[target]
	if r == nil {
		r = crdt.NewRegister[string]()
		d.registers[target] = r
	}
	return r
}

func (d *Document) counter(target string) *crdt.Counter {
	c := d.counters[target]
	if c == nil {
		c = crdt.NewCounter()
		d.counters[target] = c
	}
	return c
}

func (d *Document) set(target string) *crdt.ORSet[string] {
	s := d.sets[target]
	if s == nil {
		s = crdt.NewORSet[string]()
		d.sets[target] = s
	}
	return s
}

func (d *Document) lwwmap(target string) *crdt.LWWMap[string, string] {
	m := d.maps[target]
	if m == nil {
		m = crdt.NewLWWMap[string, string]()
		d.maps[target] = m
	}
	return m
}

func (d *Document) list(target string) *crdt.Sequence[string] {
	l := d.lists[target]
	if l == nil {
		l = crdt.NewSequence[string]()
		d.lists[target] = l
	}
	return l
}

func (d *Document) text(target string) *crdt.RichText {
	t := d.texts[target]
	if t == nil {
		t = crdt.NewRichText()
		d.texts[target] = t
	}
	return t
}

// ApplyLocal resolves a mutation against current state, stamps it with a
// fresh clock value, applies it, and returns the operation to hand to the
// transport.
func (d *Document) ApplyLocal(m Mutation) (Operation, error) {
	payload, err := d.resolve(m)
	if err != nil {
		return Operation{}, err
	}
	op := Operation{
		ID:      uuid.NewString(),
		Clock:   d.clock.Now(),
		Kind:    m.Kind,
		Target:  m.Target,
		Replica: d.replica,
		Payload: marshalPayload(payload),
	}
	if err := d.dispatch(op, payload); err != nil {
		return Operation{}, err
	}
	d.seen.Add(op.ID)
	d.retryPending()
	return op, nil
}

// ApplyRemote applies an operation produced elsewhere. It is idempotent and
// tolerates out-of-order delivery: operations referencing ids not yet known
// are buffered and retried as later operations arrive, and re-applied
// operations are no-ops. The returned error is always local to this one
// operation; existing state stays valid.
func (d *Document) ApplyRemote(op Operation) error {
	if err := op.Validate(); err != nil {
		d.logger.Warn("rejected operation", "op", op.ID, "err", err)
		return err
	}
	if d.seen.Contains(op.ID) {
		return nil
	}
	payload, err := op.decodePayload()
	if err != nil {
		return err
	}
	d.observe(op.Clock)
	if err := d.dispatch(op, payload); err != nil {
		if errors.Is(err, ErrDanglingReference) {
			d.buffer(op, payload)
			return nil
		}
		return err
	}
	d.seen.Add(op.ID)
	d.retryPending()
	return nil
}

// observe folds a remote stamp into the local clock and flags wall-clock
// skew before doing so.
func (d *Document) observe(at crdt.Stamp) {
	local := uint64(time.Now().UnixMilli())
	skew := uint64(d.SkewThreshold / time.Millisecond)
	if at.Physical > local+skew {
		d.logger.Warn("clock skew",
			"remote_replica", at.Replica,
			"remote_physical", at.Physical,
			"local_physical", local)
	}
	d.clock.Observe(at)
}

func (d *Document) buffer(op Operation, payload any) {
	d.logger.Debug("buffering dangling operation", "op", op.ID, "kind", op.Kind)
	d.pending = append(d.pending, &pendingOp{op: op, payload: payload})
}

// retryPending re-dispatches buffered operations until no further progress
// is made. Operations that exhaust the retry budget are dropped and kept
// visible through Dangling.
func (d *Document) retryPending() {
	for progress := true; progress; {
		progress = false
		var still []*pendingOp
		for _, p := range d.pending {
			err := d.dispatch(p.op, p.payload)
			if err == nil {
				d.seen.Add(p.op.ID)
				progress = true
				continue
			}
			if !errors.Is(err, ErrDanglingReference) {
				d.logger.Warn("dropping unappliable operation", "op", p.op.ID, "err", err)
				d.dangling = append(d.dangling, p.op)
				continue
			}
			p.attempts++
			if p.attempts >= d.RetryLimit {
				d.logger.Warn("dropping dangling operation",
					"op", p.op.ID, "kind", p.op.Kind, "attempts", p.attempts)
				d.dangling = append(d.dangling, p.op)
				continue
			}
			still = append(still, p)
		}
		d.pending = still
	}
}

// Dangling returns the operations dropped after exhausting the retry
// budget. The condition is non-fatal; the host may request a full resync.
func (d *Document) Dangling() []Operation {
	out := make([]Operation, len(d.dangling))
	copy(out, d.dangling)
	return out
}

// PendingCount reports how many operations are buffered awaiting their
// referenced elements.
func (d *Document) PendingCount() int {
	return len(d.pending)
}

// dispatch routes an operation to its component. crdt-level unknown-id
// errors are translated to ErrDanglingReference so the applier can buffer.
func (d *Document) dispatch(op Operation, payload any) error {
	var err error
	switch p := payload.(type) {
	case *SetValuePayload:
		d.register(op.Target).Write(p.Value, op.Clock)
	case *AddElementPayload:
		d.set(op.Target).Add(p.Value, p.Tag)
	case *RemoveElementPayload:
		d.set(op.Target).RemoveTags(p.Value, p.Tags)
	case *InsertAtPayload:
		err = d.list(op.Target).Insert(p.ElementID, p.Predecessor, p.Value, op.Clock)
	case *DeleteAtPayload:
		err = d.list(op.Target).Remove(p.ElementID)
	case *AmountPayload:
		c := d.counter(op.Target)
		apply := util.Choose(op.Kind == KindIncrement, c.Increment, c.Decrement)
		err = apply(op.ID, p.Amount)
	case *SetEntryPayload:
		d.lwwmap(op.Target).Set(p.Key, p.Value, op.Clock)
	case *DeleteEntryPayload:
		d.lwwmap(op.Target).Delete(p.Key, op.Clock)
	case *InsertTextPayload:
		err = d.text(op.Target).Insert(p.Predecessor, p.ElementIDs, p.Text, op.Clock)
	case *DeleteTextPayload:
		err = d.text(op.Target).Delete(p.ElementIDs)
	case *FormatTextPayload:
		r := crdt.FormatRange{StartID: p.StartID, EndID: p.EndID, Kind: p.Format}
		err = d.text(op.Target).ApplyFormat(r, p.Tag)
	case *UnformatTextPayload:
		r := crdt.FormatRange{StartID: p.StartID, EndID: p.EndID, Kind: p.Format}
		d.text(op.Target).RemoveFormatTags(r, p.Tags)
	default:
		return fmt.Errorf("%w: unhandled payload %T", ErrMalformedOperation, payload)
	}
	if errors.Is(err, crdt.ErrUnknownPredecessor) || errors.Is(err, crdt.ErrUnknownElement) {
		return fmt.Errorf("%w: %v", ErrDanglingReference, err)
	}
	return err
}

// resolve turns a local mutation into a wire payload, translating visible
// indices into element ids and minting the unique ids and tags the payload
// needs.
func (d *Document) resolve(m Mutation) (any, error) {
	switch m.Kind {
	case KindSetValue:
		return &SetValuePayload{Value: m.Value}, nil
	case KindAddElement:
		return &AddElementPayload{Value: m.Value, Tag: uuid.NewString()}, nil
	case KindRemoveElement:
		s := d.sets[m.Target]
		if s == nil {
			return nil, fmt.Errorf("%w: set %q", ErrUnknownTarget, m.Target)
		}
		return &RemoveElementPayload{Value: m.Value, Tags: s.Tags(m.Value)}, nil
	case KindInsertAt:
		pred := crdt.RootID
		if m.Index > 0 {
			id, err := d.list(m.Target).IDAt(m.Index - 1)
			if err != nil {
				return nil, fmt.Errorf("insert at %d: %w", m.Index, err)
			}
			pred = id
		}
		return &InsertAtPayload{ElementID: uuid.NewString(), Predecessor: pred, Value: m.Value}, nil
	case KindDeleteAt:
		l := d.lists[m.Target]
		if l == nil {
			return nil, fmt.Errorf("%w: list %q", ErrUnknownTarget, m.Target)
		}
		id, err := l.IDAt(m.Index)
		if err != nil {
			return nil, fmt.Errorf("delete at %d: %w", m.Index, err)
		}
		return &DeleteAtPayload{ElementID: id}, nil
	case KindIncrement, KindDecrement:
		if m.Amount < 0 {
			return nil, fmt.Errorf("%w: negative amount %d", ErrMalformedOperation, m.Amount)
		}
		return &AmountPayload{Amount: m.Amount}, nil
	case KindSetEntry:
		return &SetEntryPayload{Key: m.Key, Value: m.Value}, nil
	case KindDeleteEntry:
		return &DeleteEntryPayload{Key: m.Key}, nil
	case KindInsertText:
		t := d.text(m.Target)
		pred, err := t.PredecessorAt(m.Index)
		if err != nil {
			return nil, fmt.Errorf("insert text at %d: %w", m.Index, err)
		}
		runes := []rune(m.Text)
		if len(runes) == 0 {
			return nil, fmt.Errorf("%w: empty text insert", ErrMalformedOperation)
		}
		ids := util.MapN(runes, func(rune) (string, error) {
			return uuid.NewString(), nil
		})
		return &InsertTextPayload{Predecessor: pred, ElementIDs: ids, Text: m.Text}, nil
	case KindDeleteText:
		t := d.texts[m.Target]
		if t == nil {
			return nil, fmt.Errorf("%w: text %q", ErrUnknownTarget, m.Target)
		}
		ids, err := t.RangeIDs(m.Index, m.Length)
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			return nil, fmt.Errorf("%w: empty text delete", ErrMalformedOperation)
		}
		return &DeleteTextPayload{ElementIDs: ids}, nil
	case KindFormatText:
		t := d.texts[m.Target]
		if t == nil {
			return nil, fmt.Errorf("%w: text %q", ErrUnknownTarget, m.Target)
		}
		ids, err := t.RangeIDs(m.Index, m.Length)
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			return nil, fmt.Errorf("%w: empty format range", ErrMalformedOperation)
		}
		return &FormatTextPayload{
			StartID: ids[0],
			EndID:   ids[len(ids)-1],
			Format:  m.Format,
			Tag:     uuid.NewString(),
		}, nil
	case KindUnformatText:
		t := d.texts[m.Target]
		if t == nil {
			return nil, fmt.Errorf("%w: text %q", ErrUnknownTarget, m.Target)
		}
		ids, err := t.RangeIDs(m.Index, m.Length)
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			return nil, fmt.Errorf("%w: empty format range", ErrMalformedOperation)
		}
		r := crdt.FormatRange{StartID: ids[0], EndID: ids[len(ids)-1], Kind: m.Format}
		set := t.Formats[m.Format]
		var tags []string
		if set != nil {
			tags = set.Tags(r)
		}
		return &UnformatTextPayload{
			StartID: r.StartID,
			EndID:   r.EndID,
			Format:  m.Format,
			Tags:    tags,
		}, nil
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrMalformedOperation, m.Kind)
	}
}

// Merge folds another document's full state into this one. Merging is
// commutative, associative, and idempotent component-wise; the seen-op set
// unions so replay protection carries over.
func (d *Document) Merge(other *Document) {
	for target, r := range other.registers {
		d.register(target).Merge(r)
	}
	for target, c := range other.counters {
		d.counter(target).Merge(c)
	}
	for target, s := range other.sets {
		d.set(target).Merge(s)
	}
	for target, m := range other.maps {
		d.lwwmap(target).Merge(m)
	}
	for target, l := range other.lists {
		d.list(target).Merge(l)
	}
	for target, t := range other.texts {
		d.text(target).Merge(t)
	}
	d.seen = d.seen.Union(other.seen)
	d.clock.Observe(other.clock.Last())
	d.retryPending()
}
