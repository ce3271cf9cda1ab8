package crdt

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kevinxiao27/quill/util"
)

// FormatRange marks a span of formatted text by its boundary element ids.
// Ranges live in an ORSet per format kind, so formatting follows add-wins
// semantics: a concurrent format and unformat of different ranges both
// survive because they are different members.
type FormatRange struct {
	StartID string
	EndID   string
	Kind    string
}

// MarshalText encodes the range for use as a JSON map key.
func (f FormatRange) MarshalText() ([]byte, error) {
	if strings.ContainsAny(f.StartID+f.EndID, "|") {
		return nil, fmt.Errorf("format range ids must not contain '|'")
	}
	return []byte(f.StartID + "|" + f.EndID + "|" + f.Kind), nil
}

// UnmarshalText decodes the map-key form.
func (f *FormatRange) UnmarshalText(data []byte) error {
	parts := strings.SplitN(string(data), "|", 3)
	if len(parts) != 3 {
		return fmt.Errorf("malformed format range %q", data)
	}
	f.StartID, f.EndID, f.Kind = parts[0], parts[1], parts[2]
	return nil
}

// RichText is formatted collaborative text: an RGA of runes for content plus
// one observed-remove set of ranges per format kind. A character's effective
// formatting is the union of live ranges covering its traversal position;
// tombstoned characters still anchor the ranges that reference them.
type RichText struct {
	Body    *Sequence[rune]                `json:"body"`
	Formats map[string]*ORSet[FormatRange] `json:"formats"`
}

// NewRichText returns empty text.
func NewRichText() *RichText {
	return &RichText{
		Body:    NewSequence[rune](),
		Formats: make(map[string]*ORSet[FormatRange]),
	}
}

// Insert places text after pred, one sequence node per rune, chained so the
// run stays contiguous. ids supplies one fresh element id per rune.
func (t *RichText) Insert(pred string, ids []string, text string, at Stamp) error {
	runes := []rune(text)
	if len(runes) != len(ids) {
		return fmt.Errorf("insert of %d runes with %d ids", len(runes), len(ids))
	}
	if len(runes) == 0 {
		return nil
	}
	if pred != RootID && !t.Body.Contains(pred) {
		return ErrUnknownPredecessor
	}
	prev := pred
	for i, r := range runes {
		if err := t.Body.Insert(ids[i], prev, r, at); err != nil {
			return err
		}
		prev = ids[i]
	}
	return nil
}

// Delete tombstones the given element ids. If any id is unknown nothing is
// removed, so a caller can buffer the whole operation and retry.
func (t *RichText) Delete(ids []string) error {
	for _, id := range ids {
		if !t.Body.Contains(id) {
			return ErrUnknownElement
		}
	}
	for _, id := range ids {
		if err := t.Body.Remove(id); err != nil {
			return err
		}
	}
	return nil
}

// PredecessorAt resolves a visible insertion index to the element id the new
// text should follow; index 0 maps to RootID.
func (t *RichText) PredecessorAt(index int) (string, error) {
	if index == 0 {
		return RootID, nil
	}
	return t.Body.IDAt(index - 1)
}

// RangeIDs resolves a visible index range to element ids.
func (t *RichText) RangeIDs(index, length int) ([]string, error) {
	ids := t.Body.VisibleIDs()
	if index < 0 || length < 0 || index+length > len(ids) {
		return nil, fmt.Errorf("range %d+%d outside text of length %d", index, length, len(ids))
	}
	out := make([]string, length)
	copy(out, ids[index:index+length])
	return out, nil
}

func (t *RichText) formats(kind string) *ORSet[FormatRange] {
	if t.Formats == nil {
		t.Formats = make(map[string]*ORSet[FormatRange])
	}
	set := t.Formats[kind]
	if set == nil {
		set = NewORSet[FormatRange]()
		t.Formats[kind] = set
	}
	return set
}

// ApplyFormat adds a range under its kind's set with the given unique tag.
// Both anchors must be known elements, tombstoned or not.
func (t *RichText) ApplyFormat(r FormatRange, tag string) error {
	if !t.Body.Contains(r.StartID) || !t.Body.Contains(r.EndID) {
		return ErrUnknownElement
	}
	t.formats(r.Kind).Add(r, tag)
	return nil
}

// RemoveFormat removes the exact range member, returning the tombstoned tags
// for transmission.
func (t *RichText) RemoveFormat(r FormatRange) []string {
	return t.formats(r.Kind).Remove(r)
}

// RemoveFormatTags is the remote half of RemoveFormat.
func (t *RichText) RemoveFormatTags(r FormatRange, tags []string) {
	t.formats(r.Kind).RemoveTags(r, tags)
}

// Merge folds another rich text in: the body sequence merges node-wise and
// each per-kind range set merges independently.
func (t *RichText) Merge(other *RichText) {
	if other == nil {
		return
	}
	t.Body.Merge(other.Body)
	for kind, set := range other.Formats {
		t.formats(kind).Merge(set)
	}
}

// String returns the plain text projection.
func (t *RichText) String() string {
	return string(t.Body.Slice())
}

// Len counts visible characters.
func (t *RichText) Len() int {
	return t.Body.Len()
}

// Span is a run of consecutive characters sharing the same effective format
// kinds.
type Span struct {
	Text    string   `json:"text"`
	Formats []string `json:"formats,omitempty"`
}

type rangeSpan struct {
	lo, hi int
	kind   string
}

func (t *RichText) activeRanges() []rangeSpan {
	pos := t.Body.Positions()
	var spans []rangeSpan
	for kind, set := range t.Formats {
		for _, r := range set.Values() {
			lo, okLo := pos[r.StartID]
			hi, okHi := pos[r.EndID]
			if !okLo || !okHi {
				continue // anchor not delivered yet
			}
			if hi < lo {
				lo, hi = hi, lo
			}
			spans = append(spans, rangeSpan{lo: lo, hi: hi, kind: kind})
		}
	}
	return spans
}

// Spans returns the marked-up projection: visible text split into runs of
// identical formatting, in traversal order.
func (t *RichText) Spans() []Span {
	t.Body.ensure()
	ranges := t.activeRanges()

	var out []Span
	var cur []rune
	var curKinds []string
	flush := func() {
		if len(cur) > 0 {
			out = append(out, Span{Text: string(cur), Formats: curKinds})
			cur = nil
		}
	}
	for p, id := range t.Body.order {
		n := t.Body.Nodes[id]
		if n.Deleted {
			continue
		}
		covering := util.Filter(ranges, func(r rangeSpan) bool {
			return r.lo <= p && p <= r.hi
		})
		kinds := util.MapN(covering, func(r rangeSpan) (string, error) {
			return r.kind, nil
		})
		sort.Strings(kinds)
		kinds = dedupe(kinds)
		if !equalStrings(kinds, curKinds) {
			flush()
			curKinds = kinds
		}
		cur = append(cur, n.Value)
	}
	flush()
	return out
}

// Markup renders the spans with the format kinds as surrounding tags, e.g.
// "plain <bold>emphasized</bold>". Purely a debugging and test aid; real
// rendering belongs to the host.
func (t *RichText) Markup() string {
	return util.Reduce(t.Spans(), func(span Span, out string) string {
		var b strings.Builder
		b.WriteString(out)
		for _, kind := range span.Formats {
			b.WriteString("<" + kind + ">")
		}
		b.WriteString(span.Text)
		for i := len(span.Formats) - 1; i >= 0; i-- {
			b.WriteString("</" + span.Formats[i] + ">")
		}
		return b.String()
	}, "")
}

func dedupe(sorted []string) []string {
	var out []string
	for i, s := range sorted {
		if i == 0 || s != sorted[i-1] {
			out = append(out, s)
		}
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
