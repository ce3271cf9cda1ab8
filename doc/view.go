package doc

import (
	"sort"

	"github.com/kevinxiao27/quill/crdt"
)

// TextView is the read projection of one rich-text body.
type TextView struct {
	Plain  string      `json:"plain"`
	Markup string      `json:"markup"`
	Spans  []crdt.Span `json:"spans,omitempty"`
}

// DocumentView is the read projection handed to the host for rendering.
// Only live values appear; tombstones and clock metadata stay internal.
type DocumentView struct {
	Registers map[string]string            `json:"registers,omitempty"`
	Counters  map[string]int64             `json:"counters,omitempty"`
	Sets      map[string][]string          `json:"sets,omitempty"`
	Maps      map[string]map[string]string `json:"maps,omitempty"`
	Lists     map[string][]string          `json:"lists,omitempty"`
	Texts     map[string]TextView          `json:"texts,omitempty"`
}

// View projects the current document state. Set members and map keys are
// sorted so the view is deterministic.
func (d *Document) View() DocumentView {
	view := DocumentView{
		Registers: make(map[string]string, len(d.registers)),
		Counters:  make(map[string]int64, len(d.counters)),
		Sets:      make(map[string][]string, len(d.sets)),
		Maps:      make(map[string]map[string]string, len(d.maps)),
		Lists:     make(map[string][]string, len(d.lists)),
		Texts:     make(map[string]TextView, len(d.texts)),
	}
	for target, r := range d.registers {
		view.Registers[target] = r.Get()
	}
	for target, c := range d.counters {
		view.Counters[target] = c.Value()
	}
	for target, s := range d.sets {
		members := s.Values()
		sort.Strings(members)
		view.Sets[target] = members
	}
	for target, m := range d.maps {
		entries := make(map[string]string, len(m.Entries))
		for _, k := range m.Keys() {
			v, _ := m.Get(k)
			entries[k] = v
		}
		view.Maps[target] = entries
	}
	for target, l := range d.lists {
		view.Lists[target] = l.Slice()
	}
	for target, t := range d.texts {
		view.Texts[target] = TextView{
			Plain:  t.String(),
			Markup: t.Markup(),
			Spans:  t.Spans(),
		}
	}
	return view
}
