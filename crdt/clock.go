// Package crdt implements the convergent data types underneath a quill
// document: an LWW register, a PN-counter, an observed-remove set, an LWW
// map, an RGA sequence, and rich text composed from the last two. All merge
// operations are commutative, associative, and idempotent, so replicas that
// have seen the same operations hold the same state regardless of delivery
// order or duplication.
package crdt

import "time"

// Stamp is a hybrid logical clock value. Stamps are totally ordered by
// (Physical, Logical, Replica); the replica id only ever breaks ties, it is
// not a causality proof.
type Stamp struct {
	Physical uint64 `json:"physical"`
	Logical  uint32 `json:"counter"`
	Replica  string `json:"replica"`
}

// Compare returns -1 if s orders before o, 1 if after, 0 if equal.
func (s Stamp) Compare(o Stamp) int {
	if s.Physical != o.Physical {
		if s.Physical < o.Physical {
			return -1
		}
		return 1
	}
	if s.Logical != o.Logical {
		if s.Logical < o.Logical {
			return -1
		}
		return 1
	}
	if s.Replica != o.Replica {
		if s.Replica < o.Replica {
			return -1
		}
		return 1
	}
	return 0
}

// Less reports whether s orders strictly before o.
func (s Stamp) Less(o Stamp) bool {
	return s.Compare(o) < 0
}

// IsZero reports whether s is the zero stamp, which orders before every
// stamp a clock can issue.
func (s Stamp) IsZero() bool {
	return s.Physical == 0 && s.Logical == 0 && s.Replica == ""
}

// Clock issues strictly increasing stamps for one replica. It never blocks
// and never fails; when wall time stalls or runs backwards the logical
// counter absorbs the difference.
//
// A Clock is owned by a single goroutine, the same way the document that
// holds it is.
type Clock struct {
	replica      string
	lastPhysical uint64
	lastLogical  uint32
	wall         func() uint64
}

// NewClock returns a clock for the given replica id.
func NewClock(replica string) *Clock {
	return &Clock{
		replica: replica,
		wall:    func() uint64 { return uint64(time.Now().UnixMilli()) },
	}
}

// RestoreClock rebuilds a clock from the last stamp it issued or observed,
// so a reloaded replica never re-issues an old stamp.
func RestoreClock(replica string, last Stamp) *Clock {
	c := NewClock(replica)
	c.lastPhysical = last.Physical
	c.lastLogical = last.Logical
	return c
}

// Now returns the next stamp. Successive calls on the same clock strictly
// increase in (Physical, Logical) order even if wall time does not advance.
func (c *Clock) Now() Stamp {
	now := c.wall()
	if now > c.lastPhysical {
		c.lastPhysical = now
		c.lastLogical = 0
	} else {
		c.lastLogical++
	}
	return Stamp{Physical: c.lastPhysical, Logical: c.lastLogical, Replica: c.replica}
}

// Observe folds a remote stamp into the clock so that every stamp issued
// afterwards orders after it. Stamps already in the past are ignored.
func (c *Clock) Observe(s Stamp) {
	if s.Physical > c.lastPhysical {
		c.lastPhysical = s.Physical
		c.lastLogical = s.Logical
	} else if s.Physical == c.lastPhysical && s.Logical > c.lastLogical {
		c.lastLogical = s.Logical
	}
}

// Last returns the most recent stamp position without advancing the clock.
// The replica field is the clock's own id, not the origin of an observed
// stamp.
func (c *Clock) Last() Stamp {
	return Stamp{Physical: c.lastPhysical, Logical: c.lastLogical, Replica: c.replica}
}

// Replica returns the id this clock stamps with.
func (c *Clock) Replica() string {
	return c.replica
}
