package doc

import (
	"sort"
	"time"
)

// DefaultPresenceTTL is how long a peer stays listed without an update.
const DefaultPresenceTTL = 30 * time.Second

// PeerStatus describes a peer's activity level.
type PeerStatus string

const (
	PeerActive PeerStatus = "active"
	PeerIdle   PeerStatus = "idle"
)

// CursorPosition locates a peer's cursor inside one target's visible
// projection.
type CursorPosition struct {
	Target string `json:"target"`
	Index  int    `json:"index"`
}

// SelectionRange is a half-open visible index range inside one target.
type SelectionRange struct {
	Target string `json:"target"`
	Start  int    `json:"start"`
	End    int    `json:"end"`
}

// Peer is one collaborator's ephemeral session state.
type Peer struct {
	ID        string          `json:"peer_id"`
	Name      string          `json:"display_name"`
	Color     string          `json:"color"`
	Cursor    *CursorPosition `json:"cursor,omitempty"`
	Selection *SelectionRange `json:"selection,omitempty"`
	LastSeen  time.Time       `json:"last_seen"`
	Status    PeerStatus      `json:"status"`
}

// Presence tracks who is currently editing. It is not part of the merge
// algebra: updates are last-write-wins by LastSeen, because stale presence
// is harmless to discard and needs no causal guarantees.
type Presence struct {
	peers map[string]Peer
}

// NewPresence returns an empty tracker.
func NewPresence() *Presence {
	return &Presence{peers: make(map[string]Peer)}
}

// Update records a peer, keeping whichever view of it is freshest.
func (p *Presence) Update(peer Peer) {
	if existing, ok := p.peers[peer.ID]; ok && existing.LastSeen.After(peer.LastSeen) {
		return
	}
	p.peers[peer.ID] = peer
}

// Remove drops a peer immediately, e.g. on clean disconnect.
func (p *Presence) Remove(peerID string) {
	delete(p.peers, peerID)
}

// Expire drops peers not seen within ttl of now and returns their ids.
func (p *Presence) Expire(now time.Time, ttl time.Duration) []string {
	var expired []string
	for id, peer := range p.peers {
		if now.Sub(peer.LastSeen) > ttl {
			expired = append(expired, id)
			delete(p.peers, id)
		}
	}
	sort.Strings(expired)
	return expired
}

// Peers lists current peers ordered by id.
func (p *Presence) Peers() []Peer {
	out := make([]Peer, 0, len(p.peers))
	for _, peer := range p.peers {
		out = append(out, peer)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
