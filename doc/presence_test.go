package doc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPresenceUpdateAndList(t *testing.T) {
	p := NewPresence()
	now := time.Now()

	p.Update(Peer{ID: "b", Name: "Bob", LastSeen: now, Status: PeerActive})
	p.Update(Peer{ID: "a", Name: "Alice", LastSeen: now, Status: PeerActive,
		Cursor: &CursorPosition{Target: "body", Index: 3}})

	peers := p.Peers()
	assert.Len(t, peers, 2)
	assert.Equal(t, "a", peers[0].ID, "peers are sorted by id")
	assert.Equal(t, 3, peers[0].Cursor.Index)
}

func TestPresenceStaleUpdateIgnored(t *testing.T) {
	p := NewPresence()
	now := time.Now()

	p.Update(Peer{ID: "a", Name: "fresh", LastSeen: now})
	p.Update(Peer{ID: "a", Name: "stale", LastSeen: now.Add(-time.Minute)})

	assert.Equal(t, "fresh", p.Peers()[0].Name)
}

func TestPresenceExpire(t *testing.T) {
	p := NewPresence()
	now := time.Now()

	p.Update(Peer{ID: "old", LastSeen: now.Add(-time.Minute)})
	p.Update(Peer{ID: "recent", LastSeen: now})

	expired := p.Expire(now, 30*time.Second)
	assert.Equal(t, []string{"old"}, expired)
	assert.Len(t, p.Peers(), 1)
	assert.Equal(t, "recent", p.Peers()[0].ID)
}

func TestPresenceRemove(t *testing.T) {
	p := NewPresence()
	p.Update(Peer{ID: "a", LastSeen: time.Now()})
	p.Remove("a")
	assert.Empty(t, p.Peers())
}
