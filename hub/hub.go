// Package hub relays operations between the replicas editing a document. It
// keeps its own authoritative replica per document, so late joiners
// bootstrap from a snapshot instead of replaying history, and it persists
// that replica through an optional snapshot store.
package hub

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/kevinxiao27/quill/doc"
	"github.com/kevinxiao27/quill/store"
	"github.com/kevinxiao27/quill/transport"
)

const sendBuffer = 64

// Hub serves websocket rooms, one per document id.
type Hub struct {
	logger   *slog.Logger
	upgrader websocket.Upgrader
	store    store.SnapshotStore // nil means in-memory only

	mu    sync.Mutex
	rooms map[string]*room
}

type room struct {
	id       string
	mu       sync.Mutex
	doc      *doc.Document
	presence *doc.Presence
	clients  map[*client]bool
}

type client struct {
	conn   *websocket.Conn
	send   chan transport.Message
	peerID string
}

// New returns a hub. snapshots may be nil to disable persistence.
func New(snapshots store.SnapshotStore) *Hub {
	return &Hub{
		logger: slog.With("component", "hub"),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		store: snapshots,
		rooms: make(map[string]*room),
	}
}

// Router returns the HTTP surface: GET /ws?doc=<id> for the websocket and
// GET /docs/{id} for a read-only view.
func (h *Hub) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/ws", h.handleWS)
	r.HandleFunc("/docs/{id}", h.handleView).Methods(http.MethodGet)
	return r
}

func (h *Hub) room(docID string) *room {
	h.mu.Lock()
	defer h.mu.Unlock()
	if rm, ok := h.rooms[docID]; ok {
		return rm
	}
	rm := &room{
		id:       docID,
		doc:      h.loadDocument(docID),
		presence: doc.NewPresence(),
		clients:  make(map[*client]bool),
	}
	h.rooms[docID] = rm
	return rm
}

func (h *Hub) loadDocument(docID string) *doc.Document {
	if h.store != nil {
		data, err := h.store.LoadSnapshot(context.Background(), docID)
		if err == nil {
			if d, err := doc.Load(data); err == nil {
				return d
			} else {
				h.logger.Warn("discarding unreadable snapshot", "doc", docID, "err", err)
			}
		} else if !errors.Is(err, store.ErrNoSnapshot) {
			h.logger.Warn("snapshot load failed", "doc", docID, "err", err)
		}
	}
	return doc.NewDocument("hub-" + uuid.NewString())
}

func (h *Hub) persist(rm *room) {
	if h.store == nil {
		return
	}
	rm.mu.Lock()
	data, err := rm.doc.Snapshot()
	rm.mu.Unlock()
	if err != nil {
		h.logger.Warn("snapshot failed", "doc", rm.id, "err", err)
		return
	}
	if err := h.store.SaveSnapshot(context.Background(), rm.id, data); err != nil {
		h.logger.Warn("snapshot save failed", "doc", rm.id, "err", err)
	}
}

func (h *Hub) handleView(w http.ResponseWriter, r *http.Request) {
	docID := mux.Vars(r)["id"]
	rm := h.room(docID)
	rm.mu.Lock()
	view := rm.doc.View()
	rm.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(view); err != nil {
		h.logger.Warn("view encode failed", "doc", docID, "err", err)
	}
}

func (h *Hub) handleWS(w http.ResponseWriter, r *http.Request) {
	docID := r.URL.Query().Get("doc")
	if docID == "" {
		http.Error(w, "missing doc id", http.StatusBadRequest)
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("upgrade failed", "err", err)
		return
	}

	rm := h.room(docID)
	c := &client{conn: conn, send: make(chan transport.Message, sendBuffer)}
	go c.writeLoop()

	rm.mu.Lock()
	rm.clients[c] = true
	snapshot, err := rm.doc.Snapshot()
	total := len(rm.clients)
	rm.mu.Unlock()

	h.logger.Info("client connected", "doc", docID, "clients", total)
	if err == nil {
		c.send <- transport.Message{Type: transport.MsgInit, Snapshot: snapshot}
	} else {
		h.logger.Warn("bootstrap snapshot failed", "doc", docID, "err", err)
	}

	h.readLoop(rm, c)

	rm.mu.Lock()
	delete(rm.clients, c)
	if c.peerID != "" {
		rm.presence.Remove(c.peerID)
	}
	remaining := len(rm.clients)
	rm.mu.Unlock()
	close(c.send)
	h.logger.Info("client disconnected", "doc", docID, "clients", remaining)
}

func (h *Hub) readLoop(rm *room, c *client) {
	for {
		var msg transport.Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}
		switch msg.Type {
		case transport.MsgOp:
			if msg.Op == nil {
				continue
			}
			rm.mu.Lock()
			err := rm.doc.ApplyRemote(*msg.Op)
			rm.mu.Unlock()
			if err != nil {
				h.logger.Warn("rejected operation", "doc", rm.id, "op", msg.Op.ID, "err", err)
				continue
			}
			h.persist(rm)
			rm.broadcast(msg, c)
		case transport.MsgPresence:
			if msg.Peer == nil {
				continue
			}
			peer := *msg.Peer
			peer.LastSeen = time.Now()
			rm.mu.Lock()
			c.peerID = peer.ID
			rm.presence.Update(peer)
			rm.presence.Expire(time.Now(), doc.DefaultPresenceTTL)
			rm.mu.Unlock()
			rm.broadcast(transport.Message{Type: transport.MsgPresence, Peer: &peer}, c)
		}
	}
}

// broadcast fans a message out to every client in the room except from. A
// client whose buffer is full is skipped; it will catch up from the hub
// snapshot on reconnect.
func (rm *room) broadcast(msg transport.Message, from *client) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	for c := range rm.clients {
		if c == from {
			continue
		}
		select {
		case c.send <- msg:
		default:
		}
	}
}

func (c *client) writeLoop() {
	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}
