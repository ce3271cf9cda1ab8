package transport

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/kevinxiao27/quill/doc"
)

// Message frame types exchanged with a relay hub.
const (
	MsgInit     = "init"
	MsgOp       = "op"
	MsgPresence = "presence"
)

// Message is the websocket frame envelope shared by client and hub.
type Message struct {
	Type     string          `json:"type"`
	Op       *doc.Operation  `json:"op,omitempty"`
	Peer     *doc.Peer       `json:"peer,omitempty"`
	Snapshot json.RawMessage `json:"snapshot,omitempty"`
}

// WS is a websocket transport speaking the hub's frame protocol. Received
// operations are dispatched from a single goroutine, so the callback never
// runs concurrently with itself.
type WS struct {
	conn *websocket.Conn

	writeMu sync.Mutex

	mu          sync.Mutex
	onOp        func(doc.Operation)
	onSnapshot  func([]byte)
	onPresence  func(doc.Peer)
	initPending []byte // init frame that arrived before a handler was set

	done chan struct{}
}

var _ Transport = (*WS)(nil)

// Dial connects to a hub, e.g. ws://host:8080/ws?doc=novel-1.
func Dial(url string) (*WS, error) {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	t := &WS{conn: conn, done: make(chan struct{})}
	go t.readLoop()
	return t, nil
}

// Send ships an operation to the hub.
func (t *WS) Send(op doc.Operation) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	return t.conn.WriteJSON(Message{Type: MsgOp, Op: &op})
}

// SendPresence publishes this peer's ephemeral state.
func (t *WS) SendPresence(peer doc.Peer) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	return t.conn.WriteJSON(Message{Type: MsgPresence, Peer: &peer})
}

// OnReceive registers the operation callback.
func (t *WS) OnReceive(fn func(doc.Operation)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onOp = fn
}

// OnSnapshot registers the callback for the hub's bootstrap snapshot. If an
// init frame already arrived it is delivered immediately.
func (t *WS) OnSnapshot(fn func([]byte)) {
	t.mu.Lock()
	pending := t.initPending
	t.initPending = nil
	t.onSnapshot = fn
	t.mu.Unlock()
	if pending != nil {
		fn(pending)
	}
}

// OnPresence registers the callback for peer presence updates.
func (t *WS) OnPresence(fn func(doc.Peer)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onPresence = fn
}

func (t *WS) handlers() (func(doc.Operation), func([]byte), func(doc.Peer)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.onOp, t.onSnapshot, t.onPresence
}

func (t *WS) readLoop() {
	defer close(t.done)
	for {
		var msg Message
		if err := t.conn.ReadJSON(&msg); err != nil {
			return
		}
		onOp, onSnapshot, onPresence := t.handlers()
		switch msg.Type {
		case MsgOp:
			if msg.Op != nil && onOp != nil {
				onOp(*msg.Op)
			}
		case MsgInit:
			if msg.Snapshot == nil {
				continue
			}
			if onSnapshot != nil {
				onSnapshot(msg.Snapshot)
			} else {
				t.mu.Lock()
				t.initPending = msg.Snapshot
				t.mu.Unlock()
			}
		case MsgPresence:
			if msg.Peer != nil && onPresence != nil {
				onPresence(*msg.Peer)
			}
		default:
			slog.Debug("ignoring unknown frame", "type", msg.Type)
		}
	}
}

// Close tears the connection down and waits for the read loop to exit.
func (t *WS) Close() error {
	err := t.conn.Close()
	<-t.done
	return err
}
