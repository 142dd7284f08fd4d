package net

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"StepBoard/internal/render"

	"github.com/gorilla/websocket"
)

// Message is what spectators receive. Type is "frame", "clear" or "state".
type Message struct {
	Type   string        `json:"type"`
	Frame  *render.Frame `json:"frame,omitempty"`
	Status *Status       `json:"status,omitempty"`
}

// Status is the playback summary shown to spectators.
type Status struct {
	Mode  string `json:"mode"`
	State string `json:"state"`
	Index int    `json:"index"`
	Total int    `json:"total"`
	Text  string `json:"text"`
}

const (
	writeWait  = 5 * time.Second
	peerBuffer = 32
)

type peer struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans playback out to websocket spectators. It is a render.Surface, so the
// controller draws into it like any other canvas. Peers that cannot keep up are
// dropped rather than slowing playback down.
type Hub struct {
	upgrader websocket.Upgrader

	mu     sync.RWMutex
	peers  map[*peer]bool
	frame  []byte // last frame, replayed to late joiners
	status []byte
	closed bool
}

func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		peers: make(map[*peer]bool),
	}
}

// ServeHTTP upgrades a spectator connection and keeps it until it goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[HOST] Upgrade from %s failed: %v", r.RemoteAddr, err)
		return
	}
	p := &peer{conn: conn, send: make(chan []byte, peerBuffer)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.peers[p] = true
	for _, msg := range [][]byte{h.status, h.frame} {
		if msg != nil {
			p.send <- msg
		}
	}
	h.mu.Unlock()
	log.Printf("[HOST] Spectator connected: %s", conn.RemoteAddr())

	go h.writeLoop(p)

	// Spectators are read-only; reading only detects the close.
	for {
		if _, _, err := conn.NextReader(); err != nil {
			break
		}
	}
	h.remove(p)
	log.Printf("[HOST] Spectator disconnected: %s", conn.RemoteAddr())
}

func (h *Hub) writeLoop(p *peer) {
	defer p.conn.Close()
	for msg := range p.send {
		_ = p.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := p.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			log.Printf("[HOST] Error sending to %s: %v", p.conn.RemoteAddr(), err)
			h.remove(p)
			return
		}
	}
	_ = p.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
}

func (h *Hub) remove(p *peer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.peers[p] {
		delete(h.peers, p)
		close(p.send)
	}
}

func (h *Hub) Draw(f render.Frame) {
	data, err := json.Marshal(Message{Type: "frame", Frame: &f})
	if err != nil {
		log.Printf("[HOST] Encoding frame %d: %v", f.Index, err)
		return
	}
	h.mu.Lock()
	h.frame = data
	h.mu.Unlock()
	h.broadcast(data)
}

func (h *Hub) Clear() {
	data, _ := json.Marshal(Message{Type: "clear"})
	h.mu.Lock()
	h.frame = nil
	h.mu.Unlock()
	h.broadcast(data)
}

// Publish sends a status update and remembers it for late joiners.
func (h *Hub) Publish(s Status) {
	data, err := json.Marshal(Message{Type: "state", Status: &s})
	if err != nil {
		return
	}
	h.mu.Lock()
	h.status = data
	h.mu.Unlock()
	h.broadcast(data)
}

func (h *Hub) broadcast(data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for p := range h.peers {
		select {
		case p.send <- data:
		default:
			log.Printf("[HOST] Dropping slow spectator %s", p.conn.RemoteAddr())
			delete(h.peers, p)
			close(p.send)
		}
	}
}

// Len is the number of connected spectators.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.peers)
}

// Close disconnects every spectator and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for p := range h.peers {
		delete(h.peers, p)
		close(p.send)
	}
}

// Watch connects to a hub at url (ws://host:port/watch) and hands every message
// to handle until ctx is cancelled or the connection drops.
func Watch(ctx context.Context, url string, handle func(Message)) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", url, err)
	}
	defer conn.Close()
	log.Printf("[WATCH] Connected to %s", url)

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read from %s: %w", url, err)
		}
		handle(msg)
	}
}
