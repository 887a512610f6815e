// Package ws serves a read-only live view of the lights: frames and
// diagnostics over websockets, and a JSON health summary. Nothing received
// from a client changes what the lights do.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	diag "github.com/coreman2200/fairylights/internal/diagnostics"
	"github.com/coreman2200/fairylights/internal/engine"
)

const (
	writeWait   = 200 * time.Millisecond
	recentDiags = 32
)

type Hub struct {
	mu          sync.RWMutex
	driver      string
	channels    int
	maxHz       int
	clients     map[*websocket.Conn]bool
	diagClients map[*websocket.Conn]bool
	recent      []diag.Diagnostic
	last        engine.Frame
	frames      uint64
	startTime   time.Time
	status      func() any

	// wmu serialises writes; a websocket.Conn allows one writer at a time.
	wmu     sync.Mutex
	pending chan engine.Frame
}

// NewHub describes a bank of n channels behind driver. Frames go out to
// preview clients at most maxHz times a second.
func NewHub(driver string, n, maxHz int) *Hub {
	if maxHz <= 0 {
		maxHz = 30
	}
	return &Hub{
		driver:      driver,
		channels:    n,
		maxHz:       maxHz,
		clients:     map[*websocket.Conn]bool{},
		diagClients: map[*websocket.Conn]bool{},
		startTime:   time.Now(),
		pending:     make(chan engine.Frame, 1),
	}
}

// SetDriver renames the driver reported to clients.
func (h *Hub) SetDriver(name string) {
	h.mu.Lock()
	h.driver = name
	h.mu.Unlock()
}

// SetStatus adds the result of fn under "status" in health responses.
func (h *Hub) SetStatus(fn func() any) {
	h.mu.Lock()
	h.status = fn
	h.mu.Unlock()
}

// Publish records f and queues it for preview clients without blocking;
// a frame not yet sent is replaced by the newer one.
func (h *Hub) Publish(f engine.Frame) {
	h.mu.Lock()
	h.last = f
	h.frames++
	h.mu.Unlock()
	select {
	case h.pending <- f:
	default:
		select {
		case <-h.pending:
		default:
		}
		select {
		case h.pending <- f:
		default:
		}
	}
}

// Run broadcasts queued frames until ctx is done.
func (h *Hub) Run(ctx context.Context) error {
	minGap := time.Second / time.Duration(h.maxHz)
	var lastSent time.Time
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return nil
		case f := <-h.pending:
			if since := time.Since(lastSent); since < minGap {
				select {
				case <-ctx.Done():
					h.closeAll()
					return nil
				case <-time.After(minGap - since):
				}
			}
			h.broadcast(h.clients, frameMessage(f))
			lastSent = time.Now()
		}
	}
}

// PushDiag sends d to diagnostic clients and keeps it for late joiners.
func (h *Hub) PushDiag(d diag.Diagnostic) {
	if d.Time.IsZero() {
		d.Time = time.Now()
	}
	h.mu.Lock()
	h.recent = append(h.recent, d)
	if len(h.recent) > recentDiags {
		h.recent = h.recent[len(h.recent)-recentDiags:]
	}
	h.mu.Unlock()
	b, _ := json.Marshal(d)
	h.broadcast(h.diagClients, b)
}

type outputs struct {
	White  uint8 `json:"w"`
	Colour uint8 `json:"c"`
}

type frameMsg struct {
	Type    string       `json:"type"`
	Frame   engine.Frame `json:"frame"`
	Outputs []outputs    `json:"outputs"`
}

func frameMessage(f engine.Frame) []byte {
	m := frameMsg{Type: "frame", Frame: f, Outputs: make([]outputs, len(f.States))}
	for i, s := range f.States {
		w, c := s.Outputs()
		m.Outputs[i] = outputs{White: uint8(w), Colour: uint8(c)}
	}
	b, _ := json.Marshal(m)
	return b
}

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

func (h *Hub) HandleFramesWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	h.sendTopology(conn)
	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()
	go h.drain(conn, h.clients)
}

func (h *Hub) HandleDiagWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	h.mu.Lock()
	backlog := append([]diag.Diagnostic{}, h.recent...)
	h.diagClients[conn] = true
	h.mu.Unlock()
	h.wmu.Lock()
	for _, d := range backlog {
		b, _ := json.Marshal(d)
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
			break
		}
	}
	h.wmu.Unlock()
	go h.drain(conn, h.diagClients)
}

// drain discards client messages until the connection closes.
func (h *Hub) drain(conn *websocket.Conn, set map[*websocket.Conn]bool) {
	defer func() {
		h.mu.Lock()
		delete(set, conn)
		h.mu.Unlock()
		conn.Close()
	}()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) HandleHealth(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	resp := map[string]any{
		"frame_id": h.last.ID,
		"frames":   h.frames,
		"pattern":  h.last.Pattern,
		"uptime_s": time.Since(h.startTime).Seconds(),
		"channels": h.channels,
		"driver":   h.driver,
		"clients":  len(h.clients),
	}
	status := h.status
	h.mu.RUnlock()
	if status != nil {
		resp["status"] = status()
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (h *Hub) sendTopology(conn *websocket.Conn) {
	h.mu.RLock()
	top := map[string]any{
		"type":     "topology",
		"channels": h.channels,
		"driver":   h.driver,
		"max_hz":   h.maxHz,
	}
	h.mu.RUnlock()
	b, _ := json.Marshal(top)
	h.wmu.Lock()
	defer h.wmu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = conn.WriteMessage(websocket.TextMessage, b)
}

func (h *Hub) broadcast(set map[*websocket.Conn]bool, b []byte) {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(set))
	for c := range set {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	h.wmu.Lock()
	defer h.wmu.Unlock()
	for _, c := range conns {
		c.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.WriteMessage(websocket.TextMessage, b); err != nil {
			log.Debug().Err(err).Msg("ws write")
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		c.Close()
	}
	for c := range h.diagClients {
		c.Close()
	}
}
