// Package ws implements the live WebSocket hub for the tapline daemon.
//
// The hub manages a set of connected clients and pushes every session update
// (taps, target changes, preference changes, resets) to all of them the
// moment it happens. On connect a client immediately receives the current
// session snapshot so the dashboard has data right away.
//
// Message format sent to clients:
//
//	{ "event": "snapshot" | "update", "data": { ... } }
//
// The upgrader accepts all origins; apply CORS restrictions at the reverse
// proxy level. The endpoint is mounted at /live by the daemon.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tapline/tapline/internal/domain/model"
	"github.com/tapline/tapline/pkg/metrics"
)

const (
	// writeTimeout is the deadline for a single write to a client.
	writeTimeout = 10 * time.Second

	// pongWait is how long to wait for a pong response before treating the
	// connection as dead.
	pongWait = 60 * time.Second

	// pingPeriod controls how often the server sends WebSocket ping frames.
	// Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// sendBufSize is the per-client outgoing message buffer depth.
	sendBufSize = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Allow all origins — callers should apply CORS at the reverse-proxy level.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// SnapshotFunc supplies the current session snapshot for newly connected
// clients.
type SnapshotFunc func(ctx context.Context) model.Snapshot

// Message is the JSON envelope sent to clients.
type Message struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Hub manages WebSocket client connections and pushes session updates to all
// of them.
type Hub struct {
	mu       sync.RWMutex
	snapshot SnapshotFunc
	clients  map[*client]struct{}
}

// client represents one connected WebSocket client.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

// New creates a Hub that serves snapshots from snapshot on connect. A nil
// snapshot may be supplied now and set later with SetSnapshot, for wiring
// orders where the hub must exist before the session service.
func New(snapshot SnapshotFunc) *Hub {
	return &Hub{
		snapshot: snapshot,
		clients:  make(map[*client]struct{}),
	}
}

// SetSnapshot replaces the snapshot supplier used for newly connected clients.
func (h *Hub) SetSnapshot(snapshot SnapshotFunc) {
	h.mu.Lock()
	h.snapshot = snapshot
	h.mu.Unlock()
}

func (h *Hub) snapshotFunc() SnapshotFunc {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.snapshot
}

// Run blocks until ctx is cancelled, then closes all active connections.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.closeAll()
}

// Publish pushes an update to every connected client. It implements the
// service's sink interface.
func (h *Hub) Publish(_ context.Context, update model.Update) {
	data, err := json.Marshal(Message{Event: "update", Data: update})
	if err != nil {
		return
	}
	h.broadcast(data)
}

// ServeHTTP upgrades the HTTP connection to WebSocket and serves the client.
// It sends the current snapshot immediately on connect, then streams pushed
// updates. Blocks until the connection closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// upgrader has already written the error response.
		return
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, sendBufSize),
	}
	h.register(c)
	defer h.unregister(c)

	// Send the current snapshot immediately so the UI has data right away.
	if snapshot := h.snapshotFunc(); snapshot != nil {
		if data, err := json.Marshal(Message{Event: "snapshot", Data: snapshot(r.Context())}); err == nil {
			h.send(c, data)
		}
	}

	go c.writePump()
	c.readPump() // blocks until connection closes
}

// Count returns the number of currently connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// --- internal ---------------------------------------------------------------

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	metrics.UpdateLiveClients(len(h.clients))
	h.mu.Unlock()
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	metrics.UpdateLiveClients(len(h.clients))
	h.mu.Unlock()
}

// send delivers data to a single client without blocking. The read lock is
// held across the channel send: c.send is only ever closed under the write
// lock (unregister, closeAll), so a send here cannot race a close. Returns
// false when the client is gone or its buffer is full.
func (h *Hub) send(c *client, data []byte) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[c]; !ok {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (h *Hub) broadcast(data []byte) {
	h.mu.RLock()
	targets := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	var stale []*client
	for _, c := range targets {
		if !h.send(c, data) {
			// Client's outgoing buffer is full or it already left —
			// disconnect it.
			stale = append(stale, c)
		}
	}
	for _, c := range stale {
		h.unregister(c)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
	metrics.UpdateLiveClients(0)
}

// writePump drains the client's send channel and forwards messages to the
// WebSocket connection. It also sends periodic ping frames. Runs in its own
// goroutine per client.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				// Channel was closed (hub is shutting down or client removed).
				c.conn.WriteMessage(websocket.CloseMessage, []byte{}) //nolint:errcheck
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump reads frames from the connection to process control messages (pong,
// close) and detect disconnects. Blocks until the connection closes.
func (c *client) readPump() {
	defer c.conn.Close()
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}
