package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/trainingpulse/trainingpulse/server/internal/api"
	"github.com/trainingpulse/trainingpulse/server/internal/store"
)

const (
	// writeTimeout is the deadline for a single write to a client.
	writeTimeout = 10 * time.Second

	// pongWait is how long to wait for a pong response before treating the
	// connection as dead.
	pongWait = 60 * time.Second

	// pingPeriod must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// sendBufSize is the per-client outgoing message buffer depth.
	sendBufSize = 16
)

// Event names carried in Message.Event.
const (
	EventSnapshot = "snapshot"
	EventReport   = "report"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// CORS is applied at the reverse proxy.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Message is the JSON envelope sent to clients. Data is an
// api.SnapshotResponse for snapshot events and an api.WorkspaceResponse for
// report events.
type Message struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Hub manages WebSocket client connections. Every interval it broadcasts the
// live snapshot; in between, Publish pushes single workspace updates as soon
// as a report is received.
type Hub struct {
	store    *store.Store
	interval time.Duration

	mu      sync.RWMutex
	clients map[*client]struct{}
}

// client is one connected WebSocket client. A non-empty workspace restricts
// it to that workspace's updates.
type client struct {
	conn      *websocket.Conn
	send      chan []byte
	workspace string
}

func (c *client) wants(workspace string) bool {
	return c.workspace == "" || c.workspace == workspace
}

// New creates a Hub that reads from st and broadcasts every interval.
func New(st *store.Store, interval time.Duration) *Hub {
	return &Hub{
		store:    st,
		interval: interval,
		clients:  make(map[*client]struct{}),
	}
}

// Run starts the broadcast ticker loop. It blocks until ctx is cancelled,
// then closes all active connections.
func (h *Hub) Run(ctx context.Context) {
	t := time.NewTicker(h.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case <-t.C:
			h.broadcastSnapshots()
		}
	}
}

// Publish sends a report event for e to every client watching its workspace.
func (h *Hub) Publish(e *store.Entry) {
	data, err := json.Marshal(Message{Event: EventReport, Data: api.WorkspaceOf(e)})
	if err != nil {
		slog.Warn("ws: marshal report event", "workspace", e.Report.Workspace, "err", err)
		return
	}
	for _, c := range h.targets() {
		if c.wants(e.Report.Workspace) {
			h.deliver(c, data)
		}
	}
}

// ServeHTTP upgrades the HTTP connection to WebSocket and serves the client.
// ?workspace=<id> limits the stream to one workspace. The current snapshot is
// sent immediately on connect. Blocks until the connection closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// upgrader has already written the error response.
		return
	}

	c := &client{
		conn:      conn,
		send:      make(chan []byte, sendBufSize),
		workspace: r.URL.Query().Get("workspace"),
	}
	h.register(c)
	defer h.unregister(c)

	if data, err := h.snapshotFor(c.workspace); err == nil {
		select {
		case c.send <- data:
		default:
		}
	}

	go c.writePump()
	c.readPump()
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
	h.mu.Unlock()
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

func (h *Hub) targets() []*client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		out = append(out, c)
	}
	return out
}

// deliver queues data for c, dropping a client whose buffer is full.
// The send happens under the read lock so it cannot race unregister's close.
func (h *Hub) deliver(c *client, data []byte) {
	h.mu.RLock()
	_, ok := h.clients[c]
	full := false
	if ok {
		select {
		case c.send <- data:
		default:
			full = true
		}
	}
	h.mu.RUnlock()
	if full {
		slog.Warn("ws: client too slow, disconnecting", "workspace", c.workspace)
		h.unregister(c)
	}
}

// broadcastSnapshots sends each client the snapshot for its filter. The
// snapshot is built once per distinct filter.
func (h *Hub) broadcastSnapshots() {
	cache := map[string][]byte{}
	for _, c := range h.targets() {
		data, ok := cache[c.workspace]
		if !ok {
			var err error
			if data, err = h.snapshotFor(c.workspace); err != nil {
				continue
			}
			cache[c.workspace] = data
		}
		h.deliver(c, data)
	}
}

func (h *Hub) snapshotFor(workspace string) ([]byte, error) {
	snap := api.BuildSnapshot(h.store)
	if workspace != "" {
		filtered := snap.Workspaces[:0]
		for _, w := range snap.Workspaces {
			if w.Workspace == workspace {
				filtered = append(filtered, w)
			}
		}
		snap.Workspaces = filtered
	}
	return json.Marshal(Message{Event: EventSnapshot, Data: snap})
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
}

// writePump drains the client's send channel and forwards messages to the
// connection, sending periodic pings. Runs in its own goroutine per client.
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

// readPump handles control frames and detects disconnects. Clients send
// nothing else. Blocks until the connection closes.
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
