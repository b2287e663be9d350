// Package ws pushes inquiry change events to connected admin WebSocket clients.
package ws

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/corpsite-backoffice/internal/domain"
	"github.com/corpsite-backoffice/internal/metrics"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 512
)

// Client is one WebSocket connection. Outbound messages are queued on send and
// written by a dedicated goroutine.
type Client struct {
	conn       *websocket.Conn
	send       chan []byte
	userID     string
	authorized func() bool
}

// Hub tracks connected clients and fans change events out to them. A client whose
// send buffer is full is dropped rather than slowing everyone else down.
type Hub struct {
	mu           sync.RWMutex
	clients      map[*Client]struct{}
	sendBuffer   int
	pingInterval time.Duration
	log          *slog.Logger
}

func NewHub(sendBuffer int, pingInterval time.Duration, log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		clients:      make(map[*Client]struct{}),
		sendBuffer:   sendBuffer,
		pingInterval: pingInterval,
		log:          log.With("component", "ws_hub"),
	}
}

// Serve registers conn and blocks until the peer goes away. authorized, when not
// nil, is checked on every ping tick and the connection is closed once it reports false.
func (h *Hub) Serve(conn *websocket.Conn, userID string, authorized func() bool) {
	c := &Client{conn: conn, send: make(chan []byte, h.sendBuffer), userID: userID, authorized: authorized}
	h.register(c)
	go h.writePump(c)
	h.readPump(c)
}

// Broadcast implements realtime.Broadcaster.
func (h *Hub) Broadcast(ev domain.ChangeEvent) {
	msg, err := json.Marshal(ev)
	if err != nil {
		h.log.Error("marshal change event", "err", err)
		return
	}
	var slow []*Client
	h.mu.RLock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.log.Warn("dropping slow client", "user_id", c.userID)
		metrics.RealtimeClientsDropped.Inc()
		h.unregister(c)
	}
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()
	for _, c := range clients {
		h.unregister(c)
	}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	metrics.RealtimeClients.Inc()
	h.log.Info("client connected", "user_id", c.userID, "total", n)
}

// unregister removes c and closes its send queue, which stops the write pump.
func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
	if ok {
		metrics.RealtimeClients.Dec()
		h.log.Info("client disconnected", "user_id", c.userID)
	}
}

// readPump discards client messages and keeps the read deadline fresh on pongs.
func (h *Hub) readPump(c *Client) {
	defer func() {
		h.unregister(c)
		_ = c.conn.Close()
	}()
	deadline := 2 * h.pingInterval
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(deadline))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(deadline))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *Client) {
	ticker := time.NewTicker(h.pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			if c.authorized != nil && !c.authorized() {
				h.log.Info("closing client without access", "user_id", c.userID)
				msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "access revoked")
				_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
				h.unregister(c)
				return
			}
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
