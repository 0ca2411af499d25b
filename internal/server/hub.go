package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/LeJamon/goRLUSD/internal/metrics"
	"github.com/LeJamon/goRLUSD/internal/subscription"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = 54 * time.Second
	clientBuffer = 256
)

// AllChannels subscribes a websocket client to every event.
const AllChannels = "*"

// Hub fans subscription events out to websocket clients. It is a
// subscription.Sink: every subscription started through the JSON-RPC
// surface delivers here, and each client receives the events of the
// subscription ids it asked for.
type Hub struct {
	mu      sync.RWMutex
	clients map[*wsClient]struct{}
	logger  *zap.Logger
	metrics *metrics.Metrics

	upgrader websocket.Upgrader
	origins  []string
}

func NewHub(logger *zap.Logger, m *metrics.Metrics) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Hub{clients: make(map[*wsClient]struct{}), logger: logger, metrics: m}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// AllowOrigins restricts upgrades to browser origins in the list. CORS
// does not cover websocket handshakes, so the hub checks them itself.
// An empty list or "*" allows any origin. Call before serving.
func (h *Hub) AllowOrigins(origins []string) {
	h.origins = origins
}

// checkOrigin admits requests without an Origin header, which browsers
// always send, and otherwise matches the allowed list.
func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(h.origins) == 0 {
		return true
	}
	for _, o := range h.origins {
		if o == "*" || strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}

// Deliver broadcasts ev to interested clients without blocking. A client
// whose buffer is full misses the event.
func (h *Hub) Deliver(ev subscription.Event) error {
	msg, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if !c.wants(ev.SubscriptionID) {
			continue
		}
		select {
		case c.send <- msg:
		default:
			h.metrics.EventDropped("ws_slow_client")
		}
	}
	return nil
}

// Len is the number of connected clients.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) register(c *wsClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Info("ws client connected", zap.String("client", c.id), zap.Int("total", n))
}

func (h *Hub) unregister(c *wsClient) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Info("ws client disconnected", zap.String("client", c.id), zap.Int("total", n))
}

// ServeHTTP upgrades the connection and runs the client pumps.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	c := &wsClient{
		hub:      h,
		conn:     conn,
		send:     make(chan []byte, clientBuffer),
		id:       uuid.NewString(),
		channels: make(map[string]struct{}),
	}
	h.register(c)
	go c.writePump()
	go c.readPump()
}

// control is a client message: {"op": "subscribe", "channels": ["<id>"]}.
type control struct {
	Op       string   `json:"op"`
	Channels []string `json:"channels"`
}

type wsClient struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	id   string

	mu       sync.RWMutex
	channels map[string]struct{}
}

func (c *wsClient) wants(subscriptionID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if _, ok := c.channels[AllChannels]; ok {
		return true
	}
	_, ok := c.channels[subscriptionID]
	return ok
}

func (c *wsClient) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Debug("ws read error", zap.String("client", c.id), zap.Error(err))
			}
			return
		}
		var msg control
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.hub.logger.Debug("ws invalid message", zap.String("client", c.id), zap.Error(err))
			continue
		}
		c.mu.Lock()
		switch msg.Op {
		case "subscribe":
			for _, ch := range msg.Channels {
				c.channels[ch] = struct{}{}
			}
		case "unsubscribe":
			for _, ch := range msg.Channels {
				delete(c.channels, ch)
			}
		default:
			c.hub.logger.Debug("ws unknown op", zap.String("client", c.id), zap.String("op", msg.Op))
		}
		c.mu.Unlock()
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
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
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
