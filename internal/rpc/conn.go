// Package rpc is the websocket client for consensus-ledger nodes. A Conn
// multiplexes request/response commands and stream messages over one
// persistent connection.
package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/LeJamon/goRLUSD/internal/ledgererr"
	"github.com/LeJamon/goRLUSD/internal/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 4 << 20
	streamBuffer   = 256
)

// StreamHandler receives stream messages (ledgerClosed, transaction...).
// Handlers run on the connection's dispatch goroutine, never on the read
// loop, and must return promptly.
type StreamHandler func(msg json.RawMessage)

type response struct {
	result json.RawMessage
	err    error
}

// envelope is the union of a command response and a stream message.
type envelope struct {
	ID           *uint64         `json:"id,omitempty"`
	Type         string          `json:"type"`
	Status       string          `json:"status,omitempty"`
	Result       json.RawMessage `json:"result,omitempty"`
	Error        string          `json:"error,omitempty"`
	ErrorCode    int             `json:"error_code,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
}

// Conn is a single websocket connection to a ledger node.
type Conn struct {
	url     string
	conn    *websocket.Conn
	logger  *zap.Logger
	metrics *metrics.Metrics

	writeMu sync.Mutex

	mu          sync.Mutex
	nextID      uint64
	pending     map[uint64]chan response
	handlers    map[uint64]StreamHandler
	nextHandler uint64
	err         error

	streams   chan json.RawMessage
	done      chan struct{}
	closeOnce sync.Once
}

// Option configures a Conn.
type Option func(*Conn)

func WithLogger(l *zap.Logger) Option {
	return func(c *Conn) { c.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Conn) { c.metrics = m }
}

// Dial opens a connection to url and starts its read, dispatch and ping
// loops.
func Dial(ctx context.Context, url string, opts ...Option) (*Conn, error) {
	c := &Conn{
		url:      url,
		logger:   zap.NewNop(),
		pending:  make(map[uint64]chan response),
		handlers: make(map[uint64]StreamHandler),
		streams:  make(chan json.RawMessage, streamBuffer),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, ledgererr.Wrap(ledgererr.KindNetworkUnavailable, err, "dial %s", url)
	}
	c.conn = ws
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go c.readLoop()
	go c.dispatchLoop()
	go c.pingLoop()

	c.logger.Debug("connected", zap.String("url", url))
	return c, nil
}

// URL returns the endpoint the connection was dialed to.
func (c *Conn) URL() string {
	return c.url
}

// Done is closed once the connection has shut down.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// Err returns the reason the connection shut down, or nil while open.
func (c *Conn) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Request sends command with params and waits for its response. Cancelling
// ctx abandons the wait; it cannot retract a command the node already
// received.
func (c *Conn) Request(ctx context.Context, command string, params map[string]any) (json.RawMessage, error) {
	ch := make(chan response, 1)

	c.mu.Lock()
	if c.err != nil {
		err := c.err
		c.mu.Unlock()
		return nil, ledgererr.Wrap(ledgererr.KindNetworkUnavailable, err, "%s", command)
	}
	c.nextID++
	id := c.nextID
	c.pending[id] = ch
	c.mu.Unlock()

	msg := make(map[string]any, len(params)+2)
	for k, v := range params {
		msg[k] = v
	}
	msg["id"] = id
	msg["command"] = command

	if err := c.writeJSON(msg); err != nil {
		c.forget(id)
		c.metrics.ObserveRequest(command, err)
		return nil, ledgererr.Wrap(ledgererr.KindNetworkUnavailable, err, "%s", command)
	}

	select {
	case resp := <-ch:
		c.metrics.ObserveRequest(command, resp.err)
		return resp.result, resp.err
	case <-ctx.Done():
		c.forget(id)
		c.metrics.ObserveRequest(command, ctx.Err())
		return nil, ctx.Err()
	}
}

// AddStreamHandler registers h for stream messages and returns a function
// that removes it.
func (c *Conn) AddStreamHandler(h StreamHandler) (remove func()) {
	c.mu.Lock()
	c.nextHandler++
	key := c.nextHandler
	c.handlers[key] = h
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.handlers, key)
		c.mu.Unlock()
	}
}

// Close shuts the connection down. It is safe to call more than once.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		c.writeMu.Unlock()
		err = c.conn.Close()
		c.shutdown(errors.New("connection closed"))
	})
	return err
}

func (c *Conn) writeJSON(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(v)
}

func (c *Conn) forget(id uint64) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

// shutdown records the terminal error and fails all waiting requests.
func (c *Conn) shutdown(cause error) {
	c.mu.Lock()
	if c.err != nil {
		c.mu.Unlock()
		return
	}
	c.err = cause
	pending := c.pending
	c.pending = make(map[uint64]chan response)
	c.mu.Unlock()

	for _, ch := range pending {
		ch <- response{err: ledgererr.Wrap(ledgererr.KindNetworkUnavailable, cause, "connection lost")}
	}
	close(c.done)
}

func (c *Conn) readLoop() {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket read failed", zap.String("url", c.url), zap.Error(err))
			}
			c.shutdown(err)
			c.conn.Close()
			return
		}
		c.handleMessage(data)
	}
}

func (c *Conn) handleMessage(data []byte) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		c.logger.Warn("undecodable message", zap.Error(err))
		return
	}

	if env.Type == "response" && env.ID != nil {
		c.mu.Lock()
		ch, ok := c.pending[*env.ID]
		delete(c.pending, *env.ID)
		c.mu.Unlock()
		if !ok {
			return
		}
		if env.Status == "error" || env.Error != "" {
			ch <- response{err: &RpcError{
				Code:        env.ErrorCode,
				ErrorString: env.Error,
				Type:        env.Error,
				Message:     env.ErrorMessage,
			}}
			return
		}
		ch <- response{result: env.Result}
		return
	}

	select {
	case c.streams <- json.RawMessage(data):
	default:
		c.metrics.EventDropped("stream_backlog")
		c.logger.Warn("stream backlog full, dropping message", zap.String("type", env.Type))
	}
}

func (c *Conn) dispatchLoop() {
	for {
		select {
		case <-c.done:
			return
		case msg := <-c.streams:
			c.mu.Lock()
			handlers := make([]StreamHandler, 0, len(c.handlers))
			for _, h := range c.handlers {
				handlers = append(handlers, h)
			}
			c.mu.Unlock()
			for _, h := range handlers {
				h(msg)
			}
		}
	}
}

func (c *Conn) pingLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.writeMu.Lock()
			err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			c.writeMu.Unlock()
			if err != nil {
				c.logger.Warn("websocket ping failed", zap.Error(err))
				c.shutdown(fmt.Errorf("ping: %w", err))
				c.conn.Close()
				return
			}
		}
	}
}
