// Package xrpl is the consensus-ledger client: one connection, at most one
// wallet, and the RLUSD operations built on them.
package xrpl

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/LeJamon/goRLUSD/internal/book"
	"github.com/LeJamon/goRLUSD/internal/core/amount"
	"github.com/LeJamon/goRLUSD/internal/ledgererr"
	"github.com/LeJamon/goRLUSD/internal/metrics"
	"github.com/LeJamon/goRLUSD/internal/registry"
	"github.com/LeJamon/goRLUSD/internal/rpc"
	"github.com/LeJamon/goRLUSD/internal/submit"
	"github.com/LeJamon/goRLUSD/internal/subscription"
)

const defaultCacheSize = 512

// Conn is a live node connection. *rpc.Conn satisfies it.
type Conn interface {
	subscription.StreamConn
	Done() <-chan struct{}
}

// Dialer opens a connection to url.
type Dialer func(ctx context.Context, url string) (Conn, error)

// Config selects the node and the asset. Issuer defaults to the registry
// entry of Network.
type Config struct {
	Network      string
	Endpoint     string
	Issuer       string
	MaxFee       amount.XRPAmount
	LedgerOffset uint32
	PollInterval time.Duration
	CacheSize    int
}

// Client is safe for concurrent use. Submissions from the same wallet are
// not serialized; callers that need ordering must wait for each outcome.
type Client struct {
	cfg     Config
	asset   rpc.Issue
	logger  *zap.Logger
	metrics *metrics.Metrics
	dial    Dialer

	subs  *subscription.Group
	cache *lru.Cache[string, *rpc.TxResult]

	mu     sync.Mutex
	conn   Conn
	rpc    *rpc.Client
	wallet *Wallet
}

type Option func(*Client)

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithDialer replaces the websocket dialer.
func WithDialer(d Dialer) Option {
	return func(c *Client) { c.dial = d }
}

// New fills Endpoint and Issuer from the registry when they are empty. It
// does not connect.
func New(cfg Config, opts ...Option) (*Client, error) {
	if cfg.Endpoint == "" || cfg.Issuer == "" {
		entry, err := registry.Lookup(cfg.Network)
		if err != nil {
			return nil, err
		}
		if entry.Family != registry.FamilyXRPL {
			return nil, ledgererr.New(ledgererr.KindNetworkUnavailable, "%s is not a consensus-ledger network", cfg.Network)
		}
		if cfg.Endpoint == "" {
			cfg.Endpoint = entry.Endpoint
		}
		if cfg.Issuer == "" {
			cfg.Issuer = entry.Issuer
		}
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = defaultCacheSize
	}
	cache, err := lru.New[string, *rpc.TxResult](cfg.CacheSize)
	if err != nil {
		return nil, err
	}

	c := &Client{
		cfg:    cfg,
		asset:  rpc.Issue{Currency: registry.Currency, Issuer: cfg.Issuer},
		logger: zap.NewNop(),
		subs:   subscription.NewGroup(),
		cache:  cache,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.dial == nil {
		c.dial = c.dialWebsocket
	}
	c.logger = c.logger.With(zap.String("network", cfg.Network))
	return c, nil
}

func (c *Client) dialWebsocket(ctx context.Context, url string) (Conn, error) {
	return rpc.Dial(ctx, url, rpc.WithLogger(c.logger), rpc.WithMetrics(c.metrics))
}

// Issuer is the RLUSD issuer this client trades against.
func (c *Client) Issuer() string { return c.cfg.Issuer }

// Asset is the RLUSD issue on this network.
func (c *Client) Asset() rpc.Issue { return c.asset }

// Connect opens the connection if there is no live one.
func (c *Client) Connect(ctx context.Context) error {
	_, err := c.ensure(ctx)
	return err
}

func (c *Client) ensure(ctx context.Context) (*rpc.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		select {
		case <-c.conn.Done():
			c.logger.Info("connection lost, redialing")
			c.conn, c.rpc = nil, nil
		default:
			return c.rpc, nil
		}
	}

	conn, err := c.dial(ctx, c.cfg.Endpoint)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	c.rpc = rpc.NewClient(conn)
	c.logger.Info("connected", zap.String("endpoint", c.cfg.Endpoint))
	return c.rpc, nil
}

// Connected reports whether a live connection is held.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return false
	}
	select {
	case <-c.conn.Done():
		return false
	default:
		return true
	}
}

// Disconnect stops every subscription and then closes the connection. It
// is a no-op without a connection.
func (c *Client) Disconnect(ctx context.Context) error {
	stopErr := c.subs.StopAll(ctx)

	c.mu.Lock()
	conn := c.conn
	c.conn, c.rpc = nil, nil
	c.mu.Unlock()

	if conn == nil {
		return stopErr
	}
	if err := conn.Close(); err != nil {
		return err
	}
	c.logger.Info("disconnected")
	return stopErr
}

// LoadWallet replaces the signing wallet.
func (c *Client) LoadWallet(seed string) error {
	w, err := WalletFromSeed(seed)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.wallet = w
	c.mu.Unlock()
	c.logger.Info("wallet loaded", zap.String("address", w.Address()))
	return nil
}

// Address is the loaded wallet's address, or "" without a wallet.
func (c *Client) Address() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.wallet == nil {
		return ""
	}
	return c.wallet.Address()
}

func (c *Client) signer() (*Wallet, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.wallet == nil {
		return nil, ledgererr.New(ledgererr.KindNoCredential, "no consensus-ledger wallet loaded")
	}
	return c.wallet, nil
}

func (c *Client) submitter(r *rpc.Client) *submit.XRPL {
	return submit.NewXRPL(r, submit.XRPLOptions{
		MaxFee:       c.cfg.MaxFee,
		LedgerOffset: c.cfg.LedgerOffset,
		PollInterval: c.cfg.PollInterval,
	}, c.logger, c.metrics)
}

// Book returns the RLUSD/XRP order book engine on the current connection.
func (c *Client) Book(ctx context.Context) (*book.Engine, error) {
	r, err := c.ensure(ctx)
	if err != nil {
		return nil, err
	}
	return book.NewEngine(r, c.asset,
		book.WithLogger(c.logger),
		book.WithMetrics(c.metrics, c.cfg.Network)), nil
}

// Subscribe starts a subscription on the shared connection. It is stopped
// by Unsubscribe or Disconnect.
func (c *Client) Subscribe(ctx context.Context, f subscription.Filter, sink subscription.Sink) (*subscription.Subscription, error) {
	if _, err := c.ensure(ctx); err != nil {
		return nil, err
	}
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	src := subscription.NewXRPLSource(conn, c.asset, subscription.WithSourceLogger(c.logger))
	sub, err := subscription.New(src, f, sink,
		subscription.WithLogger(c.logger),
		subscription.WithMetrics(c.metrics))
	if err != nil {
		return nil, err
	}
	if err := sub.Start(ctx); err != nil {
		return nil, err
	}
	c.subs.Add(sub)
	return sub, nil
}

// Unsubscribe stops the subscription with id. Unknown ids are ignored.
func (c *Client) Unsubscribe(ctx context.Context, id string) error {
	sub, ok := c.subs.Get(id)
	if !ok {
		return nil
	}
	return sub.Stop(ctx)
}

func (c *Client) Subscriptions() []subscription.Info {
	return c.subs.List()
}
