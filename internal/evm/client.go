// Package evm is the contract-ledger client for the RLUSD ERC-20 token.
package evm

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/LeJamon/goRLUSD/internal/core/amount"
	"github.com/LeJamon/goRLUSD/internal/core/tx"
	"github.com/LeJamon/goRLUSD/internal/ledgererr"
	"github.com/LeJamon/goRLUSD/internal/metrics"
	"github.com/LeJamon/goRLUSD/internal/registry"
	"github.com/LeJamon/goRLUSD/internal/submit"
	"github.com/LeJamon/goRLUSD/internal/subscription"
)

const defaultCacheSize = 512

// Backend is everything the client needs from an Ethereum node.
// *ethclient.Client satisfies it; push subscriptions need a websocket
// endpoint.
type Backend interface {
	submit.EVMBackend
	subscription.LogSubscriber
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	Close()
}

// Dialer opens a backend for url.
type Dialer func(ctx context.Context, url string) (Backend, error)

// Config selects the node and the token contract. Empty fields come from
// the registry entry of Network.
type Config struct {
	Network      string
	Endpoint     string
	Contract     string
	Decimals     int32
	PollInterval time.Duration
	CacheSize    int
}

// Client holds at most one backend and one private key.
type Client struct {
	cfg      Config
	contract common.Address
	logger   *zap.Logger
	metrics  *metrics.Metrics
	dial     Dialer

	subs     *subscription.Group
	receipts *lru.Cache[common.Hash, *Receipt]

	mu      sync.Mutex
	backend Backend
	key     *ecdsa.PrivateKey
}

type Option func(*Client)

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

func WithDialer(d Dialer) Option {
	return func(c *Client) { c.dial = d }
}

func New(cfg Config, opts ...Option) (*Client, error) {
	if cfg.Endpoint == "" || cfg.Contract == "" || cfg.Decimals == 0 {
		entry, err := registry.Lookup(cfg.Network)
		if err != nil {
			return nil, err
		}
		if entry.Family != registry.FamilyEVM {
			return nil, ledgererr.New(ledgererr.KindNetworkUnavailable, "%s is not a contract-ledger network", cfg.Network)
		}
		if cfg.Endpoint == "" {
			cfg.Endpoint = entry.Endpoint
		}
		if cfg.Contract == "" {
			cfg.Contract = entry.Contract
		}
		if cfg.Decimals == 0 {
			cfg.Decimals = entry.Decimals
		}
	}
	if err := tx.ValidateEVMAddress("contract", cfg.Contract); err != nil {
		return nil, err
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = defaultCacheSize
	}
	receipts, err := lru.New[common.Hash, *Receipt](cfg.CacheSize)
	if err != nil {
		return nil, err
	}

	c := &Client{
		cfg:      cfg,
		contract: common.HexToAddress(cfg.Contract),
		logger:   zap.NewNop(),
		subs:     subscription.NewGroup(),
		receipts: receipts,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.dial == nil {
		c.dial = dialEthclient
	}
	c.logger = c.logger.With(zap.String("network", cfg.Network))
	return c, nil
}

func dialEthclient(ctx context.Context, url string) (Backend, error) {
	return ethclient.DialContext(ctx, url)
}

// Contract is the token contract address.
func (c *Client) Contract() common.Address { return c.contract }

func (c *Client) Connect(ctx context.Context) error {
	_, err := c.ensure(ctx)
	return err
}

func (c *Client) ensure(ctx context.Context) (Backend, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.backend != nil {
		return c.backend, nil
	}
	b, err := c.dial(ctx, c.cfg.Endpoint)
	if err != nil {
		return nil, ledgererr.Wrap(ledgererr.KindNetworkUnavailable, err, "dial %s", c.cfg.Endpoint)
	}
	c.backend = b
	c.logger.Info("connected", zap.String("endpoint", c.cfg.Endpoint))
	return b, nil
}

// Disconnect stops every subscription and then closes the backend.
func (c *Client) Disconnect(ctx context.Context) error {
	err := c.subs.StopAll(ctx)

	c.mu.Lock()
	b := c.backend
	c.backend = nil
	c.mu.Unlock()

	if b != nil {
		b.Close()
		c.logger.Info("disconnected")
	}
	return err
}

// LoadKey replaces the signing key. A 0x prefix is accepted.
func (c *Client) LoadKey(hexKey string) error {
	hexKey = strings.TrimPrefix(strings.TrimSpace(hexKey), "0x")
	if hexKey == "" {
		return ledgererr.New(ledgererr.KindNoCredential, "empty private key")
	}
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return ledgererr.New(ledgererr.KindNoCredential, "private key could not be decoded")
	}
	c.mu.Lock()
	c.key = key
	c.mu.Unlock()
	c.logger.Info("key loaded", zap.String("address", crypto.PubkeyToAddress(key.PublicKey).Hex()))
	return nil
}

// Address is the loaded key's address, or "" without a key.
func (c *Client) Address() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.key == nil {
		return ""
	}
	return crypto.PubkeyToAddress(c.key.PublicKey).Hex()
}

func (c *Client) signingKey() (*ecdsa.PrivateKey, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.key == nil {
		return nil, ledgererr.New(ledgererr.KindNoCredential, "no contract-ledger key loaded")
	}
	return c.key, nil
}

// call runs a read-only contract method and returns its single output.
func (c *Client) call(ctx context.Context, method string, args ...any) (any, error) {
	data, err := erc20.Pack(method, args...)
	if err != nil {
		return nil, err
	}
	b, err := c.ensure(ctx)
	if err != nil {
		return nil, err
	}
	raw, err := b.CallContract(ctx, ethereum.CallMsg{To: &c.contract, Data: data}, nil)
	c.metrics.ObserveRequest("eth_call."+method, err)
	if err != nil {
		return nil, network(err, method)
	}
	out, err := erc20.Unpack(method, raw)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", method, err)
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("decode %s: %d outputs", method, len(out))
	}
	return out[0], nil
}

func (c *Client) callBig(ctx context.Context, method string, args ...any) (*big.Int, error) {
	v, err := c.call(ctx, method, args...)
	if err != nil {
		return nil, err
	}
	n, ok := v.(*big.Int)
	if !ok {
		return nil, fmt.Errorf("decode %s: unexpected %T", method, v)
	}
	return n, nil
}

func parseAddress(field, addr string) (common.Address, error) {
	if err := tx.ValidateEVMAddress(field, addr); err != nil {
		return common.Address{}, err
	}
	return common.HexToAddress(addr), nil
}

func network(err error, what string) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return ledgererr.Wrap(ledgererr.KindNetworkUnavailable, err, "%s", what)
}

// Subscribe starts a block or transfer subscription. It needs a websocket
// endpoint.
func (c *Client) Subscribe(ctx context.Context, f subscription.Filter, sink subscription.Sink) (*subscription.Subscription, error) {
	b, err := c.ensure(ctx)
	if err != nil {
		return nil, err
	}
	src := subscription.NewEVMSource(b, c.contract, registry.Currency, c.cfg.Decimals, c.logger)
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

// Receipt summarizes a mined transaction. Fee is in ETH.
type Receipt struct {
	Hash              string               `json:"hash"`
	Success           bool                 `json:"success"`
	BlockNumber       uint64               `json:"blockNumber"`
	GasUsed           uint64               `json:"gasUsed"`
	EffectiveGasPrice string               `json:"effectiveGasPrice,omitempty"`
	Fee               string               `json:"fee,omitempty"`
	Transfers         []subscription.Event `json:"transfers,omitempty"`
}

// GetReceipt fetches and caches the receipt of hash.
func (c *Client) GetReceipt(ctx context.Context, hash string) (*Receipt, error) {
	h := common.HexToHash(hash)
	if r, ok := c.receipts.Get(h); ok {
		return r, nil
	}
	b, err := c.ensure(ctx)
	if err != nil {
		return nil, err
	}
	raw, err := b.TransactionReceipt(ctx, h)
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return nil, fmt.Errorf("receipt %s: %w", h.Hex(), err)
		}
		return nil, network(err, "receipt")
	}

	r := &Receipt{
		Hash:    h.Hex(),
		Success: raw.Status == types.ReceiptStatusSuccessful,
		GasUsed: raw.GasUsed,
	}
	if raw.BlockNumber != nil {
		r.BlockNumber = raw.BlockNumber.Uint64()
	}
	if raw.EffectiveGasPrice != nil {
		r.EffectiveGasPrice = raw.EffectiveGasPrice.String()
		fee := new(big.Int).Mul(new(big.Int).SetUint64(raw.GasUsed), raw.EffectiveGasPrice)
		r.Fee = amount.BigToDisplay(fee, amount.TokenScale)
	}
	for _, l := range raw.Logs {
		if l == nil {
			continue
		}
		if ev, ok := subscription.DecodeTransfer(*l, c.contract, registry.Currency, c.cfg.Decimals); ok {
			r.Transfers = append(r.Transfers, ev)
		}
	}
	c.receipts.Add(h, r)
	return r, nil
}
