package xrpl

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeJamon/goRLUSD/internal/core/tx"
	"github.com/LeJamon/goRLUSD/internal/ledgererr"
	"github.com/LeJamon/goRLUSD/internal/registry"
	"github.com/LeJamon/goRLUSD/internal/rpc"
	"github.com/LeJamon/goRLUSD/internal/subscription"
)

const (
	genesisSeed = "snoPBrXtMeMyMHUVTgbuqAfg1SUTb"
	genesis     = "rHb9CJAWyB4rj91VRWn96DkukG4bwdtyTh"
	bob         = "rPT1Sjq2YGrBMTttX4GZHjKu9dyfzbpAYe"
	testIssuer  = "rQhWct2fv4Vc4KRjRgMrxa8xPN9Zx9iLKV"
)

type fakeConn struct {
	mu       sync.Mutex
	handlers map[string]func(params map[string]any) (string, error)
	log      []string
	streams  map[int]rpc.StreamHandler
	next     int
	done     chan struct{}
	closed   bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		handlers: make(map[string]func(map[string]any) (string, error)),
		streams:  make(map[int]rpc.StreamHandler),
		done:     make(chan struct{}),
	}
}

func (f *fakeConn) on(command, result string) {
	f.handlers[command] = func(map[string]any) (string, error) { return result, nil }
}

func (f *fakeConn) Request(_ context.Context, command string, params map[string]any) (json.RawMessage, error) {
	f.mu.Lock()
	f.log = append(f.log, command)
	h, ok := f.handlers[command]
	f.mu.Unlock()
	if !ok {
		return json.RawMessage(`{}`), nil
	}
	res, err := h(params)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(res), nil
}

func (f *fakeConn) AddStreamHandler(h rpc.StreamHandler) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.next
	f.next++
	f.streams[id] = h
	return func() {
		f.mu.Lock()
		delete(f.streams, id)
		f.mu.Unlock()
	}
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		f.log = append(f.log, "close")
		close(f.done)
	}
	return nil
}

func (f *fakeConn) Done() <-chan struct{} { return f.done }

func (f *fakeConn) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.log...)
}

func (f *fakeConn) count(command string) int {
	n := 0
	for _, c := range f.calls() {
		if c == command {
			n++
		}
	}
	return n
}

type dialer struct {
	mu    sync.Mutex
	conns []*fakeConn
	setup func(*fakeConn)
}

func (d *dialer) dial(context.Context, string) (Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	c := newFakeConn()
	if d.setup != nil {
		d.setup(c)
	}
	d.conns = append(d.conns, c)
	return c, nil
}

func (d *dialer) dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.conns)
}

func newTestClient(t *testing.T, setup func(*fakeConn)) (*Client, *dialer) {
	t.Helper()
	d := &dialer{setup: setup}
	c, err := New(Config{Network: "xrpl-testnet"}, WithDialer(d.dial))
	require.NoError(t, err)
	return c, d
}

func TestNewUsesRegistry(t *testing.T) {
	c, _ := newTestClient(t, nil)
	entry, err := registry.Lookup("xrpl-testnet")
	require.NoError(t, err)
	assert.Equal(t, entry.Issuer, c.Issuer())
	assert.Equal(t, entry.Endpoint, c.cfg.Endpoint)
	assert.Equal(t, registry.Currency, c.Asset().Currency)

	_, err = New(Config{Network: "eth-mainnet"})
	assert.Error(t, err)
	_, err = New(Config{Network: "nowhere"})
	assert.Error(t, err)
}

func TestConnectIsLazyAndIdempotent(t *testing.T) {
	c, d := newTestClient(t, func(f *fakeConn) {
		f.on("account_info", `{"account_data":{"Account":"`+genesis+`","Balance":"25000000","Sequence":7}}`)
	})
	assert.Equal(t, 0, d.dials())
	assert.False(t, c.Connected())

	require.NoError(t, c.Connect(context.Background()))
	require.NoError(t, c.Connect(context.Background()))
	bal, err := c.XRPBalance(context.Background(), genesis)
	require.NoError(t, err)
	assert.Equal(t, "25", bal)
	assert.Equal(t, 1, d.dials())
	assert.True(t, c.Connected())

	require.NoError(t, c.Disconnect(context.Background()))
	assert.False(t, c.Connected())
	require.NoError(t, c.Disconnect(context.Background()))

	require.NoError(t, c.Connect(context.Background()))
	assert.Equal(t, 2, d.dials())
}

func TestRedialAfterConnectionLoss(t *testing.T) {
	c, d := newTestClient(t, nil)
	require.NoError(t, c.Connect(context.Background()))
	require.NoError(t, d.conns[0].Close())

	require.NoError(t, c.Connect(context.Background()))
	assert.Equal(t, 2, d.dials())
}

func TestWritesNeedWalletBeforeNetwork(t *testing.T) {
	c, d := newTestClient(t, nil)
	ctx := context.Background()

	calls := map[string]func() error{
		"trustline": func() error { _, err := c.SetTrustLine(ctx, TrustLineRequest{Limit: "1000"}); return err },
		"remove":    func() error { _, err := c.RemoveTrustLine(ctx); return err },
		"token":     func() error { _, err := c.SendToken(ctx, PaymentRequest{Destination: bob, Amount: "1"}); return err },
		"xrp":       func() error { _, err := c.SendXRP(ctx, PaymentRequest{Destination: bob, Amount: "1"}); return err },
		"offer": func() error {
			_, err := c.CreateOffer(ctx, OfferRequest{Side: tx.SideBuy, Amount: "1", Price: "2"})
			return err
		},
		"cancel": func() error { _, err := c.CancelOffer(ctx, 5); return err },
		"escrow": func() error { _, err := c.CreateEscrow(ctx, EscrowRequest{Destination: bob, Amount: "1"}); return err },
	}
	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, call(), ledgererr.ErrNoCredential)
		})
	}
	assert.Equal(t, 0, d.dials())
}

func TestLoadWallet(t *testing.T) {
	c, _ := newTestClient(t, nil)
	assert.Empty(t, c.Address())

	require.NoError(t, c.LoadWallet(genesisSeed))
	assert.Equal(t, genesis, c.Address())

	err := c.LoadWallet("   ")
	assert.ErrorIs(t, err, ledgererr.ErrNoCredential)
	err = c.LoadWallet("not-a-seed")
	assert.ErrorIs(t, err, ledgererr.ErrNoCredential)
	assert.NotContains(t, err.Error(), "not-a-seed")
	assert.Equal(t, genesis, c.Address())
}

func TestValidationBeforeNetwork(t *testing.T) {
	c, d := newTestClient(t, nil)
	require.NoError(t, c.LoadWallet(genesisSeed))
	ctx := context.Background()

	tag := int64(4294967296)
	_, err := c.SendToken(ctx, PaymentRequest{Destination: bob, Amount: "5", DestinationTag: &tag})
	assert.ErrorIs(t, err, ledgererr.ErrInvalidDestinationTag)

	_, err = c.SendToken(ctx, PaymentRequest{Destination: "0xabc", Amount: "5"})
	assert.ErrorIs(t, err, ledgererr.ErrInvalidAddress)

	_, err = c.SendXRP(ctx, PaymentRequest{Destination: bob, Amount: "lots"})
	assert.ErrorIs(t, err, ledgererr.ErrInvalidAmount)

	_, err = c.CreateOffer(ctx, OfferRequest{Side: tx.SideSell, Amount: "10", Price: "0"})
	assert.ErrorIs(t, err, ledgererr.ErrInvalidAmount)

	_, err = c.AccountInfo(ctx, "nope")
	assert.ErrorIs(t, err, ledgererr.ErrInvalidAddress)

	assert.Equal(t, 0, d.dials())
}

func TestOfferSides(t *testing.T) {
	c, _ := newTestClient(t, nil)
	exp := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

	buy, err := c.offer(genesis, OfferRequest{Side: tx.SideBuy, Amount: "100", Price: "0.4567891", Expiration: &exp})
	require.NoError(t, err)
	assert.True(t, buy.TakerGets.IsNative())
	assert.Equal(t, "45678910", buy.TakerGets.Value)
	assert.Equal(t, "100", buy.TakerPays.Value)
	assert.Equal(t, testIssuer, buy.TakerPays.Issuer)
	assert.Equal(t, &exp, buy.Expiration)

	sell, err := c.offer(genesis, OfferRequest{Side: tx.SideSell, Amount: "1.5", Price: "2"})
	require.NoError(t, err)
	assert.Equal(t, "1.5", sell.TakerGets.Value)
	assert.Equal(t, "3000000", sell.TakerPays.Value)
}

func TestTrustLinesAndTokenBalance(t *testing.T) {
	c, _ := newTestClient(t, func(f *fakeConn) {
		f.handlers["account_lines"] = func(params map[string]any) (string, error) {
			if params["peer"] != testIssuer {
				return "", fmt.Errorf("unexpected peer %v", params["peer"])
			}
			return `{"lines":[
				{"account":"` + testIssuer + `","currency":"USD","balance":"3","limit":"10"},
				{"account":"` + testIssuer + `","currency":"524C555344000000000000000000000000000000","balance":"42.5","limit":"1000","peer_authorized":true,"freeze_peer":true,"no_ripple":true}
			]}`, nil
		}
	})

	lines, err := c.TrustLines(context.Background(), genesis)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "RLUSD", lines[0].Currency)
	assert.Equal(t, "1000", lines[0].Limit)
	assert.True(t, lines[0].Authorized)
	assert.True(t, lines[0].Frozen)
	assert.True(t, lines[0].NoRipple)

	bal, err := c.TokenBalance(context.Background(), genesis)
	require.NoError(t, err)
	assert.Equal(t, "42.5", bal)
}

func TestTokenBalanceWithoutLine(t *testing.T) {
	c, _ := newTestClient(t, func(f *fakeConn) {
		f.on("account_lines", `{"lines":[]}`)
	})
	bal, err := c.TokenBalance(context.Background(), genesis)
	require.NoError(t, err)
	assert.Equal(t, "0", bal)
}

func TestBalances(t *testing.T) {
	c, _ := newTestClient(t, func(f *fakeConn) {
		f.on("account_info", `{"account_data":{"Account":"`+genesis+`","Balance":"15000000","OwnerCount":2,"Sequence":7}}`)
		f.on("account_lines", `{"lines":[]}`)
		f.on("server_state", `{"state":{"validated_ledger":{"base_fee":10,"reserve_base":1000000,"reserve_inc":200000,"seq":5}}}`)
	})
	b, err := c.Balances(context.Background(), genesis)
	require.NoError(t, err)
	assert.Equal(t, "15", b.XRP)
	assert.Equal(t, "0", b.RLUSD)
	assert.Equal(t, "1.4", b.Reserve)
	assert.Equal(t, "13.6", b.Spendable)
}

func TestGetTransactionCachesValidated(t *testing.T) {
	c, d := newTestClient(t, func(f *fakeConn) {
		f.handlers["tx"] = func(params map[string]any) (string, error) {
			validated := params["transaction"] == "AAA"
			return fmt.Sprintf(`{"hash":%q,"TransactionType":"Payment","validated":%t,"meta":{"TransactionResult":"tesSUCCESS"}}`,
				params["transaction"], validated), nil
		}
	})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := c.GetTransaction(ctx, "AAA")
		require.NoError(t, err)
		assert.True(t, res.Validated)
	}
	for i := 0; i < 2; i++ {
		_, err := c.GetTransaction(ctx, "BBB")
		require.NoError(t, err)
	}
	assert.Equal(t, 3, d.conns[0].count("tx"))
}

func TestDisconnectStopsSubscriptionsFirst(t *testing.T) {
	c, d := newTestClient(t, nil)
	ctx := context.Background()

	sink := subscription.NewChannelSink(4)
	sub, err := c.Subscribe(ctx, subscription.Filter{Kind: subscription.KindLedger}, sink)
	require.NoError(t, err)
	assert.Len(t, c.Subscriptions(), 1)

	require.NoError(t, c.Disconnect(ctx))
	assert.Equal(t, subscription.StateClosed, sub.State())
	assert.Equal(t, []string{"subscribe", "unsubscribe", "close"}, d.conns[0].calls())
}

func TestUnsubscribe(t *testing.T) {
	c, _ := newTestClient(t, nil)
	ctx := context.Background()

	sub, err := c.Subscribe(ctx, subscription.Filter{Kind: subscription.KindAccountTransfer, WatchAddress: genesis}, subscription.NewChannelSink(1))
	require.NoError(t, err)
	require.NoError(t, c.Unsubscribe(ctx, sub.ID()))
	require.NoError(t, c.Unsubscribe(ctx, "unknown"))
	assert.Equal(t, subscription.StateClosed, sub.State())
}

func TestTrustSetCarriesQuality(t *testing.T) {
	c, _ := newTestClient(t, nil)
	in, out := uint32(1_000_000_000), uint32(990_000_000)

	m, err := tx.Build(c.trustSet(genesis, TrustLineRequest{Limit: "500", QualityIn: &in, QualityOut: &out}))
	require.NoError(t, err)
	assert.Equal(t, in, m["QualityIn"])
	assert.Equal(t, out, m["QualityOut"])

	m, err = tx.Build(c.trustSet(genesis, TrustLineRequest{Limit: "500"}))
	require.NoError(t, err)
	assert.NotContains(t, m, "QualityIn")
	assert.NotContains(t, m, "QualityOut")
}
