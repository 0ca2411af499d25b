package operation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeJamon/goRLUSD/internal/book"
	"github.com/LeJamon/goRLUSD/internal/compliance"
	"github.com/LeJamon/goRLUSD/internal/core/tx"
	"github.com/LeJamon/goRLUSD/internal/evm"
	"github.com/LeJamon/goRLUSD/internal/ledgererr"
	"github.com/LeJamon/goRLUSD/internal/rpc"
	"github.com/LeJamon/goRLUSD/internal/submit"
	"github.com/LeJamon/goRLUSD/internal/subscription"
	"github.com/LeJamon/goRLUSD/internal/xrpl"
)

const (
	wallet = "rHb9CJAWyB4rj91VRWn96DkukG4bwdtyTh"
	bob    = "rPT1Sjq2YGrBMTttX4GZHjKu9dyfzbpAYe"
	ethBob = "0x00000000000000000000000000000000000000b0"
)

type fakeSubs struct {
	subscribed []subscription.Filter
	stopped    []string
	id         string
}

func (f *fakeSubs) Subscribe(_ context.Context, flt subscription.Filter, _ subscription.Sink) (*subscription.Subscription, error) {
	f.subscribed = append(f.subscribed, flt)
	return nil, errors.New("not wired in tests")
}

func (f *fakeSubs) Unsubscribe(_ context.Context, id string) error {
	f.stopped = append(f.stopped, id)
	return nil
}

func (f *fakeSubs) Subscriptions() []subscription.Info {
	return []subscription.Info{{ID: f.id, State: subscription.StateActive}}
}

type fakeXRPL struct {
	fakeSubs
	address string
	payment xrpl.PaymentRequest
	offer   xrpl.OfferRequest
	escrow  xrpl.EscrowRequest
	trust   tx.TrustSetOptions
	limit   string
	outcome *submit.Outcome
	err     error
	book    *book.Engine

	qualityIn, qualityOut *uint32
}

func (f *fakeXRPL) Address() string { return f.address }

func (f *fakeXRPL) AccountInfo(_ context.Context, address string) (*rpc.AccountInfoResult, error) {
	res := &rpc.AccountInfoResult{}
	res.AccountData.Account = address
	return res, nil
}

func (f *fakeXRPL) Balances(_ context.Context, address string) (*xrpl.Balances, error) {
	return &xrpl.Balances{Address: address, XRP: "15", RLUSD: "42.5"}, nil
}

func (f *fakeXRPL) TrustLines(context.Context, string) ([]xrpl.TrustLineInfo, error) {
	return []xrpl.TrustLineInfo{{Currency: "RLUSD", Balance: "1", Limit: "1000"}}, nil
}

func (f *fakeXRPL) AccountOffers(context.Context, string) ([]rpc.AccountOffer, error) {
	return nil, nil
}

func (f *fakeXRPL) GetTransaction(_ context.Context, hash string) (*rpc.TxResult, error) {
	return &rpc.TxResult{Hash: hash, Validated: true}, nil
}

func (f *fakeXRPL) SetTrustLine(_ context.Context, req xrpl.TrustLineRequest) (*submit.Outcome, error) {
	f.limit, f.trust = req.Limit, req.Options
	f.qualityIn, f.qualityOut = req.QualityIn, req.QualityOut
	return f.outcome, f.err
}

func (f *fakeXRPL) RemoveTrustLine(context.Context) (*submit.Outcome, error) {
	f.limit = "0"
	return f.outcome, f.err
}

func (f *fakeXRPL) SendToken(_ context.Context, req xrpl.PaymentRequest) (*submit.Outcome, error) {
	f.payment = req
	return f.outcome, f.err
}

func (f *fakeXRPL) SendXRP(_ context.Context, req xrpl.PaymentRequest) (*submit.Outcome, error) {
	f.payment = req
	return f.outcome, f.err
}

func (f *fakeXRPL) CreateOffer(_ context.Context, req xrpl.OfferRequest) (*submit.Outcome, error) {
	f.offer = req
	return f.outcome, f.err
}

func (f *fakeXRPL) CancelOffer(context.Context, uint32) (*submit.Outcome, error) {
	return f.outcome, f.err
}

func (f *fakeXRPL) CreateEscrow(_ context.Context, req xrpl.EscrowRequest) (*submit.Outcome, error) {
	f.escrow = req
	return f.outcome, f.err
}

func (f *fakeXRPL) Book(context.Context) (*book.Engine, error) {
	return f.book, nil
}

type fakeEVM struct {
	fakeSubs
	transfers [][2]string
}

func (f *fakeEVM) Address() string { return "" }

func (f *fakeEVM) Balance(context.Context, string) (string, error) { return "10.5", nil }
func (f *fakeEVM) EthBalance(context.Context, string) (string, error) { return "0.1", nil }

func (f *fakeEVM) Allowance(context.Context, string, string) (string, error) { return "5", nil }
func (f *fakeEVM) TotalSupply(context.Context) (string, error) { return "1000000", nil }
func (f *fakeEVM) Decimals(context.Context) (uint8, error) { return 18, nil }

func (f *fakeEVM) Transfer(_ context.Context, to, value string) (*submit.Outcome, error) {
	f.transfers = append(f.transfers, [2]string{to, value})
	return &submit.Outcome{Success: true, Hash: "0xabc", Chain: submit.ChainEVM}, nil
}

func (f *fakeEVM) Approve(context.Context, string, string) (*submit.Outcome, error) {
	return &submit.Outcome{Success: true}, nil
}

func (f *fakeEVM) TransferFrom(context.Context, string, string, string) (*submit.Outcome, error) {
	return &submit.Outcome{Success: true}, nil
}

func (f *fakeEVM) GetReceipt(_ context.Context, hash string) (*evm.Receipt, error) {
	return &evm.Receipt{Hash: hash, Success: true, BlockNumber: 7}, nil
}

type fakeCompliance struct{}

func (fakeCompliance) Lookup(_ context.Context, address, chain string) compliance.Screening {
	return compliance.Screening{Address: address, Chain: chain, Status: compliance.StatusVerified, Verified: true}
}

func (fakeCompliance) Attestation(_ context.Context, id string) compliance.Attestation {
	return compliance.Attestation{ID: id, Status: compliance.StatusUnknown}
}

type stubBook struct{}

func (stubBook) BookOffers(_ context.Context, gets, _ rpc.Issue, _ int) ([]rpc.BookOffer, error) {
	rlusd := tx.Issued("RLUSD", "rMxCKbEDwqr76QuheSUMdEGf4B9xJ8m5De", "100")
	if gets.Currency == tx.NativeCurrency {
		// bid: 49 XRP for 100 RLUSD
		return []rpc.BookOffer{{TakerGets: tx.XRP(49_000_000), TakerPays: rlusd}}, nil
	}
	// ask: 100 RLUSD for 51 XRP
	return []rpc.BookOffer{{TakerGets: rlusd, TakerPays: tx.XRP(51_000_000)}}, nil
}

func newTestDispatcher() (*Dispatcher, *fakeXRPL, *fakeEVM) {
	x := &fakeXRPL{
		fakeSubs: fakeSubs{id: "sub-1"},
		address:  wallet,
		outcome:  &submit.Outcome{Success: true, Hash: "ABC", ResultCode: "tesSUCCESS", Validated: true, State: submit.StateValidated},
		book:     book.NewEngine(stubBook{}, rpc.Issue{Currency: "RLUSD", Issuer: "rMxCKbEDwqr76QuheSUMdEGf4B9xJ8m5De"}),
	}
	e := &fakeEVM{fakeSubs: fakeSubs{id: "sub-2"}}
	d := New(Services{XRPL: x, EVM: e, Compliance: fakeCompliance{}})
	return d, x, e
}

func do(t *testing.T, d *Dispatcher, resource, op string, params Params) Result {
	t.Helper()
	res, err := d.Do(context.Background(), Request{Resource: resource, Operation: op, Params: params})
	require.NoError(t, err)
	return res
}

func TestAccountDefaultsToWallet(t *testing.T) {
	d, _, _ := newTestDispatcher()

	res := do(t, d, ResourceAccount, "balance", nil)
	assert.Equal(t, wallet, res["address"])
	assert.Equal(t, "42.5", res["rlusd"])

	res = do(t, d, ResourceAccount, "balance", Params{"address": bob})
	assert.Equal(t, bob, res["address"])
}

func TestAccountWithoutAddress(t *testing.T) {
	d, x, _ := newTestDispatcher()
	x.address = ""

	_, err := d.Do(context.Background(), Request{Resource: ResourceAccount, Operation: "info"})
	var pe *ParamError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "address", pe.Name)
}

func TestPaymentParams(t *testing.T) {
	d, x, _ := newTestDispatcher()

	res := do(t, d, ResourcePayment, "send", Params{
		"destination":    bob,
		"amount":         12.5,
		"destinationTag": float64(42),
		"memo":           "invoice 7",
		"partialPayment": true,
	})
	assert.Equal(t, "tesSUCCESS", res["resultCode"])
	assert.Equal(t, "validated", res["state"])

	assert.Equal(t, bob, x.payment.Destination)
	assert.Equal(t, "12.5", x.payment.Amount)
	require.NotNil(t, x.payment.DestinationTag)
	assert.EqualValues(t, 42, *x.payment.DestinationTag)
	assert.Equal(t, []tx.Memo{{Data: "invoice 7"}}, x.payment.Memos)
	assert.True(t, x.payment.Options.PartialPayment)
}

func TestDestinationTagRejectedBeforeSubmit(t *testing.T) {
	tests := []struct {
		name string
		tag  any
	}{
		{"negative", float64(-1)},
		{"too large", float64(4294967296)},
		{"fractional", 1.5},
		{"text", "abc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, x, _ := newTestDispatcher()
			_, err := d.Do(context.Background(), Request{
				Resource:  ResourcePayment,
				Operation: "send",
				Params:    Params{"destination": bob, "amount": "1", "destinationTag": tt.tag},
			})
			require.ErrorIs(t, err, ledgererr.ErrInvalidDestinationTag)
			assert.Empty(t, x.payment.Destination)
		})
	}
}

func TestTrustLineFlags(t *testing.T) {
	d, x, _ := newTestDispatcher()

	do(t, d, ResourceTrustline, "set", Params{"limit": "1000000", "setNoRipple": true, "setFreeze": false})
	assert.Equal(t, "1000000", x.limit)
	assert.True(t, x.trust.SetNoRipple)
	assert.False(t, x.trust.SetFreeze)

	assert.Nil(t, x.qualityIn)
	assert.Nil(t, x.qualityOut)

	res := do(t, d, ResourceTrustline, "list", nil)
	assert.Equal(t, wallet, res["address"])
	assert.Len(t, res["lines"], 1)
}

func TestTrustLineQuality(t *testing.T) {
	d, x, _ := newTestDispatcher()

	do(t, d, ResourceTrustline, "set", Params{"limit": "10", "qualityIn": float64(1_000_000_000), "qualityOut": "990000000"})
	require.NotNil(t, x.qualityIn)
	require.NotNil(t, x.qualityOut)
	assert.Equal(t, uint32(1_000_000_000), *x.qualityIn)
	assert.Equal(t, uint32(990_000_000), *x.qualityOut)

	_, err := d.Do(context.Background(), Request{
		Resource:  ResourceTrustline,
		Operation: "set",
		Params:    Params{"limit": "10", "qualityIn": float64(-1)},
	})
	var pe *ParamError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "qualityIn", pe.Name)
}

func TestOfferParams(t *testing.T) {
	d, x, _ := newTestDispatcher()

	do(t, d, ResourceDex, "createOffer", Params{
		"side":       "sell",
		"amount":     "100",
		"price":      "0.5",
		"expiration": "2030-01-01T00:00:00Z",
		"replace":    float64(12),
		"passive":    true,
	})
	assert.Equal(t, tx.SideSell, x.offer.Side)
	assert.Equal(t, "0.5", x.offer.Price)
	require.NotNil(t, x.offer.Expiration)
	assert.Equal(t, 2030, x.offer.Expiration.Year())
	require.NotNil(t, x.offer.Replace)
	assert.EqualValues(t, 12, *x.offer.Replace)
	assert.True(t, x.offer.Options.Passive)

	_, err := d.Do(context.Background(), Request{Resource: ResourceDex, Operation: "createOffer",
		Params: Params{"side": "hold", "amount": "1", "price": "1"}})
	var pe *ParamError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "side", pe.Name)
}

func TestEscrowTimes(t *testing.T) {
	d, x, _ := newTestDispatcher()

	do(t, d, ResourceEscrow, "create", Params{
		"destination": bob,
		"amount":      "10",
		"finishAfter": float64(1893456000),
	})
	require.NotNil(t, x.escrow.FinishAfter)
	assert.Equal(t, time.Unix(1893456000, 0).UTC(), *x.escrow.FinishAfter)
	assert.Nil(t, x.escrow.CancelAfter)
}

func TestSpread(t *testing.T) {
	d, _, _ := newTestDispatcher()

	res := do(t, d, ResourceDex, "spread", nil)
	assert.Equal(t, "0.49000000", res["bid"])
	assert.Equal(t, "0.51000000", res["ask"])
	assert.Equal(t, "0.50000000", res["midpoint"])
	assert.Equal(t, book.SpreadResult{Absolute: "0.02000000", Percentage: "4.0816"}, res["spread"])
}

func TestTokenOperations(t *testing.T) {
	d, _, e := newTestDispatcher()

	res := do(t, d, ResourceToken, "balance", Params{"address": ethBob})
	assert.Equal(t, "10.5", res["balance"])

	res = do(t, d, ResourceToken, "decimals", nil)
	assert.EqualValues(t, 18, res["decimals"])

	res = do(t, d, ResourceToken, "transfer", Params{"destination": ethBob, "amount": "2"})
	assert.Equal(t, true, res["success"])
	assert.Equal(t, [][2]string{{ethBob, "2"}}, e.transfers)

	// no key loaded and no address given
	_, err := d.Do(context.Background(), Request{Resource: ResourceToken, Operation: "balance"})
	var pe *ParamError
	require.ErrorAs(t, err, &pe)
}

func TestTransactionByChain(t *testing.T) {
	d, _, _ := newTestDispatcher()

	res := do(t, d, ResourceTransaction, "get", Params{"hash": "ABC"})
	assert.Equal(t, "ABC", res["hash"])

	res = do(t, d, ResourceTransaction, "get", Params{"hash": "0x01", "chain": "evm"})
	assert.EqualValues(t, 7, res["blockNumber"])
}

func TestCompliance(t *testing.T) {
	d, _, _ := newTestDispatcher()

	res := do(t, d, ResourceCompliance, "lookup", Params{"address": ethBob})
	assert.Equal(t, "evm", res["chain"])
	assert.Equal(t, true, res["verified"])

	res = do(t, d, ResourceCompliance, "attestation", Params{"attestationId": "att-1"})
	assert.Equal(t, "att-1", res["id"])
}

func TestConvertNumericAmount(t *testing.T) {
	d, _, _ := newTestDispatcher()

	tests := []struct {
		amount any
		from   string
		want   string
	}{
		{0.1, "xrp", "100000"},
		{1.0000009, "xrp", "1000000"},
		{"1.0000009", "xrp", "1000000"},
		{2.5, "rlusd", "2500000000000000000"},
		{float64(1500000), "drops", "1.5"},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%v %s", tt.amount, tt.from), func(t *testing.T) {
			res := do(t, d, ResourceUtility, "convert", Params{"amount": tt.amount, "from": tt.from})
			assert.Equal(t, tt.want, res["amount"])
		})
	}
}

func TestUtility(t *testing.T) {
	d, _, _ := newTestDispatcher()

	res := do(t, d, ResourceUtility, "convert", Params{"amount": "1500000", "from": "drops"})
	assert.Equal(t, Result{"amount": "1.5", "unit": "xrp"}, res)

	res = do(t, d, ResourceUtility, "format", Params{"amount": "1234567.5"})
	assert.Equal(t, "1,234,567.50", res["formatted"])

	res = do(t, d, ResourceUtility, "parse", Params{"text": "$1,000.25 RLUSD"})
	assert.Equal(t, "1000.25", res["amount"])

	res = do(t, d, ResourceUtility, "validateAddress", Params{"address": bob})
	assert.Equal(t, true, res["xrpl"])
	assert.Equal(t, false, res["evm"])

	res = do(t, d, ResourceUtility, "registry", Params{"network": "eth-mainnet"})
	assert.Equal(t, "0x8292Bb45bf1Ee4d140127049757C2E0fF06317eD", res["address"])
}

func TestSubscriptionNeedsSink(t *testing.T) {
	d, _, _ := newTestDispatcher()

	_, err := d.Do(context.Background(), Request{Resource: ResourceSubscription, Operation: "start",
		Params: Params{"kind": "ledger"}})
	require.ErrorIs(t, err, ErrNotConfigured)

	res := do(t, d, ResourceSubscription, "list", nil)
	assert.Len(t, res["subscriptions"], 2)

	res = do(t, d, ResourceSubscription, "stop", Params{"id": "sub-1"})
	assert.Equal(t, true, res["stopped"])
}

func TestSubscriptionStop(t *testing.T) {
	tests := []struct {
		id      string
		stopped bool
		xrpl    []string
		evm     []string
	}{
		{"sub-1", true, []string{"sub-1"}, nil},
		{"sub-2", true, nil, []string{"sub-2"}},
		{"sub-9", false, nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			d, x, e := newTestDispatcher()
			res := do(t, d, ResourceSubscription, "stop", Params{"id": tt.id})
			assert.Equal(t, tt.stopped, res["stopped"])
			assert.Equal(t, tt.xrpl, x.stopped)
			assert.Equal(t, tt.evm, e.stopped)
		})
	}
}

func TestSubscriptionRoutesByKind(t *testing.T) {
	d, x, e := newTestDispatcher()
	d.svc.Sink = subscription.NewChannelSink(1)

	_, err := d.Do(context.Background(), Request{Resource: ResourceSubscription, Operation: "start",
		Params: Params{"kind": "contract_transfer", "direction": "transferTo", "minAmount": "5"}})
	require.Error(t, err)
	require.Len(t, e.subscribed, 1)
	assert.Empty(t, x.subscribed)
	assert.Equal(t, subscription.DirectionIncoming, e.subscribed[0].Direction)
	assert.Equal(t, "5", e.subscribed[0].MinAmount)
}

func TestUnsupported(t *testing.T) {
	d, _, _ := newTestDispatcher()

	for _, req := range []Request{
		{Resource: "nft", Operation: "mint"},
		{Resource: ResourceDex, Operation: "amm"},
		{Resource: ResourceUtility, Operation: "explode"},
	} {
		_, err := d.Do(context.Background(), req)
		assert.ErrorIs(t, err, ErrUnsupported, req.Method())
	}
}

func TestMissingService(t *testing.T) {
	d := New(Services{})

	_, err := d.Do(context.Background(), Request{Resource: ResourceToken, Operation: "totalSupply"})
	require.ErrorIs(t, err, ErrNotConfigured)

	// utility needs no ledger
	res, err := d.Do(context.Background(), Request{Resource: ResourceUtility, Operation: "networks"})
	require.NoError(t, err)
	assert.Contains(t, res["networks"], "xrpl-mainnet")
}

func TestExecuteIsolation(t *testing.T) {
	d, x, _ := newTestDispatcher()
	reqs := []Request{
		{Resource: ResourceUtility, Operation: "format", Params: Params{"amount": "1"}},
		{Resource: ResourceUtility, Operation: "format", Params: Params{"amount": "abc"}},
		{Resource: ResourceUtility, Operation: "format", Params: Params{"amount": "2"}},
	}

	results, err := d.Execute(context.Background(), reqs, true)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "1.00", results[0]["formatted"])
	assert.Equal(t, "InvalidAmount", results[1]["kind"])
	assert.NotEmpty(t, results[1]["error"])
	assert.Equal(t, "2.00", results[2]["formatted"])

	results, err = d.Execute(context.Background(), reqs, false)
	var ie *ItemError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, 1, ie.Index)
	assert.Equal(t, "utility.format", ie.Method)
	assert.Len(t, results, 1)

	// a rejected submission keeps its outcome in the error result
	x.outcome = &submit.Outcome{Hash: "DEF", ResultCode: "tecNO_LINE", State: submit.StateRejected}
	x.err = ledgererr.Rejected("tecNO_LINE", "No such line.")
	results, err = d.Execute(context.Background(), []Request{
		{Resource: ResourcePayment, Operation: "send", Params: Params{"destination": bob, "amount": "1"}},
	}, true)
	require.NoError(t, err)
	assert.Equal(t, "SubmissionRejected", results[0]["kind"])
	assert.Equal(t, "tecNO_LINE", results[0]["code"])
	assert.Equal(t, x.outcome, results[0]["outcome"])
}

func TestResultsAreJSON(t *testing.T) {
	d, _, _ := newTestDispatcher()

	results, err := d.Execute(context.Background(), []Request{
		{Resource: ResourceDex, Operation: "book", Params: Params{"limit": float64(5)}},
		{Resource: ResourceAccount, Operation: "offers"},
	}, false)
	require.NoError(t, err)

	raw, err := json.Marshal(results)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"bids"`)
	assert.Contains(t, string(raw), `"offers":null`)
}
