// Package operation is the caller-facing surface: a request names a
// resource, an operation and its parameters, and yields one JSON-ready
// result. The CLI and the HTTP server both drive a Dispatcher.
package operation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/LeJamon/goRLUSD/internal/book"
	"github.com/LeJamon/goRLUSD/internal/compliance"
	"github.com/LeJamon/goRLUSD/internal/evm"
	"github.com/LeJamon/goRLUSD/internal/ledgererr"
	"github.com/LeJamon/goRLUSD/internal/metrics"
	"github.com/LeJamon/goRLUSD/internal/rpc"
	"github.com/LeJamon/goRLUSD/internal/submit"
	"github.com/LeJamon/goRLUSD/internal/subscription"
	"github.com/LeJamon/goRLUSD/internal/xrpl"
)

// Resources.
const (
	ResourceAccount      = "account"
	ResourceTrustline    = "trustline"
	ResourcePayment      = "payment"
	ResourceDex          = "dex"
	ResourceEscrow       = "escrow"
	ResourceToken        = "token"
	ResourceTransaction  = "transaction"
	ResourceSubscription = "subscription"
	ResourceCompliance   = "compliance"
	ResourceUtility      = "utility"
)

// Catalog lists every supported operation per resource.
var Catalog = map[string][]string{
	ResourceAccount:      {"info", "balance", "offers"},
	ResourceTrustline:    {"set", "remove", "list"},
	ResourcePayment:      {"send", "sendXrp"},
	ResourceDex:          {"book", "bestBidAsk", "spread", "createOffer", "cancelOffer"},
	ResourceEscrow:       {"create"},
	ResourceToken:        {"balance", "ethBalance", "allowance", "totalSupply", "decimals", "transfer", "approve", "transferFrom"},
	ResourceTransaction:  {"get"},
	ResourceSubscription: {"start", "stop", "list"},
	ResourceCompliance:   {"lookup", "attestation"},
	ResourceUtility:      {"convert", "format", "parse", "validateAddress", "networks", "registry"},
}

var (
	ErrUnsupported   = errors.New("unsupported operation")
	ErrNotConfigured = errors.New("ledger not configured")
)

// XRPL is the consensus-ledger client as the dispatcher uses it.
// *xrpl.Client satisfies it.
type XRPL interface {
	Address() string
	AccountInfo(ctx context.Context, address string) (*rpc.AccountInfoResult, error)
	Balances(ctx context.Context, address string) (*xrpl.Balances, error)
	TrustLines(ctx context.Context, address string) ([]xrpl.TrustLineInfo, error)
	AccountOffers(ctx context.Context, address string) ([]rpc.AccountOffer, error)
	GetTransaction(ctx context.Context, hash string) (*rpc.TxResult, error)
	SetTrustLine(ctx context.Context, req xrpl.TrustLineRequest) (*submit.Outcome, error)
	RemoveTrustLine(ctx context.Context) (*submit.Outcome, error)
	SendToken(ctx context.Context, req xrpl.PaymentRequest) (*submit.Outcome, error)
	SendXRP(ctx context.Context, req xrpl.PaymentRequest) (*submit.Outcome, error)
	CreateOffer(ctx context.Context, req xrpl.OfferRequest) (*submit.Outcome, error)
	CancelOffer(ctx context.Context, seq uint32) (*submit.Outcome, error)
	CreateEscrow(ctx context.Context, req xrpl.EscrowRequest) (*submit.Outcome, error)
	Book(ctx context.Context) (*book.Engine, error)
	Subscriber
}

// EVM is the contract-ledger client as the dispatcher uses it.
// *evm.Client satisfies it.
type EVM interface {
	Address() string
	Balance(ctx context.Context, owner string) (string, error)
	EthBalance(ctx context.Context, owner string) (string, error)
	Allowance(ctx context.Context, owner, spender string) (string, error)
	TotalSupply(ctx context.Context) (string, error)
	Decimals(ctx context.Context) (uint8, error)
	Transfer(ctx context.Context, to, value string) (*submit.Outcome, error)
	Approve(ctx context.Context, spender, value string) (*submit.Outcome, error)
	TransferFrom(ctx context.Context, from, to, value string) (*submit.Outcome, error)
	GetReceipt(ctx context.Context, hash string) (*evm.Receipt, error)
	Subscriber
}

// Subscriber is the subscription part of both clients.
type Subscriber interface {
	Subscribe(ctx context.Context, f subscription.Filter, sink subscription.Sink) (*subscription.Subscription, error)
	Unsubscribe(ctx context.Context, id string) error
	Subscriptions() []subscription.Info
}

type Compliance interface {
	Lookup(ctx context.Context, address, chain string) compliance.Screening
	Attestation(ctx context.Context, id string) compliance.Attestation
}

// Services are the collaborators; any of them may be nil.
type Services struct {
	XRPL       XRPL
	EVM        EVM
	Compliance Compliance
	// Sink receives events of subscriptions started through the surface.
	Sink subscription.Sink
}

// Request is one item of work.
type Request struct {
	Resource  string `json:"resource"`
	Operation string `json:"operation"`
	Params    Params `json:"params,omitempty"`
}

func (r Request) Method() string {
	return r.Resource + "." + r.Operation
}

// Result is the JSON-ready answer to one request.
type Result map[string]any

type Dispatcher struct {
	svc     Services
	logger  *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

type Option func(*Dispatcher)

func WithLogger(l *zap.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

func New(svc Services, opts ...Option) *Dispatcher {
	d := &Dispatcher{svc: svc, logger: zap.NewNop(), now: time.Now}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// ItemError ties a failure to the request that caused it.
type ItemError struct {
	Index  int
	Method string
	Err    error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("item %d (%s): %v", e.Index, e.Method, e.Err)
}

func (e *ItemError) Unwrap() error { return e.Err }

// Execute runs reqs in order. With continueOnFail a failing item yields an
// error result and the rest still run; otherwise the first failure stops
// the batch and the results so far are returned with it.
func (d *Dispatcher) Execute(ctx context.Context, reqs []Request, continueOnFail bool) ([]Result, error) {
	batch := uuid.NewString()
	d.logger.Debug("executing batch", zap.String("batch", batch), zap.Int("items", len(reqs)), zap.Bool("continue_on_fail", continueOnFail))
	results := make([]Result, 0, len(reqs))
	for i, req := range reqs {
		res, err := d.Do(ctx, req)
		if err != nil {
			if !continueOnFail {
				d.logger.Debug("batch aborted", zap.String("batch", batch), zap.Int("item", i))
				return results, &ItemError{Index: i, Method: req.Method(), Err: err}
			}
			res = ErrorResult(err)
		}
		results = append(results, res)
	}
	return results, nil
}

// Do runs one request.
func (d *Dispatcher) Do(ctx context.Context, req Request) (Result, error) {
	if req.Params == nil {
		req.Params = Params{}
	}
	start := d.now()
	res, err := d.dispatch(ctx, req)
	outcome := "ok"
	if err != nil {
		outcome = ErrorKind(err)
		d.logger.Debug("operation failed", zap.String("method", req.Method()), zap.Error(err))
	} else {
		d.logger.Debug("operation done", zap.String("method", req.Method()), zap.Duration("took", time.Since(start)))
	}
	d.metrics.ObserveAPI(req.Method(), outcome)
	return res, err
}

func (d *Dispatcher) dispatch(ctx context.Context, req Request) (Result, error) {
	op, p := req.Operation, req.Params
	switch req.Resource {
	case ResourceAccount:
		return d.account(ctx, op, p)
	case ResourceTrustline:
		return d.trustline(ctx, op, p)
	case ResourcePayment:
		return d.payment(ctx, op, p)
	case ResourceDex:
		return d.dex(ctx, op, p)
	case ResourceEscrow:
		return d.escrow(ctx, op, p)
	case ResourceToken:
		return d.token(ctx, op, p)
	case ResourceTransaction:
		return d.transaction(ctx, op, p)
	case ResourceSubscription:
		return d.subscription(ctx, op, p)
	case ResourceCompliance:
		return d.compliance(ctx, op, p)
	case ResourceUtility:
		return d.utility(op, p)
	default:
		return nil, unsupported(req.Resource, op)
	}
}

func unsupported(resource, op string) error {
	return fmt.Errorf("%w: %s.%s", ErrUnsupported, resource, op)
}

// ErrorKind classifies err for error results and metrics.
func ErrorKind(err error) string {
	var pe *ParamError
	switch {
	case ledgererr.KindOf(err) != "":
		return string(ledgererr.KindOf(err))
	case errors.As(err, &pe):
		return "InvalidParams"
	case errors.Is(err, ErrUnsupported):
		return "Unsupported"
	case errors.Is(err, ErrNotConfigured):
		return "NotConfigured"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "Canceled"
	default:
		return "Error"
	}
}

// OutcomeError is a failed submission that still produced an outcome,
// e.g. a rejected or timed-out transaction with a known hash.
type OutcomeError struct {
	Outcome *submit.Outcome
	Err     error
}

func (e *OutcomeError) Error() string { return e.Err.Error() }

func (e *OutcomeError) Unwrap() error { return e.Err }

// ErrorResult is the per-item answer for a failed request.
func ErrorResult(err error) Result {
	res := Result{"error": err.Error(), "kind": ErrorKind(err)}
	if code := ledgererr.CodeOf(err); code != "" {
		res["code"] = code
	}
	var oe *OutcomeError
	if errors.As(err, &oe) && oe.Outcome != nil {
		res["outcome"] = oe.Outcome
	}
	return res
}

// toResult converts any JSON-encodable value into a Result. Slices and
// scalars are wrapped under key.
func toResult(key string, v any) (Result, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err == nil && obj != nil {
		return Result(obj), nil
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}
	return Result{key: generic}, nil
}

// outcome renders a submission result. A rejected or timed-out submission
// still carries its outcome alongside the error.
func outcome(out *submit.Outcome, err error) (Result, error) {
	if err != nil {
		if out != nil {
			return nil, &OutcomeError{Outcome: out, Err: err}
		}
		return nil, err
	}
	return toResult("outcome", out)
}

func (d *Dispatcher) xrpl() (XRPL, error) {
	if d.svc.XRPL == nil {
		return nil, fmt.Errorf("%w: consensus ledger", ErrNotConfigured)
	}
	return d.svc.XRPL, nil
}

func (d *Dispatcher) evm() (EVM, error) {
	if d.svc.EVM == nil {
		return nil, fmt.Errorf("%w: contract ledger", ErrNotConfigured)
	}
	return d.svc.EVM, nil
}
