package submit

import (
	"context"
	"errors"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/LeJamon/goRLUSD/internal/core/amount"
	"github.com/LeJamon/goRLUSD/internal/core/tx"
	"github.com/LeJamon/goRLUSD/internal/crypto"
	"github.com/LeJamon/goRLUSD/internal/ledgererr"
	"github.com/LeJamon/goRLUSD/internal/metrics"
	"github.com/LeJamon/goRLUSD/internal/rpc"
)

const (
	DefaultFee          = amount.XRPAmount(12)
	DefaultLedgerOffset = 20
	DefaultPollInterval = time.Second
)

// Signer signs a flattened consensus-ledger transaction, returning the
// hex blob and its hash.
type Signer interface {
	Address() string
	Sign(tx map[string]any) (blob, hash string, err error)
}

// XRPLOptions tune autofill and polling.
type XRPLOptions struct {
	// MaxFee caps the autofilled fee.
	MaxFee amount.XRPAmount
	// LedgerOffset is added to the current ledger index to form
	// LastLedgerSequence.
	LedgerOffset uint32
	PollInterval time.Duration
}

func (o *XRPLOptions) setDefaults() {
	if o.LedgerOffset == 0 {
		o.LedgerOffset = DefaultLedgerOffset
	}
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
}

// XRPL submits transactions to a consensus-ledger node and waits for
// validation.
type XRPL struct {
	client  *rpc.Client
	opts    XRPLOptions
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func NewXRPL(client *rpc.Client, opts XRPLOptions, logger *zap.Logger, m *metrics.Metrics) *XRPL {
	opts.setDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &XRPL{client: client, opts: opts, logger: logger, metrics: m}
}

// Submit builds, autofills, signs and sends intent, then blocks until the
// transaction is validated, provably expired, or ctx is done.
//
// A validated transaction returns its Outcome and a nil error even when the
// result is not tesSUCCESS. Locally final preliminary results return the
// Outcome with a SubmissionRejected error; expiry returns it with
// SubmissionTimedOut.
func (s *XRPL) Submit(ctx context.Context, intent tx.Intent, signer Signer) (*Outcome, error) {
	if signer == nil {
		return nil, ledgererr.New(ledgererr.KindNoCredential, "no consensus-ledger wallet loaded")
	}
	if intent.GetAccount() != signer.Address() {
		return nil, ledgererr.New(ledgererr.KindInvalidAddress,
			"transaction account %s does not match loaded wallet %s", intent.GetAccount(), signer.Address())
	}
	payload, err := tx.Build(intent)
	if err != nil {
		return nil, err
	}

	sub := newSubmission(ChainXRPL, s.logger.With(zap.String("type", intent.TxType().String())))

	lastLedger, err := s.autofill(ctx, payload, signer.Address())
	if err != nil {
		return nil, err
	}
	sub.advance(StateAutofilled,
		zap.Any("sequence", payload["Sequence"]),
		zap.Any("fee", payload["Fee"]),
		zap.Uint32("last_ledger", lastLedger))

	blob, hash, err := signer.Sign(payload)
	if err != nil {
		return nil, err
	}
	if hash == "" {
		if hash, err = crypto.TxHash(blob); err != nil {
			return nil, err
		}
	}
	sub.advance(StateSigned, zap.String("hash", hash))

	prelim, err := s.client.Submit(ctx, blob)
	if err != nil {
		return nil, wrapNetwork(err, "submit")
	}
	sub.advance(StateSubmitted, zap.String("engine_result", prelim.EngineResult))

	out := &Outcome{
		Hash:       hash,
		ResultCode: prelim.EngineResult,
		Message:    tx.Result(prelim.EngineResult).Message(),
		Chain:      ChainXRPL,
	}
	if fee, ok := payload["Fee"].(string); ok {
		out.Fee, _ = amount.DropsToXRP(fee)
	}

	if tx.Result(prelim.EngineResult).IsFinalLocally() {
		sub.advance(StateRejected)
		out.State = StateRejected
		s.metrics.ObserveSubmission(ChainXRPL, prelim.EngineResult, sub.elapsed())
		return out, ledgererr.Rejected(prelim.EngineResult, out.Message)
	}

	return s.await(ctx, sub, out, lastLedger)
}

// autofill sets Sequence, Fee and LastLedgerSequence on payload.
func (s *XRPL) autofill(ctx context.Context, payload map[string]any, account string) (uint32, error) {
	info, err := s.client.AccountInfo(ctx, account, "current")
	if err != nil {
		return 0, wrapNetwork(err, "account_info")
	}
	feeRes, err := s.client.Fee(ctx)
	if err != nil {
		return 0, wrapNetwork(err, "fee")
	}

	fee := DefaultFee
	if drops, err := amount.ParseDrops(feeRes.Drops.OpenLedgerFee); err == nil && drops.IsPositive() {
		fee = drops
	}
	if s.opts.MaxFee.IsPositive() && fee > s.opts.MaxFee {
		s.logger.Warn("open ledger fee above cap",
			zap.Stringer("fee", fee), zap.Stringer("max_fee", s.opts.MaxFee))
		fee = s.opts.MaxFee
	}

	current := feeRes.LedgerCurrentIndex
	if current == 0 {
		current = info.LedgerCurrentIndex
	}
	lastLedger := current + s.opts.LedgerOffset

	payload["Sequence"] = info.AccountData.Sequence
	payload["Fee"] = fee.String()
	payload["LastLedgerSequence"] = lastLedger
	return lastLedger, nil
}

// await polls until the transaction is in a validated ledger or can no
// longer be included.
func (s *XRPL) await(ctx context.Context, sub *submission, out *Outcome, lastLedger uint32) (*Outcome, error) {
	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return s.timedOut(sub, out, "stopped waiting for validation: "+ctx.Err().Error())
		case <-ticker.C:
		}

		res, err := s.client.Tx(ctx, out.Hash)
		switch {
		case err == nil && res.Validated:
			return s.validated(sub, out, res), nil
		case err != nil && !rpc.IsNotFound(err):
			if errors.Is(err, ctx.Err()) {
				continue
			}
			if ledgererr.KindOf(err) == ledgererr.KindNetworkUnavailable {
				return nil, err
			}
			s.logger.Debug("tx lookup failed", zap.String("hash", out.Hash), zap.Error(err))
		}

		state, err := s.client.ServerState(ctx)
		if err != nil {
			continue
		}
		if state.State.ValidatedLedger.Seq > lastLedger {
			return s.timedOut(sub, out, "LastLedgerSequence "+strconv.FormatUint(uint64(lastLedger), 10)+" passed without validation")
		}
	}
}

func (s *XRPL) validated(sub *submission, out *Outcome, res *rpc.TxResult) *Outcome {
	code := res.Meta.TransactionResult
	result := tx.Result(code)
	index := uint64(res.LedgerIndex)

	out.ResultCode = code
	out.Message = result.Message()
	out.Success = result.IsSuccess()
	out.Validated = true
	out.LedgerIndex = &index
	out.State = StateValidated
	if res.Fee != "" {
		out.Fee, _ = amount.DropsToXRP(res.Fee)
	}

	sub.advance(StateValidated, zap.String("result", code), zap.Uint64("ledger_index", index))
	s.metrics.ObserveSubmission(ChainXRPL, code, sub.elapsed())
	return out
}

func (s *XRPL) timedOut(sub *submission, out *Outcome, reason string) (*Outcome, error) {
	sub.advance(StateTimedOut, zap.String("reason", reason))
	out.State = StateTimedOut
	out.Success = false
	out.Message = reason
	s.metrics.ObserveSubmission(ChainXRPL, "timeout", sub.elapsed())
	return out, &ledgererr.Error{
		Kind:    ledgererr.KindSubmissionTimedOut,
		Code:    out.ResultCode,
		Message: reason + " (hash " + out.Hash + ")",
	}
}

func wrapNetwork(err error, command string) error {
	if ledgererr.KindOf(err) != "" || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var rpcErr *rpc.RpcError
	if errors.As(err, &rpcErr) {
		return err
	}
	return ledgererr.Wrap(ledgererr.KindNetworkUnavailable, err, "%s", command)
}
