package submit

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"github.com/LeJamon/goRLUSD/internal/core/amount"
	"github.com/LeJamon/goRLUSD/internal/ledgererr"
	"github.com/LeJamon/goRLUSD/internal/metrics"
)

// Gas limits used when estimation fails.
const (
	FallbackGasTransfer     uint64 = 65000
	FallbackGasApprove      uint64 = 50000
	FallbackGasTransferFrom uint64 = 80000
)

// EVMBackend is the subset of an Ethereum JSON-RPC client the submitter
// needs. *ethclient.Client satisfies it.
type EVMBackend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// Call is a contract call to be sent as a transaction.
type Call struct {
	// Method names the call in logs and metrics, e.g. "transfer".
	Method      string
	To          common.Address
	Data        []byte
	Value       *big.Int
	FallbackGas uint64
}

// EVM submits contract calls and waits for their receipts.
type EVM struct {
	backend      EVMBackend
	pollInterval time.Duration
	logger       *zap.Logger
	metrics      *metrics.Metrics
}

func NewEVM(backend EVMBackend, pollInterval time.Duration, logger *zap.Logger, m *metrics.Metrics) *EVM {
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EVM{backend: backend, pollInterval: pollInterval, logger: logger, metrics: m}
}

// Submit signs call with key, sends it, and blocks until it is mined or
// ctx is done. A mined but reverted transaction returns an unsuccessful
// Outcome and a nil error.
func (s *EVM) Submit(ctx context.Context, key *ecdsa.PrivateKey, call Call) (*Outcome, error) {
	if key == nil {
		return nil, ledgererr.New(ledgererr.KindNoCredential, "no contract-ledger key loaded")
	}
	from := crypto.PubkeyToAddress(key.PublicKey)
	value := call.Value
	if value == nil {
		value = new(big.Int)
	}

	sub := newSubmission(ChainEVM, s.logger.With(zap.String("method", call.Method)))

	chainID, err := s.backend.ChainID(ctx)
	if err != nil {
		return nil, evmNetwork(err, "chain id")
	}
	nonce, err := s.backend.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, evmNetwork(err, "nonce")
	}
	gasPrice, err := s.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, evmNetwork(err, "gas price")
	}
	gas, err := s.backend.EstimateGas(ctx, ethereum.CallMsg{
		From:  from,
		To:    &call.To,
		Value: value,
		Data:  call.Data,
	})
	if err != nil || gas == 0 {
		s.logger.Warn("gas estimation failed, using fallback",
			zap.Uint64("fallback", call.FallbackGas), zap.Error(err))
		gas = call.FallbackGas
	}
	sub.advance(StateAutofilled, zap.Uint64("nonce", nonce), zap.Uint64("gas", gas), zap.Stringer("gas_price", gasPrice))

	unsigned := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &call.To,
		Value:    value,
		Gas:      gas,
		GasPrice: gasPrice,
		Data:     call.Data,
	})
	signed, err := types.SignTx(unsigned, types.LatestSignerForChainID(chainID), key)
	if err != nil {
		return nil, err
	}
	hash := signed.Hash()
	sub.advance(StateSigned, zap.String("hash", hash.Hex()))

	out := &Outcome{Hash: hash.Hex(), Chain: ChainEVM}

	if err := s.backend.SendTransaction(ctx, signed); err != nil {
		sub.advance(StateRejected, zap.Error(err))
		out.State = StateRejected
		out.ResultCode = "rejected"
		out.Message = err.Error()
		s.metrics.ObserveSubmission(ChainEVM, "rejected", sub.elapsed())
		return out, &ledgererr.Error{Kind: ledgererr.KindSubmissionRejected, Code: "rejected", Message: err.Error(), Err: err}
	}
	sub.advance(StateSubmitted)

	receipt, err := s.waitMined(ctx, hash)
	if err != nil {
		sub.advance(StateTimedOut, zap.Error(err))
		out.State = StateTimedOut
		out.ResultCode = "pending"
		out.Message = "stopped waiting for receipt: " + err.Error()
		s.metrics.ObserveSubmission(ChainEVM, "timeout", sub.elapsed())
		return out, ledgererr.Wrap(ledgererr.KindSubmissionTimedOut, err, "transaction %s not mined", hash.Hex())
	}

	price := receipt.EffectiveGasPrice
	if price == nil {
		price = gasPrice
	}
	fee := new(big.Int).Mul(new(big.Int).SetUint64(receipt.GasUsed), price)
	block := receipt.BlockNumber.Uint64()

	out.Success = receipt.Status == types.ReceiptStatusSuccessful
	out.ResultCode = "success"
	out.Message = "Transaction mined."
	if !out.Success {
		out.ResultCode = "reverted"
		out.Message = "Transaction reverted."
	}
	out.LedgerIndex = &block
	out.Validated = true
	out.State = StateValidated
	out.GasUsed = receipt.GasUsed
	out.EffectiveGasPrice = price.String()
	out.Fee = amount.BigToDisplay(fee, amount.TokenScale)

	sub.advance(StateValidated, zap.String("result", out.ResultCode), zap.Uint64("block", block))
	s.metrics.ObserveSubmission(ChainEVM, out.ResultCode, sub.elapsed())
	return out, nil
}

// waitMined polls for the receipt of hash.
func (s *EVM) waitMined(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()
	for {
		receipt, err := s.backend.TransactionReceipt(ctx, hash)
		if err == nil && receipt != nil {
			return receipt, nil
		}
		if err != nil && !errors.Is(err, ethereum.NotFound) {
			s.logger.Debug("receipt lookup failed", zap.String("hash", hash.Hex()), zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func evmNetwork(err error, what string) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return ledgererr.Wrap(ledgererr.KindNetworkUnavailable, err, "%s", what)
}
