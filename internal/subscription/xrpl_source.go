package subscription

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/LeJamon/goRLUSD/internal/core/tx"
	"github.com/LeJamon/goRLUSD/internal/rpc"
)

const ChainXRPL = "xrpl"

// StreamConn is a consensus-ledger connection that also pushes stream
// messages. *rpc.Conn satisfies it.
type StreamConn interface {
	rpc.Requester
	AddStreamHandler(h rpc.StreamHandler) (remove func())
	Close() error
}

// XRPLSource turns ledger and transaction stream messages into events.
type XRPLSource struct {
	conn     StreamConn
	client   *rpc.Client
	asset    rpc.Issue
	ownsConn bool
	logger   *zap.Logger

	mu       sync.Mutex
	remove   func()
	streams  []string
	accounts []string
}

type XRPLSourceOption func(*XRPLSource)

// OwnConn makes Stop close the connection after unsubscribing.
func OwnConn() XRPLSourceOption {
	return func(s *XRPLSource) { s.ownsConn = true }
}

func WithSourceLogger(l *zap.Logger) XRPLSourceOption {
	return func(s *XRPLSource) { s.logger = l }
}

// NewXRPLSource watches asset transfers on conn. Transfers of any other
// currency or issuer are ignored.
func NewXRPLSource(conn StreamConn, asset rpc.Issue, opts ...XRPLSourceOption) *XRPLSource {
	s := &XRPLSource{conn: conn, client: rpc.NewClient(conn), asset: asset, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start installs the stream handler first so nothing sent after the
// subscribe response is missed, then subscribes.
func (s *XRPLSource) Start(ctx context.Context, f Filter, feed Feed) error {
	var streams, accounts []string
	switch f.Kind {
	case KindLedger:
		streams = []string{"ledger"}
	case KindAccountTransfer:
		if f.WatchAddress != "" {
			accounts = []string{f.WatchAddress}
		} else {
			streams = []string{"transactions"}
		}
	default:
		return fmt.Errorf("consensus ledger cannot serve %q subscriptions", f.Kind)
	}

	remove := s.conn.AddStreamHandler(func(msg json.RawMessage) {
		if ev, ok := s.normalize(f.Kind, msg); ok {
			feed.Emit(ev)
		}
	})
	if err := s.client.Subscribe(ctx, streams, accounts); err != nil {
		remove()
		return err
	}

	s.mu.Lock()
	s.remove = remove
	s.streams = streams
	s.accounts = accounts
	s.mu.Unlock()
	return nil
}

// Stop removes the handler, unsubscribes, and disconnects if the source
// owns the connection.
func (s *XRPLSource) Stop(ctx context.Context) error {
	s.mu.Lock()
	remove := s.remove
	streams, accounts := s.streams, s.accounts
	s.remove = nil
	s.mu.Unlock()

	if remove == nil {
		return nil
	}
	remove()
	err := s.client.Unsubscribe(ctx, streams, accounts)
	if err != nil {
		s.logger.Debug("unsubscribe failed", zap.Error(err))
	}
	if s.ownsConn {
		if cerr := s.conn.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

func (s *XRPLSource) normalize(kind Kind, msg json.RawMessage) (Event, bool) {
	switch rpc.StreamType(msg) {
	case rpc.StreamLedgerClosed:
		if kind != KindLedger {
			return Event{}, false
		}
		var lc rpc.LedgerClosedEvent
		if err := json.Unmarshal(msg, &lc); err != nil {
			s.logger.Debug("bad ledger message", zap.Error(err))
			return Event{}, false
		}
		return LedgerEvent(lc), true

	case rpc.StreamTransaction:
		if kind != KindAccountTransfer {
			return Event{}, false
		}
		var te rpc.TransactionEvent
		if err := json.Unmarshal(msg, &te); err != nil {
			s.logger.Debug("bad transaction message", zap.Error(err))
			return Event{}, false
		}
		return TransferEvent(te, s.asset)
	}
	return Event{}, false
}

// LedgerEvent normalizes a ledgerClosed message.
func LedgerEvent(lc rpc.LedgerClosedEvent) Event {
	return Event{
		Type:      EventLedgerClosed,
		Chain:     ChainXRPL,
		Index:     uint64(lc.LedgerIndex),
		Hash:      lc.LedgerHash,
		TxCount:   lc.TxnCount,
		Timestamp: tx.FromRippleTime(lc.LedgerTime),
	}
}

// TransferEvent normalizes a validated, successful payment of asset. It
// reports false for anything else.
func TransferEvent(te rpc.TransactionEvent, asset rpc.Issue) (Event, bool) {
	if !te.Validated || te.Transaction.TransactionType != string(tx.TypePayment) {
		return Event{}, false
	}
	result := te.Meta.TransactionResult
	if result == "" {
		result = te.EngineResult
	}
	if !tx.Result(result).IsSuccess() {
		return Event{}, false
	}
	delivered := te.DeliveredAmount()
	if delivered == nil || delivered.IsNative() {
		return Event{}, false
	}
	if !tx.SameCurrency(delivered.Currency, asset.Currency) {
		return Event{}, false
	}
	if asset.Issuer != "" && delivered.Issuer != asset.Issuer {
		return Event{}, false
	}

	ts := time.Now().UTC()
	if te.Transaction.Date != 0 {
		ts = tx.FromRippleTime(te.Transaction.Date)
	}
	return Event{
		Type:           EventAssetTransfer,
		Chain:          ChainXRPL,
		Index:          uint64(te.LedgerIndex),
		Hash:           te.TxHash(),
		From:           te.Transaction.Account,
		To:             te.Transaction.Destination,
		Amount:         delivered.Value,
		Currency:       tx.DecodeCurrency(delivered.Currency),
		DestinationTag: te.Transaction.DestinationTag,
		Timestamp:      ts,
	}, true
}
