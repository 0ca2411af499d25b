package subscription

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"github.com/LeJamon/goRLUSD/internal/core/amount"
)

const ChainEVM = "evm"

// TransferTopic is the ERC-20 Transfer(address,address,uint256) event id.
var TransferTopic = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))

// LogSubscriber is the push API of a websocket Ethereum client.
// *ethclient.Client satisfies it.
type LogSubscriber interface {
	SubscribeNewHead(ctx context.Context, ch chan<- *types.Header) (ethereum.Subscription, error)
	SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error)
}

// EVMSource turns new heads and token Transfer logs into events.
type EVMSource struct {
	backend  LogSubscriber
	contract common.Address
	currency string
	decimals int32
	logger   *zap.Logger

	mu   sync.Mutex
	sub  ethereum.Subscription
	quit chan struct{}
	wg   sync.WaitGroup
}

func NewEVMSource(backend LogSubscriber, contract common.Address, currency string, decimals int32, logger *zap.Logger) *EVMSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EVMSource{backend: backend, contract: contract, currency: currency, decimals: decimals, logger: logger}
}

func (s *EVMSource) Start(ctx context.Context, f Filter, feed Feed) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sub != nil {
		return fmt.Errorf("source already started")
	}

	quit := make(chan struct{})
	switch f.Kind {
	case KindBlock:
		heads := make(chan *types.Header, 64)
		sub, err := s.backend.SubscribeNewHead(ctx, heads)
		if err != nil {
			return err
		}
		s.sub, s.quit = sub, quit
		s.wg.Add(1)
		go s.loop(sub, quit, feed, heads, nil)

	case KindContractTransfer:
		logs := make(chan types.Log, 256)
		q := ethereum.FilterQuery{
			Addresses: []common.Address{s.contract},
			Topics:    [][]common.Hash{{TransferTopic}},
		}
		sub, err := s.backend.SubscribeFilterLogs(ctx, q, logs)
		if err != nil {
			return err
		}
		s.sub, s.quit = sub, quit
		s.wg.Add(1)
		go s.loop(sub, quit, feed, nil, logs)

	default:
		return fmt.Errorf("contract ledger cannot serve %q subscriptions", f.Kind)
	}
	return nil
}

// loop reads one subscription until it errors or Stop closes quit. Only
// one of heads and logs is non-nil.
func (s *EVMSource) loop(sub ethereum.Subscription, quit chan struct{}, feed Feed, heads chan *types.Header, logs chan types.Log) {
	defer s.wg.Done()
	for {
		select {
		case <-quit:
			return
		case err := <-sub.Err():
			select {
			case <-quit:
				return
			default:
			}
			if err != nil {
				feed.Fail(err)
			}
			return
		case h := <-heads:
			if h != nil {
				feed.Emit(BlockEvent(h))
			}
		case l := <-logs:
			if ev, ok := s.TransferEvent(l); ok {
				feed.Emit(ev)
			}
		}
	}
}

// Stop unsubscribes and waits for the reader goroutine to exit.
func (s *EVMSource) Stop(context.Context) error {
	s.mu.Lock()
	sub, quit := s.sub, s.quit
	s.sub, s.quit = nil, nil
	s.mu.Unlock()

	if sub == nil {
		return nil
	}
	close(quit)
	sub.Unsubscribe()
	s.wg.Wait()
	return nil
}

// BlockEvent normalizes a new head.
func BlockEvent(h *types.Header) Event {
	var number uint64
	if h.Number != nil {
		number = h.Number.Uint64()
	}
	return Event{
		Type:      EventBlockProduced,
		Chain:     ChainEVM,
		Index:     number,
		Hash:      h.Hash().Hex(),
		Timestamp: time.Unix(int64(h.Time), 0).UTC(),
	}
}

// TransferEvent decodes a Transfer log of the watched contract.
func (s *EVMSource) TransferEvent(l types.Log) (Event, bool) {
	return DecodeTransfer(l, s.contract, s.currency, s.decimals)
}

// DecodeTransfer decodes an ERC-20 Transfer log emitted by contract.
// Removed logs from reorganized blocks are skipped.
func DecodeTransfer(l types.Log, contract common.Address, currency string, decimals int32) (Event, bool) {
	if l.Removed || l.Address != contract {
		return Event{}, false
	}
	if len(l.Topics) != 3 || l.Topics[0] != TransferTopic {
		return Event{}, false
	}
	from := common.BytesToAddress(l.Topics[1].Bytes())
	to := common.BytesToAddress(l.Topics[2].Bytes())
	value := new(big.Int).SetBytes(l.Data)

	return Event{
		Type:     EventAssetTransfer,
		Chain:    ChainEVM,
		Index:    l.BlockNumber,
		Hash:     l.TxHash.Hex(),
		From:     from.Hex(),
		To:       to.Hex(),
		Amount:   amount.BigToDisplay(value, decimals),
		Currency: currency,
	}, true
}
