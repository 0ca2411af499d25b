// Package book reads the RLUSD/XRP order book and prices it. All prices
// are XRP per RLUSD.
package book

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/LeJamon/goRLUSD/internal/core/amount"
	"github.com/LeJamon/goRLUSD/internal/metrics"
	"github.com/LeJamon/goRLUSD/internal/rpc"
)

// DefaultLimit is the per-side depth when the caller gives none.
const DefaultLimit = 20

// Querier runs one directional book query. *rpc.Client satisfies it.
type Querier interface {
	BookOffers(ctx context.Context, gets, pays rpc.Issue, limit int) ([]rpc.BookOffer, error)
}

// Entry is one priced offer. Amount and Total are in RLUSD.
type Entry struct {
	Price    string `json:"price"`
	Amount   string `json:"amount"`
	Total    string `json:"total"`
	Owner    string `json:"owner"`
	Sequence uint32 `json:"sequence"`
	Quality  string `json:"quality"`
}

// Book holds both sides, best price first. Bids are offers giving XRP for
// RLUSD; asks give RLUSD for XRP.
type Book struct {
	Bids []Entry `json:"bids"`
	Asks []Entry `json:"asks"`
}

// Engine queries one asset's book against XRP.
type Engine struct {
	q       Querier
	asset   rpc.Issue
	network string
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// Option configures an Engine.
type Option func(*Engine)

func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithMetrics records the spread of every complete book under network.
func WithMetrics(m *metrics.Metrics, network string) Option {
	return func(e *Engine) {
		e.metrics = m
		e.network = network
	}
}

func NewEngine(q Querier, asset rpc.Issue, opts ...Option) *Engine {
	e := &Engine{q: q, asset: asset, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// GetBook runs the bid and ask queries concurrently and returns at most
// limit entries per side in the order the node returned them.
func (e *Engine) GetBook(ctx context.Context, limit int) (*Book, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	var bids, asks []rpc.BookOffer
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		bids, err = e.q.BookOffers(gctx, rpc.XRPIssue, e.asset, limit)
		return err
	})
	g.Go(func() error {
		var err error
		asks, err = e.q.BookOffers(gctx, e.asset, rpc.XRPIssue, limit)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	b := &Book{
		Bids: e.side(bids, limit, true),
		Asks: e.side(asks, limit, false),
	}
	if len(b.Bids) > 0 && len(b.Asks) > 0 && e.metrics != nil {
		if s, err := Spread(b.Bids[0].Price, b.Asks[0].Price); err == nil {
			f, _ := s.AbsoluteFloat()
			e.metrics.SetBookSpread(e.network, f)
		}
	}
	return b, nil
}

// BestBidAsk returns the top of each side, nil for an empty side.
func (e *Engine) BestBidAsk(ctx context.Context) (bid, ask *Entry, err error) {
	b, err := e.GetBook(ctx, 1)
	if err != nil {
		return nil, nil, err
	}
	if len(b.Bids) > 0 {
		bid = &b.Bids[0]
	}
	if len(b.Asks) > 0 {
		ask = &b.Asks[0]
	}
	return bid, ask, nil
}

// side prices offers and accumulates the RLUSD total. On the bid side the
// asset is what takers pay; on the ask side it is what they get.
func (e *Engine) side(offers []rpc.BookOffer, limit int, bids bool) []Entry {
	if len(offers) > limit {
		offers = offers[:limit]
	}
	entries := make([]Entry, 0, len(offers))
	total := "0"
	for _, o := range offers {
		asset := o.TakerGets
		if bids {
			asset = o.TakerPays
		}
		price, err := Price(o.TakerGets, o.TakerPays, bids)
		if err != nil {
			e.logger.Warn("skipping unpriceable offer",
				zap.String("owner", o.Account), zap.Uint32("sequence", o.Sequence), zap.Error(err))
			continue
		}
		amt, err := asset.DisplayValue()
		if err != nil {
			continue
		}
		sum, err := amount.Add(total, amt)
		if err != nil {
			continue
		}
		total = sum
		entries = append(entries, Entry{
			Price:    price,
			Amount:   amt,
			Total:    total,
			Owner:    o.Account,
			Sequence: o.Sequence,
			Quality:  o.Quality,
		})
	}
	return entries
}
