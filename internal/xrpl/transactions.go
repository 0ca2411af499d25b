package xrpl

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/LeJamon/goRLUSD/internal/core/amount"
	"github.com/LeJamon/goRLUSD/internal/core/tx"
	"github.com/LeJamon/goRLUSD/internal/ledgererr"
	"github.com/LeJamon/goRLUSD/internal/submit"
)

// TrustLineRequest describes the wallet's RLUSD trust line. QualityIn and
// QualityOut are optional, 1e9 meaning face value.
type TrustLineRequest struct {
	Limit      string
	Options    tx.TrustSetOptions
	QualityIn  *uint32
	QualityOut *uint32
}

// PaymentRequest describes a token or XRP payment. Amount is in display
// units of the currency sent.
type PaymentRequest struct {
	Destination    string
	Amount         string
	DestinationTag *int64
	Memos          []tx.Memo
	Options        tx.PaymentOptions
	// SendMax caps the RLUSD spent; empty leaves it unset.
	SendMax string
}

// OfferRequest describes an RLUSD/XRP order. Price is XRP per RLUSD.
type OfferRequest struct {
	Side       tx.Side
	Amount     string
	Price      string
	Options    tx.OfferOptions
	Expiration *time.Time
	// Replace cancels the offer with this sequence in the same transaction.
	Replace *uint32
}

// EscrowRequest describes an XRP escrow. Amount is XRP.
type EscrowRequest struct {
	Destination    string
	Amount         string
	FinishAfter    *time.Time
	CancelAfter    *time.Time
	Condition      string
	DestinationTag *int64
}

// SetTrustLine creates or updates the RLUSD trust line of the wallet.
func (c *Client) SetTrustLine(ctx context.Context, req TrustLineRequest) (*submit.Outcome, error) {
	w, err := c.signer()
	if err != nil {
		return nil, err
	}
	return c.submit(ctx, w, c.trustSet(w.Address(), req))
}

func (c *Client) trustSet(account string, req TrustLineRequest) *tx.TrustSet {
	t := tx.NewTrustSet(account, c.asset.Currency, c.asset.Issuer, req.Limit, req.Options)
	t.QualityIn = req.QualityIn
	t.QualityOut = req.QualityOut
	return t
}

// RemoveTrustLine sets the limit to zero. The ledger deletes the line once
// its balance is zero and its flags are at their defaults.
func (c *Client) RemoveTrustLine(ctx context.Context) (*submit.Outcome, error) {
	return c.SetTrustLine(ctx, TrustLineRequest{Limit: "0"})
}

// SendToken pays RLUSD to req.Destination.
func (c *Client) SendToken(ctx context.Context, req PaymentRequest) (*submit.Outcome, error) {
	w, err := c.signer()
	if err != nil {
		return nil, err
	}
	value, err := amount.Normalize(req.Amount)
	if err != nil {
		return nil, err
	}
	p := tx.NewPayment(w.Address(), req.Destination, tx.Issued(c.asset.Currency, c.asset.Issuer, value), req.Options)
	p.DestinationTag = req.DestinationTag
	p.Memos = req.Memos
	if req.SendMax != "" {
		sendMax := tx.Issued(c.asset.Currency, c.asset.Issuer, req.SendMax)
		p.SendMax = &sendMax
	}
	return c.submit(ctx, w, p)
}

// SendXRP pays XRP to req.Destination.
func (c *Client) SendXRP(ctx context.Context, req PaymentRequest) (*submit.Outcome, error) {
	w, err := c.signer()
	if err != nil {
		return nil, err
	}
	drops, err := amount.ParseXRP(req.Amount)
	if err != nil {
		return nil, err
	}
	p := tx.NewPayment(w.Address(), req.Destination, tx.XRP(drops), req.Options)
	p.DestinationTag = req.DestinationTag
	p.Memos = req.Memos
	return c.submit(ctx, w, p)
}

// CreateOffer places an order for req.Amount RLUSD at req.Price. The XRP
// side is amount*price truncated to whole drops.
func (c *Client) CreateOffer(ctx context.Context, req OfferRequest) (*submit.Outcome, error) {
	w, err := c.signer()
	if err != nil {
		return nil, err
	}
	o, err := c.offer(w.Address(), req)
	if err != nil {
		return nil, err
	}
	return c.submit(ctx, w, o)
}

func (c *Client) offer(account string, req OfferRequest) (*tx.OfferCreate, error) {
	qty, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return nil, ledgererr.Wrap(ledgererr.KindInvalidAmount, err, "offer amount %q", req.Amount)
	}
	price, err := decimal.NewFromString(req.Price)
	if err != nil || !price.IsPositive() {
		return nil, ledgererr.New(ledgererr.KindInvalidAmount, "offer price must be positive: %q", req.Price)
	}
	drops, err := amount.ParseXRP(qty.Mul(price).String())
	if err != nil {
		return nil, err
	}

	o := tx.NewOffer(account, req.Side, tx.Issued(c.asset.Currency, c.asset.Issuer, qty.String()), drops, req.Options)
	o.Expiration = req.Expiration
	o.OfferSequence = req.Replace
	return o, nil
}

// CancelOffer withdraws the wallet's offer with sequence seq.
func (c *Client) CancelOffer(ctx context.Context, seq uint32) (*submit.Outcome, error) {
	w, err := c.signer()
	if err != nil {
		return nil, err
	}
	return c.submit(ctx, w, tx.NewOfferCancel(w.Address(), seq))
}

// CreateEscrow locks XRP for req.Destination.
func (c *Client) CreateEscrow(ctx context.Context, req EscrowRequest) (*submit.Outcome, error) {
	w, err := c.signer()
	if err != nil {
		return nil, err
	}
	drops, err := amount.ParseXRP(req.Amount)
	if err != nil {
		return nil, err
	}
	e := tx.NewEscrowCreate(w.Address(), req.Destination, drops)
	e.FinishAfter = req.FinishAfter
	e.CancelAfter = req.CancelAfter
	e.Condition = req.Condition
	e.DestinationTag = req.DestinationTag
	return c.submit(ctx, w, e)
}

// submit validates intent before touching the network, then hands it to
// the finality engine.
func (c *Client) submit(ctx context.Context, w *Wallet, intent tx.Intent) (*submit.Outcome, error) {
	if err := intent.Validate(); err != nil {
		return nil, err
	}
	r, err := c.ensure(ctx)
	if err != nil {
		return nil, err
	}
	out, err := c.submitter(r).Submit(ctx, intent, w)
	if out != nil {
		c.logger.Info("transaction finished",
			zap.String("type", intent.TxType().String()),
			zap.String("hash", out.Hash),
			zap.String("result", out.ResultCode),
			zap.Bool("success", out.Success))
	}
	return out, err
}
