package tx

import (
	"fmt"
	"time"

	"github.com/LeJamon/goRLUSD/internal/core/amount"
	"github.com/LeJamon/goRLUSD/internal/ledgererr"
)

// Side is the direction of an order relative to the issued asset.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// ParseSide accepts "buy" or "sell".
func ParseSide(s string) (Side, error) {
	switch Side(s) {
	case SideBuy, SideSell:
		return Side(s), nil
	default:
		return "", fmt.Errorf("unknown order side %q", s)
	}
}

// OfferCreate places an order on the built-in exchange. TakerGets is what
// the offer owner gives up; TakerPays is what the owner wants in return.
type OfferCreate struct {
	BaseTx

	TakerGets  Amount
	TakerPays  Amount
	Expiration *time.Time

	// OfferSequence replaces an existing offer atomically when set.
	OfferSequence *uint32
}

// NewOffer builds an order trading asset against XRP. Buying the asset
// offers XRP and receives the asset; selling inverts both sides.
func NewOffer(account string, side Side, asset Amount, xrp amount.XRPAmount, opts OfferOptions) *OfferCreate {
	o := &OfferCreate{BaseTx: BaseTx{Account: account, Flags: opts.Flags()}}
	switch side {
	case SideSell:
		o.TakerGets = asset
		o.TakerPays = XRP(xrp)
	default:
		o.TakerGets = XRP(xrp)
		o.TakerPays = asset
	}
	return o
}

// NewBuyOffer offers xrp in exchange for asset.
func NewBuyOffer(account string, asset Amount, xrp amount.XRPAmount, opts OfferOptions) *OfferCreate {
	return NewOffer(account, SideBuy, asset, xrp, opts)
}

// NewSellOffer offers asset in exchange for xrp.
func NewSellOffer(account string, asset Amount, xrp amount.XRPAmount, opts OfferOptions) *OfferCreate {
	return NewOffer(account, SideSell, asset, xrp, opts)
}

func (o *OfferCreate) TxType() Type {
	return TypeOfferCreate
}

// Validate checks both sides of the offer.
func (o *OfferCreate) Validate() error {
	if err := o.BaseTx.Validate(); err != nil {
		return err
	}
	if err := o.TakerGets.validate("TakerGets", false); err != nil {
		return err
	}
	if err := o.TakerPays.validate("TakerPays", false); err != nil {
		return err
	}
	if o.TakerGets.IsNative() && o.TakerPays.IsNative() {
		return ledgererr.Malformed("temBAD_OFFER", "XRP for XRP offer")
	}
	if o.Expiration != nil && !o.Expiration.After(RippleEpoch) {
		return ledgererr.Malformed("temBAD_EXPIRATION", "expiration before the ledger epoch")
	}
	return nil
}

// Flatten returns the wire payload.
func (o *OfferCreate) Flatten() (map[string]any, error) {
	m := o.toMap(TypeOfferCreate)
	m["TakerGets"] = o.TakerGets.Flatten()
	m["TakerPays"] = o.TakerPays.Flatten()
	if o.Expiration != nil {
		m["Expiration"] = ToRippleTime(*o.Expiration)
	}
	if o.OfferSequence != nil {
		m["OfferSequence"] = *o.OfferSequence
	}
	return m, nil
}

// OfferCancel withdraws a resting offer by its sequence number.
type OfferCancel struct {
	BaseTx

	OfferSequence uint32
}

// NewOfferCancel creates an OfferCancel.
func NewOfferCancel(account string, offerSequence uint32) *OfferCancel {
	return &OfferCancel{
		BaseTx:        BaseTx{Account: account},
		OfferSequence: offerSequence,
	}
}

func (o *OfferCancel) TxType() Type {
	return TypeOfferCancel
}

func (o *OfferCancel) Validate() error {
	if err := o.BaseTx.Validate(); err != nil {
		return err
	}
	if o.OfferSequence == 0 {
		return ledgererr.Malformed("temBAD_SEQUENCE", "offer sequence must be non-zero")
	}
	return nil
}

func (o *OfferCancel) Flatten() (map[string]any, error) {
	m := o.toMap(TypeOfferCancel)
	m["OfferSequence"] = o.OfferSequence
	return m, nil
}
