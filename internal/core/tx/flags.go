package tx

// TrustSet flags
const (
	TfSetfAuth      uint32 = 0x00010000
	TfSetNoRipple   uint32 = 0x00020000
	TfClearNoRipple uint32 = 0x00040000
	TfSetFreeze     uint32 = 0x00100000
	TfClearFreeze   uint32 = 0x00200000
)

// Payment flags
const (
	TfNoRippleDirect uint32 = 0x00010000
	TfPartialPayment uint32 = 0x00020000
	TfLimitQuality   uint32 = 0x00040000
)

// OfferCreate flags
const (
	TfPassive           uint32 = 0x00010000
	TfImmediateOrCancel uint32 = 0x00020000
	TfFillOrKill        uint32 = 0x00040000
	TfSell              uint32 = 0x00080000
)

// RippleState ledger entry flags, as reported in account_lines.
const (
	LsfLowAuth      uint32 = 0x00040000
	LsfHighAuth     uint32 = 0x00080000
	LsfLowNoRipple  uint32 = 0x00100000
	LsfHighNoRipple uint32 = 0x00200000
	LsfLowFreeze    uint32 = 0x00400000
	LsfHighFreeze   uint32 = 0x00800000
)

// TrustSetOptions are the named toggles of a TrustSet. Setting both halves
// of a set/clear pair is passed through; the ledger rejects it.
type TrustSetOptions struct {
	SetAuth       bool `json:"setAuth,omitempty"`
	SetNoRipple   bool `json:"setNoRipple,omitempty"`
	ClearNoRipple bool `json:"clearNoRipple,omitempty"`
	SetFreeze     bool `json:"setFreeze,omitempty"`
	ClearFreeze   bool `json:"clearFreeze,omitempty"`
}

// Flags composes the TrustSet bitmask.
func (o TrustSetOptions) Flags() uint32 {
	var f uint32
	if o.SetAuth {
		f |= TfSetfAuth
	}
	if o.SetNoRipple {
		f |= TfSetNoRipple
	}
	if o.ClearNoRipple {
		f |= TfClearNoRipple
	}
	if o.SetFreeze {
		f |= TfSetFreeze
	}
	if o.ClearFreeze {
		f |= TfClearFreeze
	}
	return f
}

// PaymentOptions are the named toggles of a Payment.
type PaymentOptions struct {
	NoRippleDirect bool `json:"noRippleDirect,omitempty"`
	PartialPayment bool `json:"partialPayment,omitempty"`
	LimitQuality   bool `json:"limitQuality,omitempty"`
}

// Flags composes the Payment bitmask.
func (o PaymentOptions) Flags() uint32 {
	var f uint32
	if o.NoRippleDirect {
		f |= TfNoRippleDirect
	}
	if o.PartialPayment {
		f |= TfPartialPayment
	}
	if o.LimitQuality {
		f |= TfLimitQuality
	}
	return f
}

// OfferOptions are the named toggles of an OfferCreate. FillOrKill together
// with ImmediateOrCancel is not rejected here; the ledger answers
// temINVALID_FLAG for it.
type OfferOptions struct {
	Passive           bool `json:"passive,omitempty"`
	ImmediateOrCancel bool `json:"immediateOrCancel,omitempty"`
	FillOrKill        bool `json:"fillOrKill,omitempty"`
	Sell              bool `json:"sell,omitempty"`
}

// Flags composes the OfferCreate bitmask.
func (o OfferOptions) Flags() uint32 {
	var f uint32
	if o.Passive {
		f |= TfPassive
	}
	if o.ImmediateOrCancel {
		f |= TfImmediateOrCancel
	}
	if o.FillOrKill {
		f |= TfFillOrKill
	}
	if o.Sell {
		f |= TfSell
	}
	return f
}

// LineFlags is the holder-side view of a trust line's state.
type LineFlags struct {
	Authorized bool `json:"authorized"`
	Frozen     bool `json:"frozen"`
	NoRipple   bool `json:"noRipple"`
}

// DecodeLineFlags interprets RippleState flags for the side the account is
// on. highSide is true when the account sorts above its peer; account_lines
// reports this indirectly, so callers usually prefer the booleans it
// already returns and use this for raw ledger entries.
func DecodeLineFlags(flags uint32, highSide bool) LineFlags {
	if highSide {
		return LineFlags{
			Authorized: flags&LsfHighAuth != 0,
			Frozen:     flags&LsfHighFreeze != 0,
			NoRipple:   flags&LsfHighNoRipple != 0,
		}
	}
	return LineFlags{
		Authorized: flags&LsfLowAuth != 0,
		Frozen:     flags&LsfLowFreeze != 0,
		NoRipple:   flags&LsfLowNoRipple != 0,
	}
}
