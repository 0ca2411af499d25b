package tx

import "github.com/LeJamon/goRLUSD/internal/ledgererr"

// Payment moves XRP or an issued currency to a destination.
type Payment struct {
	BaseTx

	Destination    string
	Amount         Amount
	DestinationTag *int64

	// SendMax caps what the sender spends on a cross-currency or partial
	// payment.
	SendMax *Amount
}

// NewPayment creates a Payment with flags composed from opts.
func NewPayment(account, destination string, amt Amount, opts PaymentOptions) *Payment {
	return &Payment{
		BaseTx:      BaseTx{Account: account, Flags: opts.Flags()},
		Destination: destination,
		Amount:      amt,
	}
}

func (p *Payment) TxType() Type {
	return TypePayment
}

// Validate checks the counterparties, amount and tag.
func (p *Payment) Validate() error {
	if err := p.BaseTx.Validate(); err != nil {
		return err
	}
	if err := ValidateXRPLAddress("Destination", p.Destination); err != nil {
		return err
	}
	if p.Destination == p.Account && p.Amount.IsNative() {
		return ledgererr.Malformed("temREDUNDANT", "XRP payment to self")
	}
	if err := validateDestinationTag(p.DestinationTag); err != nil {
		return err
	}
	if err := p.Amount.validate("Amount", false); err != nil {
		return err
	}
	if p.SendMax != nil {
		if err := p.SendMax.validate("SendMax", false); err != nil {
			return err
		}
	}
	if p.Flags&TfPartialPayment != 0 && p.Amount.IsNative() && (p.SendMax == nil || p.SendMax.IsNative()) {
		return ledgererr.New(ledgererr.KindInvalidAmount, "partial payment of XRP for XRP is not allowed")
	}
	return nil
}

// Flatten returns the wire payload.
func (p *Payment) Flatten() (map[string]any, error) {
	m := p.toMap(TypePayment)
	m["Destination"] = p.Destination
	m["Amount"] = p.Amount.Flatten()
	if p.DestinationTag != nil {
		m["DestinationTag"] = uint32(*p.DestinationTag)
	}
	if p.SendMax != nil {
		m["SendMax"] = p.SendMax.Flatten()
	}
	return m, nil
}
