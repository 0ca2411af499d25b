package tx

import (
	"fmt"

	"github.com/LeJamon/goRLUSD/internal/core/amount"
	"github.com/LeJamon/goRLUSD/internal/ledgererr"
)

// TrustSet creates, modifies or (with a zero limit) clears a trust line.
type TrustSet struct {
	BaseTx

	// Currency and Issuer identify the line; Limit is a display amount.
	Currency string
	Issuer   string
	Limit    string

	// QualityIn/QualityOut are optional hints, 1e9 meaning 1:1.
	QualityIn  *uint32
	QualityOut *uint32
}

// NewTrustSet creates a TrustSet with flags composed from opts.
func NewTrustSet(account, currency, issuer, limit string, opts TrustSetOptions) *TrustSet {
	return &TrustSet{
		BaseTx:   BaseTx{Account: account, Flags: opts.Flags()},
		Currency: currency,
		Issuer:   issuer,
		Limit:    limit,
	}
}

func (t *TrustSet) TxType() Type {
	return TypeTrustSet
}

// Validate checks the line identity and limit.
func (t *TrustSet) Validate() error {
	if err := t.BaseTx.Validate(); err != nil {
		return err
	}
	if t.Currency == "" || t.Currency == NativeCurrency {
		return ledgererr.Malformed("temBAD_CURRENCY", "trust lines need an issued currency, got %q", t.Currency)
	}
	if err := ValidateXRPLAddress("Issuer", t.Issuer); err != nil {
		return err
	}
	if t.Issuer == t.Account {
		return ledgererr.New(ledgererr.KindInvalidAddress, "cannot create a trust line to self")
	}
	sign, err := amount.Sign(t.Limit)
	if err != nil {
		return fmt.Errorf("LimitAmount: %w", err)
	}
	if sign < 0 {
		return ledgererr.New(ledgererr.KindInvalidAmount, "trust line limit must not be negative: %s", t.Limit)
	}
	return nil
}

// Flatten returns the wire payload.
func (t *TrustSet) Flatten() (map[string]any, error) {
	limit, err := amount.Normalize(t.Limit)
	if err != nil {
		return nil, err
	}
	m := t.toMap(TypeTrustSet)
	m["LimitAmount"] = Issued(t.Currency, t.Issuer, limit).Flatten()
	if t.QualityIn != nil {
		m["QualityIn"] = *t.QualityIn
	}
	if t.QualityOut != nil {
		m["QualityOut"] = *t.QualityOut
	}
	return m, nil
}
