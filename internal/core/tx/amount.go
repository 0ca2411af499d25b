package tx

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/LeJamon/goRLUSD/internal/core/amount"
	"github.com/LeJamon/goRLUSD/internal/ledgererr"
)

// NativeCurrency is the code of the consensus ledger's own currency.
const NativeCurrency = "XRP"

// Amount is either a native amount in drops (Currency empty) or an issued
// currency triple. Value holds drops for native amounts and a display
// decimal for issued ones.
type Amount struct {
	Value    string `json:"value"`
	Currency string `json:"currency,omitempty"`
	Issuer   string `json:"issuer,omitempty"`
}

// XRP returns a native amount.
func XRP(drops amount.XRPAmount) Amount {
	return Amount{Value: drops.String()}
}

// Issued returns an issued currency amount.
func Issued(currency, issuer, value string) Amount {
	return Amount{Value: value, Currency: currency, Issuer: issuer}
}

// IsNative reports whether the amount is in the native currency.
func (a Amount) IsNative() bool {
	return a.Currency == "" || a.Currency == NativeCurrency
}

// DisplayValue returns the amount in display units: XRP for native
// amounts, the issued value otherwise.
func (a Amount) DisplayValue() (string, error) {
	if a.IsNative() {
		return amount.DropsToXRP(a.Value)
	}
	return a.Value, nil
}

// Flatten renders the wire form: a drops string or a currency object.
func (a Amount) Flatten() any {
	if a.IsNative() {
		return a.Value
	}
	return map[string]any{
		"currency": EncodeCurrency(a.Currency),
		"issuer":   a.Issuer,
		"value":    a.Value,
	}
}

// validate checks the amount for use as a transaction field. allowZero
// permits a zero value (trust line limits).
func (a Amount) validate(field string, allowZero bool) error {
	if a.IsNative() {
		drops, err := amount.ParseDrops(a.Value)
		if err != nil {
			return fmt.Errorf("%s: %w", field, err)
		}
		if !allowZero && drops.IsZero() {
			return ledgererr.New(ledgererr.KindInvalidAmount, "%s must be positive", field)
		}
		return nil
	}
	sign, err := amount.Sign(a.Value)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if sign < 0 || (sign == 0 && !allowZero) {
		return ledgererr.New(ledgererr.KindInvalidAmount, "%s must be positive: %s", field, a.Value)
	}
	return ValidateXRPLAddress(field+".issuer", a.Issuer)
}

// ParseAmount decodes an amount as returned by the server: a drops string
// or a currency object.
func ParseAmount(raw json.RawMessage) (Amount, error) {
	var drops string
	if err := json.Unmarshal(raw, &drops); err == nil {
		return Amount{Value: drops}, nil
	}

	var issued struct {
		Currency string `json:"currency"`
		Issuer   string `json:"issuer"`
		Value    string `json:"value"`
	}
	if err := json.Unmarshal(raw, &issued); err != nil {
		return Amount{}, fmt.Errorf("decoding amount: %w", err)
	}
	return Amount{
		Value:    issued.Value,
		Currency: DecodeCurrency(issued.Currency),
		Issuer:   issued.Issuer,
	}, nil
}

// UnmarshalJSON accepts both wire forms.
func (a *Amount) UnmarshalJSON(data []byte) error {
	parsed, err := ParseAmount(data)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// MarshalJSON emits the wire form.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.Flatten())
}

// EncodeCurrency returns the wire form of a currency code. Three-letter
// codes pass through; longer codes are hex-encoded and zero-padded to 160
// bits.
func EncodeCurrency(code string) string {
	if len(code) == 3 || isHexCurrency(code) {
		return strings.ToUpper(code)
	}
	b := make([]byte, 20)
	copy(b, code)
	return strings.ToUpper(hex.EncodeToString(b))
}

// DecodeCurrency reverses EncodeCurrency for printable ASCII codes and
// returns anything else unchanged.
func DecodeCurrency(code string) string {
	if !isHexCurrency(code) {
		return code
	}
	b, err := hex.DecodeString(code)
	if err != nil {
		return code
	}
	b = []byte(strings.TrimRight(string(b), "\x00"))
	if len(b) == 0 {
		return code
	}
	for _, c := range b {
		if c < 0x20 || c > 0x7e {
			return strings.ToUpper(code)
		}
	}
	return string(b)
}

// SameCurrency compares two codes in either form.
func SameCurrency(a, b string) bool {
	return EncodeCurrency(a) == EncodeCurrency(b)
}

func isHexCurrency(code string) bool {
	if len(code) != 40 {
		return false
	}
	_, err := hex.DecodeString(code)
	return err == nil
}
