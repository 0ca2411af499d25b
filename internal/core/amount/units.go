// Package amount converts ledger amounts between their smallest indivisible
// unit (drops, token base units) and the human display unit, and provides
// exact decimal arithmetic over display-unit strings.
package amount

import (
	"math"
	"math/big"
	"strings"

	"github.com/LeJamon/goRLUSD/internal/ledgererr"
	"github.com/shopspring/decimal"
)

const (
	// NativeScale is the number of decimals between drops and XRP.
	NativeScale int32 = 6
	// TokenScale is the number of decimals between token base units and
	// whole RLUSD on the contract ledger.
	TokenScale int32 = 18
)

// ToDisplay divides an integral smallest-unit quantity by 10^scale.
// The result is exact and carries no trailing zeros ("1000000", 6 -> "1").
// Fractional, negative or non-numeric input fails with InvalidAmount.
func ToDisplay(smallest string, scale int32) (string, error) {
	n, err := parseSmallest(smallest)
	if err != nil {
		return "", err
	}
	return BigToDisplay(n, scale), nil
}

// BigToDisplay is ToDisplay for an already-parsed integer.
func BigToDisplay(n *big.Int, scale int32) string {
	return decimal.NewFromBigInt(n, -scale).String()
}

// ToSmallest multiplies a display amount by 10^scale and truncates toward
// zero. This step is lossy by design: ledgers only accept integral smallest
// units, so any digits beyond the scale are discarded, never rounded up.
func ToSmallest(display string, scale int32) (string, error) {
	n, err := ToSmallestBig(display, scale)
	if err != nil {
		return "", err
	}
	return n.String(), nil
}

// ToSmallestBig is ToSmallest returning the integer form.
func ToSmallestBig(display string, scale int32) (*big.Int, error) {
	d, err := parseDisplay(display)
	if err != nil {
		return nil, err
	}
	if d.IsNegative() {
		return nil, ledgererr.New(ledgererr.KindInvalidAmount, "amount must not be negative: %s", display)
	}
	return d.Shift(scale).BigInt(), nil
}

// FloatToSmallest converts a binary floating point display amount. The
// float is first rendered with the shortest decimal representation that
// round-trips, so only the digits the caller literally supplied survive;
// anything finer than that is lost before the truncating shift.
func FloatToSmallest(display float64, scale int32) (string, error) {
	if math.IsNaN(display) || math.IsInf(display, 0) {
		return "", ledgererr.New(ledgererr.KindInvalidAmount, "amount is not finite")
	}
	return ToSmallest(decimal.NewFromFloat(display).String(), scale)
}

// DropsToXRP converts drops to an XRP display string.
func DropsToXRP(drops string) (string, error) {
	return ToDisplay(drops, NativeScale)
}

// XRPToDrops converts an XRP display amount to drops, truncating.
func XRPToDrops(xrp string) (string, error) {
	return ToSmallest(xrp, NativeScale)
}

// WeiToToken converts token base units to an RLUSD display string.
func WeiToToken(wei string) (string, error) {
	return ToDisplay(wei, TokenScale)
}

// TokenToWei converts an RLUSD display amount to token base units, truncating.
func TokenToWei(token string) (string, error) {
	return ToSmallest(token, TokenScale)
}

func parseSmallest(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, ledgererr.New(ledgererr.KindInvalidAmount, "not an integral smallest-unit amount: %q", s)
	}
	if n.Sign() < 0 {
		return nil, ledgererr.New(ledgererr.KindInvalidAmount, "amount must not be negative: %s", s)
	}
	return n, nil
}

func parseDisplay(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, ledgererr.Wrap(ledgererr.KindInvalidAmount, err, "not a decimal amount: %q", s)
	}
	return d, nil
}
