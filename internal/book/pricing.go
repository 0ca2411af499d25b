package book

import (
	"github.com/shopspring/decimal"

	"github.com/LeJamon/goRLUSD/internal/core/tx"
	"github.com/LeJamon/goRLUSD/internal/ledgererr"
)

const (
	priceDigits   = 8
	percentDigits = 4
)

var hundred = decimal.NewFromInt(100)

// Quality is pays/gets, or "0" when gets is zero.
func Quality(pays, gets string) (string, error) {
	p, err := parse(pays)
	if err != nil {
		return "", err
	}
	g, err := parse(gets)
	if err != nil {
		return "", err
	}
	if g.IsZero() {
		return "0", nil
	}
	return p.Div(g).String(), nil
}

// Price divides pays by gets after converting both to display units, to 8
// fractional digits. invert divides gets by pays instead. A zero divisor
// prices at "0".
func Price(gets, pays tx.Amount, invert bool) (string, error) {
	g, err := displayDecimal(gets)
	if err != nil {
		return "", err
	}
	p, err := displayDecimal(pays)
	if err != nil {
		return "", err
	}
	num, den := p, g
	if invert {
		num, den = g, p
	}
	if den.IsZero() {
		return decimal.Zero.StringFixed(priceDigits), nil
	}
	return num.DivRound(den, priceDigits).StringFixed(priceDigits), nil
}

// SpreadResult is the distance between the best bid and ask.
type SpreadResult struct {
	Absolute   string `json:"absolute"`
	Percentage string `json:"percentage"`
}

// AbsoluteFloat returns Absolute for gauges.
func (s SpreadResult) AbsoluteFloat() (float64, bool) {
	d, err := decimal.NewFromString(s.Absolute)
	if err != nil {
		return 0, false
	}
	return d.Float64()
}

// Spread returns ask-bid and the same relative to bid in percent. The
// percentage is "0" when bid is zero.
func Spread(bid, ask string) (SpreadResult, error) {
	b, err := parse(bid)
	if err != nil {
		return SpreadResult{}, err
	}
	a, err := parse(ask)
	if err != nil {
		return SpreadResult{}, err
	}
	abs := a.Sub(b)
	pct := decimal.Zero
	if !b.IsZero() {
		pct = abs.Div(b).Mul(hundred)
	}
	return SpreadResult{
		Absolute:   abs.StringFixed(priceDigits),
		Percentage: pct.StringFixed(percentDigits),
	}, nil
}

// Midpoint is the mean of bid and ask to 8 fractional digits.
func Midpoint(bid, ask string) (string, error) {
	b, err := parse(bid)
	if err != nil {
		return "", err
	}
	a, err := parse(ask)
	if err != nil {
		return "", err
	}
	return b.Add(a).Div(decimal.NewFromInt(2)).StringFixed(priceDigits), nil
}

func displayDecimal(a tx.Amount) (decimal.Decimal, error) {
	v, err := a.DisplayValue()
	if err != nil {
		return decimal.Zero, err
	}
	return parse(v)
}

func parse(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ledgererr.Wrap(ledgererr.KindInvalidAmount, err, "not a decimal: %q", s)
	}
	return d, nil
}
