package amount

import (
	"fmt"

	"github.com/LeJamon/goRLUSD/internal/ledgererr"
	"github.com/shopspring/decimal"
)

// XRPAmount is a quantity of the native currency in drops.
type XRPAmount int64

const DropsPerXRP XRPAmount = 1_000_000

func NewXRPAmount(drops int64) XRPAmount {
	return XRPAmount(drops)
}

// ParseXRP converts an XRP display amount to drops, truncating digits past
// the sixth decimal.
func ParseXRP(xrp string) (XRPAmount, error) {
	n, err := ToSmallestBig(xrp, NativeScale)
	if err != nil {
		return 0, err
	}
	if !n.IsInt64() {
		return 0, ledgererr.New(ledgererr.KindInvalidAmount, "XRP amount out of range: %s", xrp)
	}
	return XRPAmount(n.Int64()), nil
}

// ParseDrops parses an integral drops string.
func ParseDrops(drops string) (XRPAmount, error) {
	n, err := parseSmallest(drops)
	if err != nil {
		return 0, err
	}
	if !n.IsInt64() {
		return 0, ledgererr.New(ledgererr.KindInvalidAmount, "drops out of range: %s", drops)
	}
	return XRPAmount(n.Int64()), nil
}

func (x XRPAmount) Drops() int64 {
	return int64(x)
}

// DecimalXRP returns the exact XRP value.
func (x XRPAmount) DecimalXRP() decimal.Decimal {
	return decimal.New(int64(x), -NativeScale)
}

// XRP renders the amount in display units.
func (x XRPAmount) XRP() string {
	return x.DecimalXRP().String()
}

func (x XRPAmount) Add(other XRPAmount) XRPAmount {
	return x + other
}

func (x XRPAmount) Sub(other XRPAmount) XRPAmount {
	return x - other
}

func (x XRPAmount) Mul(factor int64) XRPAmount {
	return x * XRPAmount(factor)
}

func (x XRPAmount) IsPositive() bool {
	return x > 0
}

func (x XRPAmount) IsZero() bool {
	return x == 0
}

// String renders the drops value, which is the ledger wire form.
func (x XRPAmount) String() string {
	return fmt.Sprintf("%d", int64(x))
}
