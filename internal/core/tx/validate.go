package tx

import (
	"math"
	"regexp"

	"github.com/LeJamon/goRLUSD/internal/ledgererr"
)

// MaxDestinationTag is the largest value a 32-bit destination tag can hold.
const MaxDestinationTag = math.MaxUint32

var (
	xrplAddressPattern = regexp.MustCompile(`^r[1-9A-HJ-NP-Za-km-z]{24,34}$`)
	evmAddressPattern  = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)
)

// IsValidXRPLAddress reports whether addr looks like a classic address.
func IsValidXRPLAddress(addr string) bool {
	return xrplAddressPattern.MatchString(addr)
}

// IsValidEVMAddress reports whether addr is a 20-byte hex address.
func IsValidEVMAddress(addr string) bool {
	return evmAddressPattern.MatchString(addr)
}

// ValidateXRPLAddress returns InvalidAddress naming field when addr is not
// a classic address.
func ValidateXRPLAddress(field, addr string) error {
	if !IsValidXRPLAddress(addr) {
		return ledgererr.New(ledgererr.KindInvalidAddress, "%s is not a valid XRPL address: %q", field, addr)
	}
	return nil
}

// ValidateEVMAddress returns InvalidAddress naming field when addr is not a
// contract-ledger address.
func ValidateEVMAddress(field, addr string) error {
	if !IsValidEVMAddress(addr) {
		return ledgererr.New(ledgererr.KindInvalidAddress, "%s is not a valid EVM address: %q", field, addr)
	}
	return nil
}

// IsValidDestinationTag reports whether tag fits an unsigned 32-bit field.
func IsValidDestinationTag(tag int64) bool {
	return tag >= 0 && tag <= MaxDestinationTag
}

// ValidateDestinationTagFloat checks a tag supplied as a JSON number, which
// must also be integral.
func ValidateDestinationTagFloat(tag float64) (uint32, error) {
	if math.IsNaN(tag) || math.IsInf(tag, 0) || tag != math.Trunc(tag) {
		return 0, ledgererr.New(ledgererr.KindInvalidDestinationTag, "destination tag must be an integer: %v", tag)
	}
	if tag < 0 || tag > MaxDestinationTag {
		return 0, ledgererr.New(ledgererr.KindInvalidDestinationTag, "destination tag out of range: %v", tag)
	}
	return uint32(tag), nil
}

func validateDestinationTag(tag *int64) error {
	if tag != nil && !IsValidDestinationTag(*tag) {
		return ledgererr.New(ledgererr.KindInvalidDestinationTag, "destination tag out of range: %d", *tag)
	}
	return nil
}
