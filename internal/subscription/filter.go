package subscription

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/LeJamon/goRLUSD/internal/core/tx"
	"github.com/LeJamon/goRLUSD/internal/ledgererr"
)

// Kind selects the feed a subscription listens to.
type Kind string

const (
	KindLedger           Kind = "ledger"
	KindBlock            Kind = "block"
	KindAccountTransfer  Kind = "account_transfer"
	KindContractTransfer Kind = "contract_transfer"
)

// Direction restricts transfers relative to the watched address.
type Direction string

const (
	DirectionAny      Direction = "any"
	DirectionIncoming Direction = "incoming"
	DirectionOutgoing Direction = "outgoing"
)

// ParseDirection accepts the direction names and the ERC-20 style aliases
// "transfer", "transferTo" and "transferFrom".
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "", "any", "transfer":
		return DirectionAny, nil
	case "incoming", "in", "transferTo":
		return DirectionIncoming, nil
	case "outgoing", "out", "transferFrom":
		return DirectionOutgoing, nil
	default:
		return "", fmt.Errorf("unknown direction %q", s)
	}
}

// Filter describes which events a subscription forwards. MinAmount is in
// display units; empty means no threshold.
type Filter struct {
	Kind         Kind      `json:"kind"`
	WatchAddress string    `json:"watchAddress,omitempty"`
	MinAmount    string    `json:"minAmount,omitempty"`
	Direction    Direction `json:"direction,omitempty"`
}

// Validate checks the filter and fills defaults.
func (f *Filter) Validate() error {
	switch f.Kind {
	case KindLedger, KindBlock:
		return nil
	case KindAccountTransfer:
		if f.WatchAddress != "" {
			if err := tx.ValidateXRPLAddress("watchAddress", f.WatchAddress); err != nil {
				return err
			}
		}
	case KindContractTransfer:
		if f.WatchAddress != "" {
			if err := tx.ValidateEVMAddress("watchAddress", f.WatchAddress); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("unknown subscription kind %q", f.Kind)
	}

	dir, err := ParseDirection(string(f.Direction))
	if err != nil {
		return err
	}
	f.Direction = dir
	if f.MinAmount != "" {
		d, err := decimal.NewFromString(f.MinAmount)
		if err != nil || d.IsNegative() {
			return ledgererr.New(ledgererr.KindInvalidAmount, "invalid minimum amount %q", f.MinAmount)
		}
	}
	return nil
}

// Match reports whether ev passes the filter. Ledger and block events
// always pass; transfers must meet the threshold and, with a watch
// address, the direction.
func (f Filter) Match(ev Event) bool {
	if ev.Type != EventAssetTransfer {
		return true
	}

	if f.MinAmount != "" {
		min, err := decimal.NewFromString(f.MinAmount)
		if err != nil {
			return false
		}
		amt, err := decimal.NewFromString(ev.Amount)
		if err != nil || amt.LessThan(min) {
			return false
		}
	}

	if f.WatchAddress == "" {
		return true
	}
	from := sameAddress(ev.From, f.WatchAddress)
	to := sameAddress(ev.To, f.WatchAddress)
	switch f.Direction {
	case DirectionIncoming:
		return to
	case DirectionOutgoing:
		return from
	default:
		return from || to
	}
}

// sameAddress compares hex addresses case-insensitively and classic
// addresses exactly.
func sameAddress(a, b string) bool {
	if strings.HasPrefix(a, "0x") || strings.HasPrefix(a, "0X") {
		return strings.EqualFold(a, b)
	}
	return a == b
}
