package tx

import (
	"encoding/hex"
	"strings"
	"time"

	"github.com/LeJamon/goRLUSD/internal/core/amount"
	"github.com/LeJamon/goRLUSD/internal/ledgererr"
)

// EscrowCreate locks XRP until a time or crypto-condition releases it.
type EscrowCreate struct {
	BaseTx

	Destination    string
	Amount         amount.XRPAmount
	DestinationTag *int64
	FinishAfter    *time.Time
	CancelAfter    *time.Time

	// Condition is a hex-encoded PREIMAGE-SHA-256 crypto-condition.
	Condition string
}

// NewEscrowCreate creates an EscrowCreate.
func NewEscrowCreate(account, destination string, drops amount.XRPAmount) *EscrowCreate {
	return &EscrowCreate{
		BaseTx:      BaseTx{Account: account},
		Destination: destination,
		Amount:      drops,
	}
}

func (e *EscrowCreate) TxType() Type {
	return TypeEscrowCreate
}

// Validate follows the ledger's own preflight rules so that malformed
// escrows fail before signing.
func (e *EscrowCreate) Validate() error {
	if err := e.BaseTx.Validate(); err != nil {
		return err
	}
	if err := ValidateXRPLAddress("Destination", e.Destination); err != nil {
		return err
	}
	if err := validateDestinationTag(e.DestinationTag); err != nil {
		return err
	}
	if !e.Amount.IsPositive() {
		return ledgererr.New(ledgererr.KindInvalidAmount, "escrow amount must be positive")
	}
	if e.CancelAfter == nil && e.FinishAfter == nil {
		return ledgererr.Malformed("temBAD_EXPIRATION", "must specify CancelAfter or FinishAfter")
	}
	if e.CancelAfter != nil && e.FinishAfter != nil && !e.CancelAfter.After(*e.FinishAfter) {
		return ledgererr.Malformed("temBAD_EXPIRATION", "CancelAfter must be after FinishAfter")
	}
	if e.FinishAfter == nil && e.Condition == "" {
		return ledgererr.Malformed("temMALFORMED", "must specify FinishAfter or Condition")
	}
	if e.Condition != "" {
		if _, err := hex.DecodeString(e.Condition); err != nil {
			return ledgererr.Malformed("temMALFORMED", "condition is not hex")
		}
	}
	return nil
}

// Flatten returns the wire payload.
func (e *EscrowCreate) Flatten() (map[string]any, error) {
	m := e.toMap(TypeEscrowCreate)
	m["Destination"] = e.Destination
	m["Amount"] = e.Amount.String()
	if e.DestinationTag != nil {
		m["DestinationTag"] = uint32(*e.DestinationTag)
	}
	if e.FinishAfter != nil {
		m["FinishAfter"] = ToRippleTime(*e.FinishAfter)
	}
	if e.CancelAfter != nil {
		m["CancelAfter"] = ToRippleTime(*e.CancelAfter)
	}
	if e.Condition != "" {
		m["Condition"] = strings.ToUpper(e.Condition)
	}
	return m, nil
}
