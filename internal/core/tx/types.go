// Package tx builds consensus-ledger transaction payloads for the RLUSD
// engine: trust lines, payments, DEX offers and escrows. Every builder
// validates its input locally and flattens to the map form accepted by the
// signer and the submit command.
package tx

import (
	"encoding/hex"
	"strings"
)

// Type is the TransactionType field of a ledger transaction.
type Type string

const (
	TypeTrustSet     Type = "TrustSet"
	TypePayment      Type = "Payment"
	TypeOfferCreate  Type = "OfferCreate"
	TypeOfferCancel  Type = "OfferCancel"
	TypeEscrowCreate Type = "EscrowCreate"
)

func (t Type) String() string {
	return string(t)
}

// Intent is a transaction the caller wants executed. Implementations are
// the variants in this package; Build is the single entry point that turns
// one into a ledger payload.
type Intent interface {
	TxType() Type
	GetAccount() string
	Validate() error
	Flatten() (map[string]any, error)
}

// Build validates the intent and returns its flattened payload.
func Build(i Intent) (map[string]any, error) {
	if err := i.Validate(); err != nil {
		return nil, err
	}
	return i.Flatten()
}

// Memo is an opaque type/data pair attached to a transaction. The fields are
// given in plain text and hex-encoded on flatten.
type Memo struct {
	Type   string `json:"type,omitempty"`
	Data   string `json:"data,omitempty"`
	Format string `json:"format,omitempty"`
}

// BaseTx holds the fields shared by all variants. Fee, Sequence and
// LastLedgerSequence are left to autofill at submission time.
type BaseTx struct {
	Account   string
	Flags     uint32
	SourceTag *uint32
	Memos     []Memo
}

func (b *BaseTx) GetAccount() string {
	return b.Account
}

// Validate checks the sending account.
func (b *BaseTx) Validate() error {
	return ValidateXRPLAddress("Account", b.Account)
}

func (b *BaseTx) toMap(t Type) map[string]any {
	m := map[string]any{
		"TransactionType": string(t),
		"Account":         b.Account,
		"Flags":           b.Flags,
	}
	if b.SourceTag != nil {
		m["SourceTag"] = *b.SourceTag
	}
	if len(b.Memos) > 0 {
		m["Memos"] = flattenMemos(b.Memos)
	}
	return m
}

func flattenMemos(memos []Memo) []any {
	out := make([]any, 0, len(memos))
	for _, memo := range memos {
		inner := map[string]any{}
		if memo.Type != "" {
			inner["MemoType"] = hexUpper(memo.Type)
		}
		if memo.Data != "" {
			inner["MemoData"] = hexUpper(memo.Data)
		}
		if memo.Format != "" {
			inner["MemoFormat"] = hexUpper(memo.Format)
		}
		out = append(out, map[string]any{"Memo": inner})
	}
	return out
}

func hexUpper(s string) string {
	return strings.ToUpper(hex.EncodeToString([]byte(s)))
}
