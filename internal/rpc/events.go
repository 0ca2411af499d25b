package rpc

import (
	"encoding/json"

	"github.com/LeJamon/goRLUSD/internal/core/tx"
)

// Stream message types.
const (
	StreamLedgerClosed = "ledgerClosed"
	StreamTransaction  = "transaction"
)

// LedgerClosedEvent is a message of the ledger stream.
type LedgerClosedEvent struct {
	Type             string `json:"type"`
	FeeBase          uint64 `json:"fee_base"`
	LedgerHash       string `json:"ledger_hash"`
	LedgerIndex      uint32 `json:"ledger_index"`
	LedgerTime       uint32 `json:"ledger_time"`
	ReserveBase      uint64 `json:"reserve_base"`
	ReserveInc       uint64 `json:"reserve_inc"`
	TxnCount         int    `json:"txn_count"`
	ValidatedLedgers string `json:"validated_ledgers"`
}

// StreamTx is the transaction body carried by a transaction stream message.
type StreamTx struct {
	TransactionType string     `json:"TransactionType"`
	Account         string     `json:"Account"`
	Destination     string     `json:"Destination,omitempty"`
	DestinationTag  *uint32    `json:"DestinationTag,omitempty"`
	Amount          *tx.Amount `json:"Amount,omitempty"`
	Hash            string     `json:"hash"`
	Date            uint32     `json:"date,omitempty"`
}

// TransactionEvent is a message of the transactions or accounts stream.
type TransactionEvent struct {
	Type         string   `json:"type"`
	EngineResult string   `json:"engine_result"`
	LedgerHash   string   `json:"ledger_hash,omitempty"`
	LedgerIndex  uint32   `json:"ledger_index,omitempty"`
	Transaction  StreamTx `json:"transaction"`
	Meta         TxMeta   `json:"meta"`
	Hash         string   `json:"hash,omitempty"`
	Validated    bool     `json:"validated"`
}

// TxHash returns the hash from whichever field the node populated.
func (e *TransactionEvent) TxHash() string {
	if e.Hash != "" {
		return e.Hash
	}
	return e.Transaction.Hash
}

// DeliveredAmount prefers the metadata's delivered amount, which differs
// from Amount for partial payments.
func (e *TransactionEvent) DeliveredAmount() *tx.Amount {
	if e.Meta.DeliveredAmount != nil {
		return e.Meta.DeliveredAmount
	}
	return e.Transaction.Amount
}

// StreamType returns the type field of a stream message.
func StreamType(msg json.RawMessage) string {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(msg, &head); err != nil {
		return ""
	}
	return head.Type
}
