package subscription

import "time"

// EventType tags the union carried by Event.
type EventType string

const (
	EventLedgerClosed  EventType = "ledger_closed"
	EventBlockProduced EventType = "block_produced"
	EventAssetTransfer EventType = "asset_transfer"
)

// Event is a normalized notification. Index is the ledger index or block
// number; Amount is in display units.
type Event struct {
	ID             string    `json:"id"`
	SubscriptionID string    `json:"subscriptionId"`
	Type           EventType `json:"type"`
	Chain          string    `json:"chain"`
	Index          uint64    `json:"index"`
	Hash           string    `json:"hash,omitempty"`
	From           string    `json:"from,omitempty"`
	To             string    `json:"to,omitempty"`
	Amount         string    `json:"amount,omitempty"`
	Currency       string    `json:"currency,omitempty"`
	DestinationTag *uint32   `json:"destinationTag,omitempty"`
	TxCount        int       `json:"txCount,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}
