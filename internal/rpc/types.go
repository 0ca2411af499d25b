package rpc

import (
	"encoding/json"

	"github.com/LeJamon/goRLUSD/internal/core/amount"
	"github.com/LeJamon/goRLUSD/internal/core/tx"
)

// Issue identifies one side of an order book: XRP, or a currency and its
// issuer.
type Issue struct {
	Currency string `json:"currency"`
	Issuer   string `json:"issuer,omitempty"`
}

// XRPIssue is the native side of a book.
var XRPIssue = Issue{Currency: tx.NativeCurrency}

func (i Issue) wire() map[string]any {
	if i.Currency == tx.NativeCurrency || i.Currency == "" {
		return map[string]any{"currency": tx.NativeCurrency}
	}
	return map[string]any{"currency": tx.EncodeCurrency(i.Currency), "issuer": i.Issuer}
}

// AccountData is the AccountRoot entry returned by account_info.
type AccountData struct {
	Account    string `json:"Account"`
	Balance    string `json:"Balance"`
	Flags      uint32 `json:"Flags"`
	OwnerCount int64  `json:"OwnerCount"`
	Sequence   uint32 `json:"Sequence"`
}

type AccountInfoResult struct {
	AccountData        AccountData `json:"account_data"`
	LedgerCurrentIndex uint32      `json:"ledger_current_index,omitempty"`
	LedgerIndex        uint32      `json:"ledger_index,omitempty"`
	Validated          bool        `json:"validated"`
}

// TrustLine is one entry of account_lines, from the account's side.
type TrustLine struct {
	Account        string `json:"account"`
	Balance        string `json:"balance"`
	Currency       string `json:"currency"`
	Limit          string `json:"limit"`
	LimitPeer      string `json:"limit_peer"`
	QualityIn      uint32 `json:"quality_in"`
	QualityOut     uint32 `json:"quality_out"`
	NoRipple       bool   `json:"no_ripple,omitempty"`
	NoRipplePeer   bool   `json:"no_ripple_peer,omitempty"`
	Authorized     bool   `json:"authorized,omitempty"`
	PeerAuthorized bool   `json:"peer_authorized,omitempty"`
	Freeze         bool   `json:"freeze,omitempty"`
	FreezePeer     bool   `json:"freeze_peer,omitempty"`
}

// Flags returns the holder-side flag view of the line.
func (l TrustLine) Flags() tx.LineFlags {
	return tx.LineFlags{
		Authorized: l.PeerAuthorized,
		Frozen:     l.Freeze || l.FreezePeer,
		NoRipple:   l.NoRipple,
	}
}

type accountLinesResult struct {
	Lines  []TrustLine     `json:"lines"`
	Marker json.RawMessage `json:"marker,omitempty"`
}

// AccountOffer is one entry of account_offers.
type AccountOffer struct {
	Flags      uint32    `json:"flags"`
	Seq        uint32    `json:"seq"`
	TakerGets  tx.Amount `json:"taker_gets"`
	TakerPays  tx.Amount `json:"taker_pays"`
	Quality    string    `json:"quality"`
	Expiration uint32    `json:"expiration,omitempty"`
}

type accountOffersResult struct {
	Offers []AccountOffer  `json:"offers"`
	Marker json.RawMessage `json:"marker,omitempty"`
}

// BookOffer is one Offer entry as returned by book_offers.
type BookOffer struct {
	Account    string    `json:"Account"`
	Flags      uint32    `json:"Flags"`
	Sequence   uint32    `json:"Sequence"`
	TakerGets  tx.Amount `json:"TakerGets"`
	TakerPays  tx.Amount `json:"TakerPays"`
	Quality    string    `json:"quality"`
	OwnerFunds string    `json:"owner_funds,omitempty"`
	Expiration uint32    `json:"Expiration,omitempty"`
}

type bookOffersResult struct {
	Offers []BookOffer `json:"offers"`
}

// SubmitResult is the preliminary result of submit.
type SubmitResult struct {
	EngineResult        string `json:"engine_result"`
	EngineResultCode    int    `json:"engine_result_code"`
	EngineResultMessage string `json:"engine_result_message"`
	TxBlob              string `json:"tx_blob"`
	TxJSON              struct {
		Hash string `json:"hash"`
	} `json:"tx_json"`
	Accepted bool `json:"accepted"`
	Applied  bool `json:"applied"`
	Queued   bool `json:"queued"`
}

// TxMeta is the subset of transaction metadata the engine reads.
type TxMeta struct {
	TransactionResult string     `json:"TransactionResult"`
	DeliveredAmount   *tx.Amount `json:"delivered_amount,omitempty"`
}

// TxResult is the result of the tx command. Raw keeps the full payload.
type TxResult struct {
	Hash            string     `json:"hash"`
	TransactionType string     `json:"TransactionType"`
	Account         string     `json:"Account"`
	Destination     string     `json:"Destination,omitempty"`
	Amount          *tx.Amount `json:"Amount,omitempty"`
	Fee             string     `json:"Fee"`
	Sequence        uint32     `json:"Sequence"`
	Date            uint32     `json:"date,omitempty"`
	LedgerIndex     uint32     `json:"ledger_index,omitempty"`
	Validated       bool       `json:"validated"`
	Meta            TxMeta     `json:"meta"`

	Raw json.RawMessage `json:"-"`
}

// FeeResult is the result of the fee command; values are drops.
type FeeResult struct {
	Drops struct {
		BaseFee       string `json:"base_fee"`
		MedianFee     string `json:"median_fee"`
		MinimumFee    string `json:"minimum_fee"`
		OpenLedgerFee string `json:"open_ledger_fee"`
	} `json:"drops"`
	LedgerCurrentIndex uint32 `json:"ledger_current_index"`
}

// ServerState is the subset of server_state the engine reads. Reserve and
// fee values are drops.
type ServerState struct {
	State struct {
		ServerState     string `json:"server_state"`
		ValidatedLedger struct {
			BaseFee     int64  `json:"base_fee"`
			ReserveBase int64  `json:"reserve_base"`
			ReserveInc  int64  `json:"reserve_inc"`
			Seq         uint32 `json:"seq"`
		} `json:"validated_ledger"`
	} `json:"state"`
}

// Fees returns the validated ledger's fee schedule.
func (s *ServerState) Fees() amount.Fees {
	v := s.State.ValidatedLedger
	return amount.Fees{
		Base:      amount.XRPAmount(v.BaseFee),
		Reserve:   amount.XRPAmount(v.ReserveBase),
		Increment: amount.XRPAmount(v.ReserveInc),
	}
}
