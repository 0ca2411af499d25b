// Package submit signs, sends and waits for transactions on both ledgers,
// reporting every result in the same Outcome shape. Nothing here retries:
// a rejected or timed-out submission goes back to the caller.
package submit

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Chain labels used in outcomes, logs and metrics.
const (
	ChainXRPL = "xrpl"
	ChainEVM  = "evm"
)

// State is the lifecycle position of one submission.
type State int

const (
	StateBuilt State = iota
	StateAutofilled
	StateSigned
	StateSubmitted
	StateValidated
	StateRejected
	StateTimedOut
)

var stateNames = map[State]string{
	StateBuilt:      "built",
	StateAutofilled: "autofilled",
	StateSigned:     "signed",
	StateSubmitted:  "submitted",
	StateValidated:  "validated",
	StateRejected:   "rejected",
	StateTimedOut:   "timed_out",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Terminal reports whether no further transition can follow.
func (s State) Terminal() bool {
	return s == StateValidated || s == StateRejected || s == StateTimedOut
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Outcome is the ledger-independent result of a submission. Fee is in the
// chain's native display unit (XRP or ETH).
type Outcome struct {
	Success     bool    `json:"success"`
	Hash        string  `json:"hash"`
	LedgerIndex *uint64 `json:"ledgerIndex,omitempty"`
	ResultCode  string  `json:"resultCode"`
	Message     string  `json:"message"`
	Fee         string  `json:"fee"`
	Validated   bool    `json:"validated"`
	State       State   `json:"state"`
	Chain       string  `json:"chain"`

	GasUsed           uint64 `json:"gasUsed,omitempty"`
	EffectiveGasPrice string `json:"effectiveGasPrice,omitempty"`
}

// submission tracks one transaction through its states.
type submission struct {
	id      string
	chain   string
	state   State
	started time.Time
	logger  *zap.Logger
}

func newSubmission(chain string, logger *zap.Logger) *submission {
	id := uuid.NewString()
	s := &submission{
		id:      id,
		chain:   chain,
		state:   StateBuilt,
		started: time.Now(),
		logger:  logger.With(zap.String("submission", id), zap.String("chain", chain)),
	}
	s.logger.Debug("submission built")
	return s
}

func (s *submission) advance(next State, fields ...zap.Field) {
	prev := s.state
	s.state = next
	fields = append(fields, zap.Stringer("from", prev), zap.Stringer("to", next))
	if next == StateRejected || next == StateTimedOut {
		s.logger.Warn("submission state", fields...)
		return
	}
	s.logger.Debug("submission state", fields...)
}

func (s *submission) elapsed() time.Duration {
	return time.Since(s.started)
}
