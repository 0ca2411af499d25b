// Package ledgererr defines the error kinds surfaced by the transaction
// engine. Every failure that reaches a caller is either one of these kinds
// or wraps one, so callers can branch with errors.Is without caring which
// ledger produced it.
package ledgererr

import (
	"errors"
	"fmt"
)

// Kind classifies an engine failure.
type Kind string

const (
	KindInvalidAmount         Kind = "InvalidAmount"
	KindInvalidAddress        Kind = "InvalidAddress"
	KindInvalidDestinationTag Kind = "InvalidDestinationTag"
	KindMalformed             Kind = "MalformedTransaction"
	KindNoCredential          Kind = "NoCredential"
	KindNetworkUnavailable    Kind = "NetworkUnavailable"
	KindSubmissionRejected    Kind = "SubmissionRejected"
	KindSubmissionTimedOut    Kind = "SubmissionTimedOut"
	KindSubscriptionFailed    Kind = "SubscriptionFailed"
)

// Sentinels for errors.Is matching. An *Error matches the sentinel of its kind.
var (
	ErrInvalidAmount         = &Error{Kind: KindInvalidAmount}
	ErrInvalidAddress        = &Error{Kind: KindInvalidAddress}
	ErrInvalidDestinationTag = &Error{Kind: KindInvalidDestinationTag}
	ErrMalformed             = &Error{Kind: KindMalformed}
	ErrNoCredential          = &Error{Kind: KindNoCredential}
	ErrNetworkUnavailable    = &Error{Kind: KindNetworkUnavailable}
	ErrSubmissionRejected    = &Error{Kind: KindSubmissionRejected}
	ErrSubmissionTimedOut    = &Error{Kind: KindSubmissionTimedOut}
	ErrSubscriptionFailed    = &Error{Kind: KindSubscriptionFailed}
)

// Error is a structured engine failure. Code carries the ledger-reported
// result code (e.g. "tecNO_LINE" or "reverted") when there is one.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	switch {
	case e.Code != "" && msg != "":
		return fmt.Sprintf("%s [%s]: %s", e.Kind, e.Code, msg)
	case msg != "":
		return fmt.Sprintf("%s: %s", e.Kind, msg)
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind. A target with a
// Code set additionally requires the codes to match.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Code == "" || t.Code == e.Code
}

// New returns an error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap returns an error of the given kind wrapping err.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// Rejected builds a SubmissionRejected error carrying the ledger code.
func Rejected(code, message string) *Error {
	return &Error{Kind: KindSubmissionRejected, Code: code, Message: message}
}

// Malformed reports a transaction the ledger would reject with the tem
// code, caught before submission.
func Malformed(code, format string, args ...any) *Error {
	return &Error{Kind: KindMalformed, Code: code, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the kind of err, or "" if err carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// CodeOf extracts the ledger result code of err, or "".
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
