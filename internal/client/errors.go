package client

import (
	"errors"
	"fmt"
)

// Kind classifies a device client failure for retry and surfacing policy.
type Kind int

// Failure kinds, in the order the coordinator checks them.
const (
	// KindNone means the error is nil or did not come from a device client.
	KindNone Kind = iota

	// KindTransient covers connectivity loss and timeouts.
	KindTransient

	// KindAuth covers invalid or expired credentials.
	KindAuth

	// KindMalformed covers unparseable or incomplete device responses.
	KindMalformed

	// KindRejected covers commands refused by the device (write paths).
	KindRejected
)

// String returns the kind's wire/log name.
func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindAuth:
		return "auth"
	case KindMalformed:
		return "malformed"
	case KindRejected:
		return "rejected"
	default:
		return "none"
	}
}

// Error is a classified device client failure.
//
// It wraps the underlying vendor error (if any) so errors.Is/As still reach
// it, and carries the Kind the coordinator and write paths dispatch on.
type Error struct {
	Kind   Kind
	Reason string // device-supplied reason, set for KindRejected
	err    error
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Reason != "" && e.err != nil:
		return fmt.Sprintf("client: %s: %s: %v", e.Kind, e.Reason, e.err)
	case e.Reason != "":
		return fmt.Sprintf("client: %s: %s", e.Kind, e.Reason)
	case e.err != nil:
		return fmt.Sprintf("client: %s: %v", e.Kind, e.err)
	default:
		return fmt.Sprintf("client: %s", e.Kind)
	}
}

// Unwrap returns the wrapped vendor error.
func (e *Error) Unwrap() error { return e.err }

// Transient wraps err as a transient connectivity failure.
func Transient(err error) error {
	return &Error{Kind: KindTransient, err: err}
}

// Transientf creates a transient failure from a format string.
func Transientf(format string, args ...any) error {
	return &Error{Kind: KindTransient, err: fmt.Errorf(format, args...)}
}

// Auth wraps err as an authentication failure.
func Auth(err error) error {
	return &Error{Kind: KindAuth, err: err}
}

// Malformed wraps err as an unparseable-response failure.
// The payload identifier should be included in err for log correlation.
func Malformed(err error) error {
	return &Error{Kind: KindMalformed, err: err}
}

// Rejected creates a command-rejected failure carrying the device's reason
// verbatim. The reason is what write paths surface to the user.
func Rejected(reason string) error {
	return &Error{Kind: KindRejected, Reason: reason}
}

// KindOf classifies err. Wrapped classified errors are found via errors.As;
// anything else (including nil) reports KindNone.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindNone
}

// RejectionReason returns the device-supplied reason if err is a rejected
// command failure, and "" otherwise.
func RejectionReason(err error) string {
	var ce *Error
	if errors.As(err, &ce) && ce.Kind == KindRejected {
		return ce.Reason
	}
	return ""
}

// Retryable reports whether err should be retried on the normal cadence.
// Transient and malformed failures retry; auth and rejected do not.
// Unclassified errors retry, matching the conservative default for vendor
// errors that escaped classification.
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindAuth, KindRejected:
		return false
	case KindNone:
		return err != nil
	default:
		return true
	}
}
