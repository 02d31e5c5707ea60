// Package apperr classifies user-visible failures so transport layers can map
// them to status codes without inspecting error strings.
package apperr

import (
	"errors"
	"fmt"
)

// Kind is a stable classification of a failure.
type Kind string

const (
	KindValidation   Kind = "validation"   // missing/malformed input
	KindNotFound     Kind = "not_found"    // unknown order/driver/product
	KindUnauthorized Kind = "unauthorized" // actor lacks rights for the action
	KindConflict     Kind = "conflict"     // transition guard violated
	KindPayment      Kind = "payment"      // gateway rejected or failed to verify
	KindDependency   Kind = "dependency"   // persistence or gateway unreachable
)

// Error carries a kind and a human-readable message.
type Error struct {
	Kind    Kind
	Message string
	Err     error // optional wrapped cause
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New returns an error of the given kind.
func New(kind Kind, msg string) error {
	return &Error{Kind: kind, Message: msg}
}

// Newf returns an error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap returns an error of the given kind wrapping a cause.
func Wrap(kind Kind, msg string, err error) error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// KindOf extracts the kind from err, defaulting to KindDependency for
// unclassified errors so callers treat them as transient.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindDependency
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
