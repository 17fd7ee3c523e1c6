// Package errors defines the error taxonomy shared by all bed packages.
//
// Every failure surfaced by the library carries one of a small set of
// kinds, so callers can branch on the category (via Is/IsKind) while the
// message names the responsible type or parameter.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind categorizes a failure.
type Kind uint8

const (
	// Unknown is the zero kind; it is never produced by the library.
	Unknown Kind = iota

	// Validation indicates malformed caller input: mismatched training
	// indices, overlapping column groups, hyperparameters out of range.
	Validation

	// Configuration indicates an unusable but well-formed configuration,
	// e.g. missing SamplingNPoints on a purely continuous search space.
	Configuration

	// UnknownKey indicates a registry lookup with an unregistered key.
	UnknownKey

	// NotEnoughPoints indicates fewer candidates left than requested.
	NotEnoughPoints

	// NotImplemented indicates a search-space type the recommender
	// variant does not handle.
	NotImplemented
)

// String returns the kind's display name.
func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case Configuration:
		return "configuration"
	case UnknownKey:
		return "unknown key"
	case NotEnoughPoints:
		return "not enough points"
	case NotImplemented:
		return "not implemented"
	default:
		return "unknown"
	}
}

// Error is a categorized library error.
type Error struct {
	kind    Kind
	message string
	cause   error
}

// New creates an error of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{kind: kind, message: fmt.Sprintf(format, args...)}
}

// Wrap annotates an existing error with a kind and message. The cause
// remains reachable through errors.Unwrap.
func Wrap(err error, kind Kind, format string, args ...any) *Error {
	return &Error{kind: kind, message: fmt.Sprintf(format, args...), cause: err}
}

// Kind returns the error's category.
func (e *Error) Kind() Kind { return e.kind }

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.kind, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.kind, e.message)
}

// Unwrap exposes the cause, if any.
func (e *Error) Unwrap() error { return e.cause }

// IsKind reports whether err (or anything in its chain) is a library
// error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	for err != nil {
		if stderrors.As(err, &e) {
			if e.kind == kind {
				return true
			}
			err = e.cause
			continue
		}
		return false
	}
	return false
}
