package auth

import (
	"errors"
	"fmt"
)

// Kind classifies an authentication failure. Transport-level errors are
// normalized into these kinds exactly once, at the API client boundary; the
// session manager never inspects raw transport errors.
type Kind int

const (
	// KindInternal is an unclassified failure.
	KindInternal Kind = iota

	// KindValidation means the input was rejected before any network call
	// (e.g. a missing username or password).
	KindValidation

	// KindRejected means the server explicitly refused the credentials.
	KindRejected

	// KindNetwork means the backend was unreachable or timed out.
	KindNetwork

	// KindMalformed means the transport succeeded but the response was
	// missing required fields (a token without a user, or vice versa).
	KindMalformed

	// KindUnauthenticated means the token is missing, expired, or revoked.
	KindUnauthenticated
)

// String returns a machine-readable kind name.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindRejected:
		return "rejected"
	case KindNetwork:
		return "network"
	case KindMalformed:
		return "malformed"
	case KindUnauthenticated:
		return "unauthenticated"
	default:
		return "internal"
	}
}

// Error is the canonical authentication error. Message is human-readable and
// safe to surface to the user; HTTPStatus is zero when no HTTP response was
// received.
type Error struct {
	Kind       Kind
	Message    string
	HTTPStatus int
	cause      error
}

// NewError creates an Error with the given kind and message.
func NewError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// WrapError creates an Error wrapping an underlying cause.
func WrapError(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("auth: %s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("auth: %s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error { return e.cause }

// Is reports whether target is an *Error of the same kind, so sentinel
// comparisons like errors.Is(err, auth.NewError(auth.KindNetwork, "")) work.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// KindOf extracts the Kind from err, or KindInternal when err is not an
// *Error from this package.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// UserMessage returns a non-empty human-readable message for err.
func UserMessage(err error) string {
	var ae *Error
	if errors.As(err, &ae) && ae.Message != "" {
		return ae.Message
	}
	return "An unknown error occurred"
}
