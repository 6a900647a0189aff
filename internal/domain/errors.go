package domain

import (
	"errors"
	"fmt"
)

// Kind categorizes an engine error so routing code can decide how to
// degrade without inspecting error strings.
type Kind string

const (
	// KindValidation marks malformed user input (bad phone/email/DNI).
	// Always recovered locally by re-prompting.
	KindValidation Kind = "validation"

	// KindAIUnavailable marks an AI collaborator that is down or disabled.
	KindAIUnavailable Kind = "ai_unavailable"

	// KindAITimeout marks a bounded AI call that exceeded its deadline.
	KindAITimeout Kind = "ai_timeout"

	// KindNotFound marks a client/product/order lookup miss. Surfaced to
	// the customer as a specific message, not a generic failure.
	KindNotFound Kind = "not_found"

	// KindInvalidTransition marks an intent that is not legal in the
	// current state. Treated as unknown, never surfaced.
	KindInvalidTransition Kind = "invalid_transition"

	// KindTransport marks a reply-delivery failure. Non-fatal to the
	// session's logical state.
	KindTransport Kind = "transport"
)

// Error is the engine's canonical error with a kind and optional cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError creates an engine error of the given kind.
func NewError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// WrapError creates an engine error wrapping a cause.
func WrapError(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the kind from an error chain, empty if none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Convenience constructors for common kinds.

func ErrValidation(message string) *Error     { return NewError(KindValidation, message) }
func ErrNotFound(message string) *Error       { return NewError(KindNotFound, message) }
func ErrAIUnavailable(message string) *Error  { return NewError(KindAIUnavailable, message) }
func ErrAITimeout(err error) *Error           { return WrapError(KindAITimeout, "ai call timed out", err) }
func ErrInvalidTransition(s State, i Intent) *Error {
	return NewError(KindInvalidTransition, fmt.Sprintf("intent %s not accepted in state %s", i, s))
}
