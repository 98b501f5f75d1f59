package wxcode

import (
	"errors"
	"fmt"
)

// Kind tags where a translation failure originated
type Kind string

const (
	KindInput         Kind = "input"         // blank query
	KindConfiguration Kind = "configuration" // credential missing or rejected
	KindTransport     Kind = "transport"     // network or provider failure
	KindParse         Kind = "parse"         // reply did not follow the output format
)

// Error is a tagged translation failure. Message is safe to show to users,
// Err keeps the underlying cause for logs.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError builds a tagged error
func NewError(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

// KindOf returns the tag of err, or KindTransport for untagged errors
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindTransport
}

// AsError returns err as a tagged error, wrapping untagged errors as transport
// failures with the given user-facing message
func AsError(err error, fallbackMessage string) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return NewError(KindTransport, fallbackMessage, err)
}
