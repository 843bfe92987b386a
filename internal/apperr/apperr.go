// Package apperr classifies failures into the page-scoped error taxonomy:
// local invalid input, backend rejections and transient service failures.
package apperr

import (
	"context"
	"errors"
)

// Kind classifies an error for presentation and HTTP mapping.
type Kind string

const (
	KindInvalid         Kind = "invalid"
	KindUnauthenticated Kind = "unauthenticated"
	KindNotFound        Kind = "not_found"
	KindRejected        Kind = "rejected"
	KindTransient       Kind = "transient"
)

// GenericMessage is shown for failures that carry no user-readable text.
const GenericMessage = "Something went wrong. Please try again."

// Error carries a kind, a user-readable message and the underlying cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return e.Message + ": " + e.Err.Error()
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Invalid reports locally detected bad input. It is never sent to the backend.
func Invalid(msg string) *Error {
	return &Error{Kind: KindInvalid, Message: msg}
}

// Unauthenticated reports a missing or expired session.
func Unauthenticated(msg string) *Error {
	return &Error{Kind: KindUnauthenticated, Message: msg}
}

// NotFound reports a missing resource.
func NotFound(msg string, err error) *Error {
	return &Error{Kind: KindNotFound, Message: msg, Err: err}
}

// Rejected reports a backend refusal such as a constraint violation.
func Rejected(msg string, err error) *Error {
	return &Error{Kind: KindRejected, Message: msg, Err: err}
}

// Transient reports a network or service failure.
func Transient(err error) *Error {
	return &Error{Kind: KindTransient, Err: err}
}

// KindOf returns the kind of err. Unclassified errors are transient.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindTransient
}

// Message returns the text to show the user for err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "The request timed out. Please try again."
	}
	return GenericMessage
}
