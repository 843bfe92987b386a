package backend

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/preston-bernstein/fightpicks/internal/apperr"
)

const msgSignIn = "Please sign in."

// Postgres error codes surfaced by every driver.
const (
	CodeUniqueViolation = "23505"
	CodeInvalidEnum     = "22P02"
	CodeNoRows          = "PGRST116"
)

var (
	// ErrNoRows is returned by single-row queries with no match.
	ErrNoRows = errors.New("backend: no rows")
	// ErrUnknownFunction is returned for RPC names the driver does not serve.
	ErrUnknownFunction = errors.New("backend: unknown function")
)

// Error is a structured rejection reported by the backend.
type Error struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	Hint    string `json:"hint,omitempty"`
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "backend request failed"
	}
	if e.Code != "" {
		return fmt.Sprintf("%s (code=%s)", msg, e.Code)
	}
	if e.Status > 0 {
		return fmt.Sprintf("%s (status=%d)", msg, e.Status)
	}
	return msg
}

// AsError attempts to unwrap an error into a backend Error.
func AsError(err error) (*Error, bool) {
	var bErr *Error
	if errors.As(err, &bErr) {
		return bErr, true
	}
	return nil, false
}

// IsUniqueViolation reports whether err is a unique-constraint rejection.
func IsUniqueViolation(err error) bool {
	bErr, ok := AsError(err)
	return ok && bErr.Code == CodeUniqueViolation
}

// IsUnauthorized reports whether the backend refused the caller's credentials.
func IsUnauthorized(err error) bool {
	bErr, ok := AsError(err)
	return ok && (bErr.Status == http.StatusUnauthorized || bErr.Status == http.StatusForbidden)
}

// IsRejection reports whether the backend answered with a definitive refusal
// rather than failing to answer.
func IsRejection(err error) bool {
	bErr, ok := AsError(err)
	if !ok {
		return false
	}
	return bErr.Code != "" || (bErr.Status >= 400 && bErr.Status < 500)
}

func UniqueViolation(constraint string) *Error {
	return &Error{
		Status:  http.StatusConflict,
		Code:    CodeUniqueViolation,
		Message: fmt.Sprintf("duplicate key value violates unique constraint %q", constraint),
	}
}

// Classify maps a driver error onto the user-facing error kinds. Errors that
// are already classified pass through unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	bErr, ok := AsError(err)
	switch {
	case ok && bErr.Status == http.StatusUnauthorized:
		return apperr.Unauthenticated(msgSignIn)
	case ok && IsRejection(err):
		return apperr.Rejected(bErr.Message, err)
	default:
		return apperr.Transient(err)
	}
}
