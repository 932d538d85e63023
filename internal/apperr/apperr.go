// Package apperr defines the error taxonomy shared by the dashboard components.
package apperr

import (
	"errors"
	"fmt"
)

// Code classifies a failure by how the user can recover from it.
type Code string

const (
	// CodeAuthentication means the backend rejected login credentials.
	CodeAuthentication Code = "AUTHENTICATION_FAILED"
	// CodeRegistration means the backend rejected a registration payload.
	CodeRegistration Code = "REGISTRATION_FAILED"
	// CodeSessionExpired means an authenticated call came back 401.
	CodeSessionExpired Code = "SESSION_EXPIRED"
	// CodeNetwork means the request never completed.
	CodeNetwork Code = "NETWORK_ERROR"
	// CodeValidation means the input was rejected before any network call.
	CodeValidation Code = "VALIDATION_FAILED"
	// CodeUpstream means the backend answered with an unexpected status.
	CodeUpstream Code = "UPSTREAM_ERROR"
)

type Error struct {
	Code   Code
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Code, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New returns an *Error with the given code.
func New(code Code, reason string, err error) *Error {
	return &Error{Code: code, Reason: reason, Err: err}
}

// CodeOf returns the code of the outermost *Error in err's chain, or "".
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}

// ReasonOf returns the user-facing reason of err, falling back to err.Error().
func ReasonOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Reason != "" {
		return e.Reason
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
