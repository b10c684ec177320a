// Package fault defines the error taxonomy shared by every domain package.
// Domain errors carry a Code that callers can branch on and that the HTTP
// layer maps to a status; the server is the sole authority on what is
// permitted, so state-machine violations always surface as faults even when
// a client UI would have prevented the action.
package fault

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies a class of rejected operation.
type Code string

const (
	// InvalidState: the action is not permitted for the entity's current
	// lifecycle state, including any mutation of a terminal row.
	InvalidState Code = "invalid_state"
	// InvalidParam: malformed or out-of-range input, including rejected
	// wildcard filters such as state=all.
	InvalidParam Code = "invalid_param"
	// MissingParam: an action payload omits a required field.
	MissingParam Code = "missing_param"
	// UnexpectedParam: an action payload carries a field its contract forbids.
	UnexpectedParam Code = "unexpected_param"
	// ForbiddenSection: the requested data is unavailable for the entity's
	// current status.
	ForbiddenSection Code = "forbidden_section"
	// NotFound: the entity does not exist.
	NotFound Code = "not_found"
	// Duplicate: the entity already exists.
	Duplicate Code = "duplicate"
)

// Error is a taxonomy-coded error. It may wrap an underlying cause.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// New creates a coded error with a formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a coded error around an underlying cause.
func Wrap(code Code, err error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), cause: err}
}

// CodeOf extracts the taxonomy code from an error chain.
// Returns "" when no coded error is present.
func CodeOf(err error) Code {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return ""
}

// Is lets coded errors match sentinel comparisons by code.
func (e *Error) Is(target error) bool {
	var fe *Error
	if errors.As(target, &fe) {
		return e.Code == fe.Code
	}
	return false
}

// MapHTTPStatus maps taxonomy codes to HTTP status codes.
// Uncoded errors map to 500.
func MapHTTPStatus(err error) int {
	switch CodeOf(err) {
	case InvalidState, Duplicate:
		return http.StatusConflict
	case InvalidParam, MissingParam, UnexpectedParam:
		return http.StatusBadRequest
	case ForbiddenSection:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
