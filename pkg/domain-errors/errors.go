// Package domainerrors provides coded errors that cross the service/transport
// boundary. Services wrap sentinel (infrastructure) errors into coded errors;
// the HTTP layer maps codes to status lines without inspecting internals.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies a class of domain failure.
type Code string

const (
	CodeBadRequest     Code = "bad_request"
	CodeInvalidEvent   Code = "invalid_event"
	CodeDuplicateEvent Code = "duplicate_event"
	CodeInvalidKey     Code = "invalid_key"
	CodeDeactivated    Code = "deactivated"
	CodeDeviceLimit    Code = "device_limit_reached"
	CodeContention     Code = "transient_contention"
	CodeUnauthorized   Code = "unauthorized"
	CodeConflict       Code = "conflict"
	CodeInternal       Code = "internal"
)

// Error carries a code and a user-safe message. The wrapped cause, if any,
// stays server-side.
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

func (e *Error) Unwrap() error { return e.cause }

// New creates a coded error with a user-safe message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a coded error with a formatted user-safe message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying cause.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf extracts the code from err, defaulting to CodeInternal.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageOf extracts the user-safe message from err. Non-domain errors get a
// generic message so internal detail never leaks to callers.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return "internal error"
}

// ToHTTPStatus maps a domain code to its HTTP status.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeBadRequest:
		return http.StatusBadRequest
	case CodeInvalidEvent:
		return http.StatusBadRequest
	case CodeDuplicateEvent:
		return http.StatusOK
	case CodeInvalidKey:
		return http.StatusNotFound
	case CodeDeactivated, CodeDeviceLimit:
		return http.StatusForbidden
	case CodeContention:
		return http.StatusServiceUnavailable
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
