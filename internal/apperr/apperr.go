// Package apperr defines the error taxonomy shared by all services.
// Handlers map codes to HTTP statuses at the response boundary; services
// return the class, never a status code.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes surfaced in the response envelope.
const (
	CodeInvalidInput = "INVALID_INPUT"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeNotFound     = "NOT_FOUND"
	CodeConflict     = "CONFLICT"
	CodeRateLimited  = "RATE_LIMITED"
	CodeUpstream     = "UPSTREAM_ERROR"
	CodeInternal     = "INTERNAL_ERROR"
)

// Error carries a taxonomy code alongside a caller-facing message.
type Error struct {
	Code    string
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// New builds an error with the given code and formatted message.
func New(code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Invalid flags missing or malformed caller-supplied input.
func Invalid(format string, args ...any) *Error {
	return New(CodeInvalidInput, format, args...)
}

// NotFound flags an absent referenced entity.
func NotFound(format string, args ...any) *Error {
	return New(CodeNotFound, format, args...)
}

// Conflict flags an operation that is not legal from the current state.
func Conflict(format string, args ...any) *Error {
	return New(CodeConflict, format, args...)
}

// Unauthorized flags a missing or unresolvable identity.
func Unauthorized(message string) *Error {
	return &Error{Code: CodeUnauthorized, Message: message}
}

// Forbidden flags an identity lacking the required privilege.
func Forbidden(message string) *Error {
	return &Error{Code: CodeForbidden, Message: message}
}

// Upstream wraps a store or external-API failure, passing the underlying
// message through verbatim.
func Upstream(err error) *Error {
	return &Error{Code: CodeUpstream, Message: "upstream failure", cause: err}
}

// CodeOf extracts the taxonomy code from err, defaulting to INTERNAL_ERROR
// for errors that did not come through this package.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// MessageOf extracts the caller-facing message from err.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Error()
	}
	return err.Error()
}

// HTTPStatus maps a taxonomy code to its HTTP status.
func HTTPStatus(code string) int {
	switch code {
	case CodeInvalidInput:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
