// Package apierror provides the application error type used by checks and
// handlers to signal an intentional, caller-facing failure.
//
// An Error carries the HTTP status and the body that should be returned to
// the caller. Anything that is not an Error is treated as unexpected and is
// translated into a generic 500 response by the middleware error handler.
package apierror

import (
	"errors"
	"net/http"
)

// Error is an application error with an HTTP status and an opaque body.
// Body may be a structured value (rendered as JSON) or a primitive (rendered
// as raw text).
type Error struct {
	Message string
	Status  int
	Body    any
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// New returns an Error with the given message, status, and body.
func New(message string, status int, body any) *Error {
	return &Error{
		Message: message,
		Status:  status,
		Body:    body,
	}
}

// BadRequest returns a 400 error.
func BadRequest(message string, body any) *Error {
	return New(message, http.StatusBadRequest, body)
}

// Unauthorized returns a 401 error.
func Unauthorized(message string, body any) *Error {
	return New(message, http.StatusUnauthorized, body)
}

// Forbidden returns a 403 error.
func Forbidden(message string, body any) *Error {
	return New(message, http.StatusForbidden, body)
}

// Internal returns a 500 error.
func Internal(message string, body any) *Error {
	return New(message, http.StatusInternalServerError, body)
}

// Message wraps msg in the default structured body shape: {"message": msg}.
func Message(msg string) map[string]any {
	return map[string]any{"message": msg}
}

// As reports whether err (or anything it wraps) is an application error.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// StatusOf returns the status carried by an application error, or 500 for
// anything else. A nil error maps to 200.
func StatusOf(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if appErr, ok := As(err); ok {
		return appErr.Status
	}
	return http.StatusInternalServerError
}
