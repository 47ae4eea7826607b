// Package apperr defines the single error kind carried from repositories and
// flows up to the HTTP terminal handler: a message, an HTTP status and a
// machine readable code.
package apperr

import (
	"errors"
	"net/http"
)

// Error codes shared by handlers and middleware
const (
	CodeInvalidRequestBody = "INVALID_REQUEST_BODY"
	CodeInvalidAuthHeader  = "INVALID_AUTH_HEADER"
	CodeMissingAuth        = "MISSING_AUTH"
	CodeInvalidToken       = "INVALID_TOKEN"
	CodeTokenExpired       = "TOKEN_EXPIRED"
	CodeTokenRevoked       = "TOKEN_REVOKED"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeUserExists         = "USER_EXISTS"
	CodeUserNotFound       = "USER_NOT_FOUND"
	CodeAuthNotFound       = "AUTH_NOT_FOUND"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeBadRequest         = "BAD_REQUEST"
	CodeNotFound           = "NOT_FOUND"
	CodeTooManyRequests    = "TOO_MANY_REQUESTS"
	CodeDatabase           = "DATABASE_ERROR"
	CodeInternal           = "INTERNAL_ERROR"
)

// Error is an error with an HTTP status and a client facing message.
// Err, when set, holds the underlying cause and is never shown to clients.
type Error struct {
	Status  int
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error with the same status, code and message so that
// wrapped copies of a sentinel still compare equal.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Status == t.Status && e.Code == t.Code && e.Message == t.Message
}

func New(status int, code, message string) *Error {
	return &Error{Status: status, Code: code, Message: message}
}

// Wrap attaches a cause to a new Error
func Wrap(err error, status int, code, message string) *Error {
	return &Error{Status: status, Code: code, Message: message, Err: err}
}

// WithCause returns a copy of e carrying err as cause
func (e *Error) WithCause(err error) *Error {
	cp := *e
	cp.Err = err
	return &cp
}

// Database is the data access boundary translation: any driver or query
// failure becomes a 500.
func Database(err error) *Error {
	return Wrap(err, http.StatusInternalServerError, CodeDatabase, "Something went wrong with the database")
}

// As extracts an *Error from err's chain
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// StatusOf returns the HTTP status carried by err, 500 when none
func StatusOf(err error) int {
	if e, ok := As(err); ok {
		return e.Status
	}
	return http.StatusInternalServerError
}
