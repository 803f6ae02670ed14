// Package apperr classifies failures at the HTTP boundary.
package apperr

import (
	"errors"
	"net/http"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindAuth
	KindNotFound
)

func (k Kind) Status() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuth:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuth:
		return "auth"
	case KindNotFound:
		return "not_found"
	default:
		return "internal"
	}
}

// Error carries the client-facing message; Err is the cause and is never shown
// to clients in production.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Kind.String() + ": " + e.Message + ": " + e.Err.Error()
	}
	return e.Kind.String() + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Status() int { return e.Kind.Status() }

func Validation(msg string) *Error { return &Error{Kind: KindValidation, Message: msg} }
func Auth(msg string) *Error       { return &Error{Kind: KindAuth, Message: msg} }
func NotFound(msg string) *Error   { return &Error{Kind: KindNotFound, Message: msg} }

func Internal(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Message: msg, Err: err}
}

// From returns err as an *Error, treating anything unclassified as internal.
func From(err error, fallbackMsg string) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal(fallbackMsg, err)
}

// Detail is the cause text echoed to clients outside production.
func (e *Error) Detail(production bool) string {
	if production || e.Err == nil {
		return ""
	}
	return e.Err.Error()
}
