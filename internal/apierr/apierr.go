// Package apierr gives the error kinds in spec.md §7 a typed shape so the
// HTTP layer can map them to status codes without matching error text.
package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidTelemetry
	KindMalformedGeometry
	KindUnauthenticated
	KindUnauthorized
	KindNotFound
	KindConflict
	KindStoreUnavailable
	KindDeadlineExceeded
)

// Error wraps an underlying cause with a Kind the transport layer understands.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func InvalidTelemetry(msg string) *Error   { return New(KindInvalidTelemetry, msg) }
func MalformedGeometry(msg string) *Error  { return New(KindMalformedGeometry, msg) }
func Unauthenticated(msg string) *Error    { return New(KindUnauthenticated, msg) }
func Unauthorized(msg string) *Error       { return New(KindUnauthorized, msg) }
func NotFound(msg string) *Error           { return New(KindNotFound, msg) }
func Conflict(msg string) *Error           { return New(KindConflict, msg) }
func StoreUnavailable(msg string, c error) *Error {
	return Wrap(KindStoreUnavailable, msg, c)
}
func DeadlineExceeded(msg string) *Error { return New(KindDeadlineExceeded, msg) }

// StatusCode maps a Kind to the HTTP status spec.md §7 assigns it.
func StatusCode(err error) int {
	var e *Error
	if errors.As(err, &e) {
		switch e.Kind {
		case KindInvalidTelemetry, KindMalformedGeometry:
			return http.StatusBadRequest
		case KindUnauthenticated:
			return http.StatusUnauthorized
		case KindUnauthorized:
			return http.StatusForbidden
		case KindNotFound:
			return http.StatusNotFound
		case KindConflict:
			return http.StatusConflict
		case KindStoreUnavailable, KindDeadlineExceeded:
			return http.StatusServiceUnavailable
		}
	}
	return http.StatusInternalServerError
}

// Code returns a short machine-readable code for the response envelope.
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		switch e.Kind {
		case KindInvalidTelemetry:
			return "INVALID_TELEMETRY"
		case KindMalformedGeometry:
			return "MALFORMED_GEOMETRY"
		case KindUnauthenticated:
			return "UNAUTHENTICATED"
		case KindUnauthorized:
			return "UNAUTHORIZED"
		case KindNotFound:
			return "NOT_FOUND"
		case KindConflict:
			return "CONFLICT"
		case KindStoreUnavailable:
			return "STORE_UNAVAILABLE"
		case KindDeadlineExceeded:
			return "DEADLINE_EXCEEDED"
		}
	}
	return "INTERNAL"
}
