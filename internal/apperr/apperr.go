// Package apperr defines the error kinds shared by the store, the remote
// client and the sync services. Front ends map kinds to their own codes.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind string

const (
	KindNotFound      Kind = "NotFound"
	KindConflict      Kind = "Conflict"
	KindInvalidInput  Kind = "InvalidInput"
	KindUpstream      Kind = "UpstreamError"
	KindTransport     Kind = "TransportError"
	KindConfiguration Kind = "ConfigurationError"
	KindInternal      Kind = "Internal"
)

// Error is the structured error returned across package boundaries.
type Error struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	// StatusCode is the remote HTTP status for upstream errors, 0 otherwise.
	StatusCode int   `json:"status_code,omitempty"`
	Err        error `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, apperr.NotFound(""))
// style checks work without comparing messages.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Remote reports whether the error came from talking to a remote server.
func (e *Error) Remote() bool {
	return e.Kind == KindUpstream || e.Kind == KindTransport
}

func newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) *Error { return newf(KindNotFound, format, args...) }

func Conflict(format string, args ...any) *Error { return newf(KindConflict, format, args...) }

func InvalidInput(format string, args ...any) *Error {
	return newf(KindInvalidInput, format, args...)
}

func Configuration(format string, args ...any) *Error {
	return newf(KindConfiguration, format, args...)
}

// Upstream builds an error for a reachable remote that answered with a
// non-success status.
func Upstream(statusCode int, detail string) *Error {
	return &Error{Kind: KindUpstream, Message: detail, StatusCode: statusCode}
}

// Transport builds an error for a remote that could not be reached.
func Transport(err error) *Error {
	return &Error{Kind: KindTransport, Message: "remote unreachable", Err: err}
}

// Wrap attaches a kind to an underlying error.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	e := newf(kind, format, args...)
	e.Err = err
	return e
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// As returns the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

// IsNotFound reports whether err is a NotFound error.
func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }

// IsConflict reports whether err is a Conflict error.
func IsConflict(err error) bool { return KindOf(err) == KindConflict }
