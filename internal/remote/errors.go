package remote

import (
	"context"
	"errors"
	"fmt"
)

var errNotFound = errors.New("not found")

// Kind classifies a sync failure.
type Kind string

const (
	KindNetwork      Kind = "network"
	KindUnauthorized Kind = "unauthorized"
	KindServerError  Kind = "serverError"
)

// Op names an adapter operation for errors and journaling.
type Op string

const (
	OpFetchModules  Op = "fetch-modules"
	OpFetchQuiz     Op = "fetch-quiz"
	OpPersistModule Op = "persist-module"
	OpSubmitQuiz    Op = "submit-quiz"
)

// Idempotent reports whether the operation may be repeated safely.
// Quiz submission records an attempt on the server and is not.
func (o Op) Idempotent() bool {
	return o != OpSubmitQuiz
}

// Error is the only error type an Adapter returns.
type Error struct {
	Kind   Kind
	Op     Op
	Status int // HTTP status, 0 when no response was received
	Err    error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s (status %d): %v", e.Op, e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether retrying could plausibly succeed.
func (e *Error) Retryable() bool {
	if errors.Is(e.Err, context.Canceled) || errors.Is(e.Err, context.DeadlineExceeded) {
		return false
	}
	return e.Kind == KindNetwork || e.Kind == KindServerError
}

// AsError extracts a *Error from err.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// wrapError converts any error into a *Error, keeping an existing one.
func wrapError(op Op, kind Kind, err error) *Error {
	if err == nil {
		return nil
	}
	if e, ok := AsError(err); ok {
		return e
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// kindForStatus maps an HTTP status to a failure kind.
func kindForStatus(status int) Kind {
	switch {
	case status == 401 || status == 403:
		return KindUnauthorized
	default:
		return KindServerError
	}
}
