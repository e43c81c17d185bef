// Package dErrors provides coded domain errors for the compliance engine.
//
// Stores and infrastructure return sentinel errors (pkg/platform/sentinel);
// services translate them into coded domain errors; transport maps codes to
// HTTP statuses. Codes are part of the API contract, messages are for humans.
package dErrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain error.
type Code string

const (
	// CodeInvalidInput marks malformed external input (bad IDs, unknown enums).
	CodeInvalidInput Code = "invalid_input"
	// CodeBadRequest marks a structurally invalid request body or parameters.
	CodeBadRequest Code = "bad_request"
	// CodeNotFound marks a referenced subject, request, or terms version that
	// does not exist.
	CodeNotFound Code = "not_found"
	// CodeInvalidState marks an operation attempted against a precondition
	// that does not hold (no active terms version, deletion already
	// scheduled, cancellation past the grace period).
	CodeInvalidState Code = "invalid_state"
	// CodeInvalidTransition marks a request lifecycle transition the state
	// machine forbids. Always a caller error; never retried.
	CodeInvalidTransition Code = "invalid_transition"
	// CodeUnavailable marks a dependent store that could not be reached.
	CodeUnavailable Code = "unavailable"
	// CodeAuditWriteFailed marks a mutation whose audit event could not be
	// durably recorded after internal retries. The mutation is rolled back.
	CodeAuditWriteFailed Code = "audit_write_failed"
	// CodeTimeout marks an operation aborted by deadline or cancellation.
	CodeTimeout Code = "timeout"
	// CodeUnauthorized marks a missing or invalid credential.
	CodeUnauthorized Code = "unauthorized"
	// CodeInternal marks an unexpected failure.
	CodeInternal Code = "internal"
)

// Error is a coded domain error. It optionally wraps a cause.
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

// New constructs a coded error with no cause.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf constructs a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying cause. A nil cause
// returns nil so call sites can wrap unconditionally.
func Wrap(cause error, code Code, message string) error {
	if cause == nil {
		return nil
	}
	return &Error{Code: code, Message: message, cause: cause}
}

// HasCode reports whether err or anything it wraps carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// Is is a readability alias for HasCode.
func Is(err error, code Code) bool { return HasCode(err, code) }

// CodeOf extracts the code from err, or CodeInternal when err carries none.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}
