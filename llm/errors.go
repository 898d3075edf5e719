package llm

import (
	"errors"
	"fmt"
)

// ErrorKind represents the category of a provider-neutral error.
type ErrorKind string

const (
	// ErrorKindValidation covers missing credentials or a missing model.
	// Validation errors are never retried.
	ErrorKindValidation ErrorKind = "validation"
	// ErrorKindTimeout covers cancellation-sourced failures: an attempt
	// timeout firing or an explicit Cancel call.
	ErrorKindTimeout ErrorKind = "timeout"
	// ErrorKindInternal covers wire-level failures: non-2xx responses,
	// malformed or empty backend payloads, and network exceptions.
	ErrorKindInternal ErrorKind = "internal"
)

// Error is the typed failure returned by every provider operation. Callers
// pattern-match on Kind; nothing is ever thrown past the layer boundary.
type Error struct {
	Kind       ErrorKind
	Message    string
	StatusCode int   // HTTP status when known, 0 otherwise
	Retryable  bool
	Err        error // underlying cause, if any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewValidationError creates a validation error. Never retryable.
func NewValidationError(message string) *Error {
	return &Error{Kind: ErrorKindValidation, Message: message}
}

// NewTimeoutError creates a cancellation-sourced error. Retryable up to
// policy limits so a transient stall does not immediately fail the call.
func NewTimeoutError(message string, cause error) *Error {
	return &Error{Kind: ErrorKindTimeout, Message: message, Retryable: true, Err: cause}
}

// NewInternalError creates a wire-level error. Retryability is decided by the
// retry classifier from the status code and message.
func NewInternalError(message string, statusCode int, cause error) *Error {
	return &Error{
		Kind:       ErrorKindInternal,
		Message:    message,
		StatusCode: statusCode,
		Retryable:  retryableStatus(statusCode),
		Err:        cause,
	}
}

// IsValidationError checks whether err is a validation-kind error.
func IsValidationError(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == ErrorKindValidation
}

// IsTimeoutError checks whether err is a timeout-kind error.
func IsTimeoutError(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == ErrorKindTimeout
}

// IsInternalError checks whether err is an internal-kind error.
func IsInternalError(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == ErrorKindInternal
}

// StatusCodeOf extracts the HTTP status code carried by err, or 0.
func StatusCodeOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.StatusCode
	}
	return 0
}

// wrapExhausted marks err as the final outcome after attempts retries.
// The attempt count and last error text are kept for diagnosability.
func wrapExhausted(err error, attempts int) *Error {
	e := &Error{
		Kind:      ErrorKindInternal,
		Message:   fmt.Sprintf("retries exhausted after %d attempts", attempts),
		Retryable: false,
		Err:       err,
	}
	var inner *Error
	if errors.As(err, &inner) {
		e.Kind = inner.Kind
		e.StatusCode = inner.StatusCode
	}
	return e
}
