package goerror

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates that the requested resource could not be found.
	ErrNotFound = errors.New("resource not found")

	// ErrConflict indicates a uniqueness conflict. For idempotent inserts this
	// is a benign race, not a failure.
	ErrConflict = errors.New("resource conflict")
)

// Type classifies errors into the engine's high-level buckets.
type Type int

const (
	// TypeServer represents server-side failures (store, broker, unexpected).
	TypeServer Type = iota
	// TypeRetryable represents transient failures worth another delivery attempt.
	TypeRetryable
	// TypePermanent represents failures that retrying cannot fix, such as an
	// invalid or revoked destination.
	TypePermanent
	// TypeSkipped represents a run that was intentionally not executed, for
	// example losing a lock race. Not a failure.
	TypeSkipped
)

// String returns the string representation of the error type.
func (t Type) String() string {
	switch t {
	case TypeRetryable:
		return "ERROR_TYPE_RETRYABLE"
	case TypePermanent:
		return "ERROR_TYPE_PERMANENT"
	case TypeSkipped:
		return "ERROR_TYPE_SKIPPED"
	case TypeServer:
		return "ERROR_TYPE_SERVER"
	default:
		return "ERROR_TYPE_UNKNOWN"
	}
}

// Code is a stable identifier carried by transport and store errors.
type Code int

const (
	// CodeInternal represents an internal or unspecified error.
	CodeInternal Code = iota
	// CodeUnavailable indicates the provider or store could not be reached.
	CodeUnavailable
	// CodeProvider indicates the provider accepted the call but rejected it
	// with a transient condition (throttling, temporary outage).
	CodeProvider
	// CodeInvalidDestination indicates a dead token, unreachable number or
	// otherwise permanently invalid destination.
	CodeInvalidDestination
	// CodeUnknownChannel indicates an attempt references a channel with no
	// registered transport.
	CodeUnknownChannel
	// CodeLockHeld indicates another owner currently holds the lock.
	CodeLockHeld
)

// String returns the string representation of the error code.
func (c Code) String() string {
	switch c {
	case CodeUnavailable:
		return "ERROR_CODE_UNAVAILABLE"
	case CodeProvider:
		return "ERROR_CODE_PROVIDER"
	case CodeInvalidDestination:
		return "ERROR_CODE_INVALID_DESTINATION"
	case CodeUnknownChannel:
		return "ERROR_CODE_UNKNOWN_CHANNEL"
	case CodeLockHeld:
		return "ERROR_CODE_LOCK_HELD"
	case CodeInternal:
		return "ERROR_CODE_INTERNAL"
	default:
		return "ERROR_CODE_INTERNAL"
	}
}

// Error is a structured error used across the engine.
//
// It wraps an underlying error while carrying the classification the delivery
// pipeline branches on: retryable failures go back to the queue with backoff,
// permanent failures dead-letter immediately.
type Error struct {
	err     error
	msg     string
	errType Type
	code    Code
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.err != nil {
		return e.err.Error()
	}
	if e.msg != "" {
		return e.msg
	}
	return e.errType.String()
}

// String returns a verbose representation of the error for debugging/logging.
func (e *Error) String() string {
	return fmt.Sprintf(
		"Error Type: %s, Code: %s, Message: %s, Underlying Error: %v",
		e.errType.String(), e.code.String(), e.msg, e.err,
	)
}

// Msg returns the operator-facing error message, if set.
func (e *Error) Msg() string {
	return e.msg
}

// Type returns the high-level error type.
func (e *Error) Type() Type {
	return e.errType
}

// Code returns the stable error code.
func (e *Error) Code() Code {
	return e.code
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.err
}

func newError(err error, msg string, et Type, code Code) error {
	return &Error{err: err, msg: msg, errType: et, code: code}
}

// NewServer creates a server-type error with the provided error.
func NewServer(err error) error {
	return newError(err, "Internal engine error", TypeServer, CodeInternal)
}

// NewRetryable wraps a transient failure that should be attempted again.
func NewRetryable(err error, code Code) error {
	return newError(err, "Transient failure", TypeRetryable, code)
}

// NewPermanent wraps a failure that no amount of retrying can fix.
func NewPermanent(err error, code Code) error {
	return newError(err, "Permanent failure", TypePermanent, code)
}

// NewSkipped marks a run that was deliberately not executed.
func NewSkipped(msg string, code Code) error {
	return newError(nil, msg, TypeSkipped, code)
}

// IsRetryable reports whether err is classified as transient.
//
// Unclassified errors are treated as retryable: a raw network error from a
// provider SDK should cost an attempt, not an immediate dead-letter.
func IsRetryable(err error) bool {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.errType == TypeRetryable || ge.errType == TypeServer
	}
	return true
}

// IsPermanent reports whether err is classified as permanent.
func IsPermanent(err error) bool {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.errType == TypePermanent
	}
	return false
}

// IsSkipped reports whether err marks an intentionally skipped run.
func IsSkipped(err error) bool {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.errType == TypeSkipped
	}
	return false
}

// CodeOf extracts the stable code from err, or CodeInternal when absent.
func CodeOf(err error) Code {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.code
	}
	return CodeInternal
}
