package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownCommand indicates that no builder is registered under a command name
	ErrUnknownCommand = errors.New("unknown command")

	// ErrInvalidConfig indicates malformed or unsupported command configuration
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrMissingPayload indicates that a required attachment payload is absent
	ErrMissingPayload = errors.New("missing payload")

	// ErrUnsupportedKind indicates a value kind the flattener cannot handle
	ErrUnsupportedKind = errors.New("unsupported value kind")

	// ErrUnresolvedUnion indicates that no union branch matches a datum
	ErrUnresolvedUnion = errors.New("unresolved union")

	// ErrMaxDepth indicates that a tree is nested deeper than allowed
	ErrMaxDepth = errors.New("maximum nesting depth exceeded")

	// ErrTypeMismatch indicates that a datum does not have the shape its schema declares
	ErrTypeMismatch = errors.New("datum does not match schema")

	// ErrValidationFailed indicates that a record violates field validation rules
	ErrValidationFailed = errors.New("validation failed")

	// ErrContextBound indicates that a pipeline context is already attached to a chain
	ErrContextBound = errors.New("context already bound to a chain")
)

// Error codes carried by Error.
const (
	CodeUnknownCommand   = "UNKNOWN_COMMAND"
	CodeInvalidConfig    = "INVALID_CONFIG"
	CodeMissingPayload   = "MISSING_PAYLOAD"
	CodeUnsupportedKind  = "UNSUPPORTED_KIND"
	CodeUnresolvedUnion  = "UNRESOLVED_UNION"
	CodeMaxDepth         = "MAX_DEPTH"
	CodeTypeMismatch     = "TYPE_MISMATCH"
	CodeCommandFailed    = "COMMAND_FAILED"
	CodeNotificationFail = "NOTIFICATION_FAILED"
	CodeValidationFailed = "VALIDATION_FAILED"
)

// Error represents a fatal pipeline error. Per-record drops are never
// reported through this type.
type Error struct {
	// Code is a machine-readable error code
	Code string

	// Message is a human-readable error message
	Message string

	// Err is the underlying error, if any
	Err error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new pipeline error
func NewError(code, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Errorf creates a pipeline error wrapping err with a formatted message
func Errorf(code string, err error, format string, args ...any) *Error {
	return NewError(code, fmt.Sprintf(format, args...), err)
}

// CodeOf returns the code of the outermost *Error in err's chain, or "" if none.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsConfigError reports whether err is a build-time configuration failure
func IsConfigError(err error) bool {
	return errors.Is(err, ErrInvalidConfig) || errors.Is(err, ErrUnknownCommand)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}
