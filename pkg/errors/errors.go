// Package errors provides structured error types for the mindmap engine.
//
// Every failure the engine surfaces to a caller carries a machine-readable
// [Code] so the UI shell can decide how to react without string matching:
//
//   - UNKNOWN_PARENT: a mutation referenced a node that does not exist.
//     Local and recoverable; the mutation was rejected and nothing changed.
//   - INVALID_TOPOLOGY: a cycle or broken parent pointer was found. This is
//     unreachable through the public mutation API and indicates a bug.
//   - LAYOUT_TIMEOUT: a layout pass exceeded its time budget. The previous
//     known-good layout stays in effect.
//   - EXPORT_TARGET_MISSING: the render state an export was asked to read
//     no longer exists. The export is abandoned.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeUnknownParent, "parent %q not found", id)
//	if errors.Is(err, errors.ErrCodeUnknownParent) {
//	    // show inline message near the node
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeInternal, origErr, "save outline %s", id)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Structural errors raised at the mutation boundary
	ErrCodeUnknownParent   Code = "UNKNOWN_PARENT"
	ErrCodeInvalidTopology Code = "INVALID_TOPOLOGY"

	// Layout errors
	ErrCodeLayoutTimeout Code = "LAYOUT_TIMEOUT"

	// Export errors
	ErrCodeExportTargetMissing Code = "EXPORT_TARGET_MISSING"
	ErrCodeInvalidFormat       Code = "INVALID_FORMAT"

	// Input validation errors
	ErrCodeInvalidInput Code = "INVALID_INPUT"
	ErrCodeInvalidState Code = "INVALID_STATE"
	ErrCodeInvalidPath  Code = "INVALID_PATH"

	// Resource not found errors
	ErrCodeNotFound     Code = "NOT_FOUND"
	ErrCodeNodeNotFound Code = "NODE_NOT_FOUND"

	// Network errors
	ErrCodeNetwork Code = "NETWORK_ERROR"
	ErrCodeTimeout Code = "TIMEOUT"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// Recoverable reports whether the UI can keep running after err without
// reloading the diagram. Only INVALID_TOPOLOGY and INTERNAL_ERROR are fatal.
func Recoverable(err error) bool {
	switch GetCode(err) {
	case ErrCodeInvalidTopology, ErrCodeInternal:
		return false
	default:
		return true
	}
}
