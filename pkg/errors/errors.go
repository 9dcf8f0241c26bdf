// Package errors provides structured error types for the flowpanel engine.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the engine, transport, and CLI
//   - Machine-readable error codes for programmatic handling
//   - Error wrapping with context preservation
//
// # Error Codes
//
// The codes map onto the engine's error taxonomy:
//   - VALIDATION: malformed spec fields, surfaced at construction
//   - DUPLICATE_ID / DANGLING_REFERENCE: structural graph invariant violations
//   - NOT_FOUND: patch or lookup against a missing element id
//   - INVALID_MESSAGE: undecodable or malformed protocol messages
//
// # Usage
//
//	err := errors.New(errors.ErrCodeValidation, "missing required field %q", "id")
//	if errors.Is(err, errors.ErrCodeValidation) {
//	    // Handle validation error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeInvalidMessage, origErr, "decode %s", msgType)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Spec construction and coercion failures
	ErrCodeValidation Code = "VALIDATION"

	// Structural graph invariant violations
	ErrCodeDuplicateID       Code = "DUPLICATE_ID"
	ErrCodeDanglingReference Code = "DANGLING_REFERENCE"

	// Lookup failures
	ErrCodeNotFound Code = "NOT_FOUND"

	// Protocol errors
	ErrCodeInvalidMessage Code = "INVALID_MESSAGE"
	ErrCodeSessionClosed  Code = "SESSION_CLOSED"

	// Internal errors
	ErrCodeInternal Code = "INTERNAL_ERROR"
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
