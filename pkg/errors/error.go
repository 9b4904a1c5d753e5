// Package errors provides structured error handling with typed error codes.
//
// Error codes are organized into categories:
//   - General errors (1-99): Unknown and general errors
//   - Configuration errors (100-199): Malformed or out-of-range run configuration
//   - Data errors (200-299): Missing bar data, lookback shortfalls, loader failures
//   - Order errors (500-599): Rejected intents and illegal lifecycle transitions
//   - Engine errors (600-699): Orchestrator and recorder failures
//
// Usage:
//
//	// Create a new error
//	err := errors.New(errors.ErrCodeInvalidOrder, "order size must be positive")
//
//	// Create a formatted error
//	err := errors.Newf(errors.ErrCodeOrderNotFound, "no order with id %s", id)
//
//	// Wrap an existing error
//	err := errors.Wrap(errors.ErrCodeRecorderFailed, "failed to export parquet", originalErr)
//
//	// Check error code
//	if errors.HasCode(err, errors.ErrCodeInvalidTransition) { ... }
package errors

import (
	"errors"
	"fmt"
)

// Error represents a structured error with an error code and message.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// New creates a new Error with the given code and message.
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   nil,
	}
}

// Newf creates a new Error with the given code and formatted message.
func Newf(code ErrorCode, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   nil,
	}
}

// Wrap wraps an existing error with a new Error containing the given code and message.
func Wrap(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Wrapf wraps an existing error with a new Error containing the given code and formatted message.
func Wrapf(code ErrorCode, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Cause)
	}

	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether any error in err's chain matches target.
// This is a convenience wrapper around the standard errors.Is function.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
// This is a convenience wrapper around the standard errors.As function.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// GetCode extracts the ErrorCode from an error if it's an *Error type.
// Returns ErrCodeUnknown if the error is not an *Error type.
func GetCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}

	return ErrCodeUnknown
}

// HasCode checks if an error has a specific ErrorCode.
func HasCode(err error, code ErrorCode) bool {
	return GetCode(err) == code
}

// LookbackError reports that a bar window does not carry enough history
// for a calculation (e.g. an indicator warmup period).
type LookbackError struct {
	Required int    // Minimum bars required
	Actual   int    // Actual bars available
	Symbol   string // Optional: symbol context
	Message  string // Human-readable message
}

// NewLookbackError creates a new LookbackError.
func NewLookbackError(required, actual int, symbol, message string) *LookbackError {
	return &LookbackError{
		Required: required,
		Actual:   actual,
		Symbol:   symbol,
		Message:  message,
	}
}

// NewLookbackErrorf creates a new LookbackError with a formatted message.
func NewLookbackErrorf(required, actual int, symbol, format string, args ...any) *LookbackError {
	return &LookbackError{
		Required: required,
		Actual:   actual,
		Symbol:   symbol,
		Message:  fmt.Sprintf(format, args...),
	}
}

// Error implements the error interface.
func (e *LookbackError) Error() string {
	return e.Message
}

// IsLookbackError checks if an error is a LookbackError.
// It uses errors.As to check the error chain.
func IsLookbackError(err error) bool {
	var lookbackErr *LookbackError

	return errors.As(err, &lookbackErr)
}
