// Package errors provides structured error handling with typed error codes.
//
// Error codes are organized into categories:
//   - General errors (1-99): Unknown and general errors
//   - Validation errors (100-199): Invalid parameters, intents and configuration
//   - Data errors (200-299): Malformed, non-monotonic or missing input data (fatal)
//   - Indicator errors (300-349): Registration, calculation and warm-up errors
//   - Look-ahead violations (350-359): Reads beyond the current bar (fatal)
//   - Strategy errors (400-499): Strategy setup and decision errors
//   - Trading errors (500-599): Risk sizing and order rejection (recoverable)
//   - Backtest errors (600-699): Engine configuration and state errors
//   - Callback errors (800-899): Callback execution failures
//
// Usage:
//
//	// Create a new error
//	err := errors.New(errors.ErrCodeInvalidParameter, "invalid parameter value")
//
//	// Create a formatted error
//	err := errors.Newf(errors.ErrCodeDataDuplicate, "duplicate timestamp at bar %d", i)
//
//	// Wrap an existing error
//	err := errors.Wrap(errors.ErrCodeDataQueryFailed, "failed to execute query", originalErr)
//
//	// Check error code
//	if errors.HasCode(err, errors.ErrCodeInsufficientCash) { ... }
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
// The outermost *Error in the chain wins.
// Returns ErrCodeUnknown if the error is not an *Error type.
func GetCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}

	return ErrCodeUnknown
}

// HasCode checks if any *Error in the chain carries the given ErrorCode.
func HasCode(err error, code ErrorCode) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}

		if e.Code == code {
			return true
		}

		err = e.Cause
	}

	return false
}

// hasCodeIn checks if any *Error in the chain carries a code in [lo, hi].
func hasCodeIn(err error, lo, hi ErrorCode) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}

		if e.Code >= lo && e.Code <= hi {
			return true
		}

		err = e.Cause
	}

	return false
}

// IsDataError reports whether err is a malformed / missing input data error.
func IsDataError(err error) bool {
	return hasCodeIn(err, 200, 299)
}

// IsLookaheadViolation reports whether err was caused by reading data beyond the current bar.
func IsLookaheadViolation(err error) bool {
	return HasCode(err, ErrCodeLookaheadViolation)
}

// IsInvalidRisk reports whether err is a non-positive stop distance.
func IsInvalidRisk(err error) bool {
	return HasCode(err, ErrCodeInvalidRisk)
}

// IsInsufficientCash reports whether err is an order rejected for lack of cash.
func IsInsufficientCash(err error) bool {
	return HasCode(err, ErrCodeInsufficientCash)
}

// IsIndicatorNotReady reports whether err is an indicator still in its warm-up window.
func IsIndicatorNotReady(err error) bool {
	return HasCode(err, ErrCodeIndicatorNotReady)
}

// IsRecoverable reports whether err only skips the current order or decision
// instead of aborting the run.
func IsRecoverable(err error) bool {
	if err == nil {
		return true
	}

	if IsDataError(err) || IsLookaheadViolation(err) {
		return false
	}

	return hasCodeIn(err, 500, 599) || IsIndicatorNotReady(err)
}

// LookaheadError builds the fatal error for a read of index beyond current.
func LookaheadError(what string, index, current int) *Error {
	return Newf(ErrCodeLookaheadViolation, "look-ahead violation: %s read at bar %d while the simulation is at bar %d", what, index, current)
}
