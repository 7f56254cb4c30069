// Package apperr defines the error kinds shared by the tour builders, the
// distance providers and the HTTP boundary.
//
// Every failure that can reach a caller carries a machine-readable Code and a
// human-readable Message. The boundary layer turns any error into a
// {"success": false, "message": ...} response using UserMessage.
//
//	err := apperr.New(apperr.CodeInsufficientLocations, "at least two locations are required")
//	if apperr.Is(err, apperr.CodeInsufficientLocations) {
//	    // report to the user
//	}
package apperr

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error kind.
type Code string

const (
	// CodeInsufficientLocations means fewer than two distinct points were supplied.
	CodeInsufficientLocations Code = "INSUFFICIENT_LOCATIONS"
	// CodeInvalidDistanceData means the distance matrix is missing, malformed,
	// or inconsistent with the location count.
	CodeInvalidDistanceData Code = "INVALID_DISTANCE_DATA"
	// CodeProviderFailure means the distance-matrix provider did not return a
	// usable response.
	CodeProviderFailure Code = "PROVIDER_FAILURE"

	CodeInvalidInput Code = "INVALID_INPUT"
	CodeInternal     Code = "INTERNAL_ERROR"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code
	Message string
	Cause   error
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
// Returns CodeInternal if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// UserMessage returns a message suitable for showing to an end user.
// For *Error types it returns the message without the code prefix; causes of
// internal errors are never exposed.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Code == CodeInternal {
			return "An error occurred. Please try again."
		}
		return e.Message
	}
	return "An error occurred. Please try again."
}
