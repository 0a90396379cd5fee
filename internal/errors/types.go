package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeValidation     ErrorType = "validation"
	ErrorTypeConfiguration  ErrorType = "configuration"
	ErrorTypeInitialization ErrorType = "initialization"
	ErrorTypeConnection     ErrorType = "connection"
	ErrorTypeTransaction    ErrorType = "transaction"
	ErrorTypeDevice         ErrorType = "device"
	ErrorTypeActivation     ErrorType = "activation"
	ErrorTypeExternal       ErrorType = "external"
	ErrorTypeInternal       ErrorType = "internal"
	ErrorTypeTimeout        ErrorType = "timeout"
)

// PosError is the base error type for all application errors
type PosError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]any
}

// Error implements the error interface
func (e *PosError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying cause
func (e *PosError) Unwrap() error {
	return e.Cause
}

// WithContext adds context information to the error
func (e *PosError) WithContext(key string, value any) *PosError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// New creates a new PosError
func New(errorType ErrorType, message string) *PosError {
	return &PosError{
		Type:    errorType,
		Message: message,
		Context: make(map[string]any),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, errorType ErrorType, message string) *PosError {
	return &PosError{
		Type:    errorType,
		Message: message,
		Cause:   err,
		Context: make(map[string]any),
	}
}

// TypeOf returns the category of the first PosError in err's chain,
// or ErrorTypeInternal when there is none.
func TypeOf(err error) ErrorType {
	var posErr *PosError
	if stderrors.As(err, &posErr) {
		return posErr.Type
	}
	return ErrorTypeInternal
}

// IsType reports whether err's chain holds a PosError of the given category
func IsType(err error, errorType ErrorType) bool {
	for e := err; e != nil; e = stderrors.Unwrap(e) {
		if pe, ok := e.(*PosError); ok && pe.Type == errorType {
			return true
		}
	}
	return false
}

// Validation creates a validation error
func Validation(message string) *PosError {
	return New(ErrorTypeValidation, message)
}

// Configuration creates a configuration error
func Configuration(message string) *PosError {
	return New(ErrorTypeConfiguration, message)
}

// Internal creates an internal error
func Internal(message string) *PosError {
	return New(ErrorTypeInternal, message)
}

// External creates an external service error
func External(service string, err error) *PosError {
	return Wrap(err, ErrorTypeExternal, fmt.Sprintf("external service %s failed", service))
}

// Timeout creates a timeout error
func Timeout(operation string) *PosError {
	return New(ErrorTypeTimeout, fmt.Sprintf("operation %s timed out", operation))
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target any) bool {
	return stderrors.As(err, target)
}
