package errors

import (
	"errors"
	"fmt"

	"github.com/aws/smithy-go"
)

// ErrorType classifies a failure for the CLI exit path.
type ErrorType string

const (
	// ErrorTypeRemoteService represents a failed AWS or NVA API call
	ErrorTypeRemoteService ErrorType = "remote_service"
	// ErrorTypeValidation represents a missing argument or malformed input
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeNotFound represents a referenced resource that does not exist
	ErrorTypeNotFound ErrorType = "not_found"
	// ErrorTypeConfiguration represents a profile or environment problem
	ErrorTypeConfiguration ErrorType = "configuration"
)

// Error is a structured error carrying the failure class and
// optional remote details (service, API error code).
type Error struct {
	Type    ErrorType              `json:"type"`
	Message string                 `json:"message"`
	Cause   error                  `json:"-"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// New creates an Error of the given type.
func New(errorType ErrorType, message string) *Error {
	return &Error{
		Type:    errorType,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// NewRemoteServiceError creates a remote service error.
func NewRemoteServiceError(message string) *Error {
	return New(ErrorTypeRemoteService, message)
}

// NewValidationError creates a validation error.
func NewValidationError(message string) *Error {
	return New(ErrorTypeValidation, message)
}

// NewNotFoundError creates a not found error.
func NewNotFoundError(message string) *Error {
	return New(ErrorTypeNotFound, message)
}

// NewConfigurationError creates a configuration error.
func NewConfigurationError(message string) *Error {
	return New(ErrorTypeConfiguration, message)
}

// WithCause sets the underlying cause.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithDetail attaches a key/value detail.
func (e *Error) WithDetail(key string, value interface{}) *Error {
	e.Details[key] = value
	return e
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is lets errors.Is match on the error type.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.Type == other.Type
	}
	return false
}

// FromAWS wraps an AWS SDK error as a remote service error, keeping
// the smithy API error code as a detail. NotFound-class API codes map
// to ErrorTypeNotFound.
func FromAWS(service string, err error) *Error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		wrapped := NewRemoteServiceError(fmt.Sprintf("%s call failed", service)).
			WithCause(err).
			WithDetail("service", service).
			WithDetail("code", apiErr.ErrorCode())
		switch apiErr.ErrorCode() {
		case "ResourceNotFoundException", "NoSuchEntity", "ParameterNotFound", "QueueDoesNotExist":
			wrapped.Type = ErrorTypeNotFound
		}
		return wrapped
	}
	return NewRemoteServiceError(fmt.Sprintf("%s call failed", service)).
		WithCause(err).
		WithDetail("service", service)
}

// IsType reports whether err (or anything it wraps) carries the given type.
func IsType(err error, errorType ErrorType) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Type == errorType
	}
	return false
}
