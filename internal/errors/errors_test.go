package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorFormatting(t *testing.T) {
	err := NewValidationError("missing --queue")
	assert.Equal(t, "validation: missing --queue", err.Error())

	cause := errors.New("connection refused")
	wrapped := NewRemoteServiceError("lambda call failed").WithCause(cause)
	assert.Contains(t, wrapped.Error(), "remote_service")
	assert.Contains(t, wrapped.Error(), "connection refused")
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := NewRemoteServiceError("call failed").WithCause(cause)

	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, fmt.Errorf("outer: %w", err), cause)
}

func TestIsType(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", NewNotFoundError("no table matched pattern"))

	assert.True(t, IsType(err, ErrorTypeNotFound))
	assert.False(t, IsType(err, ErrorTypeValidation))
	assert.False(t, IsType(errors.New("plain"), ErrorTypeNotFound))
}

func TestErrorDetails(t *testing.T) {
	err := NewRemoteServiceError("dynamodb call failed").
		WithDetail("service", "dynamodb").
		WithDetail("table", "nva-customers")

	assert.Equal(t, "dynamodb", err.Details["service"])
	assert.Equal(t, "nva-customers", err.Details["table"])
}

func TestFromAWSPlainError(t *testing.T) {
	err := FromAWS("sqs", errors.New("dial tcp: timeout"))

	assert.Equal(t, ErrorTypeRemoteService, err.Type)
	assert.Equal(t, "sqs", err.Details["service"])
}
