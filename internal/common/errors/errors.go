// Package errors provides the standardized error taxonomy for the chat
// dispatcher and the data API. Every dispatcher branch recovers these
// locally; none of them reach the conversation surface.
package errors

import (
	"fmt"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Facade or generative-AI service unreachable, or a timeout.
	ErrCodeNetworkFailure ErrorCode = "NETWORK_FAILURE"
	// Expected field missing or malformed JSON in a record.
	ErrCodeDataShapeFailure ErrorCode = "DATA_SHAPE_FAILURE"
	// Named-user or location lookup found nothing.
	ErrCodeNoMatchFailure ErrorCode = "NO_MATCH_FAILURE"

	ErrCodeGenAITimeout ErrorCode = "GENAI_TIMEOUT"
	ErrCodeGenAIFailed  ErrorCode = "GENAI_FAILED"

	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed     ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeInvalidActionType        ErrorCode = "INVALID_ACTION_TYPE"
	ErrCodeRequestValidationFailed  ErrorCode = "REQUEST_VALIDATION_FAILED"
	ErrCodeNotificationSendFailed   ErrorCode = "NOTIFICATION_SEND_FAILED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// NewNetworkFailure creates a retryable transport-level error.
func NewNetworkFailure(service string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNetworkFailure,
		Message:   fmt.Sprintf("%s unreachable", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewDataShapeFailure creates a non-retryable malformed-payload error.
func NewDataShapeFailure(field string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDataShapeFailure,
		Message:   "unexpected data shape",
		Details:   fmt.Sprintf("field: %s, error: %s", field, err.Error()),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewNoMatchFailure creates a non-retryable empty-lookup error.
func NewNoMatchFailure(kind, needle string) *StandardError {
	return &StandardError{
		Code:      ErrCodeNoMatchFailure,
		Message:   fmt.Sprintf("no %s match", kind),
		Details:   fmt.Sprintf("needle: %s", needle),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewGenAITimeout creates a retryable generative-service deadline error.
func NewGenAITimeout(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeGenAITimeout,
		Message:   "generative service deadline exceeded",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewGenAIFailed creates a retryable generative-service error.
func NewGenAIFailed(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeGenAIFailed,
		Message:   "generative service request failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewQueryExecutionFailedError creates a retryable query execution error.
func NewQueryExecutionFailedError(actionType string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryExecutionFailed,
		Message:   "database query execution error",
		Details:   fmt.Sprintf("actionType: %s, error: %s", actionType, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// IsRetryable reports whether err carries retryable metadata.
func IsRetryable(err error) bool {
	if se, ok := err.(*StandardError); ok {
		return se.Retryable
	}
	return false
}
