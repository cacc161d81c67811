package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType classifies failures across all retrieval strategies so the
// orchestrator can decide between retrying, falling through and giving up.
type ErrorType string

const (
	ErrorTypeNetwork       ErrorType = "network"
	ErrorTypeRateLimit     ErrorType = "rate_limit"
	ErrorTypeAuth          ErrorType = "auth"
	ErrorTypeConfig        ErrorType = "config"
	ErrorTypeTimeout       ErrorType = "timeout"
	ErrorTypeNotFound      ErrorType = "not_found"
	ErrorTypeNormalization ErrorType = "normalization"
	ErrorTypeServerError   ErrorType = "server_error"
	ErrorTypeAllFailed     ErrorType = "all_strategies_failed"
	ErrorTypeUnknown       ErrorType = "unknown"
)

// Error represents a classified fetch error with the originating HTTP status
// code when one exists.
type Error struct {
	Type    ErrorType
	Message string
	Code    int
	Cause   error
}

func (e *Error) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a classified error without an HTTP status code.
func New(errorType ErrorType, message string) *Error {
	return &Error{Type: errorType, Message: message}
}

// Newf creates a classified error with a formatted message.
func Newf(errorType ErrorType, format string, args ...interface{}) *Error {
	return &Error{Type: errorType, Message: fmt.Sprintf(format, args...)}
}

// WithCode creates a classified error carrying an HTTP status code.
func WithCode(errorType ErrorType, code int, message string) *Error {
	return &Error{Type: errorType, Message: message, Code: code}
}

// Wrap creates a classified error around an underlying cause.
func Wrap(errorType ErrorType, cause error, message string) *Error {
	return &Error{Type: errorType, Message: message, Cause: cause}
}

// IsType reports whether err is, or wraps, an *Error of the given type.
func IsType(err error, errorType ErrorType) bool {
	var apiErr *Error
	return stderrors.As(err, &apiErr) && apiErr.Type == errorType
}

// TypeOf returns the classification of err, or ErrorTypeUnknown for plain
// errors that escaped a strategy unclassified.
func TypeOf(err error) ErrorType {
	var apiErr *Error
	if stderrors.As(err, &apiErr) {
		return apiErr.Type
	}
	return ErrorTypeUnknown
}

// IsRetryable checks if an error type should be retried against the same
// strategy. Rate limits retry with backoff; everything else either falls
// through to the next strategy or terminates the request.
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeNetwork, ErrorTypeRateLimit, ErrorTypeServerError:
		return true
	default:
		return false
	}
}

// IsRetryableStatusCode checks if an HTTP status code indicates a retryable error
func IsRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case 0: // Network error
		return true
	case 429: // Too Many Requests
		return true
	case 500, 502, 503, 504: // Server errors
		return true
	case 401, 403, 404: // Client errors that won't change
		return false
	default:
		return statusCode >= 500 // Retry all 5xx errors
	}
}
