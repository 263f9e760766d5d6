// Package apierr defines the request-scoped error type translated into the
// JSON error envelope by the HTTP layer.
package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Stable client-facing error codes carried in the envelope "code" field.
const (
	// CodeUnauthenticated indicates a missing or malformed Authorization header.
	CodeUnauthenticated = "UNAUTHENTICATED"
	// CodeInvalidToken indicates a bearer token the identity service rejected.
	CodeInvalidToken = "INVALID_TOKEN"
	// CodeValidationError indicates invalid request input.
	CodeValidationError = "VALIDATION_ERROR"
	// CodeSubscriptionError indicates a quota or subscription denial.
	CodeSubscriptionError = "SUBSCRIPTION_ERROR"
	// CodeRateLimitExceeded indicates the fixed-window rate limit fired.
	CodeRateLimitExceeded = "RATE_LIMIT_EXCEEDED"
	// CodeAIServiceError indicates the generative-text provider failed.
	CodeAIServiceError = "AI_SERVICE_ERROR"
	// CodeInternalError indicates an unexpected server-side failure.
	CodeInternalError = "INTERNAL_ERROR"
)

// Error pairs an HTTP status with a stable code and a client-safe message.
type Error struct {
	Status  int    // HTTP status code.
	Code    string // Stable machine-readable code.
	Message string // Client-safe message.
	Err     error  // Underlying cause, never serialized.
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// Unauthenticated builds a 401 for absent or malformed credentials.
func Unauthenticated(message string) *Error {
	return &Error{Status: http.StatusUnauthorized, Code: CodeUnauthenticated, Message: message}
}

// InvalidToken builds a 401 for tokens the identity service rejected.
func InvalidToken(message string, err error) *Error {
	return &Error{Status: http.StatusUnauthorized, Code: CodeInvalidToken, Message: message, Err: err}
}

// Validation builds a 400 for invalid request input.
func Validation(message string) *Error {
	return &Error{Status: http.StatusBadRequest, Code: CodeValidationError, Message: message}
}

// Subscription builds a 403 for quota denials.
func Subscription(message string) *Error {
	return &Error{Status: http.StatusForbidden, Code: CodeSubscriptionError, Message: message}
}

// RateLimited builds a 429 for rate-limit denials.
func RateLimited(message string) *Error {
	return &Error{Status: http.StatusTooManyRequests, Code: CodeRateLimitExceeded, Message: message}
}

// AIService builds a 502 for provider failures.
func AIService(message string, err error) *Error {
	return &Error{Status: http.StatusBadGateway, Code: CodeAIServiceError, Message: message, Err: err}
}

// Internal builds a 500 wrapping an unexpected failure.
func Internal(err error) *Error {
	return &Error{Status: http.StatusInternalServerError, Code: CodeInternalError, Message: "internal server error", Err: err}
}

// From coerces any error into an *Error, wrapping unknown errors as internal.
func From(err error) *Error {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return Internal(err)
}
