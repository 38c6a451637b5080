package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrNotFound     ErrorType = "NOT_FOUND"
	ErrRateLimit    ErrorType = "RATE_LIMIT"
	ErrInvalidInput ErrorType = "INVALID_INPUT"
	ErrInternal     ErrorType = "INTERNAL"
	ErrUnauthorized ErrorType = "UNAUTHORIZED"
	ErrConfig       ErrorType = "CONFIG"
	ErrTimeout      ErrorType = "TIMEOUT"
	ErrUnavailable  ErrorType = "UNAVAILABLE"
	ErrUpstream     ErrorType = "UPSTREAM"
)

// AppError represents an application error
type AppError struct {
	Type      ErrorType
	Message   string
	Cause     error
	Timestamp time.Time
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError
func New(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:      errType,
		Message:   message,
		Cause:     cause,
		Timestamp: time.Now(),
	}
}

// TypeOf returns the ErrorType of the first AppError in err's chain, or
// ErrInternal when there is none.
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Type
	}
	var upstream *UpstreamError
	if stderrors.As(err, &upstream) {
		return ErrUpstream
	}
	return ErrInternal
}

// IsNotFound checks if the error is a not found error
func IsNotFound(err error) bool {
	return TypeOf(err) == ErrNotFound
}

// IsRateLimit checks if the error is a rate limit error
func IsRateLimit(err error) bool {
	return TypeOf(err) == ErrRateLimit
}

// IsInvalidInput checks if the error is an invalid input error
func IsInvalidInput(err error) bool {
	return TypeOf(err) == ErrInvalidInput
}

// IsValidationError is an alias for IsInvalidInput
func IsValidationError(err error) bool {
	return IsInvalidInput(err)
}

// Message returns the user-facing message of err. AppErrors expose only
// their message; anything else exposes its full string.
func Message(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Message
	}
	var upstream *UpstreamError
	if stderrors.As(err, &upstream) {
		return upstream.Error()
	}
	return err.Error()
}

// HTTPStatus maps an error onto the status code returned to API callers.
func HTTPStatus(err error) int {
	var upstream *UpstreamError
	if stderrors.As(err, &upstream) && upstream.StatusCode >= 400 {
		return upstream.StatusCode
	}

	switch TypeOf(err) {
	case ErrNotFound:
		return http.StatusNotFound
	case ErrInvalidInput:
		return http.StatusBadRequest
	case ErrUnauthorized:
		return http.StatusUnauthorized
	case ErrRateLimit:
		return http.StatusTooManyRequests
	case ErrTimeout:
		return http.StatusGatewayTimeout
	case ErrUnavailable:
		return http.StatusServiceUnavailable
	case ErrUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// UpstreamError represents a rejection returned by a third-party API
type UpstreamError struct {
	Service    string
	StatusCode int
	Details    interface{}
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s API error: %d", e.Service, e.StatusCode)
}

// NewUpstreamError creates a new UpstreamError
func NewUpstreamError(service string, statusCode int, details interface{}) *UpstreamError {
	return &UpstreamError{
		Service:    service,
		StatusCode: statusCode,
		Details:    details,
	}
}

// NotFoundError represents a missing resource
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// NewResourceNotFoundError creates a not found AppError for a specific resource
func NewResourceNotFoundError(resource string, id interface{}) *AppError {
	nf := &NotFoundError{Resource: resource, ID: fmt.Sprint(id)}
	return New(ErrNotFound, fmt.Sprintf("%s not found", resource), nf)
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string, err error) *AppError {
	return New(ErrNotFound, message, err)
}

// NewValidationError creates a new validation error
func NewValidationError(message string, err error) *AppError {
	return New(ErrInvalidInput, message, err)
}

// NewUnauthorizedError creates a new unauthorized error
func NewUnauthorizedError(message string, err error) *AppError {
	return New(ErrUnauthorized, message, err)
}

// NewRateLimitError creates a new rate limit error
func NewRateLimitError(message string) *AppError {
	return New(ErrRateLimit, message, nil)
}

// NewInternalError creates a new internal error
func NewInternalError(message string, err error) *AppError {
	return New(ErrInternal, message, err)
}

// NewConfigError creates an error for a missing or invalid setting
func NewConfigError(message string) *AppError {
	return New(ErrConfig, message, nil)
}

// NewTimeoutError creates an error for an outbound call that timed out
func NewTimeoutError(message string, err error) *AppError {
	return New(ErrTimeout, message, err)
}

// NewUnavailableError creates an error for an unreachable upstream
func NewUnavailableError(message string, err error) *AppError {
	return New(ErrUnavailable, message, err)
}
