package utils

import (
	"errors"
	"fmt"
	"net/http"
)

// ServiceError represents a service-level error with context
type ServiceError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"statusCode,omitempty"`
	Details    string `json:"details,omitempty"`
	Cause      error  `json:"-"` // Original error, not exposed in JSON
}

func (e ServiceError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e ServiceError) Unwrap() error {
	return e.Cause
}

// Error code constants
const (
	ErrCodeInvalidArgument  = "INVALID_ARGUMENT"
	ErrCodeConflict         = "CONFLICT"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodePermissionDenied = "PERMISSION_DENIED"
	ErrCodeExpired          = "EXPIRED"
	ErrCodeAlreadyConsumed  = "ALREADY_CONSUMED"
	ErrCodeInternal         = "INTERNAL_ERROR"
	ErrCodeDatabase         = "DATABASE_ERROR"
)

// NewServiceError creates a new service error
func NewServiceError(code, message string) error {
	return ServiceError{
		Code:       code,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
	}
}

// NewServiceErrorWithStatus creates a service error with specific HTTP status
func NewServiceErrorWithStatus(code, message string, statusCode int) error {
	return ServiceError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// GetServiceError extracts a ServiceError from an error chain
func GetServiceError(err error) (ServiceError, bool) {
	var serviceErr ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr, true
	}
	return ServiceError{}, false
}

// IsServiceError checks if an error is a service error
func IsServiceError(err error) bool {
	_, ok := GetServiceError(err)
	return ok
}

// IsKind reports whether err is a ServiceError carrying code.
func IsKind(err error, code string) bool {
	serviceErr, ok := GetServiceError(err)
	return ok && serviceErr.Code == code
}

// Error kinds used by the emergency and shutdown engine.
func NewInvalidArgumentError(message string) error {
	return ServiceError{
		Code:       ErrCodeInvalidArgument,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func NewConflictError(message string) error {
	return ServiceError{
		Code:       ErrCodeConflict,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

func NewNotFoundError(resource string) error {
	return ServiceError{
		Code:       ErrCodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		StatusCode: http.StatusNotFound,
	}
}

func NewPermissionDeniedError(message string) error {
	return ServiceError{
		Code:       ErrCodePermissionDenied,
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

func NewExpiredError(message string) error {
	return ServiceError{
		Code:       ErrCodeExpired,
		Message:    message,
		StatusCode: http.StatusGone,
	}
}

func NewAlreadyConsumedError(message string) error {
	return ServiceError{
		Code:       ErrCodeAlreadyConsumed,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

func NewInternalError(message string) error {
	return ServiceError{
		Code:       ErrCodeInternal,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
	}
}

func NewDatabaseError(operation string, cause error) error {
	return ServiceError{
		Code:       ErrCodeDatabase,
		Message:    fmt.Sprintf("Database operation failed: %s", operation),
		Cause:      cause,
		StatusCode: http.StatusInternalServerError,
	}
}

// Business logic specific errors
func NewEventNotFoundError() error {
	return NewNotFoundError("Event")
}

func NewGateNotFoundError() error {
	return NewNotFoundError("Gate")
}

func NewTokenNotFoundError() error {
	return NewNotFoundError("Shutdown token")
}

func NewUserNotFoundError() error {
	return NewNotFoundError("User")
}

// WrapDatabaseError wraps a driver error unless it already carries a kind.
func WrapDatabaseError(err error, operation string) error {
	if err == nil {
		return nil
	}
	if IsServiceError(err) {
		return err
	}
	return NewDatabaseError(operation, err)
}

// Common error instances
var (
	ErrEventNotFound = NewEventNotFoundError()
	ErrGateNotFound  = NewGateNotFoundError()
	ErrTokenNotFound = NewTokenNotFoundError()
	ErrUserNotFound  = NewUserNotFoundError()
)
