// Package errors provides custom error types for the fabtrack API.
// All service-layer errors should use AppError to ensure consistent,
// secure error responses that never leak internal details to clients.
package errors

import "net/http"

// AppError represents a structured application error with an error code,
// human-readable message, HTTP status code, and optional internal error.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string { return e.Message }

// Unwrap returns the internal error for use with errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Wrap creates a new AppError with the same code/message/status but wraps an internal error.
func Wrap(sentinel *AppError, internal error) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		StatusCode: sentinel.StatusCode,
		Internal:   internal,
	}
}

// WithMessage creates a new AppError with a custom message.
func WithMessage(sentinel *AppError, message string) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    message,
		StatusCode: sentinel.StatusCode,
		Internal:   sentinel.Internal,
	}
}

// Authentication & authorization errors.
var (
	ErrUnauthorized       = &AppError{Code: "UNAUTHORIZED", Message: "Authentication required", StatusCode: http.StatusUnauthorized}
	ErrInvalidCredentials = &AppError{Code: "INVALID_CREDENTIALS", Message: "Invalid email or password", StatusCode: http.StatusUnauthorized}
	ErrForbidden          = &AppError{Code: "FORBIDDEN", Message: "Access denied", StatusCode: http.StatusForbidden}
	ErrAccountInactive    = &AppError{Code: "ACCOUNT_INACTIVE", Message: "Account is deactivated", StatusCode: http.StatusForbidden}
)

// General errors.
var (
	ErrInvalidInput   = &AppError{Code: "INVALID_INPUT", Message: "Invalid input", StatusCode: http.StatusBadRequest}
	ErrNotFound       = &AppError{Code: "NOT_FOUND", Message: "Resource not found", StatusCode: http.StatusNotFound}
	ErrInternalServer = &AppError{Code: "INTERNAL_ERROR", Message: "An internal error occurred", StatusCode: http.StatusInternalServerError}
)

// User errors.
var (
	ErrUserNotFound      = &AppError{Code: "USER_NOT_FOUND", Message: "User not found", StatusCode: http.StatusNotFound}
	ErrDuplicateEmail    = &AppError{Code: "DUPLICATE_EMAIL", Message: "A user with this email already exists", StatusCode: http.StatusConflict}
	ErrInvalidResetToken = &AppError{Code: "INVALID_RESET_TOKEN", Message: "Invalid or expired reset token", StatusCode: http.StatusBadRequest}
)

// Part errors.
var (
	ErrPartNotFound = &AppError{Code: "PART_NOT_FOUND", Message: "Record not found", StatusCode: http.StatusNotFound}
)

// Upload errors.
var (
	ErrNoFile           = &AppError{Code: "NO_FILE", Message: "No file uploaded", StatusCode: http.StatusBadRequest}
	ErrFileValidation   = &AppError{Code: "FILE_VALIDATION_FAILED", Message: "File validation failed", StatusCode: http.StatusBadRequest}
	ErrProcessingFailed = &AppError{Code: "PROCESSING_FAILED", Message: "Failed to process CSV file", StatusCode: http.StatusInternalServerError}
	ErrNoErrorReport    = &AppError{Code: "NO_ERROR_REPORT", Message: "No error file found", StatusCode: http.StatusNotFound}
)
