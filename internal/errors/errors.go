package errors

import (
	"errors"
	"net/http"
)

// Error kinds. Every AppError unwraps to exactly one of these.
var (
	// ErrValidation is returned when input is missing or malformed.
	ErrValidation = errors.New("validation error")
	// ErrUnauthenticated is returned when a token is missing, invalid or expired.
	ErrUnauthenticated = errors.New("authentication error")
	// ErrForbidden is returned when a valid identity lacks the required role.
	ErrForbidden = errors.New("authorization error")
	// ErrNotFound is returned when an entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a unique key is already taken.
	ErrConflict = errors.New("conflict")
	// ErrStorage is returned on file I/O or parse failures.
	ErrStorage = errors.New("storage error")
	// ErrStorageBusy is returned when a collection lock could not be acquired in time.
	ErrStorageBusy = errors.New("storage busy")
	// ErrRateLimited is returned when a client exceeds its request budget.
	ErrRateLimited = errors.New("rate limited")
)

// AppError carries a kind, a client-facing message and an optional cause.
type AppError struct {
	Kind    error
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *AppError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Validation creates a 400 error.
func Validation(message string) *AppError {
	return &AppError{Kind: ErrValidation, Message: message}
}

// Unauthenticated creates a 401 error.
func Unauthenticated(message string) *AppError {
	return &AppError{Kind: ErrUnauthenticated, Message: message}
}

// Forbidden creates a 403 error.
func Forbidden(message string) *AppError {
	return &AppError{Kind: ErrForbidden, Message: message}
}

// NotFound creates a 404 error.
func NotFound(message string) *AppError {
	return &AppError{Kind: ErrNotFound, Message: message}
}

// Conflict creates a 409 error.
func Conflict(message string) *AppError {
	return &AppError{Kind: ErrConflict, Message: message}
}

// Storage wraps an I/O or parse failure.
func Storage(message string, err error) *AppError {
	return &AppError{Kind: ErrStorage, Message: message, Err: err}
}

// Busy wraps a lock acquisition timeout.
func Busy(message string, err error) *AppError {
	return &AppError{Kind: ErrStorageBusy, Message: message, Err: err}
}

// RateLimited creates a 429 error.
func RateLimited(message string) *AppError {
	return &AppError{Kind: ErrRateLimited, Message: message}
}

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	Message string `json:"message"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	// Internal is set for server-side failures that should be logged but not shown.
	Internal error
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
	}
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{Message: e.Message}
}

// MapErrorToHTTP maps domain errors to HTTP errors.
func MapErrorToHTTP(err error) *HTTPError {
	var appErr *AppError
	message := "Internal server error"
	if errors.As(err, &appErr) {
		message = appErr.Message
	}

	switch {
	case errors.Is(err, ErrValidation):
		return NewHTTPError(http.StatusBadRequest, message)
	case errors.Is(err, ErrUnauthenticated):
		return NewHTTPError(http.StatusUnauthorized, message)
	case errors.Is(err, ErrForbidden):
		return NewHTTPError(http.StatusForbidden, message)
	case errors.Is(err, ErrNotFound):
		return NewHTTPError(http.StatusNotFound, message)
	case errors.Is(err, ErrConflict):
		return NewHTTPError(http.StatusConflict, message)
	case errors.Is(err, ErrRateLimited):
		return NewHTTPError(http.StatusTooManyRequests, message)
	case errors.Is(err, ErrStorageBusy):
		return &HTTPError{StatusCode: http.StatusServiceUnavailable, Message: "Storage busy, please retry", Internal: err}
	default:
		return &HTTPError{StatusCode: http.StatusInternalServerError, Message: "Internal server error", Internal: err}
	}
}
