package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for each failure kind surfaced by the review core.
var (
	ErrNotFound           = errors.New("resource not found")
	ErrAlreadyExists      = errors.New("resource already exists")
	ErrInvalidInput       = errors.New("invalid input")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrInternal           = errors.New("internal error")
	ErrConflict           = errors.New("conflict")
	ErrTooEarly           = errors.New("too early")
	ErrInvariantViolation = errors.New("invariant violation")
	ErrPersistence        = errors.New("persistence error")
	ErrLockTimeout        = errors.New("lock timeout")
	ErrServiceUnavail     = errors.New("service unavailable")
)

// AppError represents a structured application error with HTTP status mapping.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound creates a 404 error.
func NotFound(resource, id string) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s with id %s not found", resource, id),
		Status:  http.StatusNotFound,
		Err:     ErrNotFound,
	}
}

// AlreadyExists creates a 409 error.
func AlreadyExists(resource, field, value string) *AppError {
	return &AppError{
		Code:    "ALREADY_EXISTS",
		Message: fmt.Sprintf("%s with %s %q already exists", resource, field, value),
		Status:  http.StatusConflict,
		Err:     ErrAlreadyExists,
	}
}

// InvalidInput creates a 400 error.
func InvalidInput(message string) *AppError {
	return &AppError{
		Code:    "INVALID_INPUT",
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     ErrInvalidInput,
	}
}

// Unauthorized creates a 401 error.
func Unauthorized(message string) *AppError {
	return &AppError{
		Code:    "UNAUTHORIZED",
		Message: message,
		Status:  http.StatusUnauthorized,
		Err:     ErrUnauthorized,
	}
}

// Forbidden creates a 403 error.
func Forbidden(message string) *AppError {
	return &AppError{
		Code:    "FORBIDDEN",
		Message: message,
		Status:  http.StatusForbidden,
		Err:     ErrForbidden,
	}
}

// Conflict creates a 409 error with a generic CONFLICT code.
func Conflict(message string) *AppError {
	return ConflictWithCode("CONFLICT", message)
}

// ConflictWithCode creates a 409 error carrying a more specific failure code,
// e.g. DUPLICATE_REVIEW or SELF_REACTION.
func ConflictWithCode(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Status:  http.StatusConflict,
		Err:     ErrConflict,
	}
}

// TooEarly creates a 422 error for requests made before a time gate opens.
func TooEarly(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Status:  http.StatusUnprocessableEntity,
		Err:     ErrTooEarly,
	}
}

// InvariantViolation creates a 500 error for states that indicate a bug
// rather than bad input. These are never clamped or retried.
func InvariantViolation(message string) *AppError {
	return &AppError{
		Code:    "INVARIANT_VIOLATION",
		Message: message,
		Status:  http.StatusInternalServerError,
		Err:     ErrInvariantViolation,
	}
}

// Persistence creates a 500 error wrapping a failed storage call.
func Persistence(op string, err error) *AppError {
	return &AppError{
		Code:    "PERSISTENCE_ERROR",
		Message: op + " failed",
		Status:  http.StatusInternalServerError,
		Err:     errors.Join(ErrPersistence, err),
	}
}

// LockTimeout creates a 503 error for a keyed lock that could not be acquired in time.
func LockTimeout(key string, err error) *AppError {
	return &AppError{
		Code:    "LOCK_TIMEOUT",
		Message: fmt.Sprintf("timed out waiting for lock %q", key),
		Status:  http.StatusServiceUnavailable,
		Err:     errors.Join(ErrLockTimeout, err),
	}
}

// ServiceUnavailable creates a 503 error.
func ServiceUnavailable(message string) *AppError {
	return &AppError{
		Code:    "SERVICE_UNAVAILABLE",
		Message: message,
		Status:  http.StatusServiceUnavailable,
		Err:     ErrServiceUnavail,
	}
}

// Internal creates a 500 error.
func Internal(err error) *AppError {
	return &AppError{
		Code:    "INTERNAL_ERROR",
		Message: "an internal error occurred",
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	return fmt.Errorf("%s: %w", message, err)
}

// IsClientError reports whether err is one of the kinds recovered at the
// orchestrator boundary (validation, conflict, not found, forbidden, too early).
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrAlreadyExists) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrForbidden) ||
		errors.Is(err, ErrTooEarly)
}

// HTTPStatus returns the HTTP status code for the given error.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrAlreadyExists), errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrTooEarly):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrLockTimeout), errors.Is(err, ErrServiceUnavail):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
