package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Authentication (AUTH) ----

func ErrUnauthorized() *AppError {
	return New("AUTH_001", "Authentication required", http.StatusUnauthorized)
}

func ErrInvalidToken() *AppError {
	return New("AUTH_002", "Invalid or expired token", http.StatusUnauthorized)
}

func ErrInvalidCredentials() *AppError {
	return New("AUTH_003", "Invalid credentials", http.StatusUnauthorized)
}

func ErrUsernameExists() *AppError {
	return New("AUTH_004", "Username already exists", http.StatusConflict)
}

// ---- Authorization & Scoping (ACC) ----

func ErrForbidden(reason string) *AppError {
	return New("ACC_001", reason, http.StatusForbidden)
}

// ErrNotFound covers both absent entities and entities outside the caller's
// visible scope. The two are indistinguishable to the caller.
func ErrNotFound(entity string) *AppError {
	return New("ACC_002", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

// ---- Payment Business Logic (PAY) ----

func ErrInvalidAmount() *AppError {
	return New("PAY_001", "Amount must be greater than zero", http.StatusBadRequest)
}

func ErrNegativeNetAmount() *AppError {
	return New("PAY_002", "Withholding tax exceeds total amount", http.StatusBadRequest)
}

func ErrAdjustmentReasonRequired() *AppError {
	return New("PAY_003", "Adjustment reason is required when changing amounts on a paid payment", http.StatusBadRequest)
}

func ErrPaymentLocked() *AppError {
	return New("PAY_004", "Cancelled payments cannot be edited", http.StatusBadRequest)
}

func ErrInvalidTransition(from, to string) *AppError {
	return New("PAY_005", fmt.Sprintf("Cannot transition payment from %s to %s", from, to), http.StatusUnprocessableEntity)
}

func ErrConflict() *AppError {
	return New("PAY_006", "Record was modified concurrently, please retry", http.StatusConflict)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

func ErrDatabaseError(err error) *AppError {
	return Wrap("SYS_001", "Internal database error", http.StatusInternalServerError, err)
}

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

// Transient wraps a storage failure that is safe for the caller to retry.
func Transient(err error) *AppError {
	return Wrap("SYS_002", "Temporary storage failure, safe to retry", http.StatusServiceUnavailable, err)
}

// Validation returns a field-level validation error.
func Validation(message string) *AppError {
	return New("VAL_001", message, http.StatusBadRequest)
}
