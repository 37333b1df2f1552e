package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	err := New("ACC_001", "Write access denied", http.StatusForbidden)
	assert.Equal(t, "[ACC_001] Write access denied", err.Error())
}

func TestAppError_ErrorWithWrapped(t *testing.T) {
	inner := errors.New("connection refused")
	err := Wrap("SYS_002", "Temporary storage failure, safe to retry", http.StatusServiceUnavailable, inner)
	assert.Equal(t, "[SYS_002] Temporary storage failure, safe to retry: connection refused", err.Error())
}

func TestAppError_Unwrap(t *testing.T) {
	inner := errors.New("root cause")
	err := Transient(fmt.Errorf("commit tx: %w", inner))
	assert.True(t, errors.Is(err, inner))
}

func TestErrorConstructors_HTTPStatus(t *testing.T) {
	cases := []struct {
		name   string
		err    *AppError
		status int
	}{
		{"unauthorized", ErrUnauthorized(), http.StatusUnauthorized},
		{"forbidden", ErrForbidden("Write access denied"), http.StatusForbidden},
		{"not found", ErrNotFound("payment"), http.StatusNotFound},
		{"invalid amount", ErrInvalidAmount(), http.StatusBadRequest},
		{"adjustment reason", ErrAdjustmentReasonRequired(), http.StatusBadRequest},
		{"invalid transition", ErrInvalidTransition("APPROVED", "APPROVED"), http.StatusUnprocessableEntity},
		{"conflict", ErrConflict(), http.StatusConflict},
		{"transient", Transient(errors.New("x")), http.StatusServiceUnavailable},
		{"validation", Validation("period is required"), http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.status, tc.err.HTTPStatus)
		})
	}
}

func TestErrNotFound_Message(t *testing.T) {
	assert.Equal(t, "task not found", ErrNotFound("task").Message)
}

func TestErrInvalidTransition_Message(t *testing.T) {
	err := ErrInvalidTransition("CANCELLED", "APPROVED")
	assert.Contains(t, err.Message, "CANCELLED")
	assert.Contains(t, err.Message, "APPROVED")
}
