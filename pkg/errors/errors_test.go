package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	plain := &AppError{Code: "NOT_FOUND", Message: "product not found"}
	assert.Equal(t, "NOT_FOUND: product not found", plain.Error())

	wrapped := &AppError{Code: "INTERNAL_ERROR", Message: "boom", Err: fmt.Errorf("socket closed")}
	assert.Equal(t, "INTERNAL_ERROR: boom: socket closed", wrapped.Error())
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		code     string
		status   int
		sentinel error
	}{
		{"not found", NotFound("product", "p1"), "NOT_FOUND", http.StatusNotFound, ErrNotFound},
		{"invalid input", InvalidInput("bad page"), "INVALID_INPUT", http.StatusBadRequest, ErrInvalidInput},
		{"invalid input f", InvalidInputf("bad %s", "limit"), "INVALID_INPUT", http.StatusBadRequest, ErrInvalidInput},
		{"unavailable", Unavailable("elasticsearch", errors.New("dial tcp")), "SERVICE_UNAVAILABLE", http.StatusServiceUnavailable, ErrServiceUnavail},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.code, tc.err.Code)
			assert.Equal(t, tc.status, tc.err.Status)
			assert.ErrorIs(t, tc.err, tc.sentinel)
		})
	}
}

func TestNotFound_Message(t *testing.T) {
	assert.Equal(t, "product with id p1 not found", NotFound("product", "p1").Message)
}

func TestInternal_KeepsCause(t *testing.T) {
	cause := errors.New("disk full")
	err := Internal(cause)
	assert.Equal(t, "an internal error occurred", err.Message)
	assert.ErrorIs(t, err, cause)
}

func TestUnavailable_KeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Unavailable("product service", cause)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "product service is unavailable", err.Message)
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"app error wrapped", fmt.Errorf("handler: %w", InvalidInput("x")), http.StatusBadRequest},
		{"sentinel not found", fmt.Errorf("get: %w", ErrNotFound), http.StatusNotFound},
		{"sentinel invalid", ErrInvalidInput, http.StatusBadRequest},
		{"sentinel unavailable", ErrServiceUnavail, http.StatusServiceUnavailable},
		{"unknown", errors.New("mystery"), http.StatusInternalServerError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Error(t, tc.err)
			assert.Equal(t, tc.want, HTTPStatus(tc.err))
		})
	}
}
