package httputil

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Sumit-Saurabh98/indexsearch/pkg/errors"
	"github.com/Sumit-Saurabh98/indexsearch/pkg/logger"
	"github.com/Sumit-Saurabh98/indexsearch/pkg/validator"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestWriteData(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteData(rec, http.StatusCreated, map[string]string{"id": "p1"})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	resp := decode(t, rec)
	assert.True(t, resp.Success)
	assert.Equal(t, map[string]any{"id": "p1"}, resp.Data)
	assert.Nil(t, resp.Error)
}

func TestWriteMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteMessage(rec, http.StatusOK, "cache cleared")

	resp := decode(t, rec)
	assert.True(t, resp.Success)
	assert.Equal(t, "cache cleared", resp.Message)
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		code    string
		message string
	}{
		{"app error", apperrors.InvalidInput("minPrice must be a number"), http.StatusBadRequest, "INVALID_INPUT", "minPrice must be a number"},
		{"wrapped app error", fmt.Errorf("get: %w", apperrors.NotFound("product", "p9")), http.StatusNotFound, "NOT_FOUND", "product with id p9 not found"},
		{"sentinel not found", fmt.Errorf("x: %w", apperrors.ErrNotFound), http.StatusNotFound, "NOT_FOUND", "resource not found"},
		{"sentinel unavailable", apperrors.ErrServiceUnavail, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "a dependency is unavailable"},
		{"unknown", errors.New("pq: relation missing"), http.StatusInternalServerError, "INTERNAL_ERROR", "an internal error occurred"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/v1/search/product", nil)
			WriteError(rec, req, tc.err, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))

			assert.Equal(t, tc.status, rec.Code)
			resp := decode(t, rec)
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tc.code, resp.Error.Code)
			assert.Equal(t, tc.message, resp.Error.Message)
		})
	}
}

func TestWriteError_LogsServerErrorsWithRequestID(t *testing.T) {
	var buf bytes.Buffer
	fallback := slog.New(slog.NewJSONHandler(&buf, nil))

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req = req.WithContext(logger.WithCorrelationID(req.Context(), "corr-1"))
	rec := httptest.NewRecorder()
	WriteError(rec, req, errors.New("boom"), fallback)

	resp := decode(t, rec)
	assert.Equal(t, "corr-1", resp.Error.RequestID)
	assert.Contains(t, buf.String(), "request failed")
	assert.Contains(t, buf.String(), "boom")
}

func TestWriteError_DoesNotLogClientErrors(t *testing.T) {
	var buf bytes.Buffer
	fallback := slog.New(slog.NewJSONHandler(&buf, nil))

	rec := httptest.NewRecorder()
	WriteError(rec, httptest.NewRequest(http.MethodGet, "/x", nil), apperrors.InvalidInput("bad"), fallback)
	assert.Zero(t, buf.Len())
}

func TestWriteValidationError(t *testing.T) {
	type input struct {
		Title string `json:"title" validate:"required"`
	}
	rec := httptest.NewRecorder()
	WriteValidationError(rec, validator.Validate(input{}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decode(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
	assert.Equal(t, "is required", resp.Error.Fields["title"])

	rec = httptest.NewRecorder()
	WriteValidationError(rec, errors.New("decode request body: EOF"))
	resp = decode(t, rec)
	assert.Equal(t, "INVALID_INPUT", resp.Error.Code)
}
