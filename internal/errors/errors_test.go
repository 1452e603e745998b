package errors

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		errorCode  string
		message    string
	}{
		{
			name:       "bad request error",
			statusCode: http.StatusBadRequest,
			errorCode:  "INVALID_REQUEST",
			message:    "Invalid request format",
		},
		{
			name:       "not found error",
			statusCode: http.StatusNotFound,
			errorCode:  "DATASET_NOT_FOUND",
			message:    "Dataset file not found",
		},
		{
			name:       "internal error",
			statusCode: http.StatusInternalServerError,
			errorCode:  "INTERNAL_SERVER_ERROR",
			message:    "Internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.statusCode, tt.errorCode, tt.message)

			assert.Equal(t, tt.statusCode, err.StatusCode)
			assert.Equal(t, tt.errorCode, err.ErrorCode)
			assert.Equal(t, tt.message, err.Message)
			assert.Nil(t, err.Details)
			assert.Equal(t, tt.message, err.Error())
		})
	}
}

func TestNewWithDetails(t *testing.T) {
	details := map[string]string{"file": "sri_ventas_2024_01.csv"}
	err := NewWithDetails(http.StatusNotFound, "DATASET_NOT_FOUND", "Dataset file not found", details)

	assert.Equal(t, http.StatusNotFound, err.StatusCode)
	assert.Equal(t, "DATASET_NOT_FOUND", err.ErrorCode)
	assert.Equal(t, details, err.Details)
}

func TestAPIError_Render(t *testing.T) {
	err := New(http.StatusConflict, "CONFLICT", "Resource conflict")

	r := httptest.NewRequest(http.MethodGet, "/api/v1/operations", nil)
	w := httptest.NewRecorder()

	require.NoError(t, err.Render(w, r))
}

func TestPredefinedErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        *APIError
		wantStatus int
		wantCode   string
	}{
		{"invalid request", ErrInvalidRequest, http.StatusBadRequest, "INVALID_REQUEST"},
		{"validation failed", ErrValidationFailed, http.StatusBadRequest, "VALIDATION_FAILED"},
		{"not found", ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"dataset missing", ErrDatasetMissing, http.StatusNotFound, "DATASET_NOT_FOUND"},
		{"operation missing", ErrOperationMissing, http.StatusNotFound, "OPERATION_NOT_FOUND"},
		{"no data", ErrNoDataAvailable, http.StatusNotFound, "NO_DATA"},
		{"rate limited", ErrRateLimitExceeded, http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED"},
		{"operation failed", ErrOperationFailed, http.StatusInternalServerError, "OPERATION_FAILED"},
		{"websocket upgrade", ErrWebSocketUpgrade, http.StatusInternalServerError, "WEBSOCKET_UPGRADE_FAILED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantStatus, tt.err.StatusCode)
			assert.Equal(t, tt.wantCode, tt.err.ErrorCode)
			assert.NotEmpty(t, tt.err.Message)
		})
	}
}

func TestErrValidation(t *testing.T) {
	err := ErrValidation("province", "province must contain only letters")

	assert.Equal(t, http.StatusBadRequest, err.StatusCode)
	assert.Equal(t, "VALIDATION_FAILED", err.ErrorCode)

	ve, ok := err.Details.(ValidationError)
	require.True(t, ok)
	assert.Equal(t, "province", ve.Field)
	assert.Equal(t, "province must contain only letters", ve.Message)
}

func TestNewValidationErrors(t *testing.T) {
	fields := []ValidationError{
		{Field: "year", Message: "year must be at least 2000"},
		{Field: "month", Message: "month must be between 01 and 12"},
	}

	err := NewValidationErrors(fields)

	assert.Equal(t, http.StatusBadRequest, err.StatusCode)
	ves, ok := err.Details.(ValidationErrors)
	require.True(t, ok)
	assert.Len(t, ves.Errors, 2)
}

func TestDomainHelpers(t *testing.T) {
	t.Run("dataset not found", func(t *testing.T) {
		err := DatasetNotFoundError("sri_ventas_2024_03.csv")

		assert.Equal(t, http.StatusNotFound, err.StatusCode)
		assert.Equal(t, "DATASET_NOT_FOUND", err.ErrorCode)
		assert.Equal(t, "sri_ventas_2024_03.csv", err.Details)
	})

	t.Run("operation not found", func(t *testing.T) {
		err := OperationNotFoundError("f4f812fe-0000-0000-0000-000000000000")

		assert.Equal(t, http.StatusNotFound, err.StatusCode)
		assert.Equal(t, "OPERATION_NOT_FOUND", err.ErrorCode)
	})

	t.Run("filesystem error", func(t *testing.T) {
		err := FileSystemError("write", assert.AnError)

		assert.Equal(t, http.StatusInternalServerError, err.StatusCode)
		assert.Equal(t, "FILESYSTEM_ERROR", err.ErrorCode)
		assert.Contains(t, err.Message, "write")
	})
}

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()

	WriteError(w, ErrDatasetMissing)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "DATASET_NOT_FOUND", resp.Error.ErrorCode)
}
