package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "sricli/internal/errors"
	"sricli/internal/operations"
)

// stubOperationsService records start calls and answers from a snapshot map.
type stubOperationsService struct {
	snapshots map[string]operations.Snapshot
	started   []operations.Params
	startErr  error
	cancelErr error
}

func (s *stubOperationsService) Start(ctx context.Context, opType string, params operations.Params) (operations.Snapshot, error) {
	if s.startErr != nil {
		return operations.Snapshot{}, s.startErr
	}
	s.started = append(s.started, params)
	return operations.Snapshot{
		ID:        "9d9ad0d6-0bfa-4cc5-9e21-11f84b1a2f01",
		Type:      opType,
		Status:    operations.StatusPending,
		Params:    params,
		StartTime: time.Now(),
	}, nil
}

func (s *stubOperationsService) Get(ctx context.Context, id string) (operations.Snapshot, error) {
	snap, ok := s.snapshots[id]
	if !ok {
		return operations.Snapshot{}, apperrors.ErrOperationNotFound
	}
	return snap, nil
}

func (s *stubOperationsService) List(ctx context.Context) []operations.Snapshot {
	snaps := make([]operations.Snapshot, 0, len(s.snapshots))
	for _, snap := range s.snapshots {
		snaps = append(snaps, snap)
	}
	return snaps
}

func (s *stubOperationsService) Cancel(ctx context.Context, id string) error {
	return s.cancelErr
}

func setupOperationsHandler(t *testing.T, svc OperationsServiceInterface) chi.Router {
	t.Helper()

	logger := slog.Default()
	handler := NewOperationsHandler(svc, logger, apperrors.NewErrorHandler(logger, false))

	r := chi.NewRouter()
	r.Mount("/api/v1/operations", handler.Routes())
	return r
}

func postJSON(t *testing.T, router chi.Router, path, payload string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func TestOperationsHandlerStart(t *testing.T) {
	svc := &stubOperationsService{}
	router := setupOperationsHandler(t, svc)

	rec, body := postJSON(t, router, "/api/v1/operations",
		`{"type":"ingest","year":2024,"month":"03","force":true}`)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "accepted", body["status"])

	require.Len(t, svc.started, 1)
	assert.Equal(t, 2024, svc.started[0].Year)
	assert.Equal(t, "03", svc.started[0].Month)
	assert.True(t, svc.started[0].Force)

	data := body["data"].(map[string]interface{})
	assert.Equal(t, operations.TypeIngest, data["type"])
	assert.NotEmpty(t, data["id"])
}

func TestOperationsHandlerStartRejectsBadRequests(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"missing type", `{"year":2024}`},
		{"unknown type", `{"type":"liquidate"}`},
		{"month without year", `{"type":"ingest","month":"03"}`},
		{"month out of range", `{"type":"ingest","year":2024,"month":"13"}`},
		{"year out of range", `{"type":"ingest","year":1999}`},
		{"malformed json", `{"type":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubOperationsService{}
			router := setupOperationsHandler(t, svc)

			rec, _ := postJSON(t, router, "/api/v1/operations", tt.payload)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Empty(t, svc.started)
		})
	}
}

func TestOperationsHandlerStartRejectsWrongContentType(t *testing.T) {
	router := setupOperationsHandler(t, &stubOperationsService{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/operations", strings.NewReader(`{"type":"ingest"}`))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestOperationsHandlerStartRequiresContentType(t *testing.T) {
	router := setupOperationsHandler(t, &stubOperationsService{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/operations", strings.NewReader(`{"type":"ingest"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOperationsHandlerStartConflictWhenAlreadyRunning(t *testing.T) {
	svc := &stubOperationsService{startErr: apperrors.ErrOperationAlreadyRunning}
	router := setupOperationsHandler(t, svc)

	rec, body := postJSON(t, router, "/api/v1/operations", `{"type":"ingest"}`)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, apperrors.TypeOperationRunning, body["type"])
}

func TestOperationsHandlerGet(t *testing.T) {
	snap := operations.Snapshot{
		ID:     "9d9ad0d6-0bfa-4cc5-9e21-11f84b1a2f01",
		Type:   operations.TypeIngest,
		Status: operations.StatusCompleted,
	}
	svc := &stubOperationsService{snapshots: map[string]operations.Snapshot{snap.ID: snap}}
	router := setupOperationsHandler(t, svc)

	rec, body := doJSON(t, router, http.MethodGet, "/api/v1/operations/"+snap.ID)

	assert.Equal(t, http.StatusOK, rec.Code)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, string(operations.StatusCompleted), data["status"])
}

func TestOperationsHandlerGetUnknownIs404(t *testing.T) {
	router := setupOperationsHandler(t, &stubOperationsService{})

	rec, body := doJSON(t, router, http.MethodGet, "/api/v1/operations/no-such-op")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, apperrors.TypeOperationNotFound, body["type"])
}

func TestOperationsHandlerList(t *testing.T) {
	svc := &stubOperationsService{snapshots: map[string]operations.Snapshot{
		"a": {ID: "a", Type: operations.TypeIngest, Status: operations.StatusRunning},
		"b": {ID: "b", Type: operations.TypeIngest, Status: operations.StatusCompleted},
	}}
	router := setupOperationsHandler(t, svc)

	rec, body := doJSON(t, router, http.MethodGet, "/api/v1/operations")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 2, body["count"])
}

func TestOperationsHandlerCancel(t *testing.T) {
	router := setupOperationsHandler(t, &stubOperationsService{})

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/operations/some-id", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "cancelled", body["status"])
	assert.Equal(t, "some-id", body["id"])
}

func TestOperationsHandlerCancelUnknownIs404(t *testing.T) {
	router := setupOperationsHandler(t, &stubOperationsService{cancelErr: apperrors.ErrOperationNotFound})

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/operations/no-such-op", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
