package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sricli/internal/config"
	"sricli/internal/files"
	"sricli/internal/services"
)

func setupHealthHandler(t *testing.T, withDataset bool) chi.Router {
	t.Helper()

	paths := config.PathsFor(t.TempDir())
	require.NoError(t, paths.EnsureDirectories())

	if withDataset {
		dataset := filepath.Join(paths.RawDir, "sri_ventas_2024_01.csv")
		require.NoError(t, os.WriteFile(dataset, []byte("PROVINCIA|TOTAL_VENTAS\nPICHINCHA|100\n"), 0o644))
	}

	svc := services.NewHealthService("test", "", paths,
		files.NewManager(paths), files.NewDiscovery(paths.RawDir), nil, nil, slog.Default())

	handler := NewHealthHandler(svc, slog.Default())

	r := chi.NewRouter()
	r.Get("/api/v1/health", handler.HealthCheck)
	r.Get("/api/v1/health/ready", handler.ReadinessCheck)
	r.Get("/api/v1/health/stats", handler.SystemStats)
	r.Get("/api/v1/version", handler.Version)
	return r
}

func TestHealthHandlerHealthCheck(t *testing.T) {
	router := setupHealthHandler(t, false)

	rec, body := doJSON(t, router, http.MethodGet, "/api/v1/health")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "test", body["version"])
}

func TestHealthHandlerReadinessReadyWithDataset(t *testing.T) {
	router := setupHealthHandler(t, true)

	rec, body := doJSON(t, router, http.MethodGet, "/api/v1/health/ready")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ready", body["status"])
}

func TestHealthHandlerReadinessNotReadyWithoutDatasets(t *testing.T) {
	router := setupHealthHandler(t, false)

	rec, body := doJSON(t, router, http.MethodGet, "/api/v1/health/ready")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "not_ready", body["status"])

	servicesMap := body["services"].(map[string]interface{})
	datasets := servicesMap["datasets"].(map[string]interface{})
	assert.NotEqual(t, "ready", datasets["status"])
}

func TestHealthHandlerVersion(t *testing.T) {
	router := setupHealthHandler(t, false)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/version", nil))

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "test", body["version"])
	assert.NotEmpty(t, body["go_version"])
}

func TestHealthHandlerSystemStats(t *testing.T) {
	router := setupHealthHandler(t, true)

	rec, body := doJSON(t, router, http.MethodGet, "/api/v1/health/stats")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.GreaterOrEqual(t, body["total_files"].(float64), float64(1))
}
