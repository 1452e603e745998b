package app

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sricli/internal/config"
	"sricli/internal/dataprocessing"
	apperrors "sricli/internal/errors"
	"sricli/internal/exporter"
	"sricli/internal/files"
	"sricli/internal/operations"
	"sricli/internal/services"
	ws "sricli/internal/websocket"
	"sricli/pkg/contracts"
)

// newTestApplication wires an Application by hand over a temp data tree,
// skipping config.Load, the OTel providers and the portal fetcher.
func newTestApplication(t *testing.T) *Application {
	t.Helper()

	logger := slog.Default()
	paths := config.PathsFor(t.TempDir())
	require.NoError(t, paths.EnsureDirectories())

	loader := dataprocessing.NewLoader(logger, dataprocessing.DefaultLoaderConfig())
	summarizer := dataprocessing.NewSummarizer(logger, dataprocessing.DefaultSummarizerConfig())
	discovery := files.NewDiscovery(paths.RawDir)
	manager := files.NewManager(paths)

	hub := ws.NewHub(logger, nil)
	hub.Start()
	t.Cleanup(hub.Stop)

	opsManager := operations.NewManager(logger, ws.NewOperationBroadcaster(hub),
		operations.NewProcessStep(loader, exporter.NewDatasetExporter(paths), discovery, paths, nil),
		operations.NewSummarizeStep(summarizer, loader, paths),
	)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		opsManager.Shutdown(ctx)
	})

	opsService := services.NewOperationsService(logger, opsManager)

	a := &Application{
		Config:        config.Default(),
		Logger:        logger,
		Paths:         paths,
		Hub:           hub,
		Manager:       opsManager,
		DataService:   services.NewDataService(logger, paths, loader, discovery),
		OpsService:    opsService,
		HealthService: services.NewHealthService(contracts.Version, "", paths, manager, discovery, opsService, hub, logger),
		errorHandler:  apperrors.NewErrorHandler(logger, false),
	}
	a.setupRouter()
	return a
}

func get(t *testing.T, a *Application, path string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	rec := httptest.NewRecorder()
	a.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var body map[string]interface{}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestRouterServesHealth(t *testing.T) {
	a := newTestApplication(t)

	rec, body := get(t, a, "/api/v1/health")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
}

func TestRouterReadinessNotReadyOnEmptyTree(t *testing.T) {
	a := newTestApplication(t)

	rec, body := get(t, a, "/api/v1/health/ready")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "not_ready", body["status"])
}

func TestRouterSalesNoDataIs404Problem(t *testing.T) {
	a := newTestApplication(t)

	rec, body := get(t, a, "/api/v1/sales/provinces")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, apperrors.TypeNoData, body["type"])
}

func TestRouterServesAnalyticsAfterCleanDatasetAppears(t *testing.T) {
	a := newTestApplication(t)

	clean := "ANIO|MES|PROVINCIA|TOTAL_VENTAS|VENTAS_NETAS_TARIFA_0|EXPORTACIONES|IMPORTACIONES\n" +
		"2024|01|PICHINCHA|1500|500|700|100\n" +
		"2024|02|GUAYAS|2100|1000|1000|1300\n"
	require.NoError(t, os.WriteFile(a.Paths.CleanCSV, []byte(clean), 0o644))

	rec, body := get(t, a, "/api/v1/sales/provinces")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 2, body["count"])

	rec, body = get(t, a, "/api/v1/sales/imports/top")
	require.Equal(t, http.StatusOK, rec.Code)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "GUAYAS", data["province"])
}

func TestRouterDatasetListing(t *testing.T) {
	a := newTestApplication(t)

	name := filepath.Join(a.Paths.RawDir, "sri_ventas_2024_01.csv")
	require.NoError(t, os.WriteFile(name, []byte("PROVINCIA|TOTAL_VENTAS\nAZUAY|10\n"), 0o644))

	rec, body := get(t, a, "/api/v1/datasets")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, body["count"])
}

func TestRouterVersion(t *testing.T) {
	a := newTestApplication(t)

	rec, body := get(t, a, "/api/v1/version")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, contracts.Version, body["version"])
}

func TestRouterUnknownRouteIs404(t *testing.T) {
	a := newTestApplication(t)

	rec, _ := get(t, a, "/api/v1/no-such-resource")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
