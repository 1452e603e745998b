package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"sricli/internal/config"
	"sricli/internal/files"
)

// ClientCounter reports how many live websocket clients are connected.
// *websocket.Hub implements it.
type ClientCounter interface {
	ClientCount() int
}

// HealthService answers liveness and readiness probes. Liveness only says
// the process is up; readiness additionally requires writable storage and
// at least one downloaded dataset, because the analytics endpoints are
// useless before the first ingest.
type HealthService struct {
	version   string
	buildTime string
	paths     *config.Paths
	manager   *files.Manager
	discovery *files.Discovery
	ops       *OperationsService
	clients   ClientCounter
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus is the health endpoint response body.
type HealthStatus struct {
	Status    string                   `json:"status"`
	Timestamp time.Time                `json:"timestamp"`
	Version   string                   `json:"version"`
	Runtime   map[string]any           `json:"runtime,omitempty"`
	Services  map[string]ServiceHealth `json:"services,omitempty"`
}

// ServiceHealth is one dependency's health inside a readiness response.
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// SystemStats is a point-in-time view of the process and its data tree.
type SystemStats struct {
	UptimeSeconds    float64 `json:"uptime_seconds"`
	TotalFiles       int     `json:"total_files"`
	TotalSizeBytes   int64   `json:"total_size_bytes"`
	LatestDataset    string  `json:"latest_dataset,omitempty"`
	WebSocketClients int     `json:"websocket_clients"`
	ActiveOperations int     `json:"active_operations"`
	GoVersion        string  `json:"go_version"`
	OS               string  `json:"os"`
	Arch             string  `json:"arch"`
}

// NewHealthService creates a health service. ops and clients may be nil;
// the corresponding stats then report zero.
func NewHealthService(version, buildTime string, paths *config.Paths, manager *files.Manager, discovery *files.Discovery, ops *OperationsService, clients ClientCounter, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthService{
		version:   version,
		buildTime: buildTime,
		paths:     paths,
		manager:   manager,
		discovery: discovery,
		ops:       ops,
		clients:   clients,
		startTime: time.Now(),
		logger:    logger,
	}
}

// HealthCheck returns the liveness status.
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   hs.version,
		Runtime: map[string]any{
			"uptime_seconds": time.Since(hs.startTime).Seconds(),
			"go_version":     runtime.Version(),
			"goroutines":     runtime.NumGoroutine(),
		},
	}
}

// ReadinessCheck reports whether the server can usefully answer analytics
// requests: storage must be writable and at least one dataset downloaded.
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ready",
		Timestamp: time.Now(),
		Version:   hs.version,
		Services:  make(map[string]ServiceHealth),
	}

	status.Services["storage"] = hs.checkStorage()
	status.Services["datasets"] = hs.checkDatasets()

	for name, service := range status.Services {
		if service.Status != "ready" {
			status.Status = "not_ready"
			hs.logger.WarnContext(ctx, "readiness check failed",
				"service", name,
				"message", service.Message)
		}
	}

	return status
}

// Version returns version and build information.
func (hs *HealthService) Version() map[string]any {
	result := map[string]any{
		"version":      hs.version,
		"go_version":   runtime.Version(),
		"os":           runtime.GOOS,
		"arch":         runtime.GOARCH,
		"uptime":       time.Since(hs.startTime).Seconds(),
		"start_time":   hs.startTime.Format(time.RFC3339),
		"current_time": time.Now().Format(time.RFC3339),
	}
	if hs.buildTime != "" {
		result["build_time"] = hs.buildTime
	}
	return result
}

// SystemStats walks the data tree and gathers process-level counters.
func (hs *HealthService) SystemStats(ctx context.Context) (SystemStats, error) {
	var totalFiles int
	var totalSize int64

	filepath.Walk(hs.paths.DataDir, func(path string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() {
			totalFiles++
			totalSize += info.Size()
		}
		return nil
	})

	stats := SystemStats{
		UptimeSeconds:  time.Since(hs.startTime).Seconds(),
		TotalFiles:     totalFiles,
		TotalSizeBytes: totalSize,
		GoVersion:      runtime.Version(),
		OS:             runtime.GOOS,
		Arch:           runtime.GOARCH,
	}
	if found, err := hs.discovery.FindFilesByPattern(hs.paths.RawDir, config.DatasetFilePrefix+"*"); err == nil {
		if latest, ok := files.GetLatestFile(found); ok {
			stats.LatestDataset = latest.Name
		}
	}

	if hs.clients != nil {
		stats.WebSocketClients = hs.clients.ClientCount()
	}
	if hs.ops != nil {
		stats.ActiveOperations = hs.ops.ActiveCount(ctx)
	}
	return stats, nil
}

func (hs *HealthService) checkStorage() ServiceHealth {
	for _, dir := range []string{hs.paths.RawDir, hs.paths.ReportsDir} {
		if err := hs.manager.CheckWritable(dir); err != nil {
			return ServiceHealth{
				Status:  "not_ready",
				Message: fmt.Sprintf("directory not writable: %v", err),
			}
		}
	}
	return ServiceHealth{Status: "ready"}
}

func (hs *HealthService) checkDatasets() ServiceHealth {
	datasets, err := hs.discovery.FindDatasetFiles(hs.paths.RawDir)
	if err != nil {
		return ServiceHealth{
			Status:  "not_ready",
			Message: fmt.Sprintf("dataset discovery failed: %v", err),
		}
	}
	if len(datasets) == 0 {
		return ServiceHealth{
			Status:  "not_ready",
			Message: "no datasets downloaded yet",
		}
	}
	return ServiceHealth{
		Status:  "ready",
		Message: fmt.Sprintf("%d datasets available", len(datasets)),
	}
}
