package services

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"sricli/internal/config"
	"sricli/internal/dataprocessing"
	apperrors "sricli/internal/errors"
	"sricli/internal/files"
	"sricli/pkg/contracts/domain"
)

// DataService serves the analytics read path. It keeps the clean dataset
// cached in memory and reloads it when the file's modification time changes,
// so a finished ingest operation becomes visible without a restart.
type DataService struct {
	logger    *slog.Logger
	paths     *config.Paths
	loader    *dataprocessing.Loader
	discovery *files.Discovery

	mu      sync.Mutex
	records []domain.SalesRecord
	stats   dataprocessing.LoadStats
	modTime time.Time
	loaded  bool
}

// NewDataService creates a data service over the clean dataset.
func NewDataService(logger *slog.Logger, paths *config.Paths, loader *dataprocessing.Loader, discovery *files.Discovery) *DataService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DataService{
		logger:    logger,
		paths:     paths,
		loader:    loader,
		discovery: discovery,
	}
}

// snapshot returns the cached records, reloading the clean dataset first if
// it changed on disk. A missing file yields an empty snapshot, not an error.
// The single mutex makes concurrent callers wait for one reload instead of
// reloading in parallel.
func (ds *DataService) snapshot(ctx context.Context) ([]domain.SalesRecord, error) {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	info, err := os.Stat(ds.paths.CleanCSV)
	if err != nil {
		if os.IsNotExist(err) {
			if ds.loaded && len(ds.records) > 0 {
				ds.logger.WarnContext(ctx, "clean dataset removed, dropping cache",
					"path", ds.paths.CleanCSV)
			}
			ds.records, ds.stats, ds.loaded = nil, dataprocessing.LoadStats{}, true
			ds.modTime = time.Time{}
			return nil, nil
		}
		return nil, apperrors.NewStorageError("failed to stat clean dataset", err)
	}

	if ds.loaded && info.ModTime().Equal(ds.modTime) {
		return ds.records, nil
	}

	records, stats, err := ds.loader.LoadCSV(ctx, ds.paths.CleanCSV)
	if err != nil {
		return nil, err
	}

	ds.records, ds.stats, ds.modTime, ds.loaded = records, stats, info.ModTime(), true

	ds.logger.InfoContext(ctx, "clean dataset reloaded",
		"path", ds.paths.CleanCSV,
		"records", stats.Records,
		"mod_time", info.ModTime())

	return ds.records, nil
}

// SalesByProvince returns total sales per province across all loaded months.
// Returns apperrors.ErrNoData when no dataset has been processed yet.
func (ds *DataService) SalesByProvince(ctx context.Context) (map[string]float64, error) {
	records, err := ds.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, apperrors.ErrNoData
	}
	return dataprocessing.NewAnalyzer(records).SalesByProvince(), nil
}

// SalesForProvince returns the total sales of one province. Unknown
// provinces and an empty dataset both yield 0; the caller cannot tell the
// difference, matching the report semantics.
func (ds *DataService) SalesForProvince(ctx context.Context, province string) (float64, error) {
	records, err := ds.snapshot(ctx)
	if err != nil {
		return 0, err
	}
	return dataprocessing.NewAnalyzer(records).SalesForProvince(province), nil
}

// ExportsByMonth returns total exports per month. Records without a month
// are not included.
func (ds *DataService) ExportsByMonth(ctx context.Context) (map[string]float64, error) {
	records, err := ds.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, apperrors.ErrNoData
	}
	return dataprocessing.NewAnalyzer(records).ExportsByMonth(), nil
}

// TopImportProvince returns the province with the highest total imports.
// Returns apperrors.ErrNoData when the dataset is empty.
func (ds *DataService) TopImportProvince(ctx context.Context) (string, float64, error) {
	records, err := ds.snapshot(ctx)
	if err != nil {
		return "", 0, err
	}
	province, total := dataprocessing.NewAnalyzer(records).TopImportProvince()
	if province == "" {
		return "", 0, apperrors.ErrNoData
	}
	return province, total, nil
}

// ZeroRateShareByProvince returns each province's zero-rate sales share as
// a percentage of its total sales.
func (ds *DataService) ZeroRateShareByProvince(ctx context.Context) (map[string]float64, error) {
	records, err := ds.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, apperrors.ErrNoData
	}
	return dataprocessing.NewAnalyzer(records).ZeroRateShareByProvince(), nil
}

// Datasets lists the raw dataset files currently on disk, sorted by period.
// from and to are inclusive "YYYY-MM" bounds; an empty bound is open. An
// empty listing is not an error.
func (ds *DataService) Datasets(ctx context.Context, from, to string) ([]domain.DatasetFile, error) {
	datasets, err := ds.discovery.FindDatasetFiles(ds.paths.RawDir)
	if err != nil {
		return nil, err
	}

	filtered := make([]domain.DatasetFile, 0, len(datasets))
	for _, d := range datasets {
		period := d.Period()
		if from != "" && period < from {
			continue
		}
		if to != "" && period > to {
			continue
		}
		filtered = append(filtered, d)
	}
	return filtered, nil
}

// Stats returns the load statistics of the cached clean dataset.
func (ds *DataService) Stats(ctx context.Context) (dataprocessing.LoadStats, error) {
	if _, err := ds.snapshot(ctx); err != nil {
		return dataprocessing.LoadStats{}, err
	}
	ds.mu.Lock()
	defer ds.mu.Unlock()
	return ds.stats, nil
}
