package http

import (
	"context"

	"sricli/internal/dataprocessing"
	"sricli/pkg/contracts/domain"
)

// DataServiceInterface is the analytics surface the data handler needs.
// *services.DataService implements it.
type DataServiceInterface interface {
	SalesByProvince(ctx context.Context) (map[string]float64, error)
	SalesForProvince(ctx context.Context, province string) (float64, error)
	ExportsByMonth(ctx context.Context) (map[string]float64, error)
	TopImportProvince(ctx context.Context) (string, float64, error)
	ZeroRateShareByProvince(ctx context.Context) (map[string]float64, error)
	Datasets(ctx context.Context, from, to string) ([]domain.DatasetFile, error)
	Stats(ctx context.Context) (dataprocessing.LoadStats, error)
}
