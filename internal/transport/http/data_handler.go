package http

import (
	"log/slog"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	apierrors "sricli/internal/errors"
	custommw "sricli/internal/middleware"
	"sricli/pkg/contracts/domain"
)

// DataHandler serves the sales analytics endpoints.
type DataHandler struct {
	service      DataServiceInterface
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
	query        *custommw.QueryParamValidator
}

// NewDataHandler creates a data handler.
func NewDataHandler(service DataServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *DataHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &DataHandler{
		service:      service,
		logger:       logger.With(slog.String("handler", "data")),
		errorHandler: errorHandler,
		query:        custommw.NewQueryParamValidator(logger, errorHandler),
	}
}

// Routes returns the sales analytics routes, mounted under /api/v1/sales.
func (h *DataHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/provinces", h.GetSalesByProvince)
	r.Get("/exports/monthly", h.GetExportsByMonth)
	r.Get("/imports/top", h.GetTopImportProvince)
	r.Get("/zero-rate", h.GetZeroRateShares)

	r.Route("/provinces/{province}", func(r chi.Router) {
		r.Use(h.ProvinceCtx)
		r.Get("/", h.GetProvince)
	})

	return r
}

// ProvinceCtx validates the province URL parameter. The dataset uses plain
// names; anything that does not look like one is rejected before the
// service is asked.
func (h *DataHandler) ProvinceCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		province := chi.URLParam(r, "province")
		if province == "" {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("province", "province name is required"))
			return
		}
		if len(province) > 64 {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("province", "province name is too long"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetSalesByProvince handles GET /api/v1/sales/provinces.
func (h *DataHandler) GetSalesByProvince(w http.ResponseWriter, r *http.Request) {
	totals, err := h.service.SalesByProvince(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	data := sortedTotals(totals)
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   data,
		"count":  len(data),
	})
}

// GetProvince handles GET /api/v1/sales/provinces/{province}. An unknown
// province answers 0, the same as the underlying analyzer: a report
// reader cannot tell "no sales" from "never seen".
func (h *DataHandler) GetProvince(w http.ResponseWriter, r *http.Request) {
	province := chi.URLParam(r, "province")

	total, err := h.service.SalesForProvince(r.Context(), province)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data": domain.ProvinceTotal{
			Province: domain.NormalizeProvince(province),
			Total:    total,
		},
	})
}

// GetExportsByMonth handles GET /api/v1/sales/exports/monthly.
func (h *DataHandler) GetExportsByMonth(w http.ResponseWriter, r *http.Request) {
	totals, err := h.service.ExportsByMonth(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	data := make([]domain.MonthlyTotal, 0, len(totals))
	for month, total := range totals {
		data = append(data, domain.MonthlyTotal{Month: month, Total: total})
	}
	sort.Slice(data, func(i, j int) bool { return data[i].Month < data[j].Month })

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   data,
		"count":  len(data),
	})
}

// GetTopImportProvince handles GET /api/v1/sales/imports/top. An empty
// dataset is a 404, mapped from ErrNoData by the error handler.
func (h *DataHandler) GetTopImportProvince(w http.ResponseWriter, r *http.Request) {
	province, total, err := h.service.TopImportProvince(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   domain.ProvinceTotal{Province: province, Total: total},
	})
}

// GetZeroRateShares handles GET /api/v1/sales/zero-rate.
func (h *DataHandler) GetZeroRateShares(w http.ResponseWriter, r *http.Request) {
	shares, err := h.service.ZeroRateShareByProvince(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	data := sortedTotals(shares)
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   data,
		"count":  len(data),
	})
}

// GetDatasets handles GET /api/v1/datasets. Optional from and to query
// parameters bound the listing to an inclusive "YYYY-MM" period range.
func (h *DataHandler) GetDatasets(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	from, ok := h.query.ValidateYearMonth(w, r, "from")
	if !ok {
		return
	}
	to, ok := h.query.ValidateYearMonth(w, r, "to")
	if !ok {
		return
	}
	if from != "" && to != "" && from > to {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("from", "from must not be later than to"))
		return
	}

	datasets, err := h.service.Datasets(r.Context(), from, to)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "dataset listing failed",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID))
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   datasets,
		"count":  len(datasets),
	})
}

// GetStats handles GET /api/v1/datasets/stats: the load statistics of the
// clean dataset currently served.
func (h *DataHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   stats,
	})
}

// sortedTotals flattens a province-keyed aggregate into rows sorted by
// province name, so responses are deterministic.
func sortedTotals(totals map[string]float64) []domain.ProvinceTotal {
	data := make([]domain.ProvinceTotal, 0, len(totals))
	for province, total := range totals {
		data = append(data, domain.ProvinceTotal{Province: province, Total: total})
	}
	sort.Slice(data, func(i, j int) bool { return data[i].Province < data[j].Province })
	return data
}
