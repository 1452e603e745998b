package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "sricli/internal/errors"
	custommw "sricli/internal/middleware"
	"sricli/internal/operations"
	v1 "sricli/pkg/contracts/api/v1"
)

// OperationsHandler serves the ingest operation endpoints.
type OperationsHandler struct {
	service      OperationsServiceInterface
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
	validation   *custommw.ValidationMiddleware
}

// NewOperationsHandler creates an operations handler.
func NewOperationsHandler(service OperationsServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *OperationsHandler {
	if service == nil {
		panic("service cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &OperationsHandler{
		service:      service,
		logger:       logger.With(slog.String("handler", "operations")),
		errorHandler: errorHandler,
		validation:   custommw.NewValidationMiddleware(logger, errorHandler),
	}
}

// Routes returns the operation routes, mounted under /api/v1/operations.
func (h *OperationsHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(render.SetContentType(render.ContentTypeJSON))
	r.Use(custommw.ContentTypeValidator("application/json"))
	r.Use(h.validation.ValidateRequest)

	r.Post("/", h.StartOperation)
	r.Get("/", h.ListOperations)
	r.Get("/{id}", h.GetOperation)
	r.Delete("/{id}", h.CancelOperation)

	return r
}

// operationRequest wraps the v1 contract with the structural rules the
// validator tags cannot express.
type operationRequest struct {
	v1.OperationStartRequest
}

// Bind implements render.Binder.
func (req *operationRequest) Bind(r *http.Request) error {
	if req.Type == "" {
		return errors.New("type is required")
	}
	if req.Type != operations.TypeIngest {
		return errors.New("type must be \"ingest\"")
	}
	if req.Month != "" && req.Year == 0 {
		return errors.New("month requires a year")
	}
	return nil
}

// StartOperation handles POST /api/v1/operations. One run at a time:
// a second start while one is active answers 409.
func (h *OperationsHandler) StartOperation(w http.ResponseWriter, r *http.Request) {
	req := &operationRequest{}
	if err := render.Bind(r, req); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}
	if err := h.validation.ValidateStruct(&req.OperationStartRequest); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	snap, err := h.service.Start(r.Context(), req.Type, operations.Params{
		Year:  req.Year,
		Month: req.Month,
		Force: req.Force,
	})
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "operation started",
		slog.String("operation_id", snap.ID),
		slog.String("type", snap.Type))

	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, map[string]interface{}{
		"status": "accepted",
		"data":   snap,
	})
}

// ListOperations handles GET /api/v1/operations.
func (h *OperationsHandler) ListOperations(w http.ResponseWriter, r *http.Request) {
	snaps := h.service.List(r.Context())
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   snaps,
		"count":  len(snaps),
	})
}

// GetOperation handles GET /api/v1/operations/{id}.
func (h *OperationsHandler) GetOperation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	snap, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   snap,
	})
}

// CancelOperation handles DELETE /api/v1/operations/{id}.
func (h *OperationsHandler) CancelOperation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.service.Cancel(r.Context(), id); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "operation cancelled", slog.String("operation_id", id))

	render.JSON(w, r, map[string]interface{}{
		"status": "cancelled",
		"id":     id,
	})
}
