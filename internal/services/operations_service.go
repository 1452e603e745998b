package services

import (
	"context"
	"fmt"
	"log/slog"

	apperrors "sricli/internal/errors"
	"sricli/internal/operations"
)

// OperationsService fronts the operations engine for the HTTP layer.
type OperationsService struct {
	logger  *slog.Logger
	manager *operations.Manager
}

// NewOperationsService creates an operations service.
func NewOperationsService(logger *slog.Logger, manager *operations.Manager) *OperationsService {
	if logger == nil {
		logger = slog.Default()
	}
	return &OperationsService{
		logger:  logger,
		manager: manager,
	}
}

// Start launches an operation of the given type. Only ingest operations
// exist today; anything else is a validation error.
func (s *OperationsService) Start(ctx context.Context, opType string, params operations.Params) (operations.Snapshot, error) {
	if opType != operations.TypeIngest {
		return operations.Snapshot{}, apperrors.NewAppValidationError(fmt.Sprintf("unknown operation type %q", opType))
	}
	if params.Month != "" && params.Year == 0 {
		return operations.Snapshot{}, apperrors.NewAppValidationError("month requires a year")
	}

	snap, err := s.manager.Start(params)
	if err != nil {
		return operations.Snapshot{}, err
	}

	s.logger.InfoContext(ctx, "operation accepted",
		"operation_id", snap.ID,
		"type", opType,
		"year", params.Year,
		"month", params.Month,
		"force", params.Force)

	return snap, nil
}

// Get returns the snapshot for an operation ID.
func (s *OperationsService) Get(ctx context.Context, id string) (operations.Snapshot, error) {
	return s.manager.Get(id)
}

// List returns all known operations, newest first.
func (s *OperationsService) List(ctx context.Context) []operations.Snapshot {
	return s.manager.List()
}

// Cancel stops a running operation.
func (s *OperationsService) Cancel(ctx context.Context, id string) error {
	if err := s.manager.Cancel(id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "operation cancel requested", "operation_id", id)
	return nil
}

// ActiveCount returns how many operations are currently running.
func (s *OperationsService) ActiveCount(ctx context.Context) int {
	active := 0
	for _, snap := range s.manager.List() {
		if snap.Status == operations.StatusPending || snap.Status == operations.StatusRunning {
			active++
		}
	}
	return active
}
