package http

import (
	"context"

	"sricli/internal/operations"
)

// OperationsServiceInterface is the operations surface the operations
// handler needs. *services.OperationsService implements it.
type OperationsServiceInterface interface {
	Start(ctx context.Context, opType string, params operations.Params) (operations.Snapshot, error)
	Get(ctx context.Context, id string) (operations.Snapshot, error)
	List(ctx context.Context) []operations.Snapshot
	Cancel(ctx context.Context, id string) error
}
