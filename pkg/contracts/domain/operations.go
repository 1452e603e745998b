package domain

import (
	"time"
)

// OperationType defines the kind of workflow an operation runs.
type OperationType string

const (
	// OperationTypeIngest fetches, cleans and summarizes datasets end to end.
	OperationTypeIngest OperationType = "ingest"
	// OperationTypeProcess cleans and summarizes datasets already on disk.
	OperationTypeProcess OperationType = "process"
	// OperationTypeFetch downloads datasets without processing them.
	OperationTypeFetch OperationType = "fetch"
)

// OperationStatus represents the lifecycle state of an operation.
type OperationStatus string

const (
	OperationStatusPending   OperationStatus = "pending"
	OperationStatusRunning   OperationStatus = "running"
	OperationStatusCompleted OperationStatus = "completed"
	OperationStatusFailed    OperationStatus = "failed"
	OperationStatusCancelled OperationStatus = "cancelled"
)

// Operation is the externally visible record of a workflow run.
type Operation struct {
	ID          string                 `json:"id" validate:"required,uuid"`
	Type        OperationType          `json:"type" validate:"required,oneof=ingest process fetch"`
	Status      OperationStatus        `json:"status"`
	Progress    int                    `json:"progress"`
	CurrentStep string                 `json:"current_step,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
	StartedAt   *time.Time             `json:"started_at,omitempty"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	Error       string                 `json:"error,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// IsTerminal reports whether the operation has finished, successfully or not.
func (o *Operation) IsTerminal() bool {
	switch o.Status {
	case OperationStatusCompleted, OperationStatusFailed, OperationStatusCancelled:
		return true
	}
	return false
}
