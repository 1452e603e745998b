package operations

import (
	"context"
	"sync"
	"time"
)

// Step is a single unit of work in an ingest operation. Steps run in the
// order the Manager was built with and communicate through the State.
type Step interface {
	// ID returns the stable identifier used in snapshots and events.
	ID() string

	// Name returns the human-readable name shown to clients.
	Name() string

	// Execute runs the step. A non-nil error fails the operation and
	// skips the remaining steps.
	Execute(ctx context.Context, state *State) error
}

// StepStatus is the lifecycle status of a single step.
type StepStatus string

const (
	StepStatusPending   StepStatus = "pending"
	StepStatusActive    StepStatus = "active"
	StepStatusCompleted StepStatus = "completed"
	StepStatusFailed    StepStatus = "failed"
	StepStatusSkipped   StepStatus = "skipped"
)

// StepState tracks the runtime state of one step. All mutations take the
// internal lock so steps can report progress while the manager snapshots.
type StepState struct {
	mu        sync.RWMutex
	id        string
	name      string
	status    StepStatus
	startTime *time.Time
	endTime   *time.Time
	progress  float64
	message   string
	err       error
}

// StepSnapshot is an immutable copy of a StepState for JSON and events.
type StepSnapshot struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Status    StepStatus `json:"status"`
	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`
	Progress  float64    `json:"progress"`
	Message   string     `json:"message,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// NewStepState creates a pending step state.
func NewStepState(id, name string) *StepState {
	return &StepState{
		id:     id,
		name:   name,
		status: StepStatusPending,
	}
}

// ID returns the step identifier.
func (s *StepState) ID() string {
	return s.id
}

// Status returns the current status.
func (s *StepState) Status() StepStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Start marks the step active.
func (s *StepState) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.startTime = &now
	s.status = StepStatusActive
	s.progress = 0
}

// Complete marks the step completed with full progress.
func (s *StepState) Complete() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.endTime = &now
	s.status = StepStatusCompleted
	s.progress = 100
}

// Fail marks the step failed with the given error.
func (s *StepState) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.endTime = &now
	s.status = StepStatusFailed
	s.err = err
}

// Skip marks the step skipped with a reason.
func (s *StepState) Skip(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.endTime = &now
	s.status = StepStatusSkipped
	s.message = reason
}

// UpdateProgress records progress as a percentage with a status message.
func (s *StepState) UpdateProgress(progress float64, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	s.progress = progress
	s.message = message
}

// Duration returns how long the step has run, or took to run.
func (s *StepState) Duration() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.startTime == nil {
		return 0
	}
	if s.endTime != nil {
		return s.endTime.Sub(*s.startTime)
	}
	return time.Since(*s.startTime)
}

// Snapshot returns a copy safe to marshal and hand to other goroutines.
func (s *StepState) Snapshot() StepSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := StepSnapshot{
		ID:       s.id,
		Name:     s.name,
		Status:   s.status,
		Progress: s.progress,
		Message:  s.message,
	}
	if s.startTime != nil {
		t := *s.startTime
		snap.StartTime = &t
	}
	if s.endTime != nil {
		t := *s.endTime
		snap.EndTime = &t
	}
	if s.err != nil {
		snap.Error = s.err.Error()
	}
	return snap
}
