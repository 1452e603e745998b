package operations

import (
	"fmt"
	"sync"
	"time"
)

// OperationStatus is the overall lifecycle status of an operation.
type OperationStatus string

const (
	StatusPending   OperationStatus = "pending"
	StatusRunning   OperationStatus = "running"
	StatusCompleted OperationStatus = "completed"
	StatusFailed    OperationStatus = "failed"
	StatusCancelled OperationStatus = "cancelled"
)

// TypeIngest is the one operation type currently supported: fetch raw
// datasets, process them into the clean dataset, and write the summary.
const TypeIngest = "ingest"

// Params narrows an ingest run to a period. A zero Year means the full
// available range; an empty Month with a Year means the whole year.
type Params struct {
	Year  int    `json:"year,omitempty"`
	Month string `json:"month,omitempty"`
	Force bool   `json:"force,omitempty"`
}

// PeriodRange converts the params into inclusive "YYYY-MM" bounds for the
// fetcher and the dataset filter. Empty bounds are open ended.
func (p Params) PeriodRange() (from, to string) {
	if p.Year == 0 {
		return "", ""
	}
	if p.Month == "" {
		return fmt.Sprintf("%04d-01", p.Year), fmt.Sprintf("%04d-12", p.Year)
	}
	period := fmt.Sprintf("%04d-%s", p.Year, p.Month)
	return period, period
}

// State is the shared, mutex-guarded state of one operation run. Steps
// read their own StepState through Step(id) and pass data to later steps
// with SetValue/Value.
type State struct {
	mu sync.RWMutex

	id        string
	opType    string
	params    Params
	status    OperationStatus
	startTime time.Time
	endTime   *time.Time
	err       error

	steps  []*StepState
	index  map[string]*StepState
	values map[string]any
}

// Snapshot is an immutable copy of an operation's state.
type Snapshot struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Status    OperationStatus `json:"status"`
	Params    Params          `json:"params"`
	StartTime time.Time       `json:"start_time"`
	EndTime   *time.Time      `json:"end_time,omitempty"`
	Duration  time.Duration   `json:"duration"`
	Steps     []StepSnapshot  `json:"steps"`
	Error     string          `json:"error,omitempty"`
}

// NewState creates a pending state with one StepState per pipeline step.
func NewState(id string, opType string, params Params, steps []Step) *State {
	st := &State{
		id:        id,
		opType:    opType,
		params:    params,
		status:    StatusPending,
		startTime: time.Now(),
		index:     make(map[string]*StepState, len(steps)),
		values:    make(map[string]any),
	}
	for _, step := range steps {
		ss := NewStepState(step.ID(), step.Name())
		st.steps = append(st.steps, ss)
		st.index[step.ID()] = ss
	}
	return st
}

// ID returns the operation identifier.
func (s *State) ID() string {
	return s.id
}

// Params returns the request parameters for this run.
func (s *State) Params() Params {
	return s.params
}

// Status returns the current overall status.
func (s *State) Status() OperationStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Running reports whether the operation has not finished yet.
func (s *State) Running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status == StatusPending || s.status == StatusRunning
}

// Step returns the state for a step ID, or nil if unknown.
func (s *State) Step(id string) *StepState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index[id]
}

// Start marks the operation running and resets the start time.
func (s *State) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = StatusRunning
	s.startTime = time.Now()
}

// Complete marks the operation completed.
func (s *State) Complete() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.endTime = &now
	s.status = StatusCompleted
}

// Fail marks the operation failed with err.
func (s *State) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.endTime = &now
	s.status = StatusFailed
	s.err = err
}

// Cancel marks the operation cancelled.
func (s *State) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.endTime = &now
	s.status = StatusCancelled
}

// Err returns the failure error, if any.
func (s *State) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// SetValue stores a value for later steps in the same run.
func (s *State) SetValue(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

// Value retrieves a value stored by an earlier step.
func (s *State) Value(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// Duration returns how long the operation has run, or took to run.
func (s *State) Duration() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.endTime != nil {
		return s.endTime.Sub(s.startTime)
	}
	return time.Since(s.startTime)
}

// Snapshot copies the full state, taking each step's lock in turn.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	snap := Snapshot{
		ID:        s.id,
		Type:      s.opType,
		Status:    s.status,
		Params:    s.params,
		StartTime: s.startTime,
		Steps:     make([]StepSnapshot, 0, len(s.steps)),
	}
	if s.endTime != nil {
		t := *s.endTime
		snap.EndTime = &t
		snap.Duration = t.Sub(s.startTime)
	} else {
		snap.Duration = time.Since(s.startTime)
	}
	if s.err != nil {
		snap.Error = s.err.Error()
	}
	steps := s.steps
	s.mu.RUnlock()

	for _, ss := range steps {
		snap.Steps = append(snap.Steps, ss.Snapshot())
	}
	return snap
}
