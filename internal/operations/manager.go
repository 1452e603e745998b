package operations

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "sricli/internal/errors"
	"sricli/internal/infrastructure"
)

// maxRetainedOperations bounds how many finished operations stay queryable.
const maxRetainedOperations = 32

// Manager runs ingest operations. Steps execute sequentially in the order
// given at construction; each dataset pass touches the same files on disk,
// so only one operation may run at a time.
type Manager struct {
	logger      *slog.Logger
	broadcaster Broadcaster
	metrics     *infrastructure.BusinessMetrics
	steps       []Step

	mu         sync.RWMutex
	operations map[string]*State
	cancels    map[string]context.CancelFunc
	runningID  string
	wg         sync.WaitGroup
}

// NewManager creates a manager for the given pipeline steps.
func NewManager(logger *slog.Logger, broadcaster Broadcaster, steps ...Step) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if broadcaster == nil {
		broadcaster = NopBroadcaster{}
	}
	return &Manager{
		logger:      logger,
		broadcaster: broadcaster,
		steps:       steps,
		operations:  make(map[string]*State),
		cancels:     make(map[string]context.CancelFunc),
	}
}

// SetMetrics attaches business metrics instruments.
func (m *Manager) SetMetrics(metrics *infrastructure.BusinessMetrics) {
	m.metrics = metrics
}

// Start launches a new ingest operation and returns its initial snapshot.
// The run continues in the background after Start returns; callers poll
// Get or subscribe through the Broadcaster. Returns
// apperrors.ErrOperationAlreadyRunning while a previous run is active.
func (m *Manager) Start(params Params) (Snapshot, error) {
	m.mu.Lock()

	if m.runningID != "" {
		if running, ok := m.operations[m.runningID]; ok && running.Running() {
			m.mu.Unlock()
			return Snapshot{}, apperrors.ErrOperationAlreadyRunning
		}
		m.runningID = ""
	}

	id := uuid.NewString()
	state := NewState(id, TypeIngest, params, m.steps)

	m.pruneLocked()
	m.operations[id] = state
	m.runningID = id

	runCtx, cancel := context.WithCancel(context.Background())
	m.cancels[id] = cancel

	m.wg.Add(1)
	m.mu.Unlock()

	go func() {
		defer m.wg.Done()
		m.run(runCtx, state)
	}()

	return state.Snapshot(), nil
}

// Get returns the snapshot for an operation ID. Finished operations stay
// available until pruned.
func (m *Manager) Get(id string) (Snapshot, error) {
	m.mu.RLock()
	state, ok := m.operations[id]
	m.mu.RUnlock()

	if !ok {
		return Snapshot{}, apperrors.ErrOperationNotFound
	}
	return state.Snapshot(), nil
}

// List returns snapshots of all known operations, newest first.
func (m *Manager) List() []Snapshot {
	m.mu.RLock()
	states := make([]*State, 0, len(m.operations))
	for _, state := range m.operations {
		states = append(states, state)
	}
	m.mu.RUnlock()

	snapshots := make([]Snapshot, 0, len(states))
	for _, state := range states {
		snapshots = append(snapshots, state.Snapshot())
	}
	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].StartTime.After(snapshots[j].StartTime)
	})
	return snapshots
}

// Cancel stops a running operation. Cancelling a finished operation is a
// no-op.
func (m *Manager) Cancel(id string) error {
	m.mu.Lock()
	_, exists := m.operations[id]
	cancel := m.cancels[id]
	m.mu.Unlock()

	if !exists {
		return apperrors.ErrOperationNotFound
	}
	if cancel != nil {
		cancel()
	}
	return nil
}

// Shutdown cancels any running operation and waits for it to stop.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	for _, cancel := range m.cancels {
		cancel()
	}
	m.mu.Unlock()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run executes the pipeline for one operation.
func (m *Manager) run(ctx context.Context, state *State) {
	start := time.Now()

	infrastructure.RecordActiveOperationChange(ctx, m.metrics, 1, TypeIngest)
	defer infrastructure.RecordActiveOperationChange(ctx, m.metrics, -1, TypeIngest)
	defer m.finish(state.ID())

	m.logger.InfoContext(ctx, "operation started",
		"operation_id", state.ID(),
		"params", state.Params())

	state.Start()
	m.broadcast(state)

	var failed error
	for _, step := range m.steps {
		stepState := state.Step(step.ID())

		if err := ctx.Err(); err != nil {
			stepState.Skip("operation cancelled")
			m.broadcast(state)
			continue
		}
		if failed != nil {
			stepState.Skip("previous step failed")
			m.broadcast(state)
			continue
		}

		stepState.Start()
		m.broadcast(state)

		stepStart := time.Now()
		err := step.Execute(ctx, state)
		infrastructure.RecordOperationStepMetrics(ctx, m.metrics, state.ID(), step.ID(), time.Since(stepStart), err == nil)

		if err != nil {
			stepState.Fail(err)
			failed = err
			m.logger.ErrorContext(ctx, "operation step failed",
				"operation_id", state.ID(),
				"step", step.ID(),
				"duration", time.Since(stepStart).Round(time.Millisecond),
				"error", err)
			m.broadcast(state)
			continue
		}

		if stepState.Status() == StepStatusActive {
			stepState.Complete()
		}
		m.logger.InfoContext(ctx, "operation step completed",
			"operation_id", state.ID(),
			"step", step.ID(),
			"duration", time.Since(stepStart).Round(time.Millisecond))
		m.broadcast(state)
	}

	switch {
	case ctx.Err() != nil:
		state.Cancel()
		m.logger.WarnContext(ctx, "operation cancelled",
			"operation_id", state.ID())
	case failed != nil:
		state.Fail(failed)
	default:
		state.Complete()
		m.logger.InfoContext(ctx, "operation completed",
			"operation_id", state.ID(),
			"duration", time.Since(start).Round(time.Millisecond))
	}

	success := failed == nil && ctx.Err() == nil
	infrastructure.RecordOperationMetrics(ctx, m.metrics, state.ID(), TypeIngest, time.Since(start), success, failed)

	m.broadcast(state)
}

func (m *Manager) broadcast(state *State) {
	m.broadcaster.BroadcastOperation(state.Snapshot())
}

// finish releases the running slot and the cancel func for an operation.
func (m *Manager) finish(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if cancel, ok := m.cancels[id]; ok {
		cancel()
		delete(m.cancels, id)
	}
	if m.runningID == id {
		m.runningID = ""
	}
}

// pruneLocked drops the oldest finished operations beyond the retention
// cap. Callers must hold m.mu.
func (m *Manager) pruneLocked() {
	if len(m.operations) < maxRetainedOperations {
		return
	}

	finished := make([]*State, 0, len(m.operations))
	for _, state := range m.operations {
		if !state.Running() {
			finished = append(finished, state)
		}
	}
	sort.Slice(finished, func(i, j int) bool {
		return finished[i].Snapshot().StartTime.Before(finished[j].Snapshot().StartTime)
	})

	excess := len(m.operations) - maxRetainedOperations + 1
	for i := 0; i < excess && i < len(finished); i++ {
		delete(m.operations, finished[i].ID())
	}
}
