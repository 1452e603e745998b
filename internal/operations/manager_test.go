package operations

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "sricli/internal/errors"
)

// stubStep is a configurable Step for manager tests.
type stubStep struct {
	id      string
	name    string
	execute func(ctx context.Context, state *State) error
}

func (s *stubStep) ID() string   { return s.id }
func (s *stubStep) Name() string { return s.name }

func (s *stubStep) Execute(ctx context.Context, state *State) error {
	if s.execute == nil {
		return nil
	}
	return s.execute(ctx, state)
}

// recordingBroadcaster captures every snapshot it receives.
type recordingBroadcaster struct {
	mu        sync.Mutex
	snapshots []Snapshot
}

func (b *recordingBroadcaster) BroadcastOperation(snap Snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.snapshots = append(b.snapshots, snap)
}

func (b *recordingBroadcaster) all() []Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Snapshot(nil), b.snapshots...)
}

// waitForFinished polls until the operation leaves the running states.
func waitForFinished(t *testing.T, m *Manager, id string) Snapshot {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		snap, err := m.Get(id)
		require.NoError(t, err)
		if snap.Status != StatusPending && snap.Status != StatusRunning {
			return snap
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("operation %s never finished", id)
	return Snapshot{}
}

func TestManagerRunsStepsInOrder(t *testing.T) {
	var mu sync.Mutex
	var order []string

	record := func(id string) func(context.Context, *State) error {
		return func(ctx context.Context, state *State) error {
			mu.Lock()
			order = append(order, id)
			mu.Unlock()
			return nil
		}
	}

	m := NewManager(slog.Default(), nil,
		&stubStep{id: "fetch", name: "Portal Fetch", execute: record("fetch")},
		&stubStep{id: "process", name: "Dataset Processing", execute: record("process")},
		&stubStep{id: "summarize", name: "Province Summary", execute: record("summarize")},
	)

	snap, err := m.Start(Params{Year: 2024})
	require.NoError(t, err)
	require.NotEmpty(t, snap.ID)
	_, err = uuid.Parse(snap.ID)
	assert.NoError(t, err, "operation IDs are UUIDs")

	final := waitForFinished(t, m, snap.ID)
	assert.Equal(t, StatusCompleted, final.Status)
	assert.Equal(t, []string{"fetch", "process", "summarize"}, order)

	require.Len(t, final.Steps, 3)
	for _, step := range final.Steps {
		assert.Equal(t, StepStatusCompleted, step.Status)
		assert.Equal(t, float64(100), step.Progress)
	}
	assert.Greater(t, final.Duration, time.Duration(0))
}

func TestManagerRejectsConcurrentRuns(t *testing.T) {
	release := make(chan struct{})
	blocking := &stubStep{id: "fetch", name: "Portal Fetch", execute: func(ctx context.Context, state *State) error {
		select {
		case <-release:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}}

	m := NewManager(slog.Default(), nil, blocking)

	first, err := m.Start(Params{})
	require.NoError(t, err)

	_, err = m.Start(Params{})
	assert.ErrorIs(t, err, apperrors.ErrOperationAlreadyRunning)

	close(release)
	waitForFinished(t, m, first.ID)

	second, err := m.Start(Params{})
	require.NoError(t, err)
	waitForFinished(t, m, second.ID)
}

func TestManagerFailureSkipsRemainingSteps(t *testing.T) {
	boom := errors.New("loader exploded")

	m := NewManager(slog.Default(), nil,
		&stubStep{id: "fetch", name: "Portal Fetch"},
		&stubStep{id: "process", name: "Dataset Processing", execute: func(ctx context.Context, state *State) error {
			return boom
		}},
		&stubStep{id: "summarize", name: "Province Summary"},
	)

	snap, err := m.Start(Params{})
	require.NoError(t, err)

	final := waitForFinished(t, m, snap.ID)
	assert.Equal(t, StatusFailed, final.Status)
	assert.Equal(t, "loader exploded", final.Error)

	require.Len(t, final.Steps, 3)
	assert.Equal(t, StepStatusCompleted, final.Steps[0].Status)
	assert.Equal(t, StepStatusFailed, final.Steps[1].Status)
	assert.Equal(t, "loader exploded", final.Steps[1].Error)
	assert.Equal(t, StepStatusSkipped, final.Steps[2].Status)
	assert.Equal(t, "previous step failed", final.Steps[2].Message)
}

func TestManagerCancel(t *testing.T) {
	started := make(chan struct{})
	blocking := &stubStep{id: "fetch", name: "Portal Fetch", execute: func(ctx context.Context, state *State) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}}

	m := NewManager(slog.Default(), nil,
		blocking,
		&stubStep{id: "process", name: "Dataset Processing"},
	)

	snap, err := m.Start(Params{})
	require.NoError(t, err)
	<-started

	require.NoError(t, m.Cancel(snap.ID))

	final := waitForFinished(t, m, snap.ID)
	assert.Equal(t, StatusCancelled, final.Status)
	assert.Equal(t, StepStatusFailed, final.Steps[0].Status)
	assert.Equal(t, StepStatusSkipped, final.Steps[1].Status)
}

func TestManagerGetUnknownOperation(t *testing.T) {
	m := NewManager(slog.Default(), nil)

	_, err := m.Get("00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, apperrors.ErrOperationNotFound)

	err = m.Cancel("00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, apperrors.ErrOperationNotFound)
}

func TestManagerListNewestFirst(t *testing.T) {
	m := NewManager(slog.Default(), nil, &stubStep{id: "fetch", name: "Portal Fetch"})

	first, err := m.Start(Params{})
	require.NoError(t, err)
	waitForFinished(t, m, first.ID)

	time.Sleep(5 * time.Millisecond)

	second, err := m.Start(Params{})
	require.NoError(t, err)
	waitForFinished(t, m, second.ID)

	list := m.List()
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)
}

func TestManagerBroadcastsProgress(t *testing.T) {
	b := &recordingBroadcaster{}
	m := NewManager(slog.Default(), b,
		&stubStep{id: "fetch", name: "Portal Fetch"},
		&stubStep{id: "process", name: "Dataset Processing"},
	)

	snap, err := m.Start(Params{})
	require.NoError(t, err)
	waitForFinished(t, m, snap.ID)

	// Broadcasts race with Get, so wait for the terminal snapshot to land.
	require.Eventually(t, func() bool {
		all := b.all()
		return len(all) > 0 && all[len(all)-1].Status == StatusCompleted
	}, time.Second, 2*time.Millisecond)

	all := b.all()
	assert.Equal(t, StatusRunning, all[0].Status)
	for _, s := range all {
		assert.Equal(t, snap.ID, s.ID)
	}
}

func TestManagerShutdownStopsRunningOperation(t *testing.T) {
	blocking := &stubStep{id: "fetch", name: "Portal Fetch", execute: func(ctx context.Context, state *State) error {
		<-ctx.Done()
		return ctx.Err()
	}}

	m := NewManager(slog.Default(), nil, blocking)

	snap, err := m.Start(Params{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, m.Shutdown(ctx))

	final, err := m.Get(snap.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, final.Status)
}
