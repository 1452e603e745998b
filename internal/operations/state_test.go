package operations

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParamsPeriodRange(t *testing.T) {
	tests := []struct {
		name     string
		params   Params
		wantFrom string
		wantTo   string
	}{
		{name: "open range", params: Params{}, wantFrom: "", wantTo: ""},
		{name: "whole year", params: Params{Year: 2024}, wantFrom: "2024-01", wantTo: "2024-12"},
		{name: "single month", params: Params{Year: 2024, Month: "03"}, wantFrom: "2024-03", wantTo: "2024-03"},
		{name: "month without year is ignored", params: Params{Month: "03"}, wantFrom: "", wantTo: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			from, to := tt.params.PeriodRange()
			assert.Equal(t, tt.wantFrom, from)
			assert.Equal(t, tt.wantTo, to)
		})
	}
}

func pipelineSteps() []Step {
	return []Step{
		&stubStep{id: "fetch", name: "Portal Fetch"},
		&stubStep{id: "process", name: "Dataset Processing"},
	}
}

func TestStateLifecycle(t *testing.T) {
	state := NewState("op-1", TypeIngest, Params{Year: 2024}, pipelineSteps())

	assert.Equal(t, "op-1", state.ID())
	assert.Equal(t, StatusPending, state.Status())
	assert.True(t, state.Running())
	require.NotNil(t, state.Step("fetch"))
	require.NotNil(t, state.Step("process"))
	assert.Nil(t, state.Step("unknown"))

	state.Start()
	assert.Equal(t, StatusRunning, state.Status())
	assert.True(t, state.Running())

	state.Complete()
	assert.Equal(t, StatusCompleted, state.Status())
	assert.False(t, state.Running())

	snap := state.Snapshot()
	require.NotNil(t, snap.EndTime)
	assert.Equal(t, TypeIngest, snap.Type)
	assert.Equal(t, 2024, snap.Params.Year)
	assert.Len(t, snap.Steps, 2)
	assert.Equal(t, "fetch", snap.Steps[0].ID)
	assert.Equal(t, "process", snap.Steps[1].ID)
}

func TestStateFail(t *testing.T) {
	state := NewState("op-2", TypeIngest, Params{}, pipelineSteps())
	state.Start()

	cause := errors.New("portal unreachable")
	state.Fail(cause)

	assert.Equal(t, StatusFailed, state.Status())
	assert.False(t, state.Running())
	assert.Equal(t, cause, state.Err())
	assert.Equal(t, "portal unreachable", state.Snapshot().Error)
}

func TestStateCancel(t *testing.T) {
	state := NewState("op-3", TypeIngest, Params{}, pipelineSteps())
	state.Start()
	state.Cancel()

	assert.Equal(t, StatusCancelled, state.Status())
	assert.False(t, state.Running())
}

func TestStateValues(t *testing.T) {
	state := NewState("op-4", TypeIngest, Params{}, pipelineSteps())

	_, ok := state.Value(ValueKeyRecords)
	assert.False(t, ok)

	state.SetValue(ValueKeyRecords, []string{"a", "b"})
	v, ok := state.Value(ValueKeyRecords)
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, v)
}

func TestStateDuration(t *testing.T) {
	state := NewState("op-5", TypeIngest, Params{}, pipelineSteps())
	state.Start()
	time.Sleep(5 * time.Millisecond)
	assert.Greater(t, state.Duration(), time.Duration(0))

	state.Complete()
	frozen := state.Duration()
	time.Sleep(5 * time.Millisecond)
	assert.Equal(t, frozen, state.Duration())
}

func TestStepStateTransitions(t *testing.T) {
	step := NewStepState("process", "Dataset Processing")

	snap := step.Snapshot()
	assert.Equal(t, StepStatusPending, snap.Status)
	assert.Nil(t, snap.StartTime)
	assert.Zero(t, step.Duration())

	step.Start()
	assert.Equal(t, StepStatusActive, step.Status())

	step.UpdateProgress(42.5, "halfway there")
	snap = step.Snapshot()
	assert.Equal(t, 42.5, snap.Progress)
	assert.Equal(t, "halfway there", snap.Message)

	step.UpdateProgress(250, "overshoot")
	assert.Equal(t, float64(100), step.Snapshot().Progress)
	step.UpdateProgress(-5, "undershoot")
	assert.Equal(t, float64(0), step.Snapshot().Progress)

	step.Complete()
	snap = step.Snapshot()
	assert.Equal(t, StepStatusCompleted, snap.Status)
	assert.Equal(t, float64(100), snap.Progress)
	require.NotNil(t, snap.EndTime)
}

func TestStepStateFailAndSkip(t *testing.T) {
	failed := NewStepState("fetch", "Portal Fetch")
	failed.Start()
	failed.Fail(errors.New("timeout"))

	snap := failed.Snapshot()
	assert.Equal(t, StepStatusFailed, snap.Status)
	assert.Equal(t, "timeout", snap.Error)

	skipped := NewStepState("summarize", "Province Summary")
	skipped.Skip("previous step failed")

	snap = skipped.Snapshot()
	assert.Equal(t, StepStatusSkipped, snap.Status)
	assert.Equal(t, "previous step failed", snap.Message)
}
