package websocket

import (
	"time"

	"sricli/internal/operations"
	"sricli/pkg/contracts/events"
)

// OperationBroadcaster translates manager snapshots into wire frames. It
// implements operations.Broadcaster.
type OperationBroadcaster struct {
	hub *Hub
}

func NewOperationBroadcaster(hub *Hub) *OperationBroadcaster {
	return &OperationBroadcaster{hub: hub}
}

// BroadcastOperation fans one snapshot out to every connected client.
func (b *OperationBroadcaster) BroadcastOperation(snap operations.Snapshot) {
	b.hub.Broadcast(events.Message{
		Type: events.MessageTypeOperationSnapshot,
		Data: snapshotEvent(snap),
	})
}

// snapshotEvent flattens an internal snapshot into the client contract,
// adding the overall progress and the id of the step currently active.
func snapshotEvent(snap operations.Snapshot) events.OperationSnapshot {
	ev := events.OperationSnapshot{
		OperationID: snap.ID,
		Type:        snap.Type,
		Status:      string(snap.Status),
		Steps:       make([]events.StepSnapshot, 0, len(snap.Steps)),
		StartedAt:   snap.StartTime,
		UpdatedAt:   time.Now().UTC(),
		CompletedAt: snap.EndTime,
		Error:       snap.Error,
	}

	var total float64
	for _, step := range snap.Steps {
		ev.Steps = append(ev.Steps, events.StepSnapshot{
			ID:       step.ID,
			Name:     step.Name,
			Status:   string(step.Status),
			Progress: int(step.Progress),
			Message:  step.Message,
			Error:    step.Error,
		})
		total += step.Progress
		if step.Status == operations.StepStatusActive && ev.CurrentStep == "" {
			ev.CurrentStep = step.ID
		}
	}

	// Skipped steps never reach 100, so a finished run is pinned there.
	if snap.Status == operations.StatusCompleted {
		ev.Progress = 100
	} else if len(snap.Steps) > 0 {
		ev.Progress = int(total / float64(len(snap.Steps)))
	}
	return ev
}
