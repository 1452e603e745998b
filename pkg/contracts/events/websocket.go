// Package events defines the WebSocket wire contract shared by the hub,
// the operations engine and browser clients.
package events

import (
	"time"
)

// MessageType identifies the kind of frame inside a Message envelope.
type MessageType string

const (
	// MessageTypeOperationSnapshot carries the full state of one operation.
	// It is the only frame type used for ingest progress.
	MessageTypeOperationSnapshot MessageType = "operation:snapshot"

	// MessageTypeSystemStatus carries server-wide status changes, for
	// example the shutdown notice.
	MessageTypeSystemStatus MessageType = "system:status"

	// MessageTypeConnect is the welcome frame sent to a client right
	// after it registers with the hub.
	MessageTypeConnect MessageType = "connect"
)

// Message is the envelope for every frame the server sends.
type Message struct {
	Type      MessageType `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	TraceID   string      `json:"trace_id,omitempty"`
}

// OperationSnapshot is the payload broadcast on every operation update.
type OperationSnapshot struct {
	OperationID string         `json:"operation_id"`
	Type        string         `json:"type"`
	Status      string         `json:"status"`                 // pending|running|completed|failed|cancelled
	Progress    int            `json:"progress"`               // overall 0-100
	CurrentStep string         `json:"current_step,omitempty"` // id of the active step
	Steps       []StepSnapshot `json:"steps"`
	StartedAt   time.Time      `json:"started_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	Error       string         `json:"error,omitempty"`
}

// StepSnapshot is the state of a single step within an operation.
type StepSnapshot struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Status   string `json:"status"`   // pending|active|completed|failed|skipped
	Progress int    `json:"progress"` // 0-100
	Message  string `json:"message,omitempty"`
	Error    string `json:"error,omitempty"`
}

// ConnectionData is the payload of connect frames.
type ConnectionData struct {
	Status   string `json:"status"`
	Message  string `json:"message,omitempty"`
	ClientID string `json:"client_id,omitempty"`
}

// SystemStatusData is the payload of system:status frames.
type SystemStatusData struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}
