package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Type names a lifecycle transition.
type Type string

// Lifecycle transitions published by the task queue.
const (
	TaskSubmitted Type = "task.submitted"
	TaskStarted   Type = "task.started"
	TaskCompleted Type = "task.completed"
	TaskFailed    Type = "task.failed"
	TaskCancelled Type = "task.cancelled"
)

// TaskEvent describes a single lifecycle transition. It carries plain values
// so that subscribers never share memory with the queue.
type TaskEvent struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	Type   Type   `json:"type"`
	TaskID string `json:"task_id"`
	Owner  string `json:"owner"`
	Kind   string `json:"kind"`

	// Result is set on TaskCompleted, Error on TaskFailed and TaskCancelled.
	Result string `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`

	// CreatedAt is the timestamp when the event was created
	CreatedAt time.Time `json:"created_at"`
}

// NewTaskEvent creates a TaskEvent stamped with a fresh id and the current time.
func NewTaskEvent(eventType Type, taskID, owner, kind string) *TaskEvent {
	return &TaskEvent{
		ID:        uuid.New(),
		Type:      eventType,
		TaskID:    taskID,
		Owner:     owner,
		Kind:      kind,
		CreatedAt: time.Now(),
	}
}

// EventHandler defines an interface for components that can handle events.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	// Returns an error if the event cannot be handled successfully.
	HandleEvent(ctx context.Context, event *TaskEvent) error
}

// EventHandlerFunc adapts a plain function to EventHandler.
type EventHandlerFunc func(ctx context.Context, event *TaskEvent) error

// HandleEvent calls f(ctx, event).
func (f EventHandlerFunc) HandleEvent(ctx context.Context, event *TaskEvent) error {
	return f(ctx, event)
}

// EventEmitter defines an interface for components that can emit events.
// This allows the queue to publish transitions without direct knowledge of handlers.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	EmitEvent(ctx context.Context, event *TaskEvent) error
}
