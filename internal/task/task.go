package task

import (
	"maps"
	"time"
)

// TaskStatus represents the current state of a task
type TaskStatus string

// Possible task status values
const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
	TaskStatusCancelled  TaskStatus = "cancelled"
)

// IsTerminal reports whether no further transitions can happen.
func (s TaskStatus) IsTerminal() bool {
	switch s {
	case TaskStatusCompleted, TaskStatusFailed, TaskStatusCancelled:
		return true
	default:
		return false
	}
}

// Kind selects the handler that executes a task.
type Kind string

// Built-in task kinds. Other kinds can be added through Registry.Register.
const (
	// KindDownload resolves payload["url"] into a direct download link
	KindDownload Kind = "download"

	// KindCommand renders the user-facing text for payload["command"]
	KindCommand Kind = "command"
)

// Payload keys understood by the built-in handlers.
const (
	PayloadURL     = "url"
	PayloadCommand = "command"
)

// CancelledMessage is recorded as the error of a cancelled task.
const CancelledMessage = "task cancelled by user"

// Task is a unit of submitted work. ID, Owner, Kind, Payload and CreatedAt
// never change after submission; the rest is written only by the worker that
// owns the task or by Cancel, always under the queue lock.
//
// Values returned by Queue.Get are copies and safe to read without locking.
type Task struct {
	ID      string            `json:"id"`
	Owner   string            `json:"owner"`
	Kind    Kind              `json:"kind"`
	Payload map[string]string `json:"payload"`

	Status      TaskStatus `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	Result   string `json:"result,omitempty"` // set only when completed
	Error    string `json:"error,omitempty"`  // set when failed or cancelled
	Progress int    `json:"progress"`         // advisory percentage
}

// snapshot returns a deep copy. Callers must hold the queue lock.
func (t *Task) snapshot() Task {
	c := *t
	c.Payload = maps.Clone(t.Payload)
	if t.StartedAt != nil {
		started := *t.StartedAt
		c.StartedAt = &started
	}
	if t.CompletedAt != nil {
		completed := *t.CompletedAt
		c.CompletedAt = &completed
	}
	return c
}
