package api

import (
	"time"

	"github.com/Beyllin/link/internal/task"
)

// TokenRequest exchanges the admin password for a bearer token.
type TokenRequest struct {
	Password string `json:"password" validate:"required"`
}

// TokenResponse carries a freshly issued bearer token.
type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SubmitLinkRequest asks for a link to be resolved. Owner defaults to the
// token subject; front ends relaying for chat users set it explicitly.
type SubmitLinkRequest struct {
	URL   string `json:"url"             validate:"required,url,max=2048"`
	Owner string `json:"owner,omitempty" validate:"omitempty,max=128"`
}

// SubmitCommandRequest asks for a command reply to be rendered.
type SubmitCommandRequest struct {
	Command string `json:"command"         validate:"required,max=64"`
	Owner   string `json:"owner,omitempty" validate:"omitempty,max=128"`
}

// SubmitResponse acknowledges a queued task.
type SubmitResponse struct {
	TaskID   string `json:"task_id"`
	Position int    `json:"position"`
}

// TaskResponse is a task snapshot plus its queue position while pending.
type TaskResponse struct {
	task.Task
	Position int `json:"position,omitempty"`
}

// CancelResponse reports a successful cancellation.
type CancelResponse struct {
	TaskID string          `json:"task_id"`
	Status task.TaskStatus `json:"status"`
}

// RestartResponse carries the restart report.
type RestartResponse struct {
	Report string `json:"report"`
}
