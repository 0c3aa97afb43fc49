package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Beyllin/link/internal/api/shared"
	"github.com/Beyllin/link/internal/command"
	"github.com/Beyllin/link/internal/platform/logger"
	"github.com/Beyllin/link/internal/resolver"
	"github.com/Beyllin/link/internal/task"
)

// maxWait caps the ?wait= long-poll on task status
const maxWait = 60 * time.Second

// awaitInterval is how often a long-poll re-reads the task
const awaitInterval = 250 * time.Millisecond

// TaskQueue is the queue surface the HTTP layer needs.
type TaskQueue interface {
	Submit(owner string, kind task.Kind, payload map[string]string) (string, error)
	Get(id string) (task.Task, bool)
	Cancel(id string) bool
	Status() task.QueueStatus
	Position(id string) (int, bool)
	Await(ctx context.Context, id string, interval time.Duration) (task.Task, error)
}

// LinkChecker reports whether a URL belongs to a supported site.
type LinkChecker interface {
	Supports(rawURL string) bool
}

// CommandChecker reports whether a command name exists.
type CommandChecker interface {
	Has(name string) bool
}

// TaskHandler serves task submission, status and cancellation.
type TaskHandler struct {
	queue    TaskQueue
	links    LinkChecker
	commands CommandChecker
}

// NewTaskHandler creates a new TaskHandler with the given dependencies.
func NewTaskHandler(queue TaskQueue, links LinkChecker, commands CommandChecker) *TaskHandler {
	return &TaskHandler{
		queue:    queue,
		links:    links,
		commands: commands,
	}
}

// SubmitLink handles POST /api/links.
func (h *TaskHandler) SubmitLink(w http.ResponseWriter, r *http.Request) {
	var req SubmitLinkRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if !h.links.Supports(req.URL) {
		respondWithMappedError(w, r, resolver.ErrUnsupported)
		return
	}

	h.submit(w, r, requestOwner(r, req.Owner), task.KindDownload, map[string]string{task.PayloadURL: req.URL})
}

// SubmitCommand handles POST /api/commands.
func (h *TaskHandler) SubmitCommand(w http.ResponseWriter, r *http.Request) {
	var req SubmitCommandRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if !h.commands.Has(req.Command) {
		respondWithMappedError(w, r, command.ErrUnknownCommand)
		return
	}

	h.submit(w, r, requestOwner(r, req.Owner), task.KindCommand, map[string]string{task.PayloadCommand: req.Command})
}

func (h *TaskHandler) submit(w http.ResponseWriter, r *http.Request, owner string, kind task.Kind, payload map[string]string) {
	id, err := h.queue.Submit(owner, kind, payload)
	if err != nil {
		respondWithMappedError(w, r, err)
		return
	}

	position, _ := h.queue.Position(id)
	logger.FromContext(r.Context()).Info("task submitted",
		"task_id", id,
		"task_kind", kind,
		"owner", owner,
		"position", position)

	w.Header().Set("Location", "/api/tasks/"+id)
	shared.RespondWithJSON(w, r, http.StatusAccepted, SubmitResponse{
		TaskID:   id,
		Position: position,
	})
}

// GetTask handles GET /api/tasks/{id}. With ?wait=<duration> it blocks
// until the task is terminal or the wait elapses, whichever is first.
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	id, ok := getPathID(w, r, "id")
	if !ok {
		return
	}

	var wait time.Duration
	if raw := r.URL.Query().Get("wait"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d < 0 {
			shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid wait duration", err)
			return
		}
		wait = min(d, maxWait)
	}

	var (
		snapshot task.Task
		err      error
	)
	if wait > 0 {
		ctx, cancel := context.WithTimeout(r.Context(), wait)
		defer cancel()
		snapshot, err = h.queue.Await(ctx, id, awaitInterval)
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			err = nil
		}
	} else {
		var found bool
		snapshot, found = h.queue.Get(id)
		if !found {
			err = task.ErrNotFound
		}
	}
	if err != nil {
		respondWithMappedError(w, r, err)
		return
	}

	resp := TaskResponse{Task: snapshot}
	if snapshot.Status == task.TaskStatusPending {
		resp.Position, _ = h.queue.Position(id)
	}
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// CancelTask handles DELETE /api/tasks/{id}.
func (h *TaskHandler) CancelTask(w http.ResponseWriter, r *http.Request) {
	id, ok := getPathID(w, r, "id")
	if !ok {
		return
	}

	if !h.queue.Cancel(id) {
		if _, exists := h.queue.Get(id); !exists {
			respondWithMappedError(w, r, task.ErrNotFound)
			return
		}
		shared.RespondWithError(w, r, http.StatusConflict, "Task is no longer active")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, CancelResponse{
		TaskID: id,
		Status: task.TaskStatusCancelled,
	})
}

// QueueStatus handles GET /api/queue.
func (h *TaskHandler) QueueStatus(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, h.queue.Status())
}
