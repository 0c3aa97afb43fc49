package task

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

// Job is the read-only view of a task handed to a Handler.
type Job struct {
	ID      string
	Owner   string
	Kind    Kind
	Payload map[string]string

	progress func(int)
}

// SetProgress records an advisory completion percentage on the task.
// Updates arriving after the task left the processing state are ignored.
func (j Job) SetProgress(percent int) {
	if j.progress != nil {
		j.progress(percent)
	}
}

// Handler executes one kind of task. The returned string becomes the task
// result; a non-nil error marks the task failed.
//
// ctx is cancelled when the task is cancelled by a user. Handlers may ignore
// it; the queue discards whatever they return once the task is cancelled.
type Handler interface {
	Handle(ctx context.Context, job Job) (string, error)
}

// HandlerFunc adapts an ordinary function to the Handler interface
type HandlerFunc func(ctx context.Context, job Job) (string, error)

// Handle calls f(ctx, job)
func (f HandlerFunc) Handle(ctx context.Context, job Job) (string, error) {
	return f(ctx, job)
}

// Registry maps task kinds to their handlers.
type Registry struct {
	mu       sync.RWMutex
	handlers map[Kind]Handler
}

// NewRegistry creates an empty handler registry
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[Kind]Handler)}
}

// Register binds a handler to a kind. Each kind can be registered once.
func (r *Registry) Register(kind Kind, handler Handler) error {
	if kind == "" {
		return fmt.Errorf("%w: empty kind", ErrUnknownKind)
	}
	if handler == nil {
		return fmt.Errorf("nil handler for kind %q", kind)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handlers[kind]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateKind, kind)
	}
	r.handlers[kind] = handler
	return nil
}

// Lookup returns the handler registered for kind
func (r *Registry) Lookup(kind Kind) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[kind]
	return h, ok
}

// Kinds lists registered kinds in sorted order
func (r *Registry) Kinds() []Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]Kind, 0, len(r.handlers))
	for k := range r.handlers {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	return kinds
}
