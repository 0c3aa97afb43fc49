package task

import (
	"container/list"
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Beyllin/link/internal/events"
	"github.com/Beyllin/link/internal/redact"
)

// taskIDLength is the number of characters kept from a generated UUID
const taskIDLength = 8

// QueueConfig holds configuration options for the task queue
type QueueConfig struct {
	// WorkerCount determines how many concurrent worker goroutines to start
	// If zero or negative, defaults to 1
	WorkerCount int

	// MaxPending bounds the pending FIFO; Submit returns ErrQueueFull past it.
	// Zero means unbounded.
	MaxPending int

	// PollInterval is how long an idle worker waits before re-checking the FIFO
	PollInterval time.Duration

	// ShutdownTimeout bounds Shutdown when its context carries no deadline
	ShutdownTimeout time.Duration

	// Retention evicts terminal tasks older than this. Zero keeps them forever.
	Retention time.Duration

	// SweepInterval is how often the retention janitor runs. Defaults to Retention.
	SweepInterval time.Duration
}

// DefaultQueueConfig returns a QueueConfig with reasonable defaults
func DefaultQueueConfig() QueueConfig {
	return QueueConfig{
		WorkerCount:     3,
		MaxPending:      0,
		PollInterval:    time.Second,
		ShutdownTimeout: 5 * time.Second,
	}
}

// QueueStatus is a point-in-time view of queue occupancy
type QueueStatus struct {
	Pending       int      `json:"pending"`
	Active        int      `json:"active"`
	Completed     int      `json:"completed"`
	ActiveTaskIDs []string `json:"active_task_ids"`
	Workers       int      `json:"workers"`
}

// running is a task currently owned by a worker
type running struct {
	task   *Task
	cancel context.CancelFunc
}

// Queue accepts tasks, runs them on a fixed pool of workers and keeps their
// lifecycle records. All collections and task fields are guarded by mu.
type Queue struct {
	mu         sync.Mutex
	pending    *list.List               // FIFO of *Task
	waiting    map[string]*list.Element // pending index for O(1) cancel
	processing map[string]*running
	completed  map[string]*Task

	// issued holds every id handed out and is never pruned, not even by
	// the retention sweep: ids stay unique for the process lifetime at the
	// cost of a few bytes per task ever submitted.
	issued map[string]struct{}

	registry *Registry
	emitter  events.EventEmitter
	config   QueueConfig
	logger   *slog.Logger
	newID    func() string

	wake      chan struct{}
	stop      chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

// NewQueue creates a task queue that dispatches through registry.
// Workers are not started until Start is called.
func NewQueue(registry *Registry, config QueueConfig, logger *slog.Logger) *Queue {
	if config.WorkerCount <= 0 {
		logger.Warn("invalid worker count specified, using default",
			"specified_count", config.WorkerCount,
			"default_count", 1)
		config.WorkerCount = 1
	}
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultQueueConfig().PollInterval
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = DefaultQueueConfig().ShutdownTimeout
	}
	if config.MaxPending < 0 {
		config.MaxPending = 0
	}
	if config.Retention > 0 && config.SweepInterval <= 0 {
		config.SweepInterval = config.Retention
	}

	return &Queue{
		pending:    list.New(),
		waiting:    make(map[string]*list.Element),
		processing: make(map[string]*running),
		completed:  make(map[string]*Task),
		issued:     make(map[string]struct{}),
		registry:   registry,
		config:     config,
		logger:     logger.With("component", "task_queue"),
		newID:      newTaskID,
		wake:       make(chan struct{}, 1),
		stop:       make(chan struct{}),
	}
}

// SetEmitter installs the lifecycle event sink. Must be called before Start.
func (q *Queue) SetEmitter(emitter events.EventEmitter) {
	q.emitter = emitter
}

func newTaskID() string {
	return uuid.NewString()[:taskIDLength]
}

// nextIDLocked returns an id that has never been issued by this queue
func (q *Queue) nextIDLocked() string {
	for {
		id := q.newID()
		if _, taken := q.issued[id]; !taken {
			q.issued[id] = struct{}{}
			return id
		}
	}
}

// Submit adds a pending task and returns its id without waiting for it to
// run. It fails only when MaxPending is set and reached.
//
// Submitting after Shutdown still records the task, but no worker will
// ever pick it up.
func (q *Queue) Submit(owner string, kind Kind, payload map[string]string) (string, error) {
	q.mu.Lock()
	if q.config.MaxPending > 0 && q.pending.Len() >= q.config.MaxPending {
		n := q.pending.Len()
		q.mu.Unlock()
		return "", fmt.Errorf("%w: %d tasks pending", ErrQueueFull, n)
	}

	t := &Task{
		ID:        q.nextIDLocked(),
		Owner:     owner,
		Kind:      kind,
		Payload:   maps.Clone(payload),
		Status:    TaskStatusPending,
		CreatedAt: time.Now(),
	}
	if t.Payload == nil {
		t.Payload = map[string]string{}
	}
	q.waiting[t.ID] = q.pending.PushBack(t)
	position := q.pending.Len()
	snap := t.snapshot()
	q.mu.Unlock()

	q.signal()

	q.logger.Info("task added to queue",
		"task_id", snap.ID,
		"task_kind", snap.Kind,
		"owner", snap.Owner,
		"position", position)
	q.emit(events.TaskSubmitted, snap)

	return snap.ID, nil
}

// signal wakes one idle worker without blocking
func (q *Queue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Get returns a copy of the task with the given id
func (q *Queue) Get(id string) (Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if t := q.lookupLocked(id); t != nil {
		return t.snapshot(), true
	}
	return Task{}, false
}

func (q *Queue) lookupLocked(id string) *Task {
	if el, ok := q.waiting[id]; ok {
		return el.Value.(*Task)
	}
	if r, ok := q.processing[id]; ok {
		return r.task
	}
	if t, ok := q.completed[id]; ok {
		return t
	}
	return nil
}

// Position returns the 1-based place of a pending task in the FIFO
func (q *Queue) Position(id string) (int, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.waiting[id]; !ok {
		return 0, false
	}
	pos := 1
	for el := q.pending.Front(); el != nil; el = el.Next() {
		if el.Value.(*Task).ID == id {
			return pos, true
		}
		pos++
	}
	return 0, false
}

// Cancel marks a pending or processing task cancelled and moves it to the
// completed set. A processing task's handler context is cancelled but the
// worker is left to finish; its result is discarded. Returns false for
// unknown or already terminal tasks.
func (q *Queue) Cancel(id string) bool {
	q.mu.Lock()

	var (
		t      *Task
		cancel context.CancelFunc
	)
	if el, ok := q.waiting[id]; ok {
		q.pending.Remove(el)
		delete(q.waiting, id)
		t = el.Value.(*Task)
	} else if r, ok := q.processing[id]; ok {
		delete(q.processing, id)
		t = r.task
		cancel = r.cancel
	} else {
		q.mu.Unlock()
		return false
	}

	previous := t.Status
	now := time.Now()
	t.Status = TaskStatusCancelled
	t.Error = CancelledMessage
	t.Result = ""
	t.CompletedAt = &now
	q.completed[id] = t
	snap := t.snapshot()
	q.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	q.logger.Info("task cancelled",
		"task_id", id,
		"previous_status", previous)
	q.emit(events.TaskCancelled, snap)
	return true
}

// Status reports queue occupancy. Active counts processing tasks.
func (q *Queue) Status() QueueStatus {
	q.mu.Lock()
	defer q.mu.Unlock()

	ids := make([]string, 0, len(q.processing))
	for id := range q.processing {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	return QueueStatus{
		Pending:       q.pending.Len(),
		Active:        len(q.processing),
		Completed:     len(q.completed),
		ActiveTaskIDs: ids,
		Workers:       q.config.WorkerCount,
	}
}

// Await polls the task every interval until it reaches a terminal state or
// ctx is done. On ctx expiry it returns the last snapshot with ctx.Err().
func (q *Queue) Await(ctx context.Context, id string, interval time.Duration) (Task, error) {
	if interval <= 0 {
		interval = q.config.PollInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		t, ok := q.Get(id)
		if !ok {
			return Task{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		if t.Status.IsTerminal() {
			return t, nil
		}

		select {
		case <-ctx.Done():
			return t, ctx.Err()
		case <-ticker.C:
		}
	}
}

// emit publishes a lifecycle event. Never called with mu held.
func (q *Queue) emit(eventType events.Type, t Task) {
	if q.emitter == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("event emitter panicked",
				"event_type", eventType,
				"task_id", t.ID,
				"panic", r)
		}
	}()

	event := events.NewTaskEvent(eventType, t.ID, t.Owner, string(t.Kind))
	event.Result = t.Result
	event.Error = t.Error
	if err := q.emitter.EmitEvent(context.Background(), event); err != nil {
		q.logger.Warn("failed to emit task event",
			"event_type", eventType,
			"task_id", t.ID,
			"error", redact.Error(err))
	}
}
