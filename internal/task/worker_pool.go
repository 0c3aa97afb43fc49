package task

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/Beyllin/link/internal/events"
	"github.com/Beyllin/link/internal/redact"
)

// recoverDelay is how long a worker idles after recovering from a panic in
// its own bookkeeping
var recoverDelay = time.Second

// Start launches the worker goroutines and, when retention is configured,
// the janitor. Calling Start more than once has no effect.
func (q *Queue) Start() {
	q.startOnce.Do(func() {
		q.logger.Info("starting task queue",
			"worker_count", q.config.WorkerCount,
			"max_pending", q.config.MaxPending)

		for i := 0; i < q.config.WorkerCount; i++ {
			q.wg.Add(1)
			go q.worker(i)
		}

		if q.config.Retention > 0 {
			q.wg.Add(1)
			go q.janitor()
		}
	})
}

// Shutdown tells workers to stop pulling tasks and waits for them to finish
// the task they hold. The wait is bounded by ctx, or by ShutdownTimeout when
// ctx has no deadline. Tasks still pending stay pending. Safe to call more
// than once.
func (q *Queue) Shutdown(ctx context.Context) error {
	q.stopOnce.Do(func() {
		q.logger.Info("stopping task queue")
		close(q.stop)
	})

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.config.ShutdownTimeout)
		defer cancel()
	}

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		q.logger.Info("task queue stopped")
		return nil
	case <-ctx.Done():
		status := q.Status()
		q.logger.Warn("workers still running after shutdown wait",
			"active", status.Active,
			"active_task_ids", status.ActiveTaskIDs)
		return fmt.Errorf("%w: %v", ErrShutdownTimeout, ctx.Err())
	}
}

func (q *Queue) stopping() bool {
	select {
	case <-q.stop:
		return true
	default:
		return false
	}
}

// worker pulls tasks until Shutdown is called
func (q *Queue) worker(id int) {
	defer q.wg.Done()

	q.logger.Debug("starting worker", "worker_id", id)

	for {
		if q.stopping() {
			q.logger.Debug("stopping worker", "worker_id", id)
			return
		}

		ran, crashed := q.step(id)
		if ran {
			continue
		}

		wait := q.config.PollInterval
		if crashed {
			wait = recoverDelay
		}

		select {
		case <-q.stop:
			q.logger.Debug("stopping worker", "worker_id", id)
			return
		case <-q.wake:
		case <-time.After(wait):
		}
	}
}

// step runs at most one task. ran is false when the FIFO was empty;
// crashed is true when the worker's own bookkeeping panicked.
func (q *Queue) step(workerID int) (ran, crashed bool) {
	var held *Task
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("worker recovered from panic",
				"worker_id", workerID,
				"panic", r)
			if held != nil {
				q.release(held, fmt.Errorf("worker panic: %v", r))
			}
			ran, crashed = false, true
		}
	}()

	t, job, ctx, cancel := q.dequeue()
	if t == nil {
		return false, false
	}
	held = t
	defer cancel()

	q.logger.Info("processing task",
		"task_id", job.ID,
		"task_kind", job.Kind,
		"worker_id", workerID)
	q.emitJob(events.TaskStarted, job)

	result, err := q.execute(ctx, job)
	q.finish(t, workerID, result, err)
	return true, false
}

// dequeue pops the oldest pending task and moves it to processing in one
// critical section
func (q *Queue) dequeue() (*Task, Job, context.Context, context.CancelFunc) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.stopping() {
		return nil, Job{}, nil, nil
	}

	front := q.pending.Front()
	if front == nil {
		return nil, Job{}, nil, nil
	}
	t := q.pending.Remove(front).(*Task)
	delete(q.waiting, t.ID)
	if q.pending.Len() > 0 {
		// chain the wake-up to the next idle worker
		q.signal()
	}

	now := time.Now()
	t.Status = TaskStatusProcessing
	t.StartedAt = &now

	ctx, cancel := context.WithCancel(context.Background())
	q.processing[t.ID] = &running{task: t, cancel: cancel}

	job := Job{
		ID:       t.ID,
		Owner:    t.Owner,
		Kind:     t.Kind,
		Payload:  maps.Clone(t.Payload),
		progress: func(p int) { q.setProgress(t, p) },
	}
	return t, job, ctx, cancel
}

func (q *Queue) setProgress(t *Task, percent int) {
	percent = max(0, min(percent, 100))

	q.mu.Lock()
	defer q.mu.Unlock()

	if r, ok := q.processing[t.ID]; ok && r.task == t {
		t.Progress = percent
	}
}

// execute runs the handler for job, turning panics into errors
func (q *Queue) execute(ctx context.Context, job Job) (result string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()

	handler, ok := q.registry.Lookup(job.Kind)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownKind, job.Kind)
	}

	result, err = handler.Handle(ctx, job)
	if err == nil && result == "" {
		err = ErrEmptyResult
	}
	return result, err
}

// finish records the outcome, unless the task was cancelled while running
func (q *Queue) finish(t *Task, workerID int, result string, err error) {
	q.mu.Lock()
	r, ok := q.processing[t.ID]
	if !ok || r.task != t {
		q.mu.Unlock()
		q.logger.Info("task left processing before it finished, discarding result",
			"task_id", t.ID,
			"worker_id", workerID,
			"cancelled_ctx", errors.Is(err, context.Canceled))
		return
	}
	delete(q.processing, t.ID)

	now := time.Now()
	t.CompletedAt = &now
	eventType := events.TaskCompleted
	if err != nil {
		msg := err.Error()
		if msg == "" {
			msg = "task failed"
		}
		t.Status = TaskStatusFailed
		t.Error = msg
		t.Result = ""
		eventType = events.TaskFailed
	} else {
		t.Status = TaskStatusCompleted
		t.Result = result
		t.Error = ""
		t.Progress = 100
	}
	q.completed[t.ID] = t
	snap := t.snapshot()
	q.mu.Unlock()

	if err != nil {
		q.logger.Error("task execution failed",
			"task_id", snap.ID,
			"task_kind", snap.Kind,
			"worker_id", workerID,
			"error", redact.Error(err))
	} else {
		q.logger.Info("task completed successfully",
			"task_id", snap.ID,
			"task_kind", snap.Kind,
			"worker_id", workerID,
			"duration", snap.CompletedAt.Sub(*snap.StartedAt))
	}
	q.emit(eventType, snap)
}

// release fails a task whose worker panicked outside the handler, so it
// does not stay in processing forever. No-op if the task already left.
func (q *Queue) release(t *Task, reason error) {
	q.mu.Lock()
	r, ok := q.processing[t.ID]
	if !ok || r.task != t {
		q.mu.Unlock()
		return
	}
	delete(q.processing, t.ID)
	r.cancel()

	now := time.Now()
	t.Status = TaskStatusFailed
	t.Error = reason.Error()
	t.Result = ""
	t.CompletedAt = &now
	q.completed[t.ID] = t
	snap := t.snapshot()
	q.mu.Unlock()

	q.emit(events.TaskFailed, snap)
}

func (q *Queue) emitJob(eventType events.Type, job Job) {
	q.emit(eventType, Task{ID: job.ID, Owner: job.Owner, Kind: job.Kind})
}
