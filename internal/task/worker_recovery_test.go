package task

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// panicOnceHandler is a log sink that panics the first time it sees message
type panicOnceHandler struct {
	slog.Handler
	message string
	fired   *atomic.Bool
}

func (h panicOnceHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Message == h.message && h.fired.CompareAndSwap(false, true) {
		panic("log sink failure")
	}
	return h.Handler.Handle(ctx, r)
}

func (h panicOnceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return panicOnceHandler{Handler: h.Handler.WithAttrs(attrs), message: h.message, fired: h.fired}
}

func (h panicOnceHandler) WithGroup(name string) slog.Handler {
	return panicOnceHandler{Handler: h.Handler.WithGroup(name), message: h.message, fired: h.fired}
}

func TestWorkerPool_RecoversFromBookkeepingPanic(t *testing.T) {
	previous := recoverDelay
	recoverDelay = 20 * time.Millisecond
	t.Cleanup(func() { recoverDelay = previous })

	fired := &atomic.Bool{}
	logger := slog.New(panicOnceHandler{
		Handler: slog.NewTextHandler(io.Discard, nil),
		message: "processing task",
		fired:   fired,
	})

	registry := NewRegistry()
	require.NoError(t, registry.Register(KindCommand, echoHandler()))
	q := NewQueue(registry, testQueueConfig(1), logger)
	t.Cleanup(func() { _ = q.Shutdown(context.Background()) })
	q.Start()

	first, err := q.Submit("user-1", KindCommand, nil)
	require.NoError(t, err)

	crashed := awaitTask(t, q, first)
	require.True(t, fired.Load())
	assert.Equal(t, TaskStatusFailed, crashed.Status)
	assert.Contains(t, crashed.Error, "log sink failure")
	assert.Empty(t, crashed.Result)
	assert.NotNil(t, crashed.CompletedAt)

	// the single worker is still serving
	second, err := q.Submit("user-1", KindCommand, nil)
	require.NoError(t, err)
	done := awaitTask(t, q, second)
	assert.Equal(t, TaskStatusCompleted, done.Status)
	assert.Equal(t, "done:"+second, done.Result)

	status := q.Status()
	assert.Equal(t, 1, status.Workers)
	assert.Equal(t, 0, status.Active)
	assert.Empty(t, status.ActiveTaskIDs)
	assert.Equal(t, 2, status.Completed)
}

func TestWorkerPool_BurstWakesIdleWorkers(t *testing.T) {
	config := testQueueConfig(3)
	config.PollInterval = 10 * time.Second

	var running atomic.Int32
	release := make(chan struct{})
	handler := HandlerFunc(func(_ context.Context, job Job) (string, error) {
		running.Add(1)
		<-release
		return "ok", nil
	})

	q := newTestQueue(t, config, map[Kind]Handler{KindCommand: handler})
	q.Start()
	defer close(release)

	// let every worker settle into its idle wait
	time.Sleep(50 * time.Millisecond)

	for i := 0; i < 3; i++ {
		_, err := q.Submit("user-1", KindCommand, nil)
		require.NoError(t, err)
	}

	require.Eventually(t, func() bool {
		return running.Load() == 3
	}, time.Second, 5*time.Millisecond, "idle workers waited for the poll interval")
	assert.Equal(t, 3, q.Status().Active)
}
