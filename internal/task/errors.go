package task

import "errors"

// Common errors returned by the task queue and its handlers
var (
	// ErrQueueFull is returned by Submit when a pending bound is configured and reached
	ErrQueueFull = errors.New("task queue is full")

	// ErrNotFound is returned for ids the queue does not know
	ErrNotFound = errors.New("task not found")

	// ErrShutdownTimeout means workers were still running when Shutdown gave up waiting
	ErrShutdownTimeout = errors.New("timed out waiting for workers to stop")

	// ErrUnknownKind is recorded on tasks whose kind has no registered handler
	ErrUnknownKind = errors.New("unrecognized task kind")

	// ErrDuplicateKind is returned when registering a second handler for a kind
	ErrDuplicateKind = errors.New("handler already registered for kind")

	// ErrMissingURL is recorded on download tasks without a url
	ErrMissingURL = errors.New("url not provided")

	// ErrMissingCommand is recorded on command tasks without a command name
	ErrMissingCommand = errors.New("command not provided")

	// ErrEmptyResult is recorded when a handler reports success with no output
	ErrEmptyResult = errors.New("handler returned an empty result")
)
