// Package events provides task lifecycle notifications.
//
// The task queue emits a TaskEvent on every transition (submitted, started,
// completed, failed, cancelled) without knowing who listens. A chat transport
// can subscribe to push results to users instead of polling, and the server
// wires an audit handler that logs every transition.
//
// The primary components are:
// - TaskEvent: one lifecycle transition of one task
// - EventHandler: interface for components that consume events
// - EventEmitter: interface for components that publish events
package events
