// Package api exposes the task queue and restart orchestrator over HTTP for
// operators and chat front ends. It handles routing-level concerns: request
// decoding and validation, bearer authentication, and mapping internal
// errors to status codes without leaking their details.
package api
