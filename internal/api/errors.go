package api

import (
	"errors"
	"net/http"

	"github.com/Beyllin/link/internal/command"
	"github.com/Beyllin/link/internal/resolver"
	"github.com/Beyllin/link/internal/restart"
	"github.com/Beyllin/link/internal/service/auth"
	"github.com/Beyllin/link/internal/task"
)

// MapErrorToStatusCode maps internal errors to HTTP status codes so that
// internal error types never reach clients.
func MapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized

	case errors.Is(err, task.ErrNotFound):
		return http.StatusNotFound

	case errors.Is(err, restart.ErrRestartInProgress):
		return http.StatusConflict

	case errors.Is(err, resolver.ErrUnsupported),
		errors.Is(err, command.ErrUnknownCommand):
		return http.StatusUnprocessableEntity

	case errors.Is(err, task.ErrQueueFull):
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a user-facing message for err.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingToken):
		return "Invalid token"
	case errors.Is(err, auth.ErrExpiredToken):
		return "Token expired"
	case errors.Is(err, auth.ErrInvalidCredentials):
		return "Invalid credentials"
	case errors.Is(err, task.ErrNotFound):
		return "Task not found"
	case errors.Is(err, restart.ErrRestartInProgress):
		return "A restart is already in progress"
	case errors.Is(err, resolver.ErrUnsupported):
		return "Unsupported site"
	case errors.Is(err, command.ErrUnknownCommand):
		return "Unknown command"
	case errors.Is(err, task.ErrQueueFull):
		return "Queue is full, try again later"
	default:
		return "An unexpected error occurred"
	}
}
