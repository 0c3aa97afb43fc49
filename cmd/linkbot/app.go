package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Beyllin/link/internal/command"
	"github.com/Beyllin/link/internal/config"
	"github.com/Beyllin/link/internal/events"
	"github.com/Beyllin/link/internal/resolver"
	"github.com/Beyllin/link/internal/restart"
	"github.com/Beyllin/link/internal/service/auth"
	"github.com/Beyllin/link/internal/task"
)

// TaskAuditEventHandler writes one structured log line per task transition
type TaskAuditEventHandler struct {
	logger *slog.Logger
}

// HandleEvent logs the transition. Failures and cancellations log at WARN.
func (h *TaskAuditEventHandler) HandleEvent(ctx context.Context, event *events.TaskEvent) error {
	attrs := []any{
		"event_id", event.ID,
		"event_type", event.Type,
		"task_id", event.TaskID,
		"task_kind", event.Kind,
		"owner", event.Owner,
	}

	switch event.Type {
	case events.TaskFailed, events.TaskCancelled:
		h.logger.WarnContext(ctx, "task transition", append(attrs, "error", event.Error)...)
	case events.TaskCompleted:
		h.logger.InfoContext(ctx, "task transition", append(attrs, "result_length", len(event.Result))...)
	default:
		h.logger.InfoContext(ctx, "task transition", attrs...)
	}
	return nil
}

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger

	resolver *resolver.Router
	catalog  *command.Catalog

	jwtService    auth.JWTService
	authenticator *auth.AdminAuthenticator

	eventEmitter *events.InMemoryEventEmitter
	queue        *task.Queue
	restarter    *restart.Orchestrator
}

// newApplication wires the resolver, command catalog, task queue and restart
// orchestrator. The queue's workers are running when it returns.
func newApplication(cfg *config.Config, logger *slog.Logger, routes ...resolver.Route) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
	}

	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	logger.Info("JWT authentication service initialized",
		"token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes)

	app.authenticator = auth.NewAdminAuthenticator(cfg.Auth.AdminPasswordHash, auth.NewBcryptVerifier())

	app.resolver = resolver.NewRouter(logger, routes...)
	app.catalog = command.NewCatalog(app.resolver)

	registry := task.NewRegistry()
	if err := registry.Register(task.KindDownload, task.NewDownloadHandler(app.resolver)); err != nil {
		return nil, fmt.Errorf("failed to register download handler: %w", err)
	}
	if err := registry.Register(task.KindCommand, task.NewCommandHandler(app.catalog)); err != nil {
		return nil, fmt.Errorf("failed to register command handler: %w", err)
	}

	app.eventEmitter = events.NewInMemoryEventEmitter(logger)
	app.eventEmitter.RegisterHandler(&TaskAuditEventHandler{
		logger: logger.With("component", "task_audit"),
	})

	app.queue = task.NewQueue(registry, task.QueueConfig{
		WorkerCount:     cfg.Task.WorkerCount,
		MaxPending:      cfg.Task.MaxPending,
		PollInterval:    cfg.Task.PollInterval,
		ShutdownTimeout: cfg.Task.ShutdownTimeout,
		Retention:       cfg.Task.Retention,
	}, logger)
	app.queue.SetEmitter(app.eventEmitter)
	app.queue.Start()

	app.restarter = restart.NewOrchestrator(app.queue, cfg.Restart, logger)

	logger.Info("Application initialized successfully",
		"sites", len(app.resolver.Sites()),
		"commands", app.catalog.Names(),
		"task_kinds", registry.Kinds())
	return app, nil
}

// Run serves the HTTP API until ctx ends or a shutdown signal arrives.
func (app *application) Run(ctx context.Context) error {
	router := app.setupRouter()

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup stops the task queue, waiting up to its shutdown timeout.
func (app *application) cleanup() {
	if app.queue != nil {
		if err := app.queue.Shutdown(context.Background()); err != nil {
			app.logger.Warn("task queue did not stop cleanly", "error", err)
		}
	}

	app.logger.Info("Application shutdown completed")
}
