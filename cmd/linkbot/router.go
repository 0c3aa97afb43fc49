package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Beyllin/link/internal/api"
	apiMiddleware "github.com/Beyllin/link/internal/api/middleware"
)

// setupRouter creates and configures the application's HTTP router.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware(app.logger))

	authMiddleware := apiMiddleware.NewAuthMiddleware(app.jwtService)
	authHandler := api.NewAuthHandler(
		app.authenticator,
		app.jwtService,
		time.Duration(app.config.Auth.TokenLifetimeMinutes)*time.Minute,
	)
	taskHandler := api.NewTaskHandler(app.queue, app.resolver, app.catalog)
	restartHandler := api.NewRestartHandler(app.restarter)

	r.Route("/api", func(r chi.Router) {
		// Public
		r.Post("/auth/token", authHandler.IssueToken)

		// Protected
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)

			r.Post("/links", taskHandler.SubmitLink)
			r.Post("/commands", taskHandler.SubmitCommand)

			r.Get("/tasks/{id}", taskHandler.GetTask)
			r.Delete("/tasks/{id}", taskHandler.CancelTask)
			r.Get("/queue", taskHandler.QueueStatus)

			r.Post("/restart", restartHandler.Restart)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("failed to write health check response", "error", err)
		}
	})

	return r
}
