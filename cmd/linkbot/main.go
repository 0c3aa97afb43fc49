// Package main implements the entry point for the linkbot service, which
// queues link-resolution and command tasks for chat front ends and exposes
// an admin API for task status and full restarts.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"

	"github.com/Beyllin/link/internal/config"
	"github.com/Beyllin/link/internal/platform/logger"
	"github.com/Beyllin/link/internal/resolver"
)

func main() {
	fmt.Println("linkbot starting...")

	cfg, l, err := initializeApp()
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	app, err := newApplication(cfg, l,
		resolver.MediaFireRoute(resolver.NewMediaFire(nil, "")))
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	if err := app.Run(context.Background()); err != nil {
		l.Error("application stopped with error", "error", err)
		log.Fatalf("Server error: %v", err)
	}
}

// initializeApp loads configuration and sets up logging.
func initializeApp() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	l, err := logger.Setup(cfg.Server)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up logger: %w", err)
	}

	l.Info("Server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"workers", cfg.Task.WorkerCount,
		"max_pending", cfg.Task.MaxPending)
	l.Debug("Auth configuration",
		"jwt_secret_present", cfg.Auth.JWTSecret != "",
		"admin_password_hash_present", cfg.Auth.AdminPasswordHash != "")

	return cfg, l, nil
}
