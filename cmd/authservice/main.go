package main

import (
	"context"
	"log/slog"
	"os"

	"petromanage/internal/app"
	"petromanage/internal/config"
	"petromanage/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(logger.New(os.Stdout, cfg.LogFormat, cfg.LogLevel).With("service", "auth"))

	application, err := app.NewAuth(context.Background(), cfg)
	if err != nil {
		slog.Error("failed to initialize auth service", "error", err)
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		slog.Error("auth service run failed", "error", err)
		os.Exit(1)
	}
}
