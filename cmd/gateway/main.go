package main

import (
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

	slog.SetDefault(logger.New(os.Stdout, cfg.LogFormat, cfg.LogLevel).With("service", "gateway"))

	application, err := app.NewGateway(cfg)
	if err != nil {
		slog.Error("failed to initialize gateway", "error", err)
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		slog.Error("gateway run failed", "error", err)
		os.Exit(1)
	}
}
