package main

import (
	"context"
	"log/slog"
	"os"

	_ "github.com/kirinyoku/moodcafe/docs"
	"github.com/kirinyoku/moodcafe/internal/app"
	"github.com/kirinyoku/moodcafe/internal/config"
)

// @title MoodCafe API
// @version 1.0
// @description Booking ledger, admin dashboard and live metrics for a cafe.
// @host localhost:4000
// @BasePath /
// @securityDefinitions.apikey AdminToken
// @in header
// @name x-admin-token
func main() {
	cfg, err := config.New()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))

	application, err := app.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create application", "error", err)
		os.Exit(1)
	}

	if err := application.Run(context.Background()); err != nil {
		logger.Error("application finished with error", "error", err)
		os.Exit(1)
	}
}
