// Command server runs the review service HTTP API.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/J-Stott/RegularReviewsBackEnd/internal/app"
	"github.com/J-Stott/RegularReviewsBackEnd/internal/config"
	"github.com/J-Stott/RegularReviewsBackEnd/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		slog.Error("review service exited", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := logger.New(cfg.ServiceName, cfg.LogLevel)
	slog.SetDefault(log)
	log.Info("starting review service",
		slog.String("version", cfg.Version),
		slog.String("environment", cfg.Environment),
		slog.Int("http_port", cfg.HTTPPort),
		slog.String("storage", cfg.StorageDriver),
		slog.Bool("catalog", cfg.CatalogEnabled()),
		slog.Bool("kafka", cfg.KafkaEnabled),
	)

	application, err := app.NewApp(cfg, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := application.Run(ctx); err != nil {
		return err
	}
	log.Info("review service stopped")
	return nil
}
