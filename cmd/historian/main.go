// cmd/historian drains session events from Redis into Postgres.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/coder/quartz"
	"github.com/jason-s-yu/kokodi/internal/cache"
	"github.com/jason-s-yu/kokodi/internal/config"
	"github.com/jason-s-yu/kokodi/internal/database"
	"github.com/jason-s-yu/kokodi/internal/historian"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("invalid configuration: %v", err)
	}
	logger := cfg.NewLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatalf("historian exited: %v", err)
	}
	logger.Info("Historian shutdown complete.")
}

func run(ctx context.Context, cfg *config.Config, logger *logrus.Logger) error {
	if cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()
	if err := database.EnsureSchema(ctx, pool); err != nil {
		return err
	}

	rdb, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		return err
	}
	defer rdb.Close()

	queue := cache.NewEventQueue(rdb, cfg.HistorianQueueName)
	if pending, err := queue.Len(ctx); err != nil {
		logger.WithError(err).Warn("Could not read queue length")
	} else {
		logger.Infof("%d events waiting in %s", pending, cfg.HistorianQueueName)
	}

	svc := historian.NewService(
		queue,
		database.NewEventStore(pool),
		historian.Config{
			BatchSize:  cfg.HistorianBatchSize,
			FlushEvery: cfg.HistorianFlushEvery(),
		},
		logger.WithField("queue", cfg.HistorianQueueName),
		quartz.NewReal(),
	)
	return svc.Run(ctx)
}
