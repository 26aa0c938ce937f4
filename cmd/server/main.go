// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jason-s-yu/kokodi/internal/auth"
	"github.com/jason-s-yu/kokodi/internal/cache"
	"github.com/jason-s-yu/kokodi/internal/config"
	"github.com/jason-s-yu/kokodi/internal/game"
	"github.com/jason-s-yu/kokodi/internal/handlers"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
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
		logger.Fatalf("server exited: %v", err)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *logrus.Logger) error {
	tokens, err := newTokens(cfg)
	if err != nil {
		return err
	}

	b, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer b.Close()

	hub := handlers.NewHub(logger)
	publishers := []game.EventPublisher{hub}
	if cfg.HistorianEnabled {
		rdb, err := b.redis(ctx)
		if err != nil {
			return err
		}
		publishers = append(publishers, cache.NewEventQueue(rdb, cfg.HistorianQueueName))
		logger.Infof("Publishing session events to Redis list %s", cfg.HistorianQueueName)
	}

	engine := game.NewEngine(b.sessions, b.users, cfg.WinScore,
		game.WithLogger(logger),
		game.WithPlayerBounds(cfg.MinPlayers, cfg.MaxPlayers),
		game.WithGuardTimeout(cfg.GuardTimeout),
		game.WithPublishers(publishers...),
	)

	srv := &handlers.Server{
		Engine:   engine,
		Accounts: auth.NewService(b.users, tokens, logger),
		Users:    b.users,
		Sessions: b.sessions,
		Hub:      hub,
		Logger:   logger,
	}
	httpServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infof("Running on %s (storage: %s)", httpServer.Addr, cfg.StorageBackend)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func newTokens(cfg *config.Config) (*auth.Tokens, error) {
	expiry, err := auth.ParseExpiry(cfg.TokenExpireTime)
	if err != nil {
		return nil, err
	}
	if cfg.JWTPrivateKeyPath != "" {
		return auth.LoadTokens(cfg.JWTPrivateKeyPath, cfg.JWTPublicKeyPath, expiry)
	}
	return auth.NewTokens(expiry)
}
