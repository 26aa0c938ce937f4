package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/kokodi/internal/auth"
	"github.com/jason-s-yu/kokodi/internal/cache"
	"github.com/jason-s-yu/kokodi/internal/config"
	"github.com/jason-s-yu/kokodi/internal/database"
	"github.com/jason-s-yu/kokodi/internal/game"
	"github.com/jason-s-yu/kokodi/internal/handlers"
	"github.com/jason-s-yu/kokodi/internal/store"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

type sessionStore interface {
	game.SessionStore
	handlers.SessionDirectory
}

type userStore interface {
	game.UserLookup
	auth.UserStore
	handlers.UserDirectory
}

// backend owns the storage connections chosen by STORAGE_BACKEND. Accounts
// live in Postgres whenever DATABASE_URL is set, otherwise in memory.
type backend struct {
	cfg      *config.Config
	sessions sessionStore
	users    userStore

	pool *pgxpool.Pool
	rdb  *redis.Client
}

func openBackend(ctx context.Context, cfg *config.Config, logger logrus.FieldLogger) (*backend, error) {
	b := &backend{cfg: cfg}

	if cfg.DatabaseURL != "" {
		pool, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		b.pool = pool
		if err := database.EnsureSchema(ctx, pool); err != nil {
			b.Close()
			return nil, err
		}
		b.users = database.NewUserStore(pool)
		logger.Info("Connected to database")
	} else {
		b.users = store.NewUserStore()
	}

	switch cfg.StorageBackend {
	case config.BackendPostgres:
		b.sessions = database.NewSessionStore(b.pool)
	case config.BackendRedis:
		rdb, err := b.redis(ctx)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.sessions = cache.NewSessionStore(rdb, cfg.SessionTTL)
	case config.BackendMemory:
		b.sessions = store.NewSessionStore()
	default:
		b.Close()
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
	return b, nil
}

// redis connects lazily so the memory backend runs without Redis.
func (b *backend) redis(ctx context.Context) (*redis.Client, error) {
	if b.rdb != nil {
		return b.rdb, nil
	}
	rdb, err := cache.Connect(ctx, b.cfg.RedisAddr, b.cfg.RedisDB)
	if err != nil {
		return nil, err
	}
	b.rdb = rdb
	return rdb, nil
}

func (b *backend) Close() {
	if b.rdb != nil {
		b.rdb.Close()
	}
	if b.pool != nil {
		b.pool.Close()
	}
}
