package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	dbutils "github.com/tendant/db-utils/db"
	"github.com/tendant/loginapp/pkg/account"
	"github.com/tendant/loginapp/pkg/config"
	"github.com/tendant/loginapp/pkg/sessions"
)

func newPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	dbConfig := cfg.ToDbConfig()
	pool, err := dbutils.NewDbPool(ctx, dbConfig)
	if err != nil {
		slog.Error("Failed creating dbpool", "db", dbConfig.Database, "host", dbConfig.Host, "port", dbConfig.Port, "user", dbConfig.User)
		return nil, err
	}
	return pool, nil
}

// newAccountRepository returns the configured account repository and a
// function releasing its resources.
func newAccountRepository(ctx context.Context, cfg config.Config) (account.Repository, func(), error) {
	switch cfg.AccountStore {
	case config.StoreFile:
		repo, err := account.NewFileRepository(cfg.AccountDataDir)
		if err != nil {
			return nil, nil, err
		}
		return repo, func() {}, nil
	case config.StorePostgres:
		pool, err := newPool(ctx, cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		repo := account.NewPostgresRepository(pool)
		if err := repo.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("failed to migrate accounts: %w", err)
		}
		return repo, pool.Close, nil
	default:
		slog.Warn("Using in-memory account store, accounts are lost on restart")
		return account.NewInMemoryRepository(), func() {}, nil
	}
}

// newSessionStore returns the configured session store. Redis and
// PostgreSQL stores share logins across instances.
func newSessionStore(ctx context.Context, cfg config.Config) (sessions.Store, func(), error) {
	switch cfg.SessionStore {
	case config.StoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("failed to reach redis at %s: %w", cfg.Redis.Addr, err)
		}
		return sessions.NewRedisStore(client, cfg.Redis.KeyPrefix), func() { client.Close() }, nil
	case config.StorePostgres:
		pool, err := newPool(ctx, cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		store := sessions.NewPostgresStore(pool)
		if err := store.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("failed to migrate sessions: %w", err)
		}
		if n, err := store.DeleteExpired(ctx); err != nil {
			slog.Warn("Failed removing expired sessions", "err", err)
		} else if n > 0 {
			slog.Info("Removed expired sessions", "count", n)
		}
		return store, pool.Close, nil
	default:
		return sessions.NewInMemoryStore(), func() {}, nil
	}
}
