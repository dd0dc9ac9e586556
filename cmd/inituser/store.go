package main

import (
	"context"
	"fmt"

	dbutils "github.com/tendant/db-utils/db"
	"github.com/tendant/loginapp/pkg/account"
	"github.com/tendant/loginapp/pkg/config"
)

func openAccountRepository(ctx context.Context, cfg config.Config) (account.Repository, func(), error) {
	switch cfg.AccountStore {
	case config.StoreFile:
		repo, err := account.NewFileRepository(cfg.AccountDataDir)
		if err != nil {
			return nil, nil, err
		}
		return repo, func() {}, nil
	case config.StorePostgres:
		dbConfig := cfg.Database.ToDbConfig()
		pool, err := dbutils.NewDbPool(ctx, dbConfig)
		if err != nil {
			return nil, nil, fmt.Errorf("failed creating dbpool for %s@%s: %w", dbConfig.Database, dbConfig.Host, err)
		}
		repo := account.NewPostgresRepository(pool)
		if err := repo.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return repo, pool.Close, nil
	default:
		return nil, nil, fmt.Errorf("account store %q does not persist, use %s or %s", cfg.AccountStore, config.StoreFile, config.StorePostgres)
	}
}
