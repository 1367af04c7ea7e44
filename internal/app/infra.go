package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Constitosh/verifyDN/internal/config"
	"github.com/Constitosh/verifyDN/internal/db"
	"github.com/Constitosh/verifyDN/internal/logger"
	"github.com/Constitosh/verifyDN/internal/redis"

	_ "github.com/lib/pq"
)

// Infra holds the optional backing services. A nil field means the
// configured stores do not need it.
type Infra struct {
	DB    *db.DB
	Redis *redis.Client
}

func setupInfra(ctx context.Context, cfg config.Config) (*Infra, error) {
	infra := &Infra{}

	if cfg.ProfileStore == config.StorePostgres {
		sqlDB, err := sql.Open("postgres", cfg.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("postgres: open: %w", err)
		}

		if err := sqlDB.PingContext(ctx); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("postgres: ping: %w", err)
		}

		if err := db.RunProfilesMigration(ctx, sqlDB); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("postgres: migrate: %w", err)
		}

		logger.Info("database ready", nil)
		infra.DB = &db.DB{DB: sqlDB}
	}

	if cfg.UsesRedis() {
		redisClient, err := redis.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			_ = infra.Close()
			return nil, err
		}

		logger.Info("redis ready", map[string]any{"addr": cfg.RedisAddr})
		infra.Redis = redisClient
	}

	return infra, nil
}

func (i *Infra) Close() error {
	var errs []error
	if i.DB != nil {
		errs = append(errs, i.DB.Close())
	}
	if i.Redis != nil {
		errs = append(errs, i.Redis.Close())
	}
	return errors.Join(errs...)
}
