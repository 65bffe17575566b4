package datasource

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"field-equipment/internal/repositories"
	"field-equipment/pkg/config"
	"field-equipment/pkg/database/postgresql"
)

type PostgresProvider struct {
	cfg *config.Config
}

func NewPostgresProvider(cfg *config.Config) *PostgresProvider {
	return &PostgresProvider{cfg: cfg}
}

func (p *PostgresProvider) Name() string {
	return config.DataSourcePostgres
}

func (p *PostgresProvider) Open(ctx context.Context, logger *zap.Logger) (*repositories.Set, func(), error) {
	pool, err := postgresql.ConnectDB(ctx, p.cfg.Postgres.DSN, logger)
	if err != nil {
		return nil, nil, err
	}

	if p.cfg.Postgres.RunMigrations {
		if err := postgresql.Migrate(ctx, pool, logger); err != nil {
			pool.Close()
			return nil, nil, err
		}
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     p.cfg.Redis.Address,
		Password: p.cfg.Redis.Password,
		DB:       p.cfg.Redis.DB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		pool.Close()
		_ = redisClient.Close()
		return nil, nil, fmt.Errorf("не удалось подключиться к Redis (%s): %w", p.cfg.Redis.Address, err)
	}
	logger.Info("✅ Подключено к Redis", zap.String("address", p.cfg.Redis.Address))

	closeFn := func() {
		pool.Close()
		if err := redisClient.Close(); err != nil {
			logger.Warn("Ошибка закрытия Redis", zap.Error(err))
		}
	}
	return repositories.NewPostgresSet(pool, redisClient, logger), closeFn, nil
}
