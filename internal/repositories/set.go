package repositories

import (
	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Set - все хранилища модуля оборудования. Сервисы получают его целиком,
// а реализация (postgres или fixture) выбирается при старте.
type Set struct {
	Equipment  EquipmentRepositoryInterface
	History    EquipmentHistoryRepositoryInterface
	Allocation AllocationRepositoryInterface
	Cache      CacheRepositoryInterface
	Tx         TxManagerInterface
}

func NewPostgresSet(pool *pgxpool.Pool, redisClient *redis.Client, logger *zap.Logger) *Set {
	return &Set{
		Equipment:  NewEquipmentRepository(pool, logger),
		History:    NewEquipmentHistoryRepository(pool, logger),
		Allocation: NewAllocationRepository(pool, logger),
		Cache:      NewRedisCacheRepository(redisClient),
		Tx:         NewTxManager(pool),
	}
}
