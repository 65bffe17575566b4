package listeners

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"field-equipment/internal/events"
	"field-equipment/internal/repositories"
	"field-equipment/pkg/eventbus"
)

// AllocationCacheListener сбрасывает кеш активных закреплений при смене статуса.
type AllocationCacheListener struct {
	cache    repositories.CacheRepositoryInterface
	cacheKey string
	logger   *zap.Logger
}

func NewAllocationCacheListener(cache repositories.CacheRepositoryInterface, cacheKey string, logger *zap.Logger) *AllocationCacheListener {
	return &AllocationCacheListener{cache: cache, cacheKey: cacheKey, logger: logger}
}

func (l *AllocationCacheListener) Register(bus *eventbus.Bus) {
	bus.Subscribe(events.EquipmentStatusChangedName, l.handleStatusChanged)
	l.logger.Info("AllocationCacheListener подписан на событие", zap.String("event", events.EquipmentStatusChangedName))
}

func (l *AllocationCacheListener) handleStatusChanged(ctx context.Context, event eventbus.Event) error {
	e, ok := event.(events.EquipmentStatusChangedEvent)
	if !ok {
		return nil
	}

	if err := l.cache.Del(ctx, l.cacheKey); err != nil {
		return fmt.Errorf("не удалось сбросить кеш закреплений (equipment_id=%d): %w", e.EquipmentID, err)
	}

	l.logger.Debug("Кеш закреплений сброшен",
		zap.Uint64("equipment_id", e.EquipmentID),
		zap.String("tx_id", e.TxID.String()),
		zap.String("to_status", e.ToStatus),
	)
	return nil
}
