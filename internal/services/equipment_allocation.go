package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"field-equipment/internal/dto"
	"field-equipment/internal/entities"
	"field-equipment/internal/history"
	"field-equipment/internal/repositories"
	"field-equipment/pkg/constants"
	apperrors "field-equipment/pkg/errors"
)

// AllocationCacheKey - ключ кеша активных закреплений; сбрасывается AllocationCacheListener.
const AllocationCacheKey = "equipment:allocations:active"

// ActiveAllocations возвращает equipment_id -> проект. Данные из кеша могут
// отставать на TTL, окончательную проверку делает хранилище при Allocate.
func (s *EquipmentHistoryService) ActiveAllocations(ctx context.Context) (map[uint64]string, error) {
	cached, err := s.repos.Cache.Get(ctx, AllocationCacheKey)
	if err == nil {
		var raw map[string]string
		if err := json.Unmarshal([]byte(cached), &raw); err == nil {
			s.metrics.CacheLookup(true)
			return decodeAllocations(raw), nil
		}
		s.logger.Warn("Поврежденные данные в кеше закреплений", zap.String("key", AllocationCacheKey))
	} else if !errors.Is(err, repositories.ErrCacheMiss) {
		s.logger.Warn("Ошибка чтения кеша закреплений", zap.Error(err))
	}
	s.metrics.CacheLookup(false)

	list, err := s.repos.Allocation.FindActive(ctx)
	if err != nil {
		return nil, err
	}

	result := make(map[uint64]string, len(list))
	raw := make(map[string]string, len(list))
	for _, a := range list {
		result[a.EquipmentID] = a.ProjectLabel
		raw[strconv.FormatUint(a.EquipmentID, 10)] = a.ProjectLabel
	}

	payload, err := json.Marshal(raw)
	if err == nil {
		if err := s.repos.Cache.Set(ctx, AllocationCacheKey, payload, s.cacheTTL); err != nil {
			s.logger.Warn("Не удалось сохранить закрепления в кеш", zap.Error(err))
		}
	}
	return result, nil
}

// Allocate закрепляет единицу за проектом записью placement/operation и
// переводит ее в in_use_unavailable одной транзакцией.
func (s *EquipmentHistoryService) Allocate(ctx context.Context, equipmentID uint64, data dto.RecordActivityDTO) (*dto.ActivityResultDTO, error) {
	activity := activityFromDTO(equipmentID, data)
	verr := apperrors.NewValidationError()
	if !data.ProjectLabel.Valid || data.ProjectLabel.String == "" {
		verr.Add("project_label", "обязательное поле")
	}
	if !constants.IsAllocatingType(data.Type) {
		verr.Add("type", "закрепить за проектом можно только записью placement или operation")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	if err := history.ValidateEntry(&activity); err != nil {
		return nil, err
	}
	projectLabel := data.ProjectLabel.String

	// кеш может отставать: решение о конфликте принимает хранилище под блокировкой
	if allocated, err := s.ActiveAllocations(ctx); err == nil {
		if current, ok := allocated[equipmentID]; ok {
			s.logger.Debug("Кеш сообщает о закреплении, проверяем хранилище",
				zap.Uint64("equipment_id", equipmentID),
				zap.String("project", current),
			)
		}
	}

	result, err := s.runActivity(ctx, equipmentID, true, func(tx pgx.Tx, txID uuid.UUID, equipment *entities.Equipment) (*entities.EquipmentHistoryEntry, *entities.EquipmentHistoryEntry, string, error) {
		existing, err := s.repos.Allocation.FindActiveByEquipment(ctx, tx, equipmentID)
		switch {
		case err == nil:
			return nil, nil, "", fmt.Errorf("оборудование %d уже закреплено за проектом %q: %w", equipmentID, existing.ProjectLabel, apperrors.ErrConflict)
		case !errors.Is(err, apperrors.ErrNotFound):
			return nil, nil, "", err
		}

		if err := s.appendInTx(ctx, tx, txID, &activity); err != nil {
			return nil, nil, "", err
		}

		allocation := entities.EquipmentAllocation{
			EquipmentID:    equipmentID,
			ProjectLabel:   projectLabel,
			HistoryEntryID: &activity.ID,
			AllocatedAt:    activity.FromDate,
		}
		if err := s.repos.Allocation.CreateInTx(ctx, tx, &allocation); err != nil {
			return nil, nil, "", err
		}

		var statusEntry *entities.EquipmentHistoryEntry
		if equipment.Status != constants.EquipmentStatusInUseUnavailable {
			sc := statusChangeEntry(equipment, activity.Type, constants.EquipmentStatusInUseUnavailable,
				activity.FromDate, data.Reason.Ptr(), activity.Location)
			if err := s.appendInTx(ctx, tx, txID, &sc); err != nil {
				return nil, nil, "", err
			}
			statusEntry = &sc
		}
		return &activity, statusEntry, projectLabel, nil
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			s.metrics.Conflict("allocate")
		}
		return nil, err
	}

	s.logger.Info("Оборудование закреплено за проектом",
		zap.Uint64("equipment_id", equipmentID),
		zap.String("project", projectLabel),
	)
	// кеш мог еще не сброситься; в ответе закрепление из транзакции
	result.Equipment.ProjectLabel = &projectLabel
	return result, nil
}

// Release снимает активное закрепление и переводит единицу в to_status (по умолчанию available).
func (s *EquipmentHistoryService) Release(ctx context.Context, equipmentID uint64, data dto.ReleaseAllocationDTO) (*dto.ActivityResultDTO, error) {
	toStatus := data.ToStatus
	if toStatus == "" {
		toStatus = constants.EquipmentStatusAvailable
	}
	if err := validateTargetStatus("to_status", &toStatus); err != nil {
		return nil, err
	}

	result, err := s.runActivity(ctx, equipmentID, true, func(tx pgx.Tx, txID uuid.UUID, equipment *entities.Equipment) (*entities.EquipmentHistoryEntry, *entities.EquipmentHistoryEntry, string, error) {
		now := s.now()
		if err := s.repos.Allocation.ReleaseInTx(ctx, tx, equipmentID, now); err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return nil, nil, "", fmt.Errorf("у оборудования %d нет активного закрепления: %w", equipmentID, err)
			}
			return nil, nil, "", err
		}
		if toStatus == equipment.Status {
			verr := apperrors.NewValidationError()
			verr.Add("to_status", fmt.Sprintf("оборудование уже в статусе %q", toStatus))
			return nil, nil, "", verr
		}

		sc := statusChangeEntry(equipment, constants.HistoryTypeOperation, toStatus, now, data.Reason.Ptr(), nil)
		if err := s.appendInTx(ctx, tx, txID, &sc); err != nil {
			return nil, nil, "", err
		}
		return &sc, nil, "", nil
	})
	if err != nil {
		return nil, err
	}

	// кеш сбросит слушатель события; в ответе закрепления уже нет
	result.Equipment.ProjectLabel = nil
	s.logger.Info("Закрепление снято", zap.Uint64("equipment_id", equipmentID), zap.String("to_status", toStatus))
	return result, nil
}

func decodeAllocations(raw map[string]string) map[uint64]string {
	result := make(map[uint64]string, len(raw))
	for k, v := range raw {
		id, err := strconv.ParseUint(k, 10, 64)
		if err != nil {
			continue
		}
		result[id] = v
	}
	return result
}
