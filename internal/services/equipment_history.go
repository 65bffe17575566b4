package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"field-equipment/internal/dto"
	"field-equipment/internal/entities"
	"field-equipment/internal/events"
	"field-equipment/internal/history"
	"field-equipment/internal/repositories"
	"field-equipment/pkg/constants"
	"field-equipment/pkg/eventbus"
	apperrors "field-equipment/pkg/errors"
	"field-equipment/pkg/metrics"
	"field-equipment/pkg/utils"
)

type EquipmentHistoryServiceInterface interface {
	Append(ctx context.Context, entry entities.EquipmentHistoryEntry) (*entities.EquipmentHistoryEntry, error)
	ListByEquipment(ctx context.Context, equipmentID uint64, entryType string) ([]entities.EquipmentHistoryEntry, error)
	LatestStatusChange(ctx context.Context, equipmentID uint64) (*entities.EquipmentHistoryEntry, error)
	GetFilteredHistory(ctx context.Context, equipmentID uint64, spec history.FilterSpec) ([]entities.EquipmentHistoryEntry, error)
	GetStatusProjection(ctx context.Context, equipmentID uint64) (*history.StatusProjection, error)

	RecordActivity(ctx context.Context, equipmentID uint64, data dto.RecordActivityDTO) (*dto.ActivityResultDTO, error)
	ChangeStatus(ctx context.Context, equipmentID uint64, data dto.ChangeStatusDTO) (*dto.ActivityResultDTO, error)
	TransitionActivity(ctx context.Context, entryID uint64, status string) (*entities.EquipmentHistoryEntry, error)

	ActiveAllocations(ctx context.Context) (map[uint64]string, error)
	Allocate(ctx context.Context, equipmentID uint64, data dto.RecordActivityDTO) (*dto.ActivityResultDTO, error)
	Release(ctx context.Context, equipmentID uint64, data dto.ReleaseAllocationDTO) (*dto.ActivityResultDTO, error)
}

type EquipmentHistoryService struct {
	repos    *repositories.Set
	bus      *eventbus.Bus
	metrics  *metrics.Collector
	cacheTTL time.Duration
	now      func() time.Time
	logger   *zap.Logger
}

type HistoryOption func(*EquipmentHistoryService)

// WithNow подменяет часы, относительно которых считаются пресеты фильтра дат.
func WithNow(now func() time.Time) HistoryOption {
	return func(s *EquipmentHistoryService) { s.now = now }
}

func NewEquipmentHistoryService(
	repos *repositories.Set,
	bus *eventbus.Bus,
	metrics *metrics.Collector,
	cacheTTL time.Duration,
	logger *zap.Logger,
	opts ...HistoryOption,
) EquipmentHistoryServiceInterface {
	s := &EquipmentHistoryService{
		repos:    repos,
		bus:      bus,
		metrics:  metrics,
		cacheTTL: cacheTTL,
		now:      time.Now,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// stateChange - итог транзакции, меняющей статус единицы.
type stateChange struct {
	txID         uuid.UUID
	equipmentID  uint64
	fromStatus   string
	toStatus     string
	projectLabel string
}

// Append добавляет запись как есть. Для смены статуса кешированный статус
// единицы пересчитывается в той же транзакции.
func (s *EquipmentHistoryService) Append(ctx context.Context, entry entities.EquipmentHistoryEntry) (*entities.EquipmentHistoryEntry, error) {
	entry.Status = normalizeActivityStatus(entry.Status)
	if err := history.ValidateEntry(&entry); err != nil {
		return nil, err
	}

	var change *stateChange
	err := s.repos.Tx.RunInTransaction(ctx, func(tx pgx.Tx) error {
		equipment, err := s.repos.Equipment.FindByIDForUpdate(ctx, tx, entry.EquipmentID)
		if err != nil {
			return err
		}

		txID := uuid.New()
		if err := s.appendInTx(ctx, tx, txID, &entry); err != nil {
			return err
		}

		change, err = s.syncStateInTx(ctx, tx, txID, equipment)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, change)
	return &entry, nil
}

func (s *EquipmentHistoryService) ListByEquipment(ctx context.Context, equipmentID uint64, entryType string) ([]entities.EquipmentHistoryEntry, error) {
	if entryType != "" && !constants.IsHistoryType(entryType) {
		verr := apperrors.NewValidationError()
		verr.Add("type", fmt.Sprintf("неизвестный тип %q", entryType))
		return nil, verr
	}
	if _, err := s.repos.Equipment.FindByID(ctx, nil, equipmentID); err != nil {
		return nil, err
	}
	return s.repos.History.FindByEquipmentID(ctx, equipmentID, entryType)
}

// LatestStatusChange возвращает nil без ошибки, если статус единицы ни разу не менялся.
func (s *EquipmentHistoryService) LatestStatusChange(ctx context.Context, equipmentID uint64) (*entities.EquipmentHistoryEntry, error) {
	if _, err := s.repos.Equipment.FindByID(ctx, nil, equipmentID); err != nil {
		return nil, err
	}
	latest, err := s.repos.History.FindLatestStatusChange(ctx, nil, equipmentID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, nil
	}
	return latest, err
}

func (s *EquipmentHistoryService) GetFilteredHistory(ctx context.Context, equipmentID uint64, spec history.FilterSpec) ([]entities.EquipmentHistoryEntry, error) {
	entries, err := s.ListByEquipment(ctx, equipmentID, "")
	if err != nil {
		return nil, err
	}
	return history.Apply(entries, spec, s.now()), nil
}

func (s *EquipmentHistoryService) GetStatusProjection(ctx context.Context, equipmentID uint64) (*history.StatusProjection, error) {
	equipment, err := s.repos.Equipment.FindByID(ctx, nil, equipmentID)
	if err != nil {
		return nil, err
	}
	entries, err := s.repos.History.FindByEquipmentID(ctx, equipmentID, "")
	if err != nil {
		return nil, err
	}

	projection := history.Project(equipmentID, equipment.InitialStatus, entries)
	if projection.CurrentStatus != equipment.Status {
		s.logger.Warn("Кешированный статус оборудования расходится с историей",
			zap.Uint64("equipment_id", equipmentID),
			zap.String("cached", equipment.Status),
			zap.String("projected", projection.CurrentStatus),
		)
	}
	return &projection, nil
}

// RecordActivity записывает работу с оборудованием. С project_label запись
// закрепляет единицу за проектом (см. Allocate).
func (s *EquipmentHistoryService) RecordActivity(ctx context.Context, equipmentID uint64, data dto.RecordActivityDTO) (*dto.ActivityResultDTO, error) {
	if data.ProjectLabel.Valid && data.ProjectLabel.String != "" {
		return s.Allocate(ctx, equipmentID, data)
	}

	activity := activityFromDTO(equipmentID, data)
	if err := history.ValidateEntry(&activity); err != nil {
		return nil, err
	}
	resulting := data.ResultingStatus.Ptr()
	if err := validateTargetStatus("resulting_status", resulting); err != nil {
		return nil, err
	}

	return s.runActivity(ctx, equipmentID, false, func(tx pgx.Tx, txID uuid.UUID, equipment *entities.Equipment) (*entities.EquipmentHistoryEntry, *entities.EquipmentHistoryEntry, string, error) {
		if err := s.appendInTx(ctx, tx, txID, &activity); err != nil {
			return nil, nil, "", err
		}
		var statusEntry *entities.EquipmentHistoryEntry
		if resulting != nil && *resulting != equipment.Status {
			sc := statusChangeEntry(equipment, activity.Type, *resulting, activity.FromDate, data.Reason.Ptr(), activity.Location)
			if err := s.appendInTx(ctx, tx, txID, &sc); err != nil {
				return nil, nil, "", err
			}
			statusEntry = &sc
		}
		return &activity, statusEntry, "", nil
	})
}

// ChangeStatus добавляет чистую запись смены статуса.
func (s *EquipmentHistoryService) ChangeStatus(ctx context.Context, equipmentID uint64, data dto.ChangeStatusDTO) (*dto.ActivityResultDTO, error) {
	toStatus := data.ToStatus
	if err := validateTargetStatus("to_status", &toStatus); err != nil {
		return nil, err
	}
	entryType := data.Type
	if entryType == "" {
		entryType = defaultTypeForStatus(toStatus)
	}
	fromDate := s.now()
	if data.FromDate.Valid {
		fromDate = data.FromDate.Time
	}

	return s.runActivity(ctx, equipmentID, false, func(tx pgx.Tx, txID uuid.UUID, equipment *entities.Equipment) (*entities.EquipmentHistoryEntry, *entities.EquipmentHistoryEntry, string, error) {
		if toStatus == equipment.Status {
			verr := apperrors.NewValidationError()
			verr.Add("to_status", fmt.Sprintf("оборудование уже в статусе %q", toStatus))
			return nil, nil, "", verr
		}
		sc := statusChangeEntry(equipment, entryType, toStatus, fromDate, data.Reason.Ptr(), nil)
		if err := history.ValidateEntry(&sc); err != nil {
			return nil, nil, "", err
		}
		if err := s.appendInTx(ctx, tx, txID, &sc); err != nil {
			return nil, nil, "", err
		}
		return &sc, nil, "", nil
	})
}

// TransitionActivity меняет статус активности записи. Сама запись журнала не меняется.
func (s *EquipmentHistoryService) TransitionActivity(ctx context.Context, entryID uint64, status string) (*entities.EquipmentHistoryEntry, error) {
	entry, err := s.repos.History.FindByID(ctx, nil, entryID)
	if err != nil {
		return nil, err
	}

	err = s.repos.Tx.RunInTransaction(ctx, func(tx pgx.Tx) error {
		if _, err := s.repos.Equipment.FindByIDForUpdate(ctx, tx, entry.EquipmentID); err != nil {
			return err
		}
		// перечитываем под блокировкой
		entry, err = s.repos.History.FindByID(ctx, tx, entryID)
		if err != nil {
			return err
		}
		if entry.IsStatusChange {
			return fmt.Errorf("%w: запись %d - смена статуса, а не активность", apperrors.ErrInvalidTransition, entryID)
		}
		if err := history.ValidateActivityTransition(entry.Status, status); err != nil {
			return err
		}
		return s.repos.History.UpdateActivityStatusInTx(ctx, tx, entryID, status)
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrInvalidTransition) {
			s.metrics.InvalidTransition()
			s.logger.Info("Отклонен переход статуса активности",
				zap.Uint64("entry_id", entryID),
				zap.String("to", status),
				zap.Error(err),
			)
		}
		return nil, err
	}

	s.logger.Info("Статус активности изменен",
		zap.Uint64("entry_id", entryID),
		zap.String("from", utils.SafeDeref(entry.Status)),
		zap.String("to", status),
	)
	entry.Status = &status
	return entry, nil
}

type activityFunc func(tx pgx.Tx, txID uuid.UUID, equipment *entities.Equipment) (primary, statusEntry *entities.EquipmentHistoryEntry, projectLabel string, err error)

// runActivity - общая обвязка операций, добавляющих записи: блокировка единицы,
// один tx_id на все записи, пересчет статуса, событие после коммита.
// allocationChange: событие публикуется и без смены статуса, чтобы сбросить кеш закреплений.
func (s *EquipmentHistoryService) runActivity(ctx context.Context, equipmentID uint64, allocationChange bool, fn activityFunc) (*dto.ActivityResultDTO, error) {
	var (
		primary, statusEntry *entities.EquipmentHistoryEntry
		change               *stateChange
	)

	err := s.repos.Tx.RunInTransaction(ctx, func(tx pgx.Tx) error {
		equipment, err := s.repos.Equipment.FindByIDForUpdate(ctx, tx, equipmentID)
		if err != nil {
			return err
		}

		txID := uuid.New()
		var projectLabel string
		primary, statusEntry, projectLabel, err = fn(tx, txID, equipment)
		if err != nil {
			return err
		}

		change, err = s.syncStateInTx(ctx, tx, txID, equipment)
		if err != nil {
			return err
		}
		if change == nil && allocationChange {
			change = &stateChange{
				txID:        txID,
				equipmentID: equipment.ID,
				fromStatus:  equipment.Status,
				toStatus:    equipment.Status,
			}
		}
		if change != nil {
			change.projectLabel = projectLabel
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, change)

	equipment, err := s.repos.Equipment.FindByID(ctx, nil, equipmentID)
	if err != nil {
		return nil, err
	}
	allocated, err := s.ActiveAllocations(ctx)
	if err != nil {
		s.logger.Warn("Не удалось получить активные закрепления", zap.Error(err))
	}

	result := &dto.ActivityResultDTO{
		Entry:        *primary,
		StatusChange: statusEntry,
		Equipment:    toEquipmentDTO(*equipment, allocated),
	}
	return result, nil
}

// appendInTx проставляет tx_id и автора и пишет запись.
func (s *EquipmentHistoryService) appendInTx(ctx context.Context, tx pgx.Tx, txID uuid.UUID, entry *entities.EquipmentHistoryEntry) error {
	entry.TxID = txID
	if entry.CreatedBy == nil {
		entry.CreatedBy = utils.GetUserIDPtrFromCtx(ctx)
	}
	if err := s.repos.History.CreateInTx(ctx, tx, entry); err != nil {
		return err
	}
	s.metrics.HistoryAppended(entry.Type, entry.IsStatusChange)
	return nil
}

// syncStateInTx приводит кешированные статус и местоположение к журналу:
// статус - из последней смены статуса, местоположение - из самой свежей
// по from_date записи с location. Возвращает nil, если статус не изменился.
func (s *EquipmentHistoryService) syncStateInTx(ctx context.Context, tx pgx.Tx, txID uuid.UUID, equipment *entities.Equipment) (*stateChange, error) {
	status := equipment.InitialStatus
	latest, err := s.repos.History.FindLatestStatusChange(ctx, tx, equipment.ID)
	switch {
	case err == nil:
		status = utils.SafeDeref(latest.ToStatus)
	case !errors.Is(err, apperrors.ErrNotFound):
		return nil, err
	}

	location := equipment.Location
	located, err := s.repos.History.FindLatestLocated(ctx, tx, equipment.ID)
	switch {
	case err == nil:
		location = utils.SafeDeref(located.Location)
	case !errors.Is(err, apperrors.ErrNotFound):
		return nil, err
	}

	if status == equipment.Status && location == equipment.Location {
		return nil, nil
	}
	if err := s.repos.Equipment.UpdateStateInTx(ctx, tx, equipment.ID, status, location); err != nil {
		return nil, err
	}
	if status == equipment.Status {
		return nil, nil
	}
	return &stateChange{
		txID:        txID,
		equipmentID: equipment.ID,
		fromStatus:  equipment.Status,
		toStatus:    status,
	}, nil
}

func (s *EquipmentHistoryService) publish(ctx context.Context, change *stateChange) {
	if change == nil {
		return
	}
	s.logger.Info("Состояние оборудования изменено",
		zap.Uint64("equipment_id", change.equipmentID),
		zap.String("from", change.fromStatus),
		zap.String("to", change.toStatus),
		zap.String("tx_id", change.txID.String()),
	)
	if s.bus == nil {
		return
	}
	s.bus.Publish(ctx, events.EquipmentStatusChangedEvent{
		EquipmentID:  change.equipmentID,
		TxID:         change.txID,
		FromStatus:   change.fromStatus,
		ToStatus:     change.toStatus,
		ProjectLabel: change.projectLabel,
	})
}

func activityFromDTO(equipmentID uint64, data dto.RecordActivityDTO) entities.EquipmentHistoryEntry {
	entry := entities.EquipmentHistoryEntry{
		EquipmentID: equipmentID,
		Type:        data.Type,
		Description: data.Description,
		FromDate:    data.FromDate,
		ToDate:      data.ToDate.Ptr(),
		Location:    data.Location.Ptr(),
		Status:      normalizeActivityStatus(data.Status.Ptr()),
		Reason:      data.Reason.Ptr(),
	}
	if data.ResponsiblePerson != nil {
		entry.ResponsiblePerson = &entities.ResponsiblePerson{
			Name:    data.ResponsiblePerson.Name,
			Contact: data.ResponsiblePerson.Contact,
		}
	}
	return entry
}

func statusChangeEntry(equipment *entities.Equipment, entryType, toStatus string, fromDate time.Time, reason, location *string) entities.EquipmentHistoryEntry {
	from := equipment.Status
	return entities.EquipmentHistoryEntry{
		EquipmentID:    equipment.ID,
		Type:           entryType,
		IsStatusChange: true,
		FromDate:       fromDate,
		Location:       location,
		FromStatus:     &from,
		ToStatus:       &toStatus,
		Reason:         reason,
	}
}

// defaultTypeForStatus - тип записи для смены статуса, если клиент его не указал.
func defaultTypeForStatus(status string) string {
	switch status {
	case constants.EquipmentStatusUnderRepair, constants.EquipmentStatusAvailableNeedsRepair:
		return constants.HistoryTypeRepair
	case constants.EquipmentStatusInUseUnavailable:
		return constants.HistoryTypeOperation
	}
	return constants.HistoryTypeMaintenance
}

func validateTargetStatus(field string, status *string) error {
	if status == nil {
		return nil
	}
	if !constants.IsEquipmentStatus(*status) {
		verr := apperrors.NewValidationError()
		verr.Add(field, fmt.Sprintf("неизвестный статус %q", *status))
		return verr
	}
	return nil
}

// normalizeActivityStatus: пустая строка равна отсутствию статуса.
func normalizeActivityStatus(status *string) *string {
	if status == nil || *status == "" {
		return nil
	}
	return status
}
