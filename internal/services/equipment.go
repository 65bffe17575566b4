package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"field-equipment/internal/dto"
	"field-equipment/internal/entities"
	"field-equipment/internal/repositories"
	"field-equipment/pkg/constants"
	apperrors "field-equipment/pkg/errors"
	"field-equipment/pkg/metrics"
)

const dateTimeLayout = "2006-01-02 15:04:05"

type EquipmentServiceInterface interface {
	List(ctx context.Context) ([]dto.EquipmentDTO, error)
	GetByID(ctx context.Context, id uint64) (*dto.EquipmentDTO, error)
	Create(ctx context.Context, data dto.CreateEquipmentDTO) (*dto.EquipmentDTO, error)
	Update(ctx context.Context, id uint64, data dto.UpdateEquipmentDTO) (*dto.EquipmentDTO, error)
	ImportEquipment(ctx context.Context, file []byte) (*dto.EquipmentImportResultDTO, error)
}

// AllocationReaderInterface - источник активных закреплений для обогащения карточек.
type AllocationReaderInterface interface {
	ActiveAllocations(ctx context.Context) (map[uint64]string, error)
}

type EquipmentService struct {
	repos       *repositories.Set
	allocations AllocationReaderInterface
	metrics     *metrics.Collector
	logger      *zap.Logger
}

func NewEquipmentService(
	repos *repositories.Set,
	allocations AllocationReaderInterface,
	metrics *metrics.Collector,
	logger *zap.Logger,
) EquipmentServiceInterface {
	return &EquipmentService{
		repos:       repos,
		allocations: allocations,
		metrics:     metrics,
		logger:      logger,
	}
}

func (s *EquipmentService) List(ctx context.Context) ([]dto.EquipmentDTO, error) {
	list, err := s.repos.Equipment.GetAll(ctx)
	if err != nil {
		s.logger.Error("Ошибка получения списка оборудования", zap.Error(err))
		return nil, err
	}

	allocated := s.activeAllocations(ctx)
	result := make([]dto.EquipmentDTO, 0, len(list))
	for _, e := range list {
		result = append(result, toEquipmentDTO(e, allocated))
	}
	return result, nil
}

func (s *EquipmentService) GetByID(ctx context.Context, id uint64) (*dto.EquipmentDTO, error) {
	e, err := s.repos.Equipment.FindByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	result := toEquipmentDTO(*e, s.activeAllocations(ctx))
	return &result, nil
}

func (s *EquipmentService) Create(ctx context.Context, data dto.CreateEquipmentDTO) (*dto.EquipmentDTO, error) {
	status := data.Status
	if status == "" {
		status = constants.EquipmentStatusAvailable
	}

	e := entities.Equipment{
		Name:          data.Name,
		Reference:     data.Reference,
		Matricule:     data.Matricule,
		Height:        data.Height,
		Width:         data.Width,
		Length:        data.Length,
		Weight:        data.Weight,
		Volume:        entities.ComputeVolume(data.Height, data.Width, data.Length),
		Temperature:   data.Temperature,
		Pressure:      data.Pressure,
		Location:      data.Location,
		Status:        status,
		InitialStatus: status,
	}
	if err := validateEquipment(e); err != nil {
		return nil, err
	}

	var newID uint64
	err := s.repos.Tx.RunInTransaction(ctx, func(tx pgx.Tx) error {
		id, err := s.repos.Equipment.Create(ctx, tx, e)
		if err != nil {
			return err
		}
		newID = id
		return nil
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			s.metrics.Conflict("create_equipment")
		}
		s.logger.Warn("Ошибка при создании оборудования", zap.String("matricule", e.Matricule), zap.Error(err))
		return nil, err
	}

	s.logger.Info("Оборудование создано", zap.Uint64("id", newID), zap.String("matricule", e.Matricule))
	return s.GetByID(ctx, newID)
}

func (s *EquipmentService) Update(ctx context.Context, id uint64, data dto.UpdateEquipmentDTO) (*dto.EquipmentDTO, error) {
	err := s.repos.Tx.RunInTransaction(ctx, func(tx pgx.Tx) error {
		current, err := s.repos.Equipment.FindByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}

		merged := mergeEquipment(*current, data)
		if err := validateEquipment(merged); err != nil {
			return err
		}
		return s.repos.Equipment.Update(ctx, tx, id, merged)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Оборудование обновлено", zap.Uint64("id", id))
	return s.GetByID(ctx, id)
}

// activeAllocations не мешает чтению карточек: при ошибке закрепления просто не показываются.
func (s *EquipmentService) activeAllocations(ctx context.Context) map[uint64]string {
	if s.allocations == nil {
		return nil
	}
	allocated, err := s.allocations.ActiveAllocations(ctx)
	if err != nil {
		s.logger.Warn("Не удалось получить активные закрепления", zap.Error(err))
		return nil
	}
	return allocated
}

func mergeEquipment(e entities.Equipment, data dto.UpdateEquipmentDTO) entities.Equipment {
	if data.Name != nil {
		e.Name = *data.Name
	}
	if data.Reference != nil {
		e.Reference = *data.Reference
	}
	if data.Matricule != nil {
		e.Matricule = *data.Matricule
	}
	if data.Weight != nil {
		e.Weight = *data.Weight
	}
	if data.Temperature != nil {
		e.Temperature = *data.Temperature
	}
	if data.Pressure != nil {
		e.Pressure = *data.Pressure
	}

	dimensionsChanged := false
	if data.Height != nil && *data.Height != e.Height {
		e.Height = *data.Height
		dimensionsChanged = true
	}
	if data.Width != nil && *data.Width != e.Width {
		e.Width = *data.Width
		dimensionsChanged = true
	}
	if data.Length != nil && *data.Length != e.Length {
		e.Length = *data.Length
		dimensionsChanged = true
	}
	if dimensionsChanged {
		e.Volume = entities.ComputeVolume(e.Height, e.Width, e.Length)
	}
	return e
}

func validateEquipment(e entities.Equipment) error {
	verr := apperrors.NewValidationError()

	required := map[string]string{
		"name":        e.Name,
		"reference":   e.Reference,
		"matricule":   e.Matricule,
		"temperature": e.Temperature,
		"pressure":    e.Pressure,
		"location":    e.Location,
	}
	for field, value := range required {
		if value == "" {
			verr.Add(field, "обязательное поле")
		}
	}

	positive := map[string]float64{
		"height": e.Height,
		"width":  e.Width,
		"length": e.Length,
		"weight": e.Weight,
	}
	for field, value := range positive {
		if value <= 0 {
			verr.Add(field, "должно быть больше нуля")
		}
	}

	if !constants.IsEquipmentStatus(e.Status) {
		verr.Add("status", fmt.Sprintf("неизвестный статус %q", e.Status))
	}
	return verr.OrNil()
}

func toEquipmentDTO(e entities.Equipment, allocated map[uint64]string) dto.EquipmentDTO {
	result := dto.EquipmentDTO{
		ID:            e.ID,
		Name:          e.Name,
		Reference:     e.Reference,
		Matricule:     e.Matricule,
		Height:        e.Height,
		Width:         e.Width,
		Length:        e.Length,
		Weight:        e.Weight,
		Volume:        e.Volume,
		Temperature:   e.Temperature,
		Pressure:      e.Pressure,
		Location:      e.Location,
		Status:        e.Status,
		InitialStatus: e.InitialStatus,
		CreatedAt:     e.CreatedAt.Format(dateTimeLayout),
		UpdatedAt:     e.UpdatedAt.Format(dateTimeLayout),
	}
	if label, ok := allocated[e.ID]; ok {
		result.ProjectLabel = &label
	}
	return result
}
