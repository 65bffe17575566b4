package seeders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aarondl/null/v8"
	"go.uber.org/zap"

	"field-equipment/internal/dto"
	"field-equipment/internal/services"
	apperrors "field-equipment/pkg/errors"
)

// SeedEquipment наполняет хранилище примерами через сервисы, чтобы статус,
// история и закрепления оставались согласованными. Уже существующие
// матрикулы пропускаются.
func SeedEquipment(
	ctx context.Context,
	equipmentSvc services.EquipmentServiceInterface,
	historySvc services.EquipmentHistoryServiceInterface,
	now time.Time,
	logger *zap.Logger,
) error {
	logger.Info("  - Наполнение оборудования и истории...")

	for _, item := range equipmentData {
		created, err := equipmentSvc.Create(ctx, item.Equipment)
		if errors.Is(err, apperrors.ErrConflict) {
			logger.Info("Оборудование уже существует, пропускаем", zap.String("matricule", item.Equipment.Matricule))
			continue
		}
		if err != nil {
			return fmt.Errorf("не удалось создать оборудование %s: %w", item.Equipment.Matricule, err)
		}

		for _, a := range item.Activities {
			if _, err := historySvc.RecordActivity(ctx, created.ID, toRecordActivityDTO(a, now)); err != nil {
				return fmt.Errorf("не удалось записать активность для %s: %w", item.Equipment.Matricule, err)
			}
		}

		if item.FinalStatus != "" {
			if _, err := historySvc.ChangeStatus(ctx, created.ID, dto.ChangeStatusDTO{
				ToStatus: item.FinalStatus,
				FromDate: null.TimeFrom(now),
				Reason:   null.StringFrom("Начальное наполнение"),
			}); err != nil {
				return fmt.Errorf("не удалось сменить статус %s: %w", item.Equipment.Matricule, err)
			}
		}

		logger.Info("Оборудование добавлено",
			zap.Uint64("id", created.ID),
			zap.String("matricule", created.Matricule),
			zap.Int("activities", len(item.Activities)),
		)
	}
	return nil
}

func toRecordActivityDTO(a seedActivity, now time.Time) dto.RecordActivityDTO {
	d := dto.RecordActivityDTO{
		Type:        a.Type,
		Description: a.Description,
		FromDate:    now.AddDate(0, 0, -a.DaysAgo),
		Location:    null.NewString(a.Location, a.Location != ""),
		Status:      null.NewString(a.Status, a.Status != ""),
	}
	if a.Responsible != "" {
		d.ResponsiblePerson = &dto.ResponsiblePersonDTO{Name: a.Responsible}
	}
	if a.ProjectLabel != "" {
		d.ProjectLabel = null.StringFrom(a.ProjectLabel)
	}
	return d
}
