package history

import (
	"fmt"

	"field-equipment/internal/entities"
	"field-equipment/pkg/constants"
	apperrors "field-equipment/pkg/errors"
)

// activityTransitions - допустимые переходы статуса активности.
// COMPLETED и CANCELLED конечные.
var activityTransitions = map[string][]string{
	constants.ActivityStatusScheduled:  {constants.ActivityStatusInProgress, constants.ActivityStatusCancelled},
	constants.ActivityStatusInProgress: {constants.ActivityStatusCompleted, constants.ActivityStatusCancelled},
}

// ValidateActivityTransition проверяет переход from -> to. from == nil значит,
// что у активности нет отслеживаемого статуса.
func ValidateActivityTransition(from *string, to string) error {
	if !constants.IsActivityStatus(to) {
		return fmt.Errorf("%w: неизвестный статус активности %q", apperrors.ErrInvalidTransition, to)
	}
	if from == nil {
		return fmt.Errorf("%w: у активности нет статуса", apperrors.ErrInvalidTransition)
	}
	for _, allowed := range activityTransitions[*from] {
		if allowed == to {
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", apperrors.ErrInvalidTransition, *from, to)
}

// ValidateEntry проверяет запись перед добавлением в журнал.
func ValidateEntry(e *entities.EquipmentHistoryEntry) error {
	verr := apperrors.NewValidationError()

	if e.EquipmentID == 0 {
		verr.Add("equipment_id", "обязательное поле")
	}
	if e.FromDate.IsZero() {
		verr.Add("from_date", "обязательное поле")
	}
	if !constants.IsHistoryType(e.Type) {
		verr.Add("type", fmt.Sprintf("неизвестный тип %q", e.Type))
	}
	if e.ToDate != nil && !e.FromDate.IsZero() && e.ToDate.Before(e.FromDate) {
		verr.Add("to_date", "не может быть раньше from_date")
	}

	if e.IsStatusChange {
		if e.FromStatus == nil || *e.FromStatus == "" {
			verr.Add("from_status", "обязательное поле для смены статуса")
		} else if !constants.IsEquipmentStatus(*e.FromStatus) {
			verr.Add("from_status", fmt.Sprintf("неизвестный статус %q", *e.FromStatus))
		}
		if e.ToStatus == nil || *e.ToStatus == "" {
			verr.Add("to_status", "обязательное поле для смены статуса")
		} else if !constants.IsEquipmentStatus(*e.ToStatus) {
			verr.Add("to_status", fmt.Sprintf("неизвестный статус %q", *e.ToStatus))
		}
		if e.Status != nil {
			verr.Add("status", "у смены статуса не может быть статуса активности")
		}
	} else if e.Status != nil && !constants.IsActivityStatus(*e.Status) {
		verr.Add("status", fmt.Sprintf("неизвестный статус активности %q", *e.Status))
	}

	return verr.OrNil()
}
