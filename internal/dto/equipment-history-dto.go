package dto

import (
	"time"

	"github.com/aarondl/null/v8"

	"field-equipment/internal/entities"
)

type ResponsiblePersonDTO struct {
	Name    string `json:"name" validate:"required,max=255"`
	Contact string `json:"contact,omitempty" validate:"omitempty,max=255"`
}

// RecordActivityDTO - запись размещения, эксплуатации, обслуживания или ремонта.
// ProjectLabel закрепляет оборудование за проектом (только placement/operation).
type RecordActivityDTO struct {
	Type              string                `json:"type" validate:"required,history_type"`
	Description       string                `json:"description" validate:"max=2000"`
	FromDate          time.Time             `json:"from_date" validate:"required"`
	ToDate            null.Time             `json:"to_date"`
	Location          null.String           `json:"location" validate:"omitempty,max=255"`
	ResponsiblePerson *ResponsiblePersonDTO `json:"responsible_person,omitempty" validate:"omitempty"`
	Status            null.String           `json:"status" validate:"omitempty,activity_status"`
	ResultingStatus   null.String           `json:"resulting_status" validate:"omitempty,equipment_status"`
	Reason            null.String           `json:"reason" validate:"omitempty,max=2000"`
	ProjectLabel      null.String           `json:"project_label" validate:"omitempty,max=255"`
}

type ChangeStatusDTO struct {
	Type     string      `json:"type" validate:"omitempty,history_type"`
	ToStatus string      `json:"to_status" validate:"required,equipment_status"`
	FromDate null.Time   `json:"from_date"`
	Reason   null.String `json:"reason" validate:"omitempty,max=2000"`
}

type ReleaseAllocationDTO struct {
	ToStatus string      `json:"to_status" validate:"omitempty,equipment_status"`
	Reason   null.String `json:"reason" validate:"omitempty,max=2000"`
}

type TransitionActivityDTO struct {
	Status string `json:"status" validate:"required,activity_status"`
}

// HistoryFilterDTO - параметры запроса GET /equipment/:id/history.
type HistoryFilterDTO struct {
	Type       string `query:"type" validate:"omitempty,history_type"`
	DateFilter string `query:"date_filter" validate:"omitempty,date_filter"`
	From       string `query:"from" validate:"omitempty,datetime=2006-01-02"`
	To         string `query:"to" validate:"omitempty,datetime=2006-01-02"`
	Search     string `query:"search" validate:"max=255"`
}

// ActivityResultDTO - результат записи активности: сама запись и,
// если статус оборудования изменился, запись смены статуса.
type ActivityResultDTO struct {
	Entry        entities.EquipmentHistoryEntry  `json:"entry"`
	StatusChange *entities.EquipmentHistoryEntry `json:"status_change,omitempty"`
	Equipment    EquipmentDTO                    `json:"equipment"`
}
