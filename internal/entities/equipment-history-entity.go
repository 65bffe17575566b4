package entities

import (
	"time"

	"github.com/google/uuid"
)

type ResponsiblePerson struct {
	Name    string `json:"name"`
	Contact string `json:"contact,omitempty"`
}

// EquipmentHistoryEntry - неизменяемая запись журнала. Status (статус активности)
// хранится отдельно, в equipment_activity_statuses, и подтягивается при чтении.
type EquipmentHistoryEntry struct {
	ID                uint64             `json:"id" db:"id"`
	EquipmentID       uint64             `json:"equipment_id" db:"equipment_id"`
	TxID              uuid.UUID          `json:"tx_id" db:"tx_id"`
	Type              string             `json:"type" db:"type"`
	IsStatusChange    bool               `json:"is_status_change" db:"is_status_change"`
	Description       string             `json:"description" db:"description"`
	FromDate          time.Time          `json:"from_date" db:"from_date"`
	ToDate            *time.Time         `json:"to_date,omitempty" db:"to_date"`
	Location          *string            `json:"location,omitempty" db:"location"`
	ResponsiblePerson *ResponsiblePerson `json:"responsible_person,omitempty" db:"-"`
	Status            *string            `json:"status,omitempty" db:"-"`
	FromStatus        *string            `json:"from_status,omitempty" db:"from_status"`
	ToStatus          *string            `json:"to_status,omitempty" db:"to_status"`
	Reason            *string            `json:"reason,omitempty" db:"reason"`
	CreatedBy         *uint64            `json:"created_by,omitempty" db:"created_by"`
	CreatedAt         time.Time          `json:"created_at" db:"created_at"`
}

// IsActivity - запись описывает работу, а не смену состояния.
func (e *EquipmentHistoryEntry) IsActivity() bool {
	return !e.IsStatusChange
}

// HasActivityStatus сравнивает статус активности; записи без статуса не совпадают ни с чем.
func (e *EquipmentHistoryEntry) HasActivityStatus(status string) bool {
	return e.IsActivity() && e.Status != nil && *e.Status == status
}

// Clone возвращает глубокую копию, чтобы хранилища не раздавали указатели на свои данные.
func (e EquipmentHistoryEntry) Clone() EquipmentHistoryEntry {
	out := e
	if e.ToDate != nil {
		v := *e.ToDate
		out.ToDate = &v
	}
	out.Location = cloneString(e.Location)
	out.Status = cloneString(e.Status)
	out.FromStatus = cloneString(e.FromStatus)
	out.ToStatus = cloneString(e.ToStatus)
	out.Reason = cloneString(e.Reason)
	if e.ResponsiblePerson != nil {
		p := *e.ResponsiblePerson
		out.ResponsiblePerson = &p
	}
	if e.CreatedBy != nil {
		v := *e.CreatedBy
		out.CreatedBy = &v
	}
	return out
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
