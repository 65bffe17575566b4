package entities

import "time"

// EquipmentAllocation - закрепление единицы оборудования за проектом.
// Активно, пока ReleasedAt == nil.
type EquipmentAllocation struct {
	ID             uint64     `json:"id" db:"id"`
	EquipmentID    uint64     `json:"equipment_id" db:"equipment_id"`
	ProjectLabel   string     `json:"project_label" db:"project_label"`
	HistoryEntryID *uint64    `json:"history_entry_id,omitempty" db:"history_entry_id"`
	AllocatedAt    time.Time  `json:"allocated_at" db:"allocated_at"`
	ReleasedAt     *time.Time `json:"released_at,omitempty" db:"released_at"`
}

func (a *EquipmentAllocation) IsActive() bool {
	return a.ReleasedAt == nil
}
