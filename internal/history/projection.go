package history

import (
	"field-equipment/internal/entities"
	"field-equipment/pkg/constants"
)

// StatusProjection отвечает на вопрос "что сейчас происходит с единицей".
type StatusProjection struct {
	EquipmentID        uint64                           `json:"equipment_id"`
	CurrentStatus      string                           `json:"current_status"`
	LatestStatusChange *entities.EquipmentHistoryEntry  `json:"latest_status_change,omitempty"`
	InProgress         []entities.EquipmentHistoryEntry `json:"in_progress"`
	Scheduled          []entities.EquipmentHistoryEntry `json:"scheduled"`
	Completed          []entities.EquipmentHistoryEntry `json:"completed"`
}

// LatestStatusChange возвращает самую свежую запись смены статуса: максимальная
// from_date, при равенстве - созданная позже. nil, если смен не было.
func LatestStatusChange(entries []entities.EquipmentHistoryEntry) *entities.EquipmentHistoryEntry {
	var latest *entities.EquipmentHistoryEntry
	for i := range entries {
		e := &entries[i]
		if !e.IsStatusChange {
			continue
		}
		if latest == nil || isNewer(e, latest) {
			latest = e
		}
	}
	if latest == nil {
		return nil
	}
	out := latest.Clone()
	return &out
}

func isNewer(a, b *entities.EquipmentHistoryEntry) bool {
	if !a.FromDate.Equal(b.FromDate) {
		return a.FromDate.After(b.FromDate)
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	// одинаковое время создания: позже добавленная запись (больший ID или позиция) выигрывает
	return a.ID >= b.ID
}

// CurrentStatus - to_status последней смены статуса или начальный статус единицы.
func CurrentStatus(initialStatus string, entries []entities.EquipmentHistoryEntry) string {
	if latest := LatestStatusChange(entries); latest != nil && latest.ToStatus != nil {
		return *latest.ToStatus
	}
	return initialStatus
}

// Project строит проекцию статуса. Активности без статуса не попадают ни в одну группу.
func Project(equipmentID uint64, initialStatus string, entries []entities.EquipmentHistoryEntry) StatusProjection {
	p := StatusProjection{
		EquipmentID:   equipmentID,
		CurrentStatus: initialStatus,
		InProgress:    []entities.EquipmentHistoryEntry{},
		Scheduled:     []entities.EquipmentHistoryEntry{},
		Completed:     []entities.EquipmentHistoryEntry{},
	}

	if latest := LatestStatusChange(entries); latest != nil {
		p.LatestStatusChange = latest
		if latest.ToStatus != nil {
			p.CurrentStatus = *latest.ToStatus
		}
	}

	for _, e := range entries {
		switch {
		case e.HasActivityStatus(constants.ActivityStatusInProgress):
			p.InProgress = append(p.InProgress, e.Clone())
		case e.HasActivityStatus(constants.ActivityStatusScheduled):
			p.Scheduled = append(p.Scheduled, e.Clone())
		case e.HasActivityStatus(constants.ActivityStatusCompleted):
			p.Completed = append(p.Completed, e.Clone())
		}
	}

	SortNewestFirst(p.InProgress)
	SortNewestFirst(p.Scheduled)
	SortNewestFirst(p.Completed)
	return p
}
