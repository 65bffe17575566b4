package events

import "github.com/google/uuid"

const EquipmentStatusChangedName = "equipment.status_changed"

// EquipmentStatusChangedEvent публикуется после коммита транзакции, изменившей
// статус или закрепление единицы оборудования.
type EquipmentStatusChangedEvent struct {
	EquipmentID uint64
	TxID        uuid.UUID
	FromStatus  string
	ToStatus    string
	// ProjectLabel - проект, за которым закреплена единица; пусто после снятия закрепления.
	ProjectLabel string
}

func (e EquipmentStatusChangedEvent) Name() string {
	return EquipmentStatusChangedName
}
