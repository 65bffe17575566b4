package constants

// --- СТАТУСЫ ОБОРУДОВАНИЯ ---
const (
	EquipmentStatusAvailable              = "available"
	EquipmentStatusAvailableNeedsRepair   = "available_needs_repair"
	EquipmentStatusUnderRepair            = "under_repair"
	EquipmentStatusAvailableGoodCondition = "available_good_condition"
	EquipmentStatusInUseUnavailable       = "in_use_unavailable"
)

var EquipmentStatuses = []string{
	EquipmentStatusAvailable,
	EquipmentStatusAvailableNeedsRepair,
	EquipmentStatusUnderRepair,
	EquipmentStatusAvailableGoodCondition,
	EquipmentStatusInUseUnavailable,
}

func IsEquipmentStatus(code string) bool {
	for _, s := range EquipmentStatuses {
		if s == code {
			return true
		}
	}
	return false
}
