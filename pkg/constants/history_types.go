package constants

// --- ТИПЫ ЗАПИСЕЙ ИСТОРИИ ---
const (
	HistoryTypePlacement   = "placement"
	HistoryTypeOperation   = "operation"
	HistoryTypeMaintenance = "maintenance"
	HistoryTypeRepair      = "repair"
)

var HistoryTypes = []string{
	HistoryTypePlacement,
	HistoryTypeOperation,
	HistoryTypeMaintenance,
	HistoryTypeRepair,
}

func IsHistoryType(code string) bool {
	for _, t := range HistoryTypes {
		if t == code {
			return true
		}
	}
	return false
}

// IsAllocatingType - типы, которые могут закрепить оборудование за проектом.
func IsAllocatingType(code string) bool {
	return code == HistoryTypePlacement || code == HistoryTypeOperation
}

// --- СТАТУСЫ АКТИВНОСТЕЙ ---
const (
	ActivityStatusScheduled  = "SCHEDULED"
	ActivityStatusInProgress = "IN_PROGRESS"
	ActivityStatusCompleted  = "COMPLETED"
	ActivityStatusCancelled  = "CANCELLED"
)

var ActivityStatuses = []string{
	ActivityStatusScheduled,
	ActivityStatusInProgress,
	ActivityStatusCompleted,
	ActivityStatusCancelled,
}

func IsActivityStatus(code string) bool {
	for _, s := range ActivityStatuses {
		if s == code {
			return true
		}
	}
	return false
}

// Финальные статусы активностей
func IsFinalActivityStatus(code string) bool {
	return code == ActivityStatusCompleted || code == ActivityStatusCancelled
}

// --- ФИЛЬТРЫ ПО ДАТЕ ---
const (
	DateFilterAll          = "all"
	DateFilterPastMonth    = "past-month"
	DateFilterPastSixMonth = "past-6-months"
	DateFilterPastYear     = "past-year"
	DateFilterCustom       = "custom"
)

var DateFilters = []string{
	DateFilterAll,
	DateFilterPastMonth,
	DateFilterPastSixMonth,
	DateFilterPastYear,
	DateFilterCustom,
}
