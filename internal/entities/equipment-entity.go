package entities

import (
	"field-equipment/pkg/types"
)

// Equipment - единица оборудования. Status и Location меняются только
// вместе с записью в истории (см. EquipmentHistoryEntry).
type Equipment struct {
	ID            uint64  `json:"id" db:"id"`
	Name          string  `json:"name" db:"name"`
	Reference     string  `json:"reference" db:"reference"`
	Matricule     string  `json:"matricule" db:"matricule"`
	Height        float64 `json:"height" db:"height"`
	Width         float64 `json:"width" db:"width"`
	Length        float64 `json:"length" db:"length"`
	Weight        float64 `json:"weight" db:"weight"`
	Volume        float64 `json:"volume" db:"volume"`
	Temperature   string  `json:"temperature" db:"temperature"`
	Pressure      string  `json:"pressure" db:"pressure"`
	Location      string  `json:"location" db:"location"`
	Status        string  `json:"status" db:"status"`
	InitialStatus string  `json:"initial_status" db:"initial_status"`

	types.BaseEntity // CreatedAt, UpdatedAt
}

// ComputeVolume переводит габариты в сантиметрах в кубические метры.
func ComputeVolume(height, width, length float64) float64 {
	return height * width * length / 1_000_000
}
