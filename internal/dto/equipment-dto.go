package dto

import "time"

type CreateEquipmentDTO struct {
	Name        string  `json:"name" validate:"required,max=255"`
	Reference   string  `json:"reference" validate:"required,max=100"`
	Matricule   string  `json:"matricule" validate:"required,max=100"`
	Height      float64 `json:"height" validate:"required,gt=0"`
	Width       float64 `json:"width" validate:"required,gt=0"`
	Length      float64 `json:"length" validate:"required,gt=0"`
	Weight      float64 `json:"weight" validate:"required,gt=0"`
	Temperature string  `json:"temperature" validate:"required,max=100"`
	Pressure    string  `json:"pressure" validate:"required,max=100"`
	Location    string  `json:"location" validate:"required,max=255"`
	Status      string  `json:"status,omitempty" validate:"omitempty,equipment_status"`
}

// UpdateEquipmentDTO - статус и местоположение здесь намеренно отсутствуют:
// они меняются только через записи истории.
type UpdateEquipmentDTO struct {
	Name        *string  `json:"name,omitempty"        validate:"omitempty,min=1,max=255"`
	Reference   *string  `json:"reference,omitempty"   validate:"omitempty,min=1,max=100"`
	Matricule   *string  `json:"matricule,omitempty"   validate:"omitempty,min=1,max=100"`
	Height      *float64 `json:"height,omitempty"      validate:"omitempty,gt=0"`
	Width       *float64 `json:"width,omitempty"       validate:"omitempty,gt=0"`
	Length      *float64 `json:"length,omitempty"      validate:"omitempty,gt=0"`
	Weight      *float64 `json:"weight,omitempty"      validate:"omitempty,gt=0"`
	Temperature *string  `json:"temperature,omitempty" validate:"omitempty,min=1,max=100"`
	Pressure    *string  `json:"pressure,omitempty"    validate:"omitempty,min=1,max=100"`
}

type EquipmentDTO struct {
	ID            uint64  `json:"id"`
	Name          string  `json:"name"`
	Reference     string  `json:"reference"`
	Matricule     string  `json:"matricule"`
	Height        float64 `json:"height"`
	Width         float64 `json:"width"`
	Length        float64 `json:"length"`
	Weight        float64 `json:"weight"`
	Volume        float64 `json:"volume"`
	Temperature   string  `json:"temperature"`
	Pressure      string  `json:"pressure"`
	Location      string  `json:"location"`
	Status        string  `json:"status"`
	InitialStatus string  `json:"initial_status"`
	// ProjectLabel заполняется, если оборудование закреплено за проектом
	ProjectLabel *string `json:"project_label,omitempty"`

	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type ShortEquipmentDTO struct {
	ID     uint64 `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

type ImportRowErrorDTO struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

type EquipmentImportResultDTO struct {
	Created  int                 `json:"created"`
	Rejected []ImportRowErrorDTO `json:"rejected"`
}

type AllocationDTO struct {
	EquipmentID  uint64    `json:"equipment_id"`
	ProjectLabel string    `json:"project_label"`
	AllocatedAt  time.Time `json:"allocated_at"`
}

type ShortAllocationDTO struct {
	EquipmentID  uint64 `json:"equipment_id"`
	ProjectLabel string `json:"project_label"`
}
