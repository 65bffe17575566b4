package seeders

import (
	"field-equipment/internal/dto"
	"field-equipment/pkg/constants"
)

type seedActivity struct {
	Type         string
	Description  string
	DaysAgo      int
	Location     string
	Responsible  string
	Status       string
	ProjectLabel string
}

type seedEquipment struct {
	Equipment  dto.CreateEquipmentDTO
	Activities []seedActivity
	// FinalStatus, если задан, выставляется отдельной сменой статуса после активностей
	FinalStatus string
}

var equipmentData = []seedEquipment{
	{
		Equipment: dto.CreateEquipmentDTO{
			Name: "Сепаратор трехфазный", Reference: "SEP-3F-100", Matricule: "SEP-0001",
			Height: 180, Width: 120, Length: 450, Weight: 2100,
			Temperature: "-40..+85 °C", Pressure: "63 bar", Location: "База Восток",
		},
		Activities: []seedActivity{
			{Type: constants.HistoryTypeMaintenance, Description: "Плановое ТО перед выездом", DaysAgo: 40, Location: "База Восток", Responsible: "Иванов А.", Status: constants.ActivityStatusCompleted},
			{Type: constants.HistoryTypePlacement, Description: "Монтаж на кусте 12", DaysAgo: 20, Location: "Zone A, куст 12", Responsible: "Петров С.", ProjectLabel: "Проект Север"},
		},
	},
	{
		Equipment: dto.CreateEquipmentDTO{
			Name: "Насос плунжерный", Reference: "PMP-PL-40", Matricule: "PMP-0002",
			Height: 95, Width: 70, Length: 160, Weight: 780,
			Temperature: "0..+60 °C", Pressure: "40 bar", Location: "Склад 2",
		},
		Activities: []seedActivity{
			{Type: constants.HistoryTypeRepair, Description: "Замена уплотнений", DaysAgo: 5, Location: "Цех ремонта", Responsible: "Сидоров В.", Status: constants.ActivityStatusInProgress},
		},
		FinalStatus: constants.EquipmentStatusUnderRepair,
	},
	{
		Equipment: dto.CreateEquipmentDTO{
			Name: "Фонтанная арматура", Reference: "AF-65x35", Matricule: "AF-0003",
			Height: 210, Width: 90, Length: 90, Weight: 1350,
			Temperature: "-60..+120 °C", Pressure: "350 bar", Location: "Склад 1",
		},
		Activities: []seedActivity{
			{Type: constants.HistoryTypeMaintenance, Description: "Опрессовка", DaysAgo: -3, Location: "Склад 1", Responsible: "Иванов А.", Status: constants.ActivityStatusScheduled},
		},
	},
}
