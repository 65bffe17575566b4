package routes

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"field-equipment/internal/controllers"
	"field-equipment/internal/services"
	"field-equipment/pkg/config"
)

func runEquipmentRouter(
	secureGroup *echo.Group,
	equipmentService services.EquipmentServiceInterface,
	historyService services.EquipmentHistoryServiceInterface,
	cfg *config.Config,
	logger *zap.Logger,
) {
	equipmentCtrl := controllers.NewEquipmentController(equipmentService, cfg.Equipment.ImportMaxSizeMB, logger)
	historyCtrl := controllers.NewEquipmentHistoryController(historyService, logger)

	equipment := secureGroup.Group("/equipment")
	equipment.GET("", equipmentCtrl.List)
	equipment.POST("", equipmentCtrl.Create)
	equipment.POST("/import", equipmentCtrl.Import)
	equipment.GET("/allocations", historyCtrl.ActiveAllocations)
	equipment.PATCH("/history/:entryID/status", historyCtrl.TransitionActivity)

	equipment.GET("/:id", equipmentCtrl.GetByID)
	equipment.PUT("/:id", equipmentCtrl.Update)
	equipment.GET("/:id/history", historyCtrl.GetHistory)
	equipment.POST("/:id/history", historyCtrl.RecordActivity)
	equipment.POST("/:id/status", historyCtrl.ChangeStatus)
	equipment.GET("/:id/status", historyCtrl.GetStatus)
	equipment.POST("/:id/release", historyCtrl.Release)
}
