package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"field-equipment/internal/listeners"
	"field-equipment/internal/repositories"
	"field-equipment/internal/services"
	"field-equipment/pkg/config"
	"field-equipment/pkg/eventbus"
	"field-equipment/pkg/metrics"
	"field-equipment/pkg/middleware"
	"field-equipment/pkg/service"
)

// Services - сервисы, собранные InitRouter; main использует их для наполнения fixture-хранилища.
type Services struct {
	Equipment services.EquipmentServiceInterface
	History   services.EquipmentHistoryServiceInterface
}

func InitRouter(
	e *echo.Echo,
	repos *repositories.Set,
	jwtSvc service.JWTService,
	logger *zap.Logger,
	cfg *config.Config,
	bus *eventbus.Bus,
	collector *metrics.Collector,
) *Services {
	logger.Info("InitRouter: Начало создания маршрутов")

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(collector.Handler()))

	listeners.NewAllocationCacheListener(repos.Cache, services.AllocationCacheKey, logger).Register(bus)

	historyService := services.NewEquipmentHistoryService(repos, bus, collector, cfg.Equipment.AllocationCacheTTL, logger)
	equipmentService := services.NewEquipmentService(repos, historyService, collector, logger)

	api := e.Group("/api")
	secureGroup := api
	if cfg.JWT.AuthDisabled {
		logger.Warn("InitRouter: Авторизация отключена (AUTH_DISABLED=true)")
	} else {
		authMW := middleware.NewAuthMiddleware(jwtSvc, logger)
		secureGroup = api.Group("", authMW.Auth)
	}

	runEquipmentRouter(secureGroup, equipmentService, historyService, cfg, logger)

	logger.Info("INIT_ROUTER: Создание маршрутов завершено")
	return &Services{Equipment: equipmentService, History: historyService}
}
