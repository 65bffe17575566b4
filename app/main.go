package main

import (
	"context"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"field-equipment/internal/datasource"
	"field-equipment/internal/routes"
	"field-equipment/pkg/config"
	"field-equipment/pkg/customvalidator"
	apperrors "field-equipment/pkg/errors"
	"field-equipment/pkg/eventbus"
	applogger "field-equipment/pkg/logger"
	"field-equipment/pkg/metrics"
	appmiddleware "field-equipment/pkg/middleware"
	"field-equipment/pkg/service"
	"field-equipment/pkg/utils"
	"field-equipment/seeders"
)

func main() {
	cfg := config.New()
	logger := applogger.NewLogger(cfg.Log.Level, cfg.Log.File)
	defer func() { _ = logger.Sync() }()

	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		DisableStackAll: true,
		StackSize:       1 << 10,
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			logger.Error("!!! ОБНАРУЖЕНА ПАНИКА (PANIC) !!!",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Error(err),
				zap.String("stack", string(stack)),
			)
			if !c.Response().Committed {
				httpErr := apperrors.NewHttpError(http.StatusInternalServerError, "Внутренняя ошибка сервера", err, nil)
				_ = utils.ErrorResponse(c, httpErr, logger)
			}
			return err
		},
	}))
	e.Use(appmiddleware.RequestLogger(logger))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowCredentials: true,
	}))

	v := validator.New()
	if err := customvalidator.RegisterCustomValidations(v); err != nil {
		logger.Fatal("Ошибка регистрации кастомных правил валидации", zap.Error(err))
	}
	e.Validator = utils.NewValidator(v)

	ctx := context.Background()
	registry, err := datasource.NewDefaultRegistry(cfg)
	if err != nil {
		logger.Fatal("Ошибка выбора источника данных", zap.Error(err))
	}
	provider, err := registry.GetActive()
	if err != nil {
		logger.Fatal("Ошибка выбора источника данных", zap.Error(err))
	}
	repos, closeFn, err := provider.Open(ctx, logger)
	if err != nil {
		logger.Fatal("Не удалось открыть хранилище", zap.Error(err), zap.String("data_source", provider.Name()))
	}
	defer closeFn()

	bus := eventbus.New(logger)
	collector := metrics.New()
	jwtSvc := service.NewJWTService(cfg.JWT.SecretKey)

	svcs := routes.InitRouter(e, repos, jwtSvc, logger, cfg, bus, collector)

	if provider.Name() == config.DataSourceFixture && cfg.Equipment.SeedFixture {
		if err := seeders.SeedEquipment(ctx, svcs.Equipment, svcs.History, time.Now(), logger); err != nil {
			logger.Fatal("Ошибка наполнения хранилища в памяти", zap.Error(err))
		}
	}

	logger.Info("🚀 Сервер запущен", zap.String("port", cfg.Server.Port), zap.String("data_source", provider.Name()))
	if err := e.Start(":" + cfg.Server.Port); err != nil && err != http.ErrServerClosed {
		logger.Fatal("Ошибка запуска сервера", zap.Error(err))
	}
	bus.Wait()
}
