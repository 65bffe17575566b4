package main

import (
	"context"
	"flag"
	"time"

	"go.uber.org/zap"

	"field-equipment/internal/datasource"
	"field-equipment/internal/listeners"
	"field-equipment/internal/services"
	"field-equipment/pkg/config"
	"field-equipment/pkg/eventbus"
	applogger "field-equipment/pkg/logger"
	"field-equipment/pkg/metrics"
	"field-equipment/seeders"
)

func main() {
	runEquipment := flag.Bool("equipment", false, "Наполнить оборудование и его историю")
	runAll := flag.Bool("all", false, "Запустить все сидеры")
	flag.Parse()

	cfg := config.New()
	logger := applogger.NewLogger(cfg.Log.Level, cfg.Log.File)
	defer func() { _ = logger.Sync() }()

	logger.Info("======================================================")
	logger.Info("       🌱 СИСТЕМА СИДЕРОВ (Наполнение БД)           ")
	logger.Info("======================================================")

	if !*runEquipment && !*runAll {
		logger.Warn("❌ Не выбран ни один сидер для запуска. Примеры: -equipment, -all")
		flag.PrintDefaults()
		return
	}

	if cfg.Equipment.DataSource != config.DataSourcePostgres {
		logger.Fatal("Сидеры работают только с DATA_SOURCE=postgres", zap.String("data_source", cfg.Equipment.DataSource))
	}

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
		logger.Fatal("Не удалось открыть хранилище", zap.Error(err))
	}
	defer closeFn()

	bus := eventbus.New(logger)
	defer bus.Wait()
	listeners.NewAllocationCacheListener(repos.Cache, services.AllocationCacheKey, logger).Register(bus)

	collector := metrics.New()
	historySvc := services.NewEquipmentHistoryService(repos, bus, collector, cfg.Equipment.AllocationCacheTTL, logger)
	equipmentSvc := services.NewEquipmentService(repos, historySvc, collector, logger)

	if *runAll || *runEquipment {
		if err := seeders.SeedEquipment(ctx, equipmentSvc, historySvc, time.Now(), logger); err != nil {
			logger.Fatal("Ошибка наполнения оборудования", zap.Error(err))
		}
	}

	logger.Info("✅ Все указанные операции сидирования успешно завершены.")
}
