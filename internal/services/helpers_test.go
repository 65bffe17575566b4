package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"field-equipment/internal/dto"
	"field-equipment/internal/listeners"
	"field-equipment/internal/repositories"
	"field-equipment/internal/repositories/fixture"
	"field-equipment/pkg/eventbus"
	"field-equipment/pkg/metrics"
)

var testNow = time.Date(2024, time.June, 15, 10, 30, 0, 0, time.UTC)

type testEnv struct {
	equipment EquipmentServiceInterface
	history   EquipmentHistoryServiceInterface
	repos     *repositories.Set
	bus       *eventbus.Bus
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	clock := func() time.Time { return testNow }
	logger := zap.NewNop()
	store := fixture.NewStore(fixture.WithClock(clock))
	repos := store.Set()
	bus := eventbus.New(logger)
	collector := metrics.New()

	listeners.NewAllocationCacheListener(repos.Cache, AllocationCacheKey, logger).Register(bus)

	historySvc := NewEquipmentHistoryService(repos, bus, collector, time.Minute, logger, WithNow(clock))
	equipmentSvc := NewEquipmentService(repos, historySvc, collector, logger)

	t.Cleanup(bus.Wait)
	return &testEnv{equipment: equipmentSvc, history: historySvc, repos: repos, bus: bus}
}

func sampleEquipment(matricule string) dto.CreateEquipmentDTO {
	return dto.CreateEquipmentDTO{
		Name:        "Сепаратор",
		Reference:   "SEP-100",
		Matricule:   matricule,
		Height:      120,
		Width:       80,
		Length:      160,
		Weight:      450,
		Temperature: "-20..+60 °C",
		Pressure:    "16 bar",
		Location:    "База",
	}
}

func (env *testEnv) createEquipment(t *testing.T, matricule string) *dto.EquipmentDTO {
	t.Helper()
	created, err := env.equipment.Create(context.Background(), sampleEquipment(matricule))
	require.NoError(t, err)
	return created
}
