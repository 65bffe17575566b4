package history

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"field-equipment/internal/entities"
	"field-equipment/pkg/constants"
	"field-equipment/pkg/utils"
)

var fixedNow = time.Date(2024, 6, 15, 10, 30, 0, 0, time.UTC)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func entry(id uint64, typ string, from time.Time) entities.EquipmentHistoryEntry {
	return entities.EquipmentHistoryEntry{
		ID:          id,
		EquipmentID: 1,
		Type:        typ,
		FromDate:    from,
		CreatedAt:   from,
	}
}

func ids(entries []entities.EquipmentHistoryEntry) []uint64 {
	out := make([]uint64, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.ID)
	}
	return out
}

func TestApply_PastMonthBoundary(t *testing.T) {
	entries := []entities.EquipmentHistoryEntry{
		entry(1, constants.HistoryTypeMaintenance, day(2024, 5, 14)),
		entry(2, constants.HistoryTypeMaintenance, day(2024, 5, 15)),
	}

	lower, upper := Bounds(FilterSpec{DateFilter: constants.DateFilterPastMonth}, fixedNow)
	require.NotNil(t, lower)
	require.NotNil(t, upper)
	assert.Equal(t, day(2024, 5, 15), *lower)
	assert.Equal(t, day(2024, 6, 15), *upper)

	got := Apply(entries, FilterSpec{DateFilter: constants.DateFilterPastMonth}, fixedNow)
	assert.Equal(t, []uint64{2}, ids(got))
}

func TestApply_PresetBoundaries(t *testing.T) {
	tests := []struct {
		name   string
		filter string
		lower  time.Time
	}{
		{"past month", constants.DateFilterPastMonth, day(2024, 5, 15)},
		{"past six months", constants.DateFilterPastSixMonth, day(2023, 12, 15)},
		{"past year", constants.DateFilterPastYear, day(2023, 6, 15)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			onBound := entry(1, constants.HistoryTypeOperation, tt.lower)
			dayBefore := entry(2, constants.HistoryTypeOperation, tt.lower.AddDate(0, 0, -1))

			got := Apply([]entities.EquipmentHistoryEntry{onBound, dayBefore}, FilterSpec{DateFilter: tt.filter}, fixedNow)
			assert.Equal(t, []uint64{1}, ids(got), "запись на границе включается, день раньше - нет")
		})
	}
}

func TestApply_EntryLaterTodayIsIncluded(t *testing.T) {
	today := entry(1, constants.HistoryTypeOperation, fixedNow.Add(5*time.Hour))
	tomorrow := entry(2, constants.HistoryTypeOperation, fixedNow.AddDate(0, 0, 1))

	got := Apply([]entities.EquipmentHistoryEntry{today, tomorrow}, FilterSpec{DateFilter: constants.DateFilterPastMonth}, fixedNow)
	assert.Equal(t, []uint64{1}, ids(got))
}

func TestApply_CustomRange(t *testing.T) {
	entries := []entities.EquipmentHistoryEntry{
		entry(1, constants.HistoryTypePlacement, day(2024, 1, 1)),
		entry(2, constants.HistoryTypePlacement, day(2024, 2, 10)),
		entry(3, constants.HistoryTypePlacement, day(2024, 3, 20)),
		entry(4, constants.HistoryTypePlacement, day(2024, 6, 1)),
	}

	t.Run("both bounds inclusive", func(t *testing.T) {
		from, to := day(2024, 2, 10), day(2024, 3, 20)
		got := Apply(entries, FilterSpec{DateFilter: constants.DateFilterCustom, From: &from, To: &to}, fixedNow)
		assert.Equal(t, []uint64{3, 2}, ids(got))
	})

	t.Run("only lower bound defaults upper to now", func(t *testing.T) {
		from := day(2024, 3, 1)
		future := entry(5, constants.HistoryTypePlacement, day(2024, 7, 1))
		got := Apply(append(entries, future), FilterSpec{DateFilter: constants.DateFilterCustom, From: &from}, fixedNow)
		assert.Equal(t, []uint64{4, 3}, ids(got))
	})

	t.Run("only upper bound", func(t *testing.T) {
		to := day(2024, 2, 10)
		got := Apply(entries, FilterSpec{DateFilter: constants.DateFilterCustom, To: &to}, fixedNow)
		assert.Equal(t, []uint64{2, 1}, ids(got))
	})

	t.Run("no bounds", func(t *testing.T) {
		got := Apply(entries, FilterSpec{DateFilter: constants.DateFilterCustom}, fixedNow)
		assert.Len(t, got, 4)
	})
}

func TestApply_SearchScenario(t *testing.T) {
	zoneA := entry(1, constants.HistoryTypePlacement, day(2024, 5, 1))
	zoneA.Location = utils.ToPtr("Zone A - Unité de production")

	zoneB := entry(2, constants.HistoryTypePlacement, day(2024, 5, 2))
	zoneB.Location = utils.ToPtr("Zone B")
	zoneB.Description = "Déplacement vers le dépôt"

	got := Apply([]entities.EquipmentHistoryEntry{zoneA, zoneB}, FilterSpec{SearchTerm: "Zone A"}, fixedNow)
	assert.Equal(t, []uint64{1}, ids(got))
}

func TestMatchesSearch_CaseInsensitiveMultiField(t *testing.T) {
	base := entry(1, constants.HistoryTypeMaintenance, day(2024, 5, 1))

	byDescription := base
	byDescription.Description = "Remplacement de la POMPE"

	byLocation := base
	byLocation.Location = utils.ToPtr("Puits pompe-3")

	byPerson := base
	byPerson.ResponsiblePerson = &entities.ResponsiblePerson{Name: "Karim Pompidou"}

	byReason := base
	byReason.Reason = utils.ToPtr("fuite de la pompe")

	byToStatus := base
	byToStatus.IsStatusChange = true
	byToStatus.ToStatus = utils.ToPtr(constants.EquipmentStatusUnderRepair)

	for name, e := range map[string]entities.EquipmentHistoryEntry{
		"description": byDescription,
		"location":    byLocation,
		"person":      byPerson,
		"reason":      byReason,
	} {
		assert.True(t, MatchesSearch(e, "PoMpE"), name)
	}
	assert.True(t, MatchesSearch(byToStatus, "UNDER_repair"))
	assert.False(t, MatchesSearch(base, "pompe"))
	assert.True(t, MatchesSearch(base, "   "), "пустой поиск пропускает все")
}

func TestApply_StableSort(t *testing.T) {
	a := entry(1, constants.HistoryTypeOperation, day(2024, 1, 10))
	b := entry(2, constants.HistoryTypeOperation, day(2024, 1, 10))
	c := entry(3, constants.HistoryTypeOperation, day(2024, 1, 5))

	got := Apply([]entities.EquipmentHistoryEntry{c, a, b}, FilterSpec{}, fixedNow)
	assert.Equal(t, []uint64{1, 2, 3}, ids(got))

	got = Apply([]entities.EquipmentHistoryEntry{a, b, c}, FilterSpec{DateFilter: constants.DateFilterAll}, fixedNow)
	assert.Equal(t, []uint64{1, 2, 3}, ids(got))
}

func TestApply_TypeFilter(t *testing.T) {
	entries := []entities.EquipmentHistoryEntry{
		entry(1, constants.HistoryTypePlacement, day(2024, 5, 1)),
		entry(2, constants.HistoryTypeMaintenance, day(2024, 5, 2)),
		entry(3, constants.HistoryTypeOperation, day(2024, 5, 3)),
	}
	got := Apply(entries, FilterSpec{Type: constants.HistoryTypeMaintenance}, fixedNow)
	assert.Equal(t, []uint64{2}, ids(got))
}

func TestApply_IdempotentAndPure(t *testing.T) {
	entries := []entities.EquipmentHistoryEntry{
		entry(1, constants.HistoryTypePlacement, day(2024, 5, 1)),
		entry(2, constants.HistoryTypeMaintenance, day(2024, 6, 2)),
		entry(3, constants.HistoryTypeOperation, day(2024, 4, 3)),
	}
	entries[1].Description = "zone a"
	snapshot := append([]entities.EquipmentHistoryEntry(nil), entries...)

	spec := FilterSpec{DateFilter: constants.DateFilterPastYear, SearchTerm: ""}
	first := Apply(entries, spec, fixedNow)
	second := Apply(entries, spec, fixedNow)

	assert.Equal(t, first, second)
	assert.Equal(t, snapshot, entries, "исходный журнал не меняется")

	first[0].Description = "changed"
	assert.Equal(t, "zone a", entries[1].Description, "результат - новый срез")
}
