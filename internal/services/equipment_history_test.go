package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/aarondl/null/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"field-equipment/internal/dto"
	"field-equipment/internal/entities"
	"field-equipment/internal/history"
	"field-equipment/pkg/constants"
	apperrors "field-equipment/pkg/errors"
	"field-equipment/pkg/utils"
)

func activity(entryType string, from time.Time) dto.RecordActivityDTO {
	return dto.RecordActivityDTO{
		Type:        entryType,
		Description: "Плановые работы",
		FromDate:    from,
	}
}

// assertStatusConsistent: кешированный статус равен статусу, выведенному из истории.
func assertStatusConsistent(t *testing.T, env *testEnv, equipmentID uint64) {
	t.Helper()
	ctx := context.Background()

	current, err := env.equipment.GetByID(ctx, equipmentID)
	require.NoError(t, err)
	latest, err := env.history.LatestStatusChange(ctx, equipmentID)
	require.NoError(t, err)

	expected := current.InitialStatus
	if latest != nil {
		expected = *latest.ToStatus
	}
	assert.Equal(t, expected, current.Status)
}

func TestChangeStatus_UpdatesCachedStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	eq := env.createEquipment(t, "M-001")

	result, err := env.history.ChangeStatus(ctx, eq.ID, dto.ChangeStatusDTO{
		ToStatus: constants.EquipmentStatusUnderRepair,
		Reason:   null.StringFrom("течь уплотнения"),
	})
	require.NoError(t, err)

	assert.True(t, result.Entry.IsStatusChange)
	assert.Equal(t, constants.HistoryTypeRepair, result.Entry.Type)
	assert.Equal(t, constants.EquipmentStatusAvailable, *result.Entry.FromStatus)
	assert.Equal(t, constants.EquipmentStatusUnderRepair, result.Equipment.Status)
	assertStatusConsistent(t, env, eq.ID)
}

func TestChangeStatus_SameStatusRejected(t *testing.T) {
	env := newTestEnv(t)
	eq := env.createEquipment(t, "M-001")

	_, err := env.history.ChangeStatus(context.Background(), eq.ID, dto.ChangeStatusDTO{ToStatus: constants.EquipmentStatusAvailable})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestAppend_StatusChangeWithoutToStatusRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	eq := env.createEquipment(t, "M-001")

	_, err := env.history.Append(ctx, entities.EquipmentHistoryEntry{
		EquipmentID:    eq.ID,
		Type:           constants.HistoryTypeRepair,
		IsStatusChange: true,
		FromDate:       testNow,
		FromStatus:     utils.ToPtr(constants.EquipmentStatusAvailable),
	})
	require.ErrorIs(t, err, apperrors.ErrValidation)

	current, err := env.equipment.GetByID(ctx, eq.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.EquipmentStatusAvailable, current.Status)

	entries, err := env.history.ListByEquipment(ctx, eq.ID, "")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestAppend_BackdatedStatusChangeKeepsLatest(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	eq := env.createEquipment(t, "M-001")

	_, err := env.history.ChangeStatus(ctx, eq.ID, dto.ChangeStatusDTO{ToStatus: constants.EquipmentStatusUnderRepair})
	require.NoError(t, err)

	_, err = env.history.Append(ctx, entities.EquipmentHistoryEntry{
		EquipmentID:    eq.ID,
		Type:           constants.HistoryTypeMaintenance,
		IsStatusChange: true,
		FromDate:       testNow.AddDate(0, -2, 0),
		FromStatus:     utils.ToPtr(constants.EquipmentStatusAvailable),
		ToStatus:       utils.ToPtr(constants.EquipmentStatusAvailableGoodCondition),
	})
	require.NoError(t, err)

	current, err := env.equipment.GetByID(ctx, eq.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.EquipmentStatusUnderRepair, current.Status)
	assertStatusConsistent(t, env, eq.ID)
}

func TestAppend_UnknownEquipment(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.history.Append(context.Background(), entities.EquipmentHistoryEntry{
		EquipmentID: 99,
		Type:        constants.HistoryTypeMaintenance,
		FromDate:    testNow,
	})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestRecordActivity_MaintenanceWithoutStatusInNoGroup(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	eq := env.createEquipment(t, "M-001")

	result, err := env.history.RecordActivity(ctx, eq.ID, activity(constants.HistoryTypeMaintenance, testNow))
	require.NoError(t, err)
	assert.Nil(t, result.StatusChange)
	assert.Nil(t, result.Entry.Status)

	projection, err := env.history.GetStatusProjection(ctx, eq.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.EquipmentStatusAvailable, projection.CurrentStatus)
	assert.Empty(t, projection.InProgress)
	assert.Empty(t, projection.Scheduled)
	assert.Empty(t, projection.Completed)
}

func TestRecordActivity_ResultingStatusSharesTransaction(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	eq := env.createEquipment(t, "M-001")

	data := activity(constants.HistoryTypeRepair, testNow)
	data.Status = null.StringFrom(constants.ActivityStatusInProgress)
	data.ResultingStatus = null.StringFrom(constants.EquipmentStatusUnderRepair)
	data.Location = null.StringFrom("Цех 2")

	result, err := env.history.RecordActivity(ctx, eq.ID, data)
	require.NoError(t, err)
	require.NotNil(t, result.StatusChange)

	assert.Equal(t, result.Entry.TxID, result.StatusChange.TxID)
	assert.Equal(t, constants.EquipmentStatusUnderRepair, result.Equipment.Status)
	assert.Equal(t, "Цех 2", result.Equipment.Location)
	assertStatusConsistent(t, env, eq.ID)

	projection, err := env.history.GetStatusProjection(ctx, eq.ID)
	require.NoError(t, err)
	require.Len(t, projection.InProgress, 1)
	assert.Equal(t, result.Entry.ID, projection.InProgress[0].ID)
}

func TestRecordActivity_Validation(t *testing.T) {
	env := newTestEnv(t)
	eq := env.createEquipment(t, "M-001")

	data := activity("inspection", time.Time{})
	_, err := env.history.RecordActivity(context.Background(), eq.ID, data)

	var verr *apperrors.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "type")
	assert.Contains(t, verr.Fields, "from_date")
}

func TestListByEquipment(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	eq := env.createEquipment(t, "M-001")

	_, err := env.history.RecordActivity(ctx, eq.ID, activity(constants.HistoryTypeMaintenance, testNow.AddDate(0, 0, -3)))
	require.NoError(t, err)
	_, err = env.history.RecordActivity(ctx, eq.ID, activity(constants.HistoryTypeRepair, testNow.AddDate(0, 0, -10)))
	require.NoError(t, err)
	_, err = env.history.RecordActivity(ctx, eq.ID, activity(constants.HistoryTypeMaintenance, testNow.AddDate(0, 0, -1)))
	require.NoError(t, err)

	all, err := env.history.ListByEquipment(ctx, eq.ID, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Less(t, all[0].ID, all[1].ID, "порядок добавления")
	assert.Less(t, all[1].ID, all[2].ID)

	maintenance, err := env.history.ListByEquipment(ctx, eq.ID, constants.HistoryTypeMaintenance)
	require.NoError(t, err)
	assert.Len(t, maintenance, 2)

	_, err = env.history.ListByEquipment(ctx, eq.ID, "inspection")
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = env.history.ListByEquipment(ctx, 999, "")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestListByEquipment_EmptyHistory(t *testing.T) {
	env := newTestEnv(t)
	eq := env.createEquipment(t, "M-001")

	entries, err := env.history.ListByEquipment(context.Background(), eq.ID, "")
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)

	latest, err := env.history.LatestStatusChange(context.Background(), eq.ID)
	require.NoError(t, err)
	assert.Nil(t, latest)
}

func TestGetFilteredHistory_PastMonth(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	eq := env.createEquipment(t, "M-001")

	inside := activity(constants.HistoryTypeMaintenance, time.Date(2024, time.May, 15, 0, 0, 0, 0, time.UTC))
	inside.Location = null.StringFrom("Zone A")
	outside := activity(constants.HistoryTypeMaintenance, time.Date(2024, time.May, 14, 23, 0, 0, 0, time.UTC))

	_, err := env.history.RecordActivity(ctx, eq.ID, inside)
	require.NoError(t, err)
	_, err = env.history.RecordActivity(ctx, eq.ID, outside)
	require.NoError(t, err)

	entries, err := env.history.GetFilteredHistory(ctx, eq.ID, history.FilterSpec{DateFilter: constants.DateFilterPastMonth})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Zone A", *entries[0].Location)

	entries, err = env.history.GetFilteredHistory(ctx, eq.ID, history.FilterSpec{SearchTerm: "  zone a "})
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestTransitionActivity(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	eq := env.createEquipment(t, "M-001")

	data := activity(constants.HistoryTypeMaintenance, testNow)
	data.Status = null.StringFrom(constants.ActivityStatusScheduled)
	recorded, err := env.history.RecordActivity(ctx, eq.ID, data)
	require.NoError(t, err)
	entryID := recorded.Entry.ID

	_, err = env.history.TransitionActivity(ctx, entryID, constants.ActivityStatusCompleted)
	require.ErrorIs(t, err, apperrors.ErrInvalidTransition, "SCHEDULED -> COMPLETED запрещен")

	updated, err := env.history.TransitionActivity(ctx, entryID, constants.ActivityStatusInProgress)
	require.NoError(t, err)
	assert.Equal(t, constants.ActivityStatusInProgress, *updated.Status)

	_, err = env.history.TransitionActivity(ctx, entryID, constants.ActivityStatusCompleted)
	require.NoError(t, err)

	_, err = env.history.TransitionActivity(ctx, entryID, constants.ActivityStatusCancelled)
	require.ErrorIs(t, err, apperrors.ErrInvalidTransition, "COMPLETED конечный")

	entries, err := env.history.ListByEquipment(ctx, eq.ID, "")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, constants.ActivityStatusCompleted, *entries[0].Status)
	assert.Equal(t, recorded.Entry.Description, entries[0].Description)
	assert.Equal(t, recorded.Entry.FromDate, entries[0].FromDate)

	projection, err := env.history.GetStatusProjection(ctx, eq.ID)
	require.NoError(t, err)
	assert.Len(t, projection.Completed, 1)
}

func TestTransitionActivity_UntrackedAndStatusChange(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	eq := env.createEquipment(t, "M-001")

	untracked, err := env.history.RecordActivity(ctx, eq.ID, activity(constants.HistoryTypeMaintenance, testNow))
	require.NoError(t, err)
	_, err = env.history.TransitionActivity(ctx, untracked.Entry.ID, constants.ActivityStatusInProgress)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)

	changed, err := env.history.ChangeStatus(ctx, eq.ID, dto.ChangeStatusDTO{ToStatus: constants.EquipmentStatusUnderRepair})
	require.NoError(t, err)
	_, err = env.history.TransitionActivity(ctx, changed.Entry.ID, constants.ActivityStatusInProgress)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)

	_, err = env.history.TransitionActivity(ctx, 12345, constants.ActivityStatusInProgress)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func allocation(project string) dto.RecordActivityDTO {
	data := activity(constants.HistoryTypePlacement, testNow)
	data.ProjectLabel = null.StringFrom(project)
	data.Location = null.StringFrom("Куст 12")
	return data
}

func TestAllocate_MovesToInUse(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	eq := env.createEquipment(t, "M-001")

	result, err := env.history.RecordActivity(ctx, eq.ID, allocation("Проект Север"))
	require.NoError(t, err)
	require.NotNil(t, result.StatusChange)
	assert.Equal(t, constants.EquipmentStatusInUseUnavailable, result.Equipment.Status)
	assert.Equal(t, "Куст 12", result.Equipment.Location)
	require.NotNil(t, result.Equipment.ProjectLabel)
	assert.Equal(t, "Проект Север", *result.Equipment.ProjectLabel)
	assertStatusConsistent(t, env, eq.ID)

	env.bus.Wait()
	allocated, err := env.history.ActiveAllocations(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[uint64]string{eq.ID: "Проект Север"}, allocated)
}

func TestAllocate_SecondAllocationConflict(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	eq := env.createEquipment(t, "M-001")

	_, err := env.history.Allocate(ctx, eq.ID, allocation("Проект Север"))
	require.NoError(t, err)
	env.bus.Wait()
	before, err := env.history.ListByEquipment(ctx, eq.ID, "")
	require.NoError(t, err)

	_, err = env.history.Allocate(ctx, eq.ID, allocation("Проект Юг"))
	require.ErrorIs(t, err, apperrors.ErrConflict)

	// устаревший кеш: проверка проходит, но хранилище отклоняет второе закрепление
	require.NoError(t, env.repos.Cache.Set(ctx, AllocationCacheKey, "{}", time.Hour))
	_, err = env.history.Allocate(ctx, eq.ID, allocation("Проект Юг"))
	require.ErrorIs(t, err, apperrors.ErrConflict)

	after, err := env.history.ListByEquipment(ctx, eq.ID, "")
	require.NoError(t, err)
	assert.Len(t, after, len(before), "откат не оставляет записей")

	current, err := env.equipment.GetByID(ctx, eq.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.EquipmentStatusInUseUnavailable, current.Status)

	active, err := env.repos.Allocation.FindActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "Проект Север", active[0].ProjectLabel)
}

func TestAllocate_Validation(t *testing.T) {
	env := newTestEnv(t)
	eq := env.createEquipment(t, "M-001")

	data := allocation("Проект Север")
	data.Type = constants.HistoryTypeRepair
	_, err := env.history.Allocate(context.Background(), eq.ID, data)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	data = allocation("")
	_, err = env.history.Allocate(context.Background(), eq.ID, data)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestRelease(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	eq := env.createEquipment(t, "M-001")

	_, err := env.history.Allocate(ctx, eq.ID, allocation("Проект Север"))
	require.NoError(t, err)

	result, err := env.history.Release(ctx, eq.ID, dto.ReleaseAllocationDTO{})
	require.NoError(t, err)
	assert.Equal(t, constants.EquipmentStatusAvailable, result.Equipment.Status)
	assert.Nil(t, result.Equipment.ProjectLabel)
	assertStatusConsistent(t, env, eq.ID)

	env.bus.Wait()
	allocated, err := env.history.ActiveAllocations(ctx)
	require.NoError(t, err)
	assert.Empty(t, allocated)

	_, err = env.history.Release(ctx, eq.ID, dto.ReleaseAllocationDTO{})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = env.history.Allocate(ctx, eq.ID, allocation("Проект Юг"))
	assert.NoError(t, err, "после снятия единицу можно закрепить снова")
}

func TestAllocate_UnitAlreadyInUseRefreshesAllocations(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	eq := env.createEquipment(t, "M-001")

	_, err := env.history.ChangeStatus(ctx, eq.ID, dto.ChangeStatusDTO{ToStatus: constants.EquipmentStatusInUseUnavailable})
	require.NoError(t, err)
	env.bus.Wait()

	allocated, err := env.history.ActiveAllocations(ctx)
	require.NoError(t, err)
	require.Empty(t, allocated)

	result, err := env.history.Allocate(ctx, eq.ID, allocation("Проект Север"))
	require.NoError(t, err)
	assert.Nil(t, result.StatusChange, "статус уже in_use_unavailable")

	env.bus.Wait()
	allocated, err = env.history.ActiveAllocations(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[uint64]string{eq.ID: "Проект Север"}, allocated)
}

func TestRelease_SameStatusRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	eq := env.createEquipment(t, "M-001")

	_, err := env.history.Allocate(ctx, eq.ID, allocation("Проект Север"))
	require.NoError(t, err)
	env.bus.Wait()

	_, err = env.history.Release(ctx, eq.ID, dto.ReleaseAllocationDTO{ToStatus: constants.EquipmentStatusInUseUnavailable})
	require.ErrorIs(t, err, apperrors.ErrValidation)

	active, err := env.repos.Allocation.FindActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1, "откат оставляет закрепление активным")

	_, err = env.history.Release(ctx, eq.ID, dto.ReleaseAllocationDTO{ToStatus: constants.EquipmentStatusAvailableNeedsRepair})
	require.NoError(t, err)
	env.bus.Wait()

	allocated, err := env.history.ActiveAllocations(ctx)
	require.NoError(t, err)
	assert.Empty(t, allocated)
	assertStatusConsistent(t, env, eq.ID)
}

func TestAllocate_StaleCacheDoesNotBlock(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	eq := env.createEquipment(t, "M-001")

	_, err := env.history.Allocate(ctx, eq.ID, allocation("Проект Север"))
	require.NoError(t, err)
	_, err = env.history.Release(ctx, eq.ID, dto.ReleaseAllocationDTO{})
	require.NoError(t, err)
	env.bus.Wait()

	// кеш записан читателем, который успел прочитать хранилище до снятия закрепления
	stale := fmt.Sprintf(`{"%d":"Проект Север"}`, eq.ID)
	require.NoError(t, env.repos.Cache.Set(ctx, AllocationCacheKey, stale, time.Hour))

	result, err := env.history.Allocate(ctx, eq.ID, allocation("Проект Юг"))
	require.NoError(t, err)
	require.NotNil(t, result.Equipment.ProjectLabel)
	assert.Equal(t, "Проект Юг", *result.Equipment.ProjectLabel)

	env.bus.Wait()
	allocated, err := env.history.ActiveAllocations(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[uint64]string{eq.ID: "Проект Юг"}, allocated)
}

func TestRecordActivity_BackdatedLocationKeepsNewest(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	eq := env.createEquipment(t, "M-001")

	recent := activity(constants.HistoryTypeOperation, testNow.AddDate(0, 0, -1))
	recent.Location = null.StringFrom("Куст 1")
	_, err := env.history.RecordActivity(ctx, eq.ID, recent)
	require.NoError(t, err)

	backdated := activity(constants.HistoryTypeMaintenance, testNow.AddDate(0, 0, -10))
	backdated.Location = null.StringFrom("Склад")
	result, err := env.history.RecordActivity(ctx, eq.ID, backdated)
	require.NoError(t, err)
	assert.Equal(t, "Куст 1", result.Equipment.Location)

	newest := activity(constants.HistoryTypeOperation, testNow)
	newest.Location = null.StringFrom("Куст 2")
	result, err = env.history.RecordActivity(ctx, eq.ID, newest)
	require.NoError(t, err)
	assert.Equal(t, "Куст 2", result.Equipment.Location)
}
