package services

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"field-equipment/internal/dto"
	"field-equipment/pkg/constants"
	apperrors "field-equipment/pkg/errors"
	"field-equipment/pkg/utils"
)

func TestCreate_ComputesVolumeAndDefaultStatus(t *testing.T) {
	env := newTestEnv(t)

	created := env.createEquipment(t, "M-001")

	assert.NotZero(t, created.ID)
	assert.InDelta(t, 1.536, created.Volume, 1e-9)
	assert.Equal(t, constants.EquipmentStatusAvailable, created.Status)
	assert.Equal(t, constants.EquipmentStatusAvailable, created.InitialStatus)
	assert.Nil(t, created.ProjectLabel)
}

func TestCreate_KeepsGivenStatus(t *testing.T) {
	env := newTestEnv(t)

	data := sampleEquipment("M-001")
	data.Status = constants.EquipmentStatusUnderRepair
	created, err := env.equipment.Create(context.Background(), data)
	require.NoError(t, err)

	assert.Equal(t, constants.EquipmentStatusUnderRepair, created.Status)
	assert.Equal(t, constants.EquipmentStatusUnderRepair, created.InitialStatus)
}

func TestCreate_ValidationErrors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	data := sampleEquipment("M-001")
	data.Height = 0
	data.Name = ""
	data.Status = "broken"

	_, err := env.equipment.Create(ctx, data)
	require.ErrorIs(t, err, apperrors.ErrValidation)

	var verr *apperrors.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "height")
	assert.Contains(t, verr.Fields, "name")
	assert.Contains(t, verr.Fields, "status")

	list, err := env.equipment.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCreate_DuplicateMatriculeConflict(t *testing.T) {
	env := newTestEnv(t)
	env.createEquipment(t, "M-001")

	_, err := env.equipment.Create(context.Background(), sampleEquipment("M-001"))
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestGetByID_NotFound(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.equipment.GetByID(context.Background(), 42)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestList_OrderedByID(t *testing.T) {
	env := newTestEnv(t)
	first := env.createEquipment(t, "M-001")
	second := env.createEquipment(t, "M-002")

	list, err := env.equipment.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, first.ID, list[0].ID)
	assert.Equal(t, second.ID, list[1].ID)
}

func TestUpdate_RecomputesVolumeAndKeepsStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	created := env.createEquipment(t, "M-001")

	_, err := env.history.ChangeStatus(ctx, created.ID, dto.ChangeStatusDTO{ToStatus: constants.EquipmentStatusUnderRepair})
	require.NoError(t, err)
	before, err := env.history.ListByEquipment(ctx, created.ID, "")
	require.NoError(t, err)

	updated, err := env.equipment.Update(ctx, created.ID, dto.UpdateEquipmentDTO{
		Name:   utils.ToPtr("Сепаратор II"),
		Height: utils.ToPtr(100.0),
	})
	require.NoError(t, err)

	assert.Equal(t, "Сепаратор II", updated.Name)
	assert.InDelta(t, 1.28, updated.Volume, 1e-9)
	assert.Equal(t, constants.EquipmentStatusUnderRepair, updated.Status)
	assert.Equal(t, created.Location, updated.Location)

	after, err := env.history.ListByEquipment(ctx, created.ID, "")
	require.NoError(t, err)
	assert.Len(t, after, len(before), "обновление не пишет историю")
}

func TestUpdate_InvalidDimensionRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	created := env.createEquipment(t, "M-001")

	_, err := env.equipment.Update(ctx, created.ID, dto.UpdateEquipmentDTO{Width: utils.ToPtr(-1.0)})
	require.ErrorIs(t, err, apperrors.ErrValidation)

	current, err := env.equipment.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Width, current.Width)
}

func TestUpdate_NotFound(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.equipment.Update(context.Background(), 7, dto.UpdateEquipmentDTO{Name: utils.ToPtr("x")})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func buildImportFile(t *testing.T, rows [][]interface{}) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cellName, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cellName, &row))
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return bytes.Clone(buf.Bytes())
}

func TestImportEquipment(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.createEquipment(t, "DUP-1")

	file := buildImportFile(t, [][]interface{}{
		{"Реестр оборудования"},
		{"Наименование", "Reference", "Matricule", "Высота", "Ширина", "Длина", "Вес", "Temperature", "Pressure", "Location"},
		{"Насос", "P-1", "IMP-1", "50", "40", "30", "80,5", "0..40", "10 bar", "Склад"},
		{"Насос", "P-2", "IMP-2", "abc", "40", "30", "80", "0..40", "10 bar", "Склад"},
		{},
		{"Насос", "P-3", "DUP-1", "50", "40", "30", "80", "0..40", "10 bar", "Склад"},
	})

	result, err := env.equipment.ImportEquipment(ctx, file)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Created)
	require.Len(t, result.Rejected, 2)
	assert.Equal(t, 4, result.Rejected[0].Row)
	assert.Equal(t, 6, result.Rejected[1].Row)

	list, err := env.equipment.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "IMP-1", list[1].Matricule)
	assert.InDelta(t, 80.5, list[1].Weight, 1e-9)
	assert.InDelta(t, 0.06, list[1].Volume, 1e-9)
}

func TestImportEquipment_HeaderMissing(t *testing.T) {
	env := newTestEnv(t)

	file := buildImportFile(t, [][]interface{}{{"a", "b"}, {"1", "2"}})

	_, err := env.equipment.ImportEquipment(context.Background(), file)
	assert.ErrorIs(t, err, apperrors.ErrBadRequest)
}
