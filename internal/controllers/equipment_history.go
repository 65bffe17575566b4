package controllers

import (
	"net/http"
	"sort"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"field-equipment/internal/dto"
	"field-equipment/internal/history"
	"field-equipment/internal/services"
	"field-equipment/pkg/constants"
	apperrors "field-equipment/pkg/errors"
	"field-equipment/pkg/utils"
)

const filterDateLayout = "2006-01-02"

type EquipmentHistoryController struct {
	service services.EquipmentHistoryServiceInterface
	logger  *zap.Logger
}

func NewEquipmentHistoryController(service services.EquipmentHistoryServiceInterface, logger *zap.Logger) *EquipmentHistoryController {
	return &EquipmentHistoryController{service: service, logger: logger}
}

// GetHistory - журнал единицы с фильтром по типу, датам и строке поиска.
func (c *EquipmentHistoryController) GetHistory(ctx echo.Context) error {
	id, err := parseIDParam(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	var f dto.HistoryFilterDTO
	if err := ctx.Bind(&f); err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusBadRequest, "Неверные параметры фильтра", err, nil), c.logger)
	}
	if err := ctx.Validate(&f); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	spec, err := toFilterSpec(f)
	if err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusBadRequest, "Неверный формат даты", err, nil), c.logger)
	}

	result, err := c.service.GetFilteredHistory(ctx.Request().Context(), id, spec)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, result, "История оборудования получена", http.StatusOK)
}

// RecordActivity - с project_label запись закрепляет оборудование за проектом.
func (c *EquipmentHistoryController) RecordActivity(ctx echo.Context) error {
	id, err := parseIDParam(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	var d dto.RecordActivityDTO
	if err := ctx.Bind(&d); err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusBadRequest, "Неверные данные", err, nil), c.logger)
	}
	if err := ctx.Validate(&d); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	result, err := c.service.RecordActivity(ctx.Request().Context(), id, d)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, result, "Запись добавлена в историю", http.StatusCreated)
}

func (c *EquipmentHistoryController) ChangeStatus(ctx echo.Context) error {
	id, err := parseIDParam(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	var d dto.ChangeStatusDTO
	if err := ctx.Bind(&d); err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusBadRequest, "Неверные данные", err, nil), c.logger)
	}
	if err := ctx.Validate(&d); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	result, err := c.service.ChangeStatus(ctx.Request().Context(), id, d)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, result, "Статус оборудования изменен", http.StatusCreated)
}

func (c *EquipmentHistoryController) GetStatus(ctx echo.Context) error {
	id, err := parseIDParam(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	result, err := c.service.GetStatusProjection(ctx.Request().Context(), id)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, result, "Статус оборудования получен", http.StatusOK)
}

func (c *EquipmentHistoryController) Release(ctx echo.Context) error {
	id, err := parseIDParam(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	var d dto.ReleaseAllocationDTO
	if err := ctx.Bind(&d); err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusBadRequest, "Неверные данные", err, nil), c.logger)
	}
	if err := ctx.Validate(&d); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	result, err := c.service.Release(ctx.Request().Context(), id, d)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, result, "Закрепление снято", http.StatusOK)
}

func (c *EquipmentHistoryController) TransitionActivity(ctx echo.Context) error {
	entryID, err := parseIDParam(ctx, "entryID")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	var d dto.TransitionActivityDTO
	if err := ctx.Bind(&d); err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusBadRequest, "Неверные данные", err, nil), c.logger)
	}
	if err := ctx.Validate(&d); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	result, err := c.service.TransitionActivity(ctx.Request().Context(), entryID, d.Status)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, result, "Статус активности изменен", http.StatusOK)
}

func (c *EquipmentHistoryController) ActiveAllocations(ctx echo.Context) error {
	allocated, err := c.service.ActiveAllocations(ctx.Request().Context())
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	result := make([]dto.ShortAllocationDTO, 0, len(allocated))
	for equipmentID, label := range allocated {
		result = append(result, dto.ShortAllocationDTO{EquipmentID: equipmentID, ProjectLabel: label})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].EquipmentID < result[j].EquipmentID })
	return utils.SuccessResponse(ctx, result, "Активные закрепления получены", http.StatusOK)
}

// toFilterSpec: даты без date_filter трактуются как custom.
func toFilterSpec(f dto.HistoryFilterDTO) (history.FilterSpec, error) {
	spec := history.FilterSpec{
		Type:       f.Type,
		DateFilter: f.DateFilter,
		SearchTerm: f.Search,
	}

	parse := func(raw string) (*time.Time, error) {
		if raw == "" {
			return nil, nil
		}
		t, err := time.ParseInLocation(filterDateLayout, raw, time.Local)
		if err != nil {
			return nil, err
		}
		return &t, nil
	}

	var err error
	if spec.From, err = parse(f.From); err != nil {
		return spec, err
	}
	if spec.To, err = parse(f.To); err != nil {
		return spec, err
	}
	if spec.DateFilter == "" && (spec.From != nil || spec.To != nil) {
		spec.DateFilter = constants.DateFilterCustom
	}
	return spec, nil
}
