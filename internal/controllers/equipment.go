package controllers

import (
	"bytes"
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"field-equipment/config"
	"field-equipment/internal/dto"
	"field-equipment/internal/services"
	apperrors "field-equipment/pkg/errors"
	"field-equipment/pkg/utils"
)

type EquipmentController struct {
	service         services.EquipmentServiceInterface
	importMaxSizeMB int64
	logger          *zap.Logger
}

func NewEquipmentController(service services.EquipmentServiceInterface, importMaxSizeMB int64, logger *zap.Logger) *EquipmentController {
	return &EquipmentController{service: service, importMaxSizeMB: importMaxSizeMB, logger: logger}
}

func parseIDParam(ctx echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(ctx.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, apperrors.NewHttpError(http.StatusBadRequest, "Неверный формат ID", apperrors.ErrBadRequest,
			map[string]interface{}{name: ctx.Param(name)})
	}
	return id, nil
}

func (c *EquipmentController) List(ctx echo.Context) error {
	result, err := c.service.List(ctx.Request().Context())
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, result, "Список оборудования получен", http.StatusOK)
}

func (c *EquipmentController) GetByID(ctx echo.Context) error {
	id, err := parseIDParam(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	result, err := c.service.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, result, "Оборудование найдено", http.StatusOK)
}

func (c *EquipmentController) Create(ctx echo.Context) error {
	var d dto.CreateEquipmentDTO
	if err := ctx.Bind(&d); err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusBadRequest, "Неверные данные", err, nil), c.logger)
	}
	if err := ctx.Validate(&d); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	result, err := c.service.Create(ctx.Request().Context(), d)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, result, "Оборудование создано", http.StatusCreated)
}

func (c *EquipmentController) Update(ctx echo.Context) error {
	id, err := parseIDParam(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	var d dto.UpdateEquipmentDTO
	if err := ctx.Bind(&d); err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusBadRequest, "Неверные данные", err, nil), c.logger)
	}
	if err := ctx.Validate(&d); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	result, err := c.service.Update(ctx.Request().Context(), id, d)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, result, "Оборудование обновлено", http.StatusOK)
}

func (c *EquipmentController) Import(ctx echo.Context) error {
	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusBadRequest, "Файл не был передан", apperrors.ErrBadRequest, nil), c.logger)
	}

	src, err := fileHeader.Open()
	if err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusInternalServerError, "Ошибка обработки файла", err, nil), c.logger)
	}
	defer src.Close()

	if err := utils.ValidateFile(fileHeader.Filename, fileHeader.Size, src, config.UploadContextEquipmentImport, c.importMaxSizeMB); err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusBadRequest, err.Error(), apperrors.ErrBadRequest, nil), c.logger)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, src); err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewHttpError(http.StatusInternalServerError, "Ошибка чтения файла", err, nil), c.logger)
	}

	result, err := c.service.ImportEquipment(ctx.Request().Context(), buf.Bytes())
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	c.logger.Info("Импорт оборудования", zap.String("file", fileHeader.Filename), zap.Int("created", result.Created))
	return utils.SuccessResponse(ctx, result, "Импорт завершен", http.StatusOK)
}
