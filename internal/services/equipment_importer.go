package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"field-equipment/internal/dto"
	apperrors "field-equipment/pkg/errors"
)

// importColumns - подстроки заголовков, по которым находится каждая колонка.
var importColumns = map[string][]string{
	"name":        {"name", "наименование", "название"},
	"reference":   {"reference", "референс", "артикул"},
	"matricule":   {"matricule", "матрикул", "инв"},
	"height":      {"height", "высота"},
	"width":       {"width", "ширина"},
	"length":      {"length", "длина"},
	"weight":      {"weight", "вес"},
	"temperature": {"temperature", "температур"},
	"pressure":    {"pressure", "давлен"},
	"location":    {"location", "местоположение", "локация"},
	"status":      {"status", "статус"},
}

// обязательные колонки; status необязательна
var requiredImportColumns = []string{"name", "reference", "matricule", "height", "width", "length", "weight", "temperature", "pressure", "location"}

// ImportEquipment читает первую страницу xlsx и создает оборудование построчно.
// Невалидные строки и дубликаты попадают в Rejected, остальные создаются.
func (s *EquipmentService) ImportEquipment(ctx context.Context, file []byte) (*dto.EquipmentImportResultDTO, error) {
	f, err := excelize.OpenReader(bytes.NewReader(file))
	if err != nil {
		return nil, fmt.Errorf("%w: ошибка открытия файла: %v", apperrors.ErrBadRequest, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: в файле нет листов", apperrors.ErrBadRequest)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: ошибка чтения листа: %v", apperrors.ErrBadRequest, err)
	}

	headerRow, columns := findImportHeader(rows)
	if headerRow == -1 {
		return nil, fmt.Errorf("%w: не найдена шапка таблицы, ожидаются колонки %s",
			apperrors.ErrBadRequest, strings.Join(requiredImportColumns, ", "))
	}
	s.logger.Info("Заголовки импорта найдены", zap.Int("row", headerRow+1), zap.String("sheet", sheets[0]))

	result := &dto.EquipmentImportResultDTO{Rejected: make([]dto.ImportRowErrorDTO, 0)}
	for i := headerRow + 1; i < len(rows); i++ {
		row := rows[i]
		lineNum := i + 1
		if isEmptyRow(row) {
			continue
		}

		data, err := parseImportRow(row, columns)
		if err == nil {
			_, err = s.Create(ctx, data)
		}
		if err != nil {
			if !errors.Is(err, apperrors.ErrValidation) && !errors.Is(err, apperrors.ErrConflict) {
				return nil, fmt.Errorf("импорт прерван на строке %d: %w", lineNum, err)
			}
			s.metrics.ImportRow(false)
			result.Rejected = append(result.Rejected, dto.ImportRowErrorDTO{Row: lineNum, Message: err.Error()})
			continue
		}
		s.metrics.ImportRow(true)
		result.Created++
	}

	s.logger.Info("Импорт оборудования завершен",
		zap.Int("created", result.Created),
		zap.Int("rejected", len(result.Rejected)),
	)
	return result, nil
}

func findImportHeader(rows [][]string) (int, map[string]int) {
	for rIdx, row := range rows {
		columns := make(map[string]int)
		for cIdx, cell := range row {
			name := strings.ToLower(strings.TrimSpace(cell))
			if name == "" {
				continue
			}
			for field, keys := range importColumns {
				if _, taken := columns[field]; taken {
					continue
				}
				for _, key := range keys {
					if strings.Contains(name, key) {
						columns[field] = cIdx
						break
					}
				}
			}
		}

		complete := true
		for _, field := range requiredImportColumns {
			if _, ok := columns[field]; !ok {
				complete = false
				break
			}
		}
		if complete {
			return rIdx, columns
		}
	}
	return -1, nil
}

func parseImportRow(row []string, columns map[string]int) (dto.CreateEquipmentDTO, error) {
	verr := apperrors.NewValidationError()
	number := func(field string) float64 {
		raw := strings.ReplaceAll(cell(row, columns, field), ",", ".")
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			verr.Add(field, fmt.Sprintf("не число: %q", raw))
		}
		return v
	}

	data := dto.CreateEquipmentDTO{
		Name:        cell(row, columns, "name"),
		Reference:   cell(row, columns, "reference"),
		Matricule:   cell(row, columns, "matricule"),
		Height:      number("height"),
		Width:       number("width"),
		Length:      number("length"),
		Weight:      number("weight"),
		Temperature: cell(row, columns, "temperature"),
		Pressure:    cell(row, columns, "pressure"),
		Location:    cell(row, columns, "location"),
		Status:      cell(row, columns, "status"),
	}
	return data, verr.OrNil()
}

func cell(row []string, columns map[string]int, field string) string {
	idx, ok := columns[field]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func isEmptyRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
