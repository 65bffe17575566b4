// Файл: pkg/customvalidator/validator.go

package customvalidator

import (
	"reflect"
	"slices"

	"github.com/go-playground/validator/v10"

	"field-equipment/pkg/constants"
)

// RegisterCustomValidations регистрирует доменные правила в переданном валидаторе.
func RegisterCustomValidations(v *validator.Validate) error {
	RegisterNullTypes(v)

	rules := map[string]validator.Func{
		"equipment_status": isEquipmentStatus,
		"history_type":     isHistoryType,
		"activity_status":  isActivityStatus,
		"date_filter":      isDateFilter,
	}
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return err
		}
	}
	return nil
}

func stringValue(fl validator.FieldLevel) (string, bool) {
	field := fl.Field()
	switch field.Kind() {
	case reflect.String:
		return field.String(), true
	case reflect.Ptr:
		if field.IsNil() {
			return "", false
		}
		return field.Elem().String(), true
	}
	return "", false
}

func isEquipmentStatus(fl validator.FieldLevel) bool {
	s, ok := stringValue(fl)
	return !ok || s == "" || constants.IsEquipmentStatus(s)
}

func isHistoryType(fl validator.FieldLevel) bool {
	s, ok := stringValue(fl)
	return !ok || s == "" || constants.IsHistoryType(s)
}

func isActivityStatus(fl validator.FieldLevel) bool {
	s, ok := stringValue(fl)
	return !ok || s == "" || constants.IsActivityStatus(s)
}

func isDateFilter(fl validator.FieldLevel) bool {
	s, ok := stringValue(fl)
	return !ok || s == "" || slices.Contains(constants.DateFilters, s)
}
