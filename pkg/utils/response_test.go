package utils

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "field-equipment/pkg/errors"
)

func TestStatusFromError(t *testing.T) {
	verr := apperrors.NewValidationError()
	verr.Add("name", "обязательное поле")

	cases := map[error]int{
		nil:                       http.StatusOK,
		verr:                      http.StatusUnprocessableEntity,
		apperrors.ErrNotFound:     http.StatusNotFound,
		apperrors.ErrConflict:     http.StatusConflict,
		apperrors.ErrBadRequest:   http.StatusBadRequest,
		apperrors.ErrTokenExpired: http.StatusUnauthorized,
		fmt.Errorf("обертка: %w", apperrors.ErrInvalidTransition): http.StatusConflict,
		fmt.Errorf("что-то сломалось"):                                 http.StatusInternalServerError,
	}
	for err, want := range cases {
		assert.Equal(t, want, StatusFromError(err), "%v", err)
	}
}

func TestErrorResponse(t *testing.T) {
	e := echo.New()
	logger := zap.NewNop()

	respond := func(err error) (int, map[string]interface{}) {
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
		require.NoError(t, ErrorResponse(c, err, logger))

		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		return rec.Code, body
	}

	verr := apperrors.NewValidationError()
	verr.Add("height", "должно быть больше 0")
	code, body := respond(fmt.Errorf("создание: %w", verr))
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, map[string]interface{}{"height": "должно быть больше 0"}, body["body"])

	code, body = respond(apperrors.NewHttpError(http.StatusBadRequest, "Неверный формат ID", apperrors.ErrBadRequest, nil))
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Неверный формат ID", body["message"])

	code, body = respond(fmt.Errorf("pg: connection reset"))
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "Внутренняя ошибка сервера", body["message"])
	assert.Equal(t, false, body["status"])
}
