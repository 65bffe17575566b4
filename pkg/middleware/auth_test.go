package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"field-equipment/pkg/service"
	"field-equipment/pkg/utils"
)

func TestAuth(t *testing.T) {
	jwtSvc := service.NewJWTService("secret")
	mw := NewAuthMiddleware(jwtSvc, zap.NewNop())

	var gotUserID uint64
	handler := mw.Auth(func(c echo.Context) error {
		gotUserID, _ = utils.GetUserIDFromCtx(c.Request().Context())
		return c.NoContent(http.StatusNoContent)
	})

	token, err := jwtSvc.GenerateToken(9, time.Hour)
	require.NoError(t, err)

	cases := []struct {
		name   string
		header string
		code   int
	}{
		{name: "без заголовка", header: "", code: http.StatusUnauthorized},
		{name: "не Bearer", header: "Basic abc", code: http.StatusUnauthorized},
		{name: "битый токен", header: "Bearer abc", code: http.StatusUnauthorized},
		{name: "валидный токен", header: "Bearer " + token, code: http.StatusNoContent},
	}

	e := echo.New()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set(echo.HeaderAuthorization, tc.header)
			}
			rec := httptest.NewRecorder()

			require.NoError(t, handler(e.NewContext(req, rec)))
			assert.Equal(t, tc.code, rec.Code)
		})
	}
	assert.Equal(t, uint64(9), gotUserID)
}
