// Файл: pkg/utils/context_utils.go

package utils

import (
	"context"

	"field-equipment/pkg/contextkeys"
)

// GetUserIDFromCtx возвращает ID пользователя, положенный AuthMiddleware.
func GetUserIDFromCtx(ctx context.Context) (uint64, bool) {
	userID, ok := ctx.Value(contextkeys.UserIDKey).(uint64)
	if !ok || userID == 0 {
		return 0, false
	}
	return userID, true
}

// GetUserIDPtrFromCtx - то же самое, но для nullable-колонок created_by.
func GetUserIDPtrFromCtx(ctx context.Context) *uint64 {
	if id, ok := GetUserIDFromCtx(ctx); ok {
		return &id
	}
	return nil
}

func WithUserID(ctx context.Context, userID uint64) context.Context {
	return context.WithValue(ctx, contextkeys.UserIDKey, userID)
}
