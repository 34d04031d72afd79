package rest

import (
	"import-service/internal/contextkeys"
	"import-service/internal/core/port"
	"net/http"

	"github.com/google/uuid"
)

// AuthMiddleware извлекает идентификатор пользователя из заголовка X-User-ID.
// Аутентификацию выполняет шлюз, сервис только доверяет заголовку.
// Логгер запроса дальше по цепочке несет поле user_id.
func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userIDStr := r.Header.Get("X-User-ID")
		if userIDStr == "" {
			WriteJSONError(w, http.StatusUnauthorized, "X-User-ID header is missing")
			return
		}

		userID, err := uuid.Parse(userIDStr)
		if err != nil || userID == uuid.Nil {
			WriteJSONError(w, http.StatusUnauthorized, "Invalid X-User-ID header format")
			return
		}

		ctx := contextkeys.ContextWithUserID(r.Context(), userID)
		logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{"user_id": userID.String()})
		ctx = contextkeys.ContextWithLogger(ctx, logger)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
