package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/iudanet/deltasync/internal/server/handlers"
)

// AuthMiddleware создает middleware для проверки JWT токена пира.
// Если секрет не задан, проверка отключена и запрос передается дальше как есть.
func AuthMiddleware(logger *slog.Logger, jwtConfig handlers.JWTConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !jwtConfig.Enabled() {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Извлекаем токен из заголовка Authorization
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.Warn("Missing Authorization header", "path", r.URL.Path)
				writeJSONError(w, http.StatusUnauthorized, "missing token")
				return
			}

			// Ожидаем формат: "Bearer <token>"
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
				logger.Warn("Invalid Authorization header format")
				writeJSONError(w, http.StatusUnauthorized, "invalid token format")
				return
			}

			claims, err := handlers.ValidateAccessToken(jwtConfig, parts[1])
			if err != nil {
				logger.Warn("Invalid access token", "error", err)
				writeJSONError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), handlers.PeerIDKey, claims.PeerID)
			ctx = context.WithValue(ctx, handlers.CollaborationKey, claims.Collaboration)
			annotate(ctx, claims.PeerID, claims.Collaboration)

			logger.Debug("Peer authenticated", "peer_id", claims.PeerID, "collaboration", claims.Collaboration)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
