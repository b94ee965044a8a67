package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/tempizhere/linkgate/internal/auth"
	"github.com/tempizhere/linkgate/internal/models"
	"go.uber.org/zap"
)

type contextKey string

const (
	ownerIDKey  contextKey = "ownerID"
	clientIPKey contextKey = "clientIP"
)

// BearerToken извлекает токен из заголовка Authorization: Bearer <token>
func BearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// AuthMiddleware требует действительный JWT и кладёт ID владельца в контекст запроса
func AuthMiddleware(secret string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := BearerToken(r.Header.Get("Authorization"))
			if !ok {
				writeUnauthorized(w)
				return
			}
			ownerID, err := auth.ParseToken(token, secret)
			if err != nil {
				logger.Warn("Invalid JWT token", zap.String("uri", r.RequestURI), zap.Error(err))
				writeUnauthorized(w)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithOwnerID(r.Context(), ownerID)))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="linkgate"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(models.ErrorResponse{Error: "Unauthorized"})
}

// WithOwnerID возвращает контекст с ID владельца
func WithOwnerID(ctx context.Context, ownerID string) context.Context {
	return context.WithValue(ctx, ownerIDKey, ownerID)
}

// GetOwnerID извлекает ID владельца из контекста запроса
func GetOwnerID(r *http.Request) (string, bool) {
	ownerID, ok := r.Context().Value(ownerIDKey).(string)
	return ownerID, ok && ownerID != ""
}
