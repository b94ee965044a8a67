// Package middleware содержит HTTP middleware: аутентификацию,
// логирование и определение адреса клиента за доверенным прокси.
package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// ClientIPMiddleware определяет адрес клиента и кладёт его в контекст.
// Заголовки X-Real-IP и X-Forwarded-For учитываются, только если запрос пришёл
// из доверенной подсети trustedSubnet (CIDR); пустая подсеть означает, что прокси нет.
func ClientIPMiddleware(trustedSubnet string, logger *zap.Logger) func(http.Handler) http.Handler {
	var network *net.IPNet
	if trustedSubnet != "" {
		_, parsed, err := net.ParseCIDR(trustedSubnet)
		if err != nil {
			logger.Error("Invalid trusted_subnet CIDR, proxy headers are ignored",
				zap.String("trusted_subnet", trustedSubnet),
				zap.Error(err))
		} else {
			network = parsed
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := ClientIP(r, network)
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), clientIPKey, ip)))
		})
	}
}

// ClientIP возвращает адрес клиента: адрес соединения или, для доверенного прокси, адрес из заголовков
func ClientIP(r *http.Request, trusted *net.IPNet) string {
	remote := r.RemoteAddr
	if host, _, err := net.SplitHostPort(remote); err == nil {
		remote = host
	}
	if trusted == nil {
		return remote
	}
	peer := net.ParseIP(remote)
	if peer == nil || !trusted.Contains(peer) {
		return remote
	}

	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); net.ParseIP(realIP) != nil {
		return realIP
	}
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); net.ParseIP(ip) != nil {
			return ip
		}
	}
	return remote
}

// GetClientIP извлекает адрес клиента из контекста запроса
func GetClientIP(r *http.Request) string {
	if ip, ok := r.Context().Value(clientIPKey).(string); ok {
		return ip
	}
	return ClientIP(r, nil)
}
