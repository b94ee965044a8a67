// Package proto содержит сообщения и описание gRPC сервиса linkgate.v1.Redirector
package proto

import "time"

// ResolveRequest запрос на разрешение короткой ссылки
type ResolveRequest struct {
	Host      string `json:"host"`
	Path      string `json:"path"`
	ClientIP  string `json:"client_ip,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
}

// ResolveResponse решение о перенаправлении
type ResolveResponse struct {
	URL        string `json:"url"`
	HTTPStatus int32  `json:"http_status"`
	ShortCode  string `json:"short_code"`
	Scope      string `json:"scope"`
	CacheHit   bool   `json:"cache_hit"`
}

// CreateURLRequest запрос на создание короткой ссылки
type CreateURLRequest struct {
	OriginalURL  string     `json:"original_url"`
	ShortCode    string     `json:"short_code,omitempty"`
	DomainID     string     `json:"domain_id,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	RedirectType string     `json:"redirect_type,omitempty"`
}

// CreateURLResponse созданная ссылка
type CreateURLResponse struct {
	ID        string `json:"id"`
	ShortCode string `json:"short_code"`
	ShortURL  string `json:"short_url"`
}

// PingRequest представляет запрос проверки состояния
type PingRequest struct{}

// PingResponse представляет ответ проверки состояния
type PingResponse struct {
	DatabaseAvailable bool `json:"database_available"`
}
