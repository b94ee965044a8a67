// Package models содержит доменные типы сервиса коротких ссылок
package models

import (
	"time"
)

// DefaultScope обозначает область коротких кодов без привязки к домену
const DefaultScope Scope = "default"

// Scope задаёт пространство имён, в котором короткий код уникален: ID домена или DefaultScope
type Scope string

// ScopeOf возвращает область для необязательного ID домена
func ScopeOf(domainID *string) Scope {
	if domainID == nil || *domainID == "" {
		return DefaultScope
	}
	return Scope(*domainID)
}

// DomainID возвращает ID домена или nil для области по умолчанию
func (s Scope) DomainID() *string {
	if s == DefaultScope || s == "" {
		return nil
	}
	id := string(s)
	return &id
}

// RedirectType определяет тип HTTP-редиректа
type RedirectType string

const (
	// RedirectPermanent отдаётся как 301
	RedirectPermanent RedirectType = "PERMANENT"
	// RedirectTemporary отдаётся как 302
	RedirectTemporary RedirectType = "TEMPORARY"
)

// Valid сообщает, является ли значение известным типом редиректа
func (t RedirectType) Valid() bool {
	return t == RedirectPermanent || t == RedirectTemporary
}

// HTTPStatus возвращает код ответа для типа редиректа
func (t RedirectType) HTTPStatus() int {
	if t == RedirectPermanent {
		return 301
	}
	return 302
}

// URL представляет запись короткой ссылки
type URL struct {
	ID           string       `json:"id" db:"id"`
	ShortCode    string       `json:"short_code" db:"short_code"`
	OriginalURL  string       `json:"original_url" db:"original_url"`
	DomainID     *string      `json:"domain_id,omitempty" db:"domain_id"`
	OwnerID      string       `json:"owner_id" db:"owner_id"`
	ExpiresAt    *time.Time   `json:"expires_at,omitempty" db:"expires_at"`
	IsActive     bool         `json:"is_active" db:"is_active"`
	RedirectType RedirectType `json:"redirect_type" db:"redirect_type"`
	CreatedAt    time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at" db:"updated_at"`
}

// Scope возвращает область уникальности короткого кода записи
func (u *URL) Scope() Scope {
	return ScopeOf(u.DomainID)
}

// IsExpired проверяет, истёк ли срок действия ссылки на момент now
func (u *URL) IsExpired(now time.Time) bool {
	return u.ExpiresAt != nil && u.ExpiresAt.Before(now)
}

// Domain представляет пользовательский домен
type Domain struct {
	ID         string     `json:"id" db:"id"`
	Domain     string     `json:"domain" db:"domain"`
	OwnerID    string     `json:"owner_id" db:"owner_id"`
	Verified   bool       `json:"verified" db:"verified"`
	VerifiedAt *time.Time `json:"verified_at,omitempty" db:"verified_at"`
}

// ClickEvent описывает факт перехода по короткой ссылке в момент постановки в очередь
type ClickEvent struct {
	ShortCode string
	DomainID  *string
	ClientIP  string
	UserAgent string
	Timestamp time.Time
}

// CreateURLRequest тело запроса на создание ссылки
type CreateURLRequest struct {
	OriginalURL  string       `json:"original_url"`
	ShortCode    string       `json:"short_code,omitempty"`
	DomainID     *string      `json:"domain_id,omitempty"`
	ExpiresAt    *time.Time   `json:"expires_at,omitempty"`
	RedirectType RedirectType `json:"redirect_type,omitempty"`
}

// UpdateURLRequest тело запроса на изменение ссылки.
// ExpiresAt со значением null снимает срок действия, отсутствие поля оставляет его без изменений.
type UpdateURLRequest struct {
	OriginalURL  *string       `json:"original_url,omitempty"`
	ExpiresAt    OptionalTime  `json:"expires_at"`
	IsActive     *bool         `json:"is_active,omitempty"`
	RedirectType *RedirectType `json:"redirect_type,omitempty"`
}

// ShortURLResponse ответ с созданной ссылкой
type ShortURLResponse struct {
	ShortURL string `json:"short_url"`
	URL      *URL   `json:"url"`
}

// CreateDomainRequest тело запроса на регистрацию домена
type CreateDomainRequest struct {
	Domain string `json:"domain"`
}

// DomainVerification DNS-запись, по которой внешний сервис подтверждает владение доменом
type DomainVerification struct {
	Type  string `json:"type"`
	Name  string `json:"name"`
	Value string `json:"value"`
}

// DomainResponse домен с инструкцией по подтверждению
type DomainResponse struct {
	Domain
	Verification *DomainVerification `json:"verification,omitempty"`
}

// ErrorResponse тело ответа с ошибкой
type ErrorResponse struct {
	Error string `json:"error"`
}
