package service

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound нет активной записи для области и кода
	ErrNotFound = errors.New("URL not found")
	// ErrGone запись найдена, но срок её действия истёк
	ErrGone = errors.New("URL has expired")
	// ErrGenerationExhausted все попытки подобрать свободный код закончились коллизией
	ErrGenerationExhausted = errors.New("failed to generate unique short code")
	// ErrInfrastructure сбой кэша или хранилища; исходная ошибка доступна через errors.Is/As
	ErrInfrastructure      = errors.New("infrastructure failure")
	ErrShortCodeTaken      = errors.New("short code already exists")
	ErrInvalidShortCode    = errors.New("invalid short code")
	ErrInvalidURL          = errors.New("invalid URL")
	ErrInvalidRedirectType = errors.New("invalid redirect type")
	// ErrPlanLimit достигнут лимит активных ссылок бесплатного тарифа
	ErrPlanLimit         = errors.New("free plan limit reached")
	ErrDomainNotVerified = errors.New("domain not found or not verified")

	ErrInvalidDomain  = errors.New("invalid domain")
	ErrDomainTaken    = errors.New("domain already registered")
	ErrDomainNotFound = errors.New("domain not found")
	// ErrDomainInUse к домену привязаны ссылки, удалить его нельзя
	ErrDomainInUse = errors.New("cannot delete domain with URLs")
)

func infrastructure(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrInfrastructure, op, err)
}
