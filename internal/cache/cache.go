// Package cache содержит кэш разрешения коротких ссылок и формат его записей
package cache

//go:generate mockgen -source=cache.go -destination=mock_cache.go -package=cache

import (
	"context"
	"errors"
	"time"

	"github.com/tempizhere/linkgate/internal/models"
)

// DefaultTTL время жизни записи кэша с момента последней записи
const DefaultTTL = 24 * time.Hour

// ErrMiss возвращается, если ключ отсутствует в кэше
var ErrMiss = errors.New("cache miss")

// LookupCache определяет интерфейс хранилища ключ-значение с ограниченным временем жизни ключей
type LookupCache interface {
	// Get возвращает значение по ключу или ErrMiss
	Get(ctx context.Context, key string) ([]byte, error)
	// Set записывает значение с временем жизни ttl
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete удаляет ключ; отсутствие ключа не считается ошибкой
	Delete(ctx context.Context, key string) error
}

// Key формирует ключ кэша вида short:{scope}:{code}
func Key(scope models.Scope, shortCode string) string {
	if scope == "" {
		scope = models.DefaultScope
	}
	return "short:" + string(scope) + ":" + shortCode
}
