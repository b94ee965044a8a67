package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache реализует LookupCache в памяти процесса
type MemoryCache struct {
	store *gocache.Cache
}

// NewMemoryCache создаёт кэш в памяти с периодической очисткой просроченных ключей
func NewMemoryCache(cleanupInterval time.Duration) *MemoryCache {
	if cleanupInterval <= 0 {
		cleanupInterval = 10 * time.Minute
	}
	return &MemoryCache{
		store: gocache.New(DefaultTTL, cleanupInterval),
	}
}

// Get возвращает копию значения по ключу
func (c *MemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v, ok := c.store.Get(key)
	if !ok {
		return nil, ErrMiss
	}
	value := v.([]byte)
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

// Set записывает копию значения с временем жизни ttl
func (c *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	stored := make([]byte, len(value))
	copy(stored, value)
	c.store.Set(key, stored, ttl)
	return nil
}

// Delete удаляет ключ
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.store.Delete(key)
	return nil
}

// Flush очищает кэш
func (c *MemoryCache) Flush() {
	c.store.Flush()
}
