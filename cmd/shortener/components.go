package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tempizhere/linkgate/internal/cache"
	"github.com/tempizhere/linkgate/internal/config"
	"github.com/tempizhere/linkgate/internal/events"
	"github.com/tempizhere/linkgate/internal/repository"
	"go.uber.org/zap"
)

// memoryCacheCleanup период очистки просроченных записей in-process кэша
const memoryCacheCleanup = 10 * time.Minute

// components зависимости сервиса и функции их освобождения
type components struct {
	repo    repository.Repository
	db      repository.Database
	cache   cache.LookupCache
	channel events.EventChannel
	closers []io.Closer
}

// Close освобождает ресурсы в обратном порядке создания
func (c *components) Close(logger *zap.Logger) {
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i].Close(); err != nil {
			logger.Warn("Failed to close resource", zap.Error(err))
		}
	}
}

func newComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (_ *components, err error) {
	c := &components{}
	defer func() {
		if err != nil {
			c.Close(logger)
		}
	}()

	if err := c.openStore(ctx, cfg, logger); err != nil {
		return nil, err
	}

	var redisClient *redis.Client
	if cfg.CacheDriver == config.CacheRedis || cfg.EventDriver == config.EventsRedis {
		redisClient, err = cache.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		c.closers = append(c.closers, redisClient)
	}

	switch cfg.CacheDriver {
	case config.CacheRedis:
		c.cache = cache.NewRedisCache(redisClient)
	default:
		c.cache = cache.NewMemoryCache(memoryCacheCleanup)
	}

	switch cfg.EventDriver {
	case config.EventsRedis:
		c.channel = events.NewRedisStreamChannel(redisClient, cfg.QueueName, events.DefaultStreamMaxLen)
	case config.EventsNATS:
		channel, err := events.NewNATSChannel(cfg.NATSURL, cfg.QueueName, logger)
		if err != nil {
			return nil, err
		}
		c.channel = channel
	default:
		c.channel = events.NewNopChannel(logger)
	}
	c.closers = append(c.closers, c.channel)

	logger.Info("Components initialized",
		zap.String("store", cfg.StoreDriver),
		zap.String("cache", cfg.CacheDriver),
		zap.String("events", cfg.EventDriver))
	return c, nil
}

func (c *components) openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	switch cfg.StoreDriver {
	case config.StorePostgres:
		db, err := repository.OpenPostgres(ctx, cfg.DatabaseDSN, logger)
		if err != nil {
			return fmt.Errorf("open postgres: %w", err)
		}
		c.repo = repository.NewPostgresRepository(db, logger)
		c.db = db
		c.closers = append(c.closers, db)
	case config.StoreSQLite:
		repo, err := repository.OpenSQLite(ctx, cfg.DatabaseDSN, logger)
		if err != nil {
			return fmt.Errorf("open sqlite: %w", err)
		}
		c.repo = repo
		c.db = repo.DB()
		c.closers = append(c.closers, repo)
	default:
		c.repo = repository.NewMemoryRepository()
	}
	return nil
}
