package service

import (
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/tempizhere/linkgate/internal/cache"
	"github.com/tempizhere/linkgate/internal/models"
	"github.com/tempizhere/linkgate/internal/repository"
	"github.com/tempizhere/linkgate/internal/shortcode"
	"go.uber.org/zap"
)

const (
	// DefaultHost хост, запросы к которому всегда разрешаются в области по умолчанию
	DefaultHost           = "localhost"
	DefaultLookupTimeout  = 500 * time.Millisecond
	DefaultPublishTimeout = 2 * time.Second
)

// зарезервированные маршруты, не являющиеся короткими кодами
var reservedPaths = []string{"health", "ping", "api"}

// ClickPublisher публикует событие перехода
type ClickPublisher interface {
	Publish(ctx context.Context, event models.ClickEvent) error
}

// ClientInfo сведения о клиенте для события перехода
type ClientInfo struct {
	IP        string
	UserAgent string
}

// Decision результат разрешения короткой ссылки
type Decision struct {
	URL        string
	HTTPStatus int
	ShortCode  string
	Scope      models.Scope
	CacheHit   bool
}

// ResolverConfig параметры Resolver; нулевые значения заменяются значениями по умолчанию
type ResolverConfig struct {
	DefaultHost    string
	CacheTTL       time.Duration
	LookupTimeout  time.Duration
	PublishTimeout time.Duration
}

// Resolver разрешает пару (хост, путь) в адрес перенаправления по схеме cache-aside
type Resolver struct {
	store     repository.RecordStore
	cache     cache.LookupCache
	publisher ClickPublisher
	cfg       ResolverConfig
	logger    *zap.Logger
	now       func() time.Time
	tasks     sync.WaitGroup
}

// NewResolver создаёт Resolver. publisher может быть nil, тогда события не отправляются.
func NewResolver(store repository.RecordStore, lookupCache cache.LookupCache, publisher ClickPublisher, cfg ResolverConfig, logger *zap.Logger) *Resolver {
	if cfg.DefaultHost == "" {
		cfg.DefaultHost = DefaultHost
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = cache.DefaultTTL
	}
	if cfg.LookupTimeout <= 0 {
		cfg.LookupTimeout = DefaultLookupTimeout
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = DefaultPublishTimeout
	}
	return &Resolver{
		store:     store,
		cache:     lookupCache,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// Resolve возвращает решение о перенаправлении, ErrNotFound, ErrGone
// или ошибку, для которой errors.Is(err, ErrInfrastructure).
// Заполнение кэша и публикация события выполняются в фоне и не зависят от отмены ctx.
func (r *Resolver) Resolve(ctx context.Context, host, path string, client ClientInfo) (*Decision, error) {
	code, ok := parseCode(path)
	if !ok {
		return nil, ErrNotFound
	}

	scope, err := r.scopeFor(ctx, host)
	if err != nil {
		return nil, err
	}

	key := cache.Key(scope, code)
	entry, hit, err := r.lookupCache(ctx, key)
	if err != nil {
		return nil, err
	}
	if !hit {
		var ttl time.Duration
		entry, ttl, err = r.lookupStore(ctx, scope, code)
		if err != nil {
			return nil, err
		}
		r.detach(ctx, "cache_fill", code, scope, r.cfg.LookupTimeout, func(ctx context.Context) error {
			value, err := cache.Encode(entry)
			if err != nil {
				return err
			}
			return r.cache.Set(ctx, key, value, ttl)
		})
	}

	if r.publisher != nil {
		event := models.ClickEvent{
			ShortCode: code,
			DomainID:  scope.DomainID(),
			ClientIP:  client.IP,
			UserAgent: client.UserAgent,
			Timestamp: r.now(),
		}
		r.detach(ctx, "click", code, scope, r.cfg.PublishTimeout, func(ctx context.Context) error {
			return r.publisher.Publish(ctx, event)
		})
	}

	return &Decision{
		URL:        entry.URL,
		HTTPStatus: entry.Type,
		ShortCode:  code,
		Scope:      scope,
		CacheHit:   hit,
	}, nil
}

// Wait ждёт завершения фоновых задач или отмены ctx
func (r *Resolver) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.tasks.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func parseCode(path string) (string, bool) {
	code := strings.TrimPrefix(path, "/")
	if code == "" {
		return "", false
	}
	for _, reserved := range reservedPaths {
		if code == reserved || strings.HasPrefix(code, reserved+"/") {
			return "", false
		}
	}
	return code, shortcode.Validate(code)
}

// NormalizeHost отбрасывает порт и приводит имя хоста к нижнему регистру
func NormalizeHost(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.Trim(host, "[]")
	return strings.ToLower(strings.TrimSuffix(host, "."))
}

func (r *Resolver) scopeFor(ctx context.Context, host string) (models.Scope, error) {
	hostname := NormalizeHost(host)
	if hostname == "" || hostname == r.cfg.DefaultHost {
		return models.DefaultScope, nil
	}

	lookupCtx, cancel := context.WithTimeout(ctx, r.cfg.LookupTimeout)
	defer cancel()

	domain, err := r.store.FindVerifiedDomain(lookupCtx, hostname)
	if errors.Is(err, repository.ErrNotFound) {
		return models.DefaultScope, nil
	}
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", infrastructure("find domain", err)
	}
	return models.Scope(domain.ID), nil
}

// lookupCache возвращает запись кэша; таймаут чтения и повреждённая запись считаются промахом
func (r *Resolver) lookupCache(ctx context.Context, key string) (cache.Entry, bool, error) {
	readCtx, cancel := context.WithTimeout(ctx, r.cfg.LookupTimeout)
	defer cancel()

	raw, err := r.cache.Get(readCtx, key)
	switch {
	case err == nil:
	case errors.Is(err, cache.ErrMiss):
		return cache.Entry{}, false, nil
	case ctx.Err() != nil:
		return cache.Entry{}, false, ctx.Err()
	case isTimeout(err):
		r.logger.Debug("Cache read timed out", zap.String("key", key), zap.Error(err))
		return cache.Entry{}, false, nil
	default:
		return cache.Entry{}, false, infrastructure("read cache", err)
	}

	entry, err := cache.Decode(raw)
	if err != nil {
		r.logger.Warn("Malformed cache entry", zap.String("key", key), zap.Error(err))
		return cache.Entry{}, false, nil
	}
	return entry, true, nil
}

// lookupStore возвращает запись хранилища и время жизни для её записи в кэш
func (r *Resolver) lookupStore(ctx context.Context, scope models.Scope, code string) (cache.Entry, time.Duration, error) {
	readCtx, cancel := context.WithTimeout(ctx, r.cfg.LookupTimeout)
	defer cancel()

	u, err := r.store.FindActiveURL(readCtx, scope, code)
	if errors.Is(err, repository.ErrNotFound) {
		return cache.Entry{}, 0, ErrNotFound
	}
	if err != nil {
		if ctx.Err() != nil {
			return cache.Entry{}, 0, ctx.Err()
		}
		return cache.Entry{}, 0, infrastructure("find url", err)
	}
	ttl, ok := cacheTTL(u, r.now(), r.cfg.CacheTTL)
	if !ok {
		return cache.Entry{}, 0, ErrGone
	}
	return cache.Entry{URL: u.OriginalURL, Type: u.RedirectType.HTTPStatus()}, ttl, nil
}

// cacheTTL ограничивает время жизни записи кэша моментом истечения ссылки.
// ok = false для ссылки, срок которой уже истёк: такую запись кэшировать нельзя.
func cacheTTL(u *models.URL, now time.Time, ttl time.Duration) (time.Duration, bool) {
	if u.IsExpired(now) {
		return 0, false
	}
	if u.ExpiresAt == nil {
		return ttl, true
	}
	left := u.ExpiresAt.Sub(now)
	if left <= 0 {
		return 0, false
	}
	return min(ttl, left), true
}

// detach запускает fn в отдельной горутине с контекстом, не зависящим от отмены запроса
func (r *Resolver) detach(parent context.Context, task, code string, scope models.Scope, timeout time.Duration, fn func(context.Context) error) {
	taskCtx, cancel := context.WithTimeout(context.WithoutCancel(parent), timeout)
	r.tasks.Add(1)
	go func(ctx context.Context) {
		defer r.tasks.Done()
		defer cancel()
		if err := fn(ctx); err != nil {
			r.logger.Warn("Detached task failed",
				zap.String("task", task),
				zap.String("short_code", code),
				zap.String("scope", string(scope)),
				zap.Error(err))
		}
	}(taskCtx)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
