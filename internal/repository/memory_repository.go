package repository

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/samber/lo"
	"github.com/tempizhere/linkgate/internal/models"
)

type scopedCode struct {
	scope models.Scope
	code  string
}

// MemoryRepository реализует интерфейс Repository в памяти процесса
type MemoryRepository struct {
	mutex   sync.RWMutex
	urls    map[string]models.URL    // id -> запись
	codes   map[scopedCode]string    // (область, код) -> id
	domains map[string]models.Domain // id -> домен
}

// NewMemoryRepository создаёт новый экземпляр MemoryRepository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		urls:    make(map[string]models.URL),
		codes:   make(map[scopedCode]string),
		domains: make(map[string]models.Domain),
	}
}

// FindActiveURL возвращает активную запись по области и коду
func (r *MemoryRepository) FindActiveURL(ctx context.Context, scope models.Scope, shortCode string) (*models.URL, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	id, ok := r.codes[scopedCode{scope: scope, code: shortCode}]
	if !ok {
		return nil, ErrNotFound
	}
	u := r.urls[id]
	if !u.IsActive {
		return nil, ErrNotFound
	}
	return &u, nil
}

// FindVerifiedDomain ищет подтверждённый домен по точному имени хоста
func (r *MemoryRepository) FindVerifiedDomain(ctx context.Context, hostname string) (*models.Domain, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	d, ok := lo.Find(lo.Values(r.domains), func(d models.Domain) bool {
		return d.Verified && strings.EqualFold(d.Domain, hostname)
	})
	if !ok {
		return nil, ErrNotFound
	}
	return &d, nil
}

// CountActiveURLs возвращает число активных ссылок владельца
func (r *MemoryRepository) CountActiveURLs(ctx context.Context, ownerID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return lo.CountBy(lo.Values(r.urls), func(u models.URL) bool {
		return u.OwnerID == ownerID && u.IsActive
	}), nil
}

// ShortCodeExists проверяет, занят ли код в области
func (r *MemoryRepository) ShortCodeExists(ctx context.Context, scope models.Scope, shortCode string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	_, ok := r.codes[scopedCode{scope: scope, code: shortCode}]
	return ok, nil
}

// SaveURL сохраняет новую запись
func (r *MemoryRepository) SaveURL(ctx context.Context, url *models.URL) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mutex.Lock()
	defer r.mutex.Unlock()

	key := scopedCode{scope: url.Scope(), code: url.ShortCode}
	if _, exists := r.codes[key]; exists {
		return ErrShortCodeExists
	}
	r.codes[key] = url.ID
	r.urls[url.ID] = *url
	return nil
}

// GetURL возвращает запись по ID
func (r *MemoryRepository) GetURL(ctx context.Context, id string) (*models.URL, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	u, ok := r.urls[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

// ListURLs возвращает записи владельца, новые первыми
func (r *MemoryRepository) ListURLs(ctx context.Context, ownerID string) ([]models.URL, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	urls := lo.Filter(lo.Values(r.urls), func(u models.URL, _ int) bool {
		return u.OwnerID == ownerID
	})
	sort.Slice(urls, func(i, j int) bool {
		return urls[i].CreatedAt.After(urls[j].CreatedAt)
	})
	return urls, nil
}

// UpdateURL обновляет изменяемые поля записи; код и область не меняются
func (r *MemoryRepository) UpdateURL(ctx context.Context, url *models.URL) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mutex.Lock()
	defer r.mutex.Unlock()

	stored, ok := r.urls[url.ID]
	if !ok {
		return ErrNotFound
	}
	stored.OriginalURL = url.OriginalURL
	stored.ExpiresAt = url.ExpiresAt
	stored.IsActive = url.IsActive
	stored.RedirectType = url.RedirectType
	stored.UpdatedAt = url.UpdatedAt
	r.urls[url.ID] = stored
	return nil
}

// GetDomain возвращает домен по ID
func (r *MemoryRepository) GetDomain(ctx context.Context, id string) (*models.Domain, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	d, ok := r.domains[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &d, nil
}

// SaveDomain сохраняет домен; имя хоста уникально глобально
func (r *MemoryRepository) SaveDomain(ctx context.Context, domain *models.Domain) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for id, d := range r.domains {
		if id != domain.ID && strings.EqualFold(d.Domain, domain.Domain) {
			return ErrDomainExists
		}
	}
	stored := *domain
	stored.Domain = strings.ToLower(stored.Domain)
	r.domains[domain.ID] = stored
	return nil
}

// ListDomains возвращает домены владельца по алфавиту
func (r *MemoryRepository) ListDomains(ctx context.Context, ownerID string) ([]models.Domain, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	domains := lo.Filter(lo.Values(r.domains), func(d models.Domain, _ int) bool {
		return d.OwnerID == ownerID
	})
	sort.Slice(domains, func(i, j int) bool { return domains[i].Domain < domains[j].Domain })
	return domains, nil
}

// DeleteDomain удаляет домен, если на него не ссылается ни одна запись
func (r *MemoryRepository) DeleteDomain(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, ok := r.domains[id]; !ok {
		return ErrNotFound
	}
	inUse := lo.SomeBy(lo.Values(r.urls), func(u models.URL) bool {
		return u.DomainID != nil && *u.DomainID == id
	})
	if inUse {
		return ErrDomainInUse
	}
	delete(r.domains, id)
	return nil
}

// Ping всегда успешен для хранилища в памяти
func (r *MemoryRepository) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Clear очищает хранилище
func (r *MemoryRepository) Clear() {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.urls = make(map[string]models.URL)
	r.codes = make(map[scopedCode]string)
	r.domains = make(map[string]models.Domain)
}
