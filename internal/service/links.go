package service

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tempizhere/linkgate/internal/cache"
	"github.com/tempizhere/linkgate/internal/models"
	"github.com/tempizhere/linkgate/internal/repository"
	"github.com/tempizhere/linkgate/internal/shortcode"
	"go.uber.org/zap"
)

const (
	// DefaultMaxGenerateAttempts число попыток подобрать свободный код
	DefaultMaxGenerateAttempts = 5
	// DefaultFreePlanLimit лимит активных ссылок бесплатного тарифа
	DefaultFreePlanLimit = 10
)

// CodeGenerator выдаёт случайные короткие коды
type CodeGenerator interface {
	Generate() (string, error)
}

// LinksConfig параметры Links. FreePlanLimit = 0 отключает лимит.
type LinksConfig struct {
	BaseURL             string
	CacheTTL            time.Duration
	FreePlanLimit       int
	MaxGenerateAttempts int
	ShortCodeLength     int
}

// Links управляет записями коротких ссылок и инвалидирует кэш при их изменении
type Links struct {
	repo      repository.Repository
	cache     cache.LookupCache
	generator CodeGenerator
	cfg       LinksConfig
	logger    *zap.Logger
	now       func() time.Time
}

// NewLinks создаёт Links
func NewLinks(repo repository.Repository, lookupCache cache.LookupCache, cfg LinksConfig, logger *zap.Logger) *Links {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = cache.DefaultTTL
	}
	if cfg.MaxGenerateAttempts <= 0 {
		cfg.MaxGenerateAttempts = DefaultMaxGenerateAttempts
	}
	if cfg.FreePlanLimit < 0 {
		cfg.FreePlanLimit = 0
	}
	return &Links{
		repo:      repo,
		cache:     lookupCache,
		generator: shortcode.NewGenerator(cfg.ShortCodeLength),
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// WithGenerator подменяет генератор кодов
func (s *Links) WithGenerator(g CodeGenerator) *Links {
	s.generator = g
	return s
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return ErrInvalidURL
	}
	return nil
}

// CreateURL создаёт ссылку владельца ownerID
func (s *Links) CreateURL(ctx context.Context, ownerID string, req models.CreateURLRequest) (*models.URL, error) {
	if err := validateURL(req.OriginalURL); err != nil {
		return nil, err
	}
	redirectType := req.RedirectType
	if redirectType == "" {
		redirectType = models.RedirectPermanent
	}
	if !redirectType.Valid() {
		return nil, ErrInvalidRedirectType
	}

	if s.cfg.FreePlanLimit > 0 {
		count, err := s.repo.CountActiveURLs(ctx, ownerID)
		if err != nil {
			return nil, infrastructure("count urls", err)
		}
		if count >= s.cfg.FreePlanLimit {
			return nil, ErrPlanLimit
		}
	}

	scope := models.ScopeOf(req.DomainID)
	if scope != models.DefaultScope {
		domain, err := s.repo.GetDomain(ctx, string(scope))
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrDomainNotVerified
		}
		if err != nil {
			return nil, infrastructure("get domain", err)
		}
		if domain.OwnerID != ownerID || !domain.Verified {
			return nil, ErrDomainNotVerified
		}
	}

	now := s.now().UTC()
	record := &models.URL{
		ID:           uuid.NewString(),
		OriginalURL:  req.OriginalURL,
		DomainID:     scope.DomainID(),
		OwnerID:      ownerID,
		ExpiresAt:    req.ExpiresAt,
		IsActive:     true,
		RedirectType: redirectType,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	var err error
	if req.ShortCode != "" {
		err = s.saveCustom(ctx, record, req.ShortCode)
	} else {
		err = s.saveGenerated(ctx, record)
	}
	if err != nil {
		return nil, err
	}

	s.writeCache(ctx, record)
	return record, nil
}

func (s *Links) saveCustom(ctx context.Context, record *models.URL, code string) error {
	if !shortcode.Validate(code) {
		return ErrInvalidShortCode
	}
	exists, err := s.repo.ShortCodeExists(ctx, record.Scope(), code)
	if err != nil {
		return infrastructure("check short code", err)
	}
	if exists {
		return ErrShortCodeTaken
	}
	record.ShortCode = code
	err = s.repo.SaveURL(ctx, record)
	if errors.Is(err, repository.ErrShortCodeExists) {
		return ErrShortCodeTaken
	}
	if err != nil {
		return infrastructure("save url", err)
	}
	return nil
}

// saveGenerated подбирает свободный код не более MaxGenerateAttempts раз
func (s *Links) saveGenerated(ctx context.Context, record *models.URL) error {
	for attempt := 1; attempt <= s.cfg.MaxGenerateAttempts; attempt++ {
		code, err := s.generator.Generate()
		if err != nil {
			return err
		}
		exists, err := s.repo.ShortCodeExists(ctx, record.Scope(), code)
		if err != nil {
			return infrastructure("check short code", err)
		}
		if exists {
			s.logger.Debug("Short code collision", zap.String("short_code", code), zap.Int("attempt", attempt))
			continue
		}
		record.ShortCode = code
		err = s.repo.SaveURL(ctx, record)
		if errors.Is(err, repository.ErrShortCodeExists) {
			s.logger.Debug("Short code taken concurrently", zap.String("short_code", code), zap.Int("attempt", attempt))
			continue
		}
		if err != nil {
			return infrastructure("save url", err)
		}
		return nil
	}
	record.ShortCode = ""
	return ErrGenerationExhausted
}

// GetURL возвращает ссылку владельца; чужие и отсутствующие записи дают ErrNotFound
func (s *Links) GetURL(ctx context.Context, ownerID, id string) (*models.URL, error) {
	u, err := s.repo.GetURL(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, infrastructure("get url", err)
	}
	if u.OwnerID != ownerID {
		return nil, ErrNotFound
	}
	return u, nil
}

// ListURLs возвращает ссылки владельца, новые первыми
func (s *Links) ListURLs(ctx context.Context, ownerID string) ([]models.URL, error) {
	urls, err := s.repo.ListURLs(ctx, ownerID)
	if err != nil {
		return nil, infrastructure("list urls", err)
	}
	return urls, nil
}

// UpdateURL применяет изменения и удаляет запись кэша
func (s *Links) UpdateURL(ctx context.Context, ownerID, id string, req models.UpdateURLRequest) (*models.URL, error) {
	u, err := s.GetURL(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	if req.OriginalURL != nil {
		if err := validateURL(*req.OriginalURL); err != nil {
			return nil, err
		}
		u.OriginalURL = *req.OriginalURL
	}
	if req.RedirectType != nil {
		if !req.RedirectType.Valid() {
			return nil, ErrInvalidRedirectType
		}
		u.RedirectType = *req.RedirectType
	}
	if req.ExpiresAt.Set {
		u.ExpiresAt = req.ExpiresAt.Value
	}
	if req.IsActive != nil {
		u.IsActive = *req.IsActive
	}
	if err := s.persist(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// DeactivateURL помечает ссылку неактивной и удаляет запись кэша
func (s *Links) DeactivateURL(ctx context.Context, ownerID, id string) error {
	u, err := s.GetURL(ctx, ownerID, id)
	if err != nil {
		return err
	}
	u.IsActive = false
	return s.persist(ctx, u)
}

func (s *Links) persist(ctx context.Context, u *models.URL) error {
	u.UpdatedAt = s.now().UTC()
	err := s.repo.UpdateURL(ctx, u)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return infrastructure("update url", err)
	}
	s.invalidate(ctx, u)
	return nil
}

// writeCache кэширует новую ссылку; истёкшая ссылка не кэшируется
func (s *Links) writeCache(ctx context.Context, u *models.URL) {
	ttl, ok := cacheTTL(u, s.now(), s.cfg.CacheTTL)
	if !ok || !u.IsActive {
		return
	}
	value, err := cache.Encode(cache.Entry{URL: u.OriginalURL, Type: u.RedirectType.HTTPStatus()})
	if err == nil {
		err = s.cache.Set(ctx, cache.Key(u.Scope(), u.ShortCode), value, ttl)
	}
	if err != nil {
		s.logger.Warn("Failed to cache URL", zap.String("short_code", u.ShortCode), zap.String("scope", string(u.Scope())), zap.Error(err))
	}
}

func (s *Links) invalidate(ctx context.Context, u *models.URL) {
	if err := s.cache.Delete(ctx, cache.Key(u.Scope(), u.ShortCode)); err != nil {
		s.logger.Warn("Failed to invalidate cache", zap.String("short_code", u.ShortCode), zap.String("scope", string(u.Scope())), zap.Error(err))
	}
}

// ShortURL возвращает полный короткий адрес: для пользовательского домена https://<домен>/<код>
func (s *Links) ShortURL(ctx context.Context, u *models.URL) string {
	if u.DomainID != nil {
		domain, err := s.repo.GetDomain(ctx, *u.DomainID)
		if err == nil {
			return "https://" + domain.Domain + "/" + u.ShortCode
		}
		s.logger.Warn("Failed to load domain for short URL", zap.String("domain_id", *u.DomainID), zap.Error(err))
	}
	return strings.TrimRight(s.cfg.BaseURL, "/") + "/" + u.ShortCode
}
