package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/tempizhere/linkgate/internal/models"
	"github.com/tempizhere/linkgate/internal/repository"
	"go.uber.org/zap"
)

// verificationPrefix префикс TXT-записи подтверждения домена
const verificationPrefix = "_linkgate."

// Domains регистрирует пользовательские домены. Подтверждение владения выполняет
// внешний сервис: он проверяет TXT-запись и сохраняет домен с Verified = true.
type Domains struct {
	repo        repository.Repository
	defaultHost string
	logger      *zap.Logger
}

// NewDomains создаёт Domains; defaultHost нельзя зарегистрировать как пользовательский домен
func NewDomains(repo repository.Repository, defaultHost string, logger *zap.Logger) *Domains {
	if defaultHost == "" {
		defaultHost = DefaultHost
	}
	return &Domains{repo: repo, defaultHost: NormalizeHost(defaultHost), logger: logger}
}

// NormalizeDomain приводит имя хоста к нижнему регистру и проверяет его синтаксис
func NormalizeDomain(raw string) (string, error) {
	host := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(raw)), ".")
	if len(host) == 0 || len(host) > 253 || !strings.Contains(host, ".") {
		return "", ErrInvalidDomain
	}
	for _, label := range strings.Split(host, ".") {
		if !validLabel(label) {
			return "", ErrInvalidDomain
		}
	}
	return host, nil
}

func validLabel(label string) bool {
	if len(label) == 0 || len(label) > 63 || label[0] == '-' || label[len(label)-1] == '-' {
		return false
	}
	for _, c := range label {
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') && c != '-' {
			return false
		}
	}
	return true
}

// CreateDomain регистрирует неподтверждённый домен владельца
func (s *Domains) CreateDomain(ctx context.Context, ownerID, hostname string) (*models.Domain, error) {
	host, err := NormalizeDomain(hostname)
	if err != nil {
		return nil, err
	}
	if host == s.defaultHost {
		return nil, ErrDomainTaken
	}

	d := &models.Domain{
		ID:      uuid.NewString(),
		Domain:  host,
		OwnerID: ownerID,
	}
	err = s.repo.SaveDomain(ctx, d)
	if errors.Is(err, repository.ErrDomainExists) {
		return nil, ErrDomainTaken
	}
	if err != nil {
		return nil, infrastructure("save domain", err)
	}
	s.logger.Info("Domain registered", zap.String("domain", host), zap.String("owner_id", ownerID))
	return d, nil
}

// GetDomain возвращает домен владельца; чужие и отсутствующие домены дают ErrDomainNotFound
func (s *Domains) GetDomain(ctx context.Context, ownerID, id string) (*models.Domain, error) {
	d, err := s.repo.GetDomain(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrDomainNotFound
	}
	if err != nil {
		return nil, infrastructure("get domain", err)
	}
	if d.OwnerID != ownerID {
		return nil, ErrDomainNotFound
	}
	return d, nil
}

// ListDomains возвращает домены владельца
func (s *Domains) ListDomains(ctx context.Context, ownerID string) ([]models.Domain, error) {
	domains, err := s.repo.ListDomains(ctx, ownerID)
	if err != nil {
		return nil, infrastructure("list domains", err)
	}
	return domains, nil
}

// DeleteDomain удаляет домен владельца, если к нему не привязано ни одной ссылки
func (s *Domains) DeleteDomain(ctx context.Context, ownerID, id string) error {
	if _, err := s.GetDomain(ctx, ownerID, id); err != nil {
		return err
	}
	err := s.repo.DeleteDomain(ctx, id)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrDomainInUse):
		return ErrDomainInUse
	case errors.Is(err, repository.ErrNotFound):
		return ErrDomainNotFound
	default:
		return infrastructure("delete domain", err)
	}
}

// Verification возвращает TXT-запись для подтверждения неподтверждённого домена
func (s *Domains) Verification(d *models.Domain) *models.DomainVerification {
	if d.Verified {
		return nil
	}
	return &models.DomainVerification{
		Type:  "TXT",
		Name:  verificationPrefix + d.Domain,
		Value: "linkgate-verification=" + d.ID,
	}
}
