package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/tempizhere/linkgate/internal/models"
	"go.uber.org/zap"
)

// коды ошибок PostgreSQL
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

const urlColumns = "id, short_code, original_url, domain_id, owner_id, expires_at, is_active, redirect_type, created_at, updated_at"

// PostgresRepository реализует интерфейс Repository с использованием PostgreSQL
type PostgresRepository struct {
	db     Database
	logger *zap.Logger
}

// NewPostgresRepository создаёт новый экземпляр PostgresRepository
func NewPostgresRepository(db Database, logger *zap.Logger) *PostgresRepository {
	return &PostgresRepository{
		db:     db,
		logger: logger,
	}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanURL(row rowScanner) (*models.URL, error) {
	var (
		u            models.URL
		domainID     sql.NullString
		expiresAt    sql.NullTime
		redirectType string
	)
	err := row.Scan(&u.ID, &u.ShortCode, &u.OriginalURL, &domainID, &u.OwnerID, &expiresAt,
		&u.IsActive, &redirectType, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if domainID.Valid {
		u.DomainID = &domainID.String
	}
	if expiresAt.Valid {
		t := expiresAt.Time
		u.ExpiresAt = &t
	}
	u.RedirectType = models.RedirectType(redirectType)
	return &u, nil
}

func scanDomain(row rowScanner) (*models.Domain, error) {
	var (
		d          models.Domain
		verifiedAt sql.NullTime
	)
	if err := row.Scan(&d.ID, &d.Domain, &d.OwnerID, &d.Verified, &verifiedAt); err != nil {
		return nil, err
	}
	if verifiedAt.Valid {
		t := verifiedAt.Time
		d.VerifiedAt = &t
	}
	return &d, nil
}

func isUniqueViolation(err error) bool {
	return hasPgCode(err, pgUniqueViolation)
}

func hasPgCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}

func nullableString(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}

// FindActiveURL возвращает активную запись по области и коду
func (r *PostgresRepository) FindActiveURL(ctx context.Context, scope models.Scope, shortCode string) (*models.URL, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+urlColumns+" FROM urls WHERE COALESCE(domain_id::text, 'default') = $1 AND short_code = $2 AND is_active",
		string(scope), shortCode)
	u, err := scanURL(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		r.logger.Error("Failed to find URL", zap.String("scope", string(scope)), zap.String("short_code", shortCode), zap.Error(err))
		return nil, err
	}
	return u, nil
}

// FindVerifiedDomain ищет подтверждённый домен по имени хоста
func (r *PostgresRepository) FindVerifiedDomain(ctx context.Context, hostname string) (*models.Domain, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT id, domain, owner_id, verified, verified_at FROM domains WHERE lower(domain) = $1 AND verified",
		strings.ToLower(hostname))
	d, err := scanDomain(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		r.logger.Error("Failed to find domain", zap.String("domain", hostname), zap.Error(err))
		return nil, err
	}
	return d, nil
}

// CountActiveURLs возвращает число активных ссылок владельца
func (r *PostgresRepository) CountActiveURLs(ctx context.Context, ownerID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM urls WHERE owner_id = $1 AND is_active", ownerID).Scan(&count)
	if err != nil {
		r.logger.Error("Failed to count URLs", zap.String("owner_id", ownerID), zap.Error(err))
		return 0, err
	}
	return count, nil
}

// ShortCodeExists проверяет, занят ли код в области
func (r *PostgresRepository) ShortCodeExists(ctx context.Context, scope models.Scope, shortCode string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM urls WHERE COALESCE(domain_id::text, 'default') = $1 AND short_code = $2)",
		string(scope), shortCode).Scan(&exists)
	if err != nil {
		r.logger.Error("Failed to check short code", zap.String("scope", string(scope)), zap.String("short_code", shortCode), zap.Error(err))
		return false, err
	}
	return exists, nil
}

// SaveURL сохраняет новую запись
func (r *PostgresRepository) SaveURL(ctx context.Context, url *models.URL) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO urls ("+urlColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)",
		url.ID, url.ShortCode, url.OriginalURL, nullableString(url.DomainID), url.OwnerID,
		nullableTime(url.ExpiresAt), url.IsActive, string(url.RedirectType), url.CreatedAt, url.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrShortCodeExists
	}
	if err != nil {
		r.logger.Error("Failed to save URL", zap.String("short_code", url.ShortCode), zap.Error(err))
		return err
	}
	return nil
}

// GetURL возвращает запись по ID
func (r *PostgresRepository) GetURL(ctx context.Context, id string) (*models.URL, error) {
	u, err := scanURL(r.db.QueryRowContext(ctx, "SELECT "+urlColumns+" FROM urls WHERE id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		r.logger.Error("Failed to get URL", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return u, nil
}

// ListURLs возвращает записи владельца, новые первыми
func (r *PostgresRepository) ListURLs(ctx context.Context, ownerID string) ([]models.URL, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+urlColumns+" FROM urls WHERE owner_id = $1 ORDER BY created_at DESC", ownerID)
	if err != nil {
		r.logger.Error("Failed to list URLs", zap.String("owner_id", ownerID), zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var urls []models.URL
	for rows.Next() {
		u, err := scanURL(rows)
		if err != nil {
			return nil, err
		}
		urls = append(urls, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return urls, nil
}

// UpdateURL обновляет изменяемые поля записи
func (r *PostgresRepository) UpdateURL(ctx context.Context, url *models.URL) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE urls SET original_url = $2, expires_at = $3, is_active = $4, redirect_type = $5, updated_at = $6 WHERE id = $1",
		url.ID, url.OriginalURL, nullableTime(url.ExpiresAt), url.IsActive, string(url.RedirectType), url.UpdatedAt)
	if err != nil {
		r.logger.Error("Failed to update URL", zap.String("id", url.ID), zap.Error(err))
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetDomain возвращает домен по ID
func (r *PostgresRepository) GetDomain(ctx context.Context, id string) (*models.Domain, error) {
	d, err := scanDomain(r.db.QueryRowContext(ctx,
		"SELECT id, domain, owner_id, verified, verified_at FROM domains WHERE id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		r.logger.Error("Failed to get domain", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return d, nil
}

// SaveDomain сохраняет домен или обновляет статус подтверждения существующего
func (r *PostgresRepository) SaveDomain(ctx context.Context, domain *models.Domain) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO domains (id, domain, owner_id, verified, verified_at) VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET verified = EXCLUDED.verified, verified_at = EXCLUDED.verified_at`,
		domain.ID, strings.ToLower(domain.Domain), domain.OwnerID, domain.Verified, nullableTime(domain.VerifiedAt))
	if isUniqueViolation(err) {
		return ErrDomainExists
	}
	if err != nil {
		r.logger.Error("Failed to save domain", zap.String("domain", domain.Domain), zap.Error(err))
		return err
	}
	return nil
}

// ListDomains возвращает домены владельца по алфавиту
func (r *PostgresRepository) ListDomains(ctx context.Context, ownerID string) ([]models.Domain, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, domain, owner_id, verified, verified_at FROM domains WHERE owner_id = $1 ORDER BY domain", ownerID)
	if err != nil {
		r.logger.Error("Failed to list domains", zap.String("owner_id", ownerID), zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var domains []models.Domain
	for rows.Next() {
		d, err := scanDomain(rows)
		if err != nil {
			return nil, err
		}
		domains = append(domains, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return domains, nil
}

// DeleteDomain удаляет домен; внешний ключ urls.domain_id не даёт удалить используемый домен
func (r *PostgresRepository) DeleteDomain(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM domains WHERE id = $1", id)
	if hasPgCode(err, pgForeignKeyViolation) {
		return ErrDomainInUse
	}
	if err != nil {
		r.logger.Error("Failed to delete domain", zap.String("id", id), zap.Error(err))
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Ping проверяет соединение с базой данных
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
