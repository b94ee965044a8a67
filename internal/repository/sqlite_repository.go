package repository

import (
	"context"
	"database/sql"
	"net/url"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	"github.com/tempizhere/linkgate/internal/models"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS domains (
	id TEXT PRIMARY KEY,
	domain TEXT UNIQUE NOT NULL,
	owner_id TEXT NOT NULL,
	verified INTEGER NOT NULL DEFAULT 0,
	verified_at TEXT
);

CREATE TABLE IF NOT EXISTS urls (
	id TEXT PRIMARY KEY,
	scope TEXT NOT NULL,
	short_code TEXT NOT NULL,
	original_url TEXT NOT NULL,
	domain_id TEXT REFERENCES domains(id),
	owner_id TEXT NOT NULL,
	expires_at TEXT,
	is_active INTEGER NOT NULL DEFAULT 1,
	redirect_type TEXT NOT NULL DEFAULT 'PERMANENT',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	UNIQUE(scope, short_code)
);

CREATE INDEX IF NOT EXISTS idx_urls_owner ON urls(owner_id, is_active);
`

// urlRow строка таблицы urls; время хранится строкой
type urlRow struct {
	ID           string         `db:"id"`
	Scope        string         `db:"scope"`
	ShortCode    string         `db:"short_code"`
	OriginalURL  string         `db:"original_url"`
	DomainID     sql.NullString `db:"domain_id"`
	OwnerID      string         `db:"owner_id"`
	ExpiresAt    sql.NullString `db:"expires_at"`
	IsActive     bool           `db:"is_active"`
	RedirectType string         `db:"redirect_type"`
	CreatedAt    string         `db:"created_at"`
	UpdatedAt    string         `db:"updated_at"`
}

type domainRow struct {
	ID         string         `db:"id"`
	Domain     string         `db:"domain"`
	OwnerID    string         `db:"owner_id"`
	Verified   bool           `db:"verified"`
	VerifiedAt sql.NullString `db:"verified_at"`
}

// SQLiteRepository реализует интерфейс Repository поверх SQLite
type SQLiteRepository struct {
	db     *sql.DB
	qb     *goqu.Database
	logger *zap.Logger
}

// OpenSQLite открывает файл базы SQLite и создаёт схему
func OpenSQLite(ctx context.Context, path string, logger *zap.Logger) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite", sqliteDSN(path))
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, err
	}
	return NewSQLiteRepository(db, logger), nil
}

// NewSQLiteRepository создаёт репозиторий поверх открытой базы с готовой схемой
func NewSQLiteRepository(db *sql.DB, logger *zap.Logger) *SQLiteRepository {
	return &SQLiteRepository{
		db:     db,
		qb:     goqu.New("sqlite3", db),
		logger: logger,
	}
}

func sqliteDSN(path string) string {
	params := url.Values{}
	params.Set("mode", "rwc")
	params.Set("_pragma", "foreign_keys(1)")
	params.Add("_pragma", "journal_mode(WAL)")
	params.Add("_pragma", "busy_timeout(5000)")
	return "file:" + path + "?" + params.Encode()
}

// sqliteTimeLayout фиксированной ширины, чтобы строки сортировались как время
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func (row *urlRow) toModel() *models.URL {
	u := &models.URL{
		ID:           row.ID,
		ShortCode:    row.ShortCode,
		OriginalURL:  row.OriginalURL,
		OwnerID:      row.OwnerID,
		IsActive:     row.IsActive,
		RedirectType: models.RedirectType(row.RedirectType),
		CreatedAt:    parseTime(row.CreatedAt),
		UpdatedAt:    parseTime(row.UpdatedAt),
	}
	if row.DomainID.Valid {
		id := row.DomainID.String
		u.DomainID = &id
	}
	if row.ExpiresAt.Valid {
		t := parseTime(row.ExpiresAt.String)
		u.ExpiresAt = &t
	}
	return u
}

func (row *domainRow) toModel() *models.Domain {
	d := &models.Domain{
		ID:       row.ID,
		Domain:   row.Domain,
		OwnerID:  row.OwnerID,
		Verified: row.Verified,
	}
	if row.VerifiedAt.Valid {
		t := parseTime(row.VerifiedAt.String)
		d.VerifiedAt = &t
	}
	return d
}

func optionalTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func isSQLiteConstraint(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isSQLiteForeignKey(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

// FindActiveURL возвращает активную запись по области и коду
func (r *SQLiteRepository) FindActiveURL(ctx context.Context, scope models.Scope, shortCode string) (*models.URL, error) {
	var row urlRow
	found, err := r.qb.From("urls").
		Where(goqu.Ex{"scope": string(scope), "short_code": shortCode, "is_active": true}).
		ScanStructContext(ctx, &row)
	if err != nil {
		r.logger.Error("Failed to find URL", zap.String("scope", string(scope)), zap.String("short_code", shortCode), zap.Error(err))
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}
	return row.toModel(), nil
}

// FindVerifiedDomain ищет подтверждённый домен по имени хоста
func (r *SQLiteRepository) FindVerifiedDomain(ctx context.Context, hostname string) (*models.Domain, error) {
	var row domainRow
	found, err := r.qb.From("domains").
		Where(goqu.Func("lower", goqu.C("domain")).Eq(strings.ToLower(hostname)), goqu.Ex{"verified": true}).
		ScanStructContext(ctx, &row)
	if err != nil {
		r.logger.Error("Failed to find domain", zap.String("domain", hostname), zap.Error(err))
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}
	return row.toModel(), nil
}

// CountActiveURLs возвращает число активных ссылок владельца
func (r *SQLiteRepository) CountActiveURLs(ctx context.Context, ownerID string) (int, error) {
	count, err := r.qb.From("urls").
		Where(goqu.Ex{"owner_id": ownerID, "is_active": true}).
		CountContext(ctx)
	if err != nil {
		r.logger.Error("Failed to count URLs", zap.String("owner_id", ownerID), zap.Error(err))
		return 0, err
	}
	return int(count), nil
}

// ShortCodeExists проверяет, занят ли код в области
func (r *SQLiteRepository) ShortCodeExists(ctx context.Context, scope models.Scope, shortCode string) (bool, error) {
	count, err := r.qb.From("urls").
		Where(goqu.Ex{"scope": string(scope), "short_code": shortCode}).
		CountContext(ctx)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// SaveURL сохраняет новую запись
func (r *SQLiteRepository) SaveURL(ctx context.Context, u *models.URL) error {
	_, err := r.qb.Insert("urls").Rows(goqu.Record{
		"id":            u.ID,
		"scope":         string(u.Scope()),
		"short_code":    u.ShortCode,
		"original_url":  u.OriginalURL,
		"domain_id":     nullableString(u.DomainID),
		"owner_id":      u.OwnerID,
		"expires_at":    optionalTime(u.ExpiresAt),
		"is_active":     u.IsActive,
		"redirect_type": string(u.RedirectType),
		"created_at":    formatTime(u.CreatedAt),
		"updated_at":    formatTime(u.UpdatedAt),
	}).Executor().ExecContext(ctx)
	if isSQLiteConstraint(err) {
		return ErrShortCodeExists
	}
	if err != nil {
		r.logger.Error("Failed to save URL", zap.String("short_code", u.ShortCode), zap.Error(err))
		return err
	}
	return nil
}

// GetURL возвращает запись по ID
func (r *SQLiteRepository) GetURL(ctx context.Context, id string) (*models.URL, error) {
	var row urlRow
	found, err := r.qb.From("urls").Where(goqu.Ex{"id": id}).ScanStructContext(ctx, &row)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}
	return row.toModel(), nil
}

// ListURLs возвращает записи владельца, новые первыми
func (r *SQLiteRepository) ListURLs(ctx context.Context, ownerID string) ([]models.URL, error) {
	var rows []urlRow
	err := r.qb.From("urls").
		Where(goqu.Ex{"owner_id": ownerID}).
		Order(goqu.C("created_at").Desc()).
		ScanStructsContext(ctx, &rows)
	if err != nil {
		r.logger.Error("Failed to list URLs", zap.String("owner_id", ownerID), zap.Error(err))
		return nil, err
	}
	urls := make([]models.URL, 0, len(rows))
	for i := range rows {
		urls = append(urls, *rows[i].toModel())
	}
	return urls, nil
}

// UpdateURL обновляет изменяемые поля записи
func (r *SQLiteRepository) UpdateURL(ctx context.Context, u *models.URL) error {
	res, err := r.qb.Update("urls").Set(goqu.Record{
		"original_url":  u.OriginalURL,
		"expires_at":    optionalTime(u.ExpiresAt),
		"is_active":     u.IsActive,
		"redirect_type": string(u.RedirectType),
		"updated_at":    formatTime(u.UpdatedAt),
	}).Where(goqu.Ex{"id": u.ID}).Executor().ExecContext(ctx)
	if err != nil {
		r.logger.Error("Failed to update URL", zap.String("id", u.ID), zap.Error(err))
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
func (r *SQLiteRepository) GetDomain(ctx context.Context, id string) (*models.Domain, error) {
	var row domainRow
	found, err := r.qb.From("domains").Where(goqu.Ex{"id": id}).ScanStructContext(ctx, &row)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}
	return row.toModel(), nil
}

// SaveDomain сохраняет домен или обновляет статус подтверждения существующего
func (r *SQLiteRepository) SaveDomain(ctx context.Context, d *models.Domain) error {
	_, err := r.qb.Insert("domains").Rows(goqu.Record{
		"id":          d.ID,
		"domain":      strings.ToLower(d.Domain),
		"owner_id":    d.OwnerID,
		"verified":    d.Verified,
		"verified_at": optionalTime(d.VerifiedAt),
	}).OnConflict(goqu.DoUpdate("id", goqu.Record{
		"verified":    goqu.L("excluded.verified"),
		"verified_at": goqu.L("excluded.verified_at"),
	})).Executor().ExecContext(ctx)
	if isSQLiteConstraint(err) {
		return ErrDomainExists
	}
	if err != nil {
		r.logger.Error("Failed to save domain", zap.String("domain", d.Domain), zap.Error(err))
		return err
	}
	return nil
}

// ListDomains возвращает домены владельца по алфавиту
func (r *SQLiteRepository) ListDomains(ctx context.Context, ownerID string) ([]models.Domain, error) {
	var rows []domainRow
	err := r.qb.From("domains").
		Where(goqu.Ex{"owner_id": ownerID}).
		Order(goqu.C("domain").Asc()).
		ScanStructsContext(ctx, &rows)
	if err != nil {
		r.logger.Error("Failed to list domains", zap.String("owner_id", ownerID), zap.Error(err))
		return nil, err
	}
	domains := make([]models.Domain, 0, len(rows))
	for i := range rows {
		domains = append(domains, *rows[i].toModel())
	}
	return domains, nil
}

// DeleteDomain удаляет домен; используемый домен защищён внешним ключом
func (r *SQLiteRepository) DeleteDomain(ctx context.Context, id string) error {
	res, err := r.qb.Delete("domains").Where(goqu.Ex{"id": id}).Executor().ExecContext(ctx)
	if isSQLiteForeignKey(err) {
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

// Ping проверяет соединение с базой
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// DB возвращает соединение для проверки доступности
func (r *SQLiteRepository) DB() *sql.DB {
	return r.db
}

// Close закрывает базу
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

var _ Repository = (*SQLiteRepository)(nil)
var _ Repository = (*PostgresRepository)(nil)
var _ Repository = (*MemoryRepository)(nil)
