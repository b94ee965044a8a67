package repository

//go:generate mockgen -source=repository.go -destination=mock_repository.go -package=repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/tempizhere/linkgate/internal/models"
)

var (
	// ErrNotFound возвращается, если запись не найдена
	ErrNotFound = errors.New("record not found")
	// ErrShortCodeExists возвращается при попытке сохранить код, уже занятый в области
	ErrShortCodeExists = errors.New("short code already exists")
	// ErrDomainExists возвращается при попытке сохранить уже зарегистрированный домен
	ErrDomainExists = errors.New("domain already exists")
	// ErrDomainInUse возвращается при удалении домена, на который ссылаются записи
	ErrDomainInUse = errors.New("domain has URLs")
)

// RecordStore определяет операции хранилища, нужные для разрешения ссылок
type RecordStore interface {
	// FindActiveURL возвращает активную запись по области и коду или ErrNotFound
	FindActiveURL(ctx context.Context, scope models.Scope, shortCode string) (*models.URL, error)
	// FindVerifiedDomain возвращает подтверждённый домен по имени хоста или ErrNotFound
	FindVerifiedDomain(ctx context.Context, hostname string) (*models.Domain, error)
	// CountActiveURLs возвращает число активных ссылок владельца
	CountActiveURLs(ctx context.Context, ownerID string) (int, error)
}

// Repository расширяет RecordStore операциями изменения записей
type Repository interface {
	RecordStore
	// ShortCodeExists проверяет, занят ли код в области, включая неактивные записи
	ShortCodeExists(ctx context.Context, scope models.Scope, shortCode string) (bool, error)
	// SaveURL сохраняет новую запись или возвращает ErrShortCodeExists
	SaveURL(ctx context.Context, url *models.URL) error
	// GetURL возвращает запись по ID или ErrNotFound
	GetURL(ctx context.Context, id string) (*models.URL, error)
	// ListURLs возвращает записи владельца, новые первыми
	ListURLs(ctx context.Context, ownerID string) ([]models.URL, error)
	// UpdateURL обновляет изменяемые поля записи или возвращает ErrNotFound
	UpdateURL(ctx context.Context, url *models.URL) error
	// GetDomain возвращает домен по ID или ErrNotFound
	GetDomain(ctx context.Context, id string) (*models.Domain, error)
	// SaveDomain сохраняет домен или возвращает ErrDomainExists. Имя хоста хранится в нижнем регистре.
	SaveDomain(ctx context.Context, domain *models.Domain) error
	// ListDomains возвращает домены владельца по алфавиту
	ListDomains(ctx context.Context, ownerID string) ([]models.Domain, error)
	// DeleteDomain удаляет домен; ErrDomainInUse, если на него ссылаются записи
	DeleteDomain(ctx context.Context, id string) error
	// Ping проверяет доступность хранилища
	Ping(ctx context.Context) error
}

// Database определяет интерфейс для работы с базой данных
type Database interface {
	// PingContext проверяет соединение с базой данных
	PingContext(ctx context.Context) error
	// Close закрывает соединение с базой данных
	Close() error
	// ExecContext выполняет SQL-команду без возврата результатов
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	// QueryContext выполняет SQL-запрос и возвращает результаты
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	// QueryRowContext выполняет SQL-запрос и возвращает одну строку результата
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}
