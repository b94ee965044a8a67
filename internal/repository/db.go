package repository

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/tempizhere/linkgate/internal/repository/migrations"
	"go.uber.org/zap"
)

// OpenPostgres открывает пул соединений PostgreSQL через драйвер pgx и применяет миграции
func OpenPostgres(ctx context.Context, dsn string, logger *zap.Logger) (*sql.DB, error) {
	conn, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(30 * time.Minute)

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, err
	}

	if err := migrations.Up(conn, logger); err != nil {
		conn.Close()
		return nil, err
	}

	return conn, nil
}
