package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tempizhere/linkgate/internal/models"
	"go.uber.org/zap"
)

var urlColumnNames = []string{"id", "short_code", "original_url", "domain_id", "owner_id", "expires_at", "is_active", "redirect_type", "created_at", "updated_at"}

func newMockPostgres(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewPostgresRepository(db, zap.NewNop()), mock
}

func TestPostgresRepository_FindActiveURL(t *testing.T) {
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	expires := created.Add(48 * time.Hour)

	tests := []struct {
		name        string
		setup       func(mock sqlmock.Sqlmock)
		scope       models.Scope
		expectedURL *models.URL
		expectedErr error
	}{
		{
			name: "Found in default scope",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT .+ FROM urls WHERE COALESCE\\(domain_id::text, 'default'\\) = \\$1 AND short_code = \\$2 AND is_active").
					WithArgs("default", "test123").
					WillReturnRows(sqlmock.NewRows(urlColumnNames).
						AddRow("id1", "test123", "https://example.com", nil, "owner-1", nil, true, "PERMANENT", created, created))
			},
			scope: models.DefaultScope,
			expectedURL: &models.URL{
				ID: "id1", ShortCode: "test123", OriginalURL: "https://example.com", OwnerID: "owner-1",
				IsActive: true, RedirectType: models.RedirectPermanent, CreatedAt: created, UpdatedAt: created,
			},
		},
		{
			name: "Found in domain scope with expiry",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT .+ FROM urls WHERE").
					WithArgs("dom-1", "test123").
					WillReturnRows(sqlmock.NewRows(urlColumnNames).
						AddRow("id2", "test123", "https://example.org", "dom-1", "owner-1", expires, true, "TEMPORARY", created, created))
			},
			scope: models.Scope("dom-1"),
			expectedURL: &models.URL{
				ID: "id2", ShortCode: "test123", OriginalURL: "https://example.org", DomainID: strPtr("dom-1"), OwnerID: "owner-1",
				ExpiresAt: &expires, IsActive: true, RedirectType: models.RedirectTemporary, CreatedAt: created, UpdatedAt: created,
			},
		},
		{
			name: "Not found",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT .+ FROM urls WHERE").
					WithArgs("default", "test123").
					WillReturnError(sql.ErrNoRows)
			},
			scope:       models.DefaultScope,
			expectedErr: ErrNotFound,
		},
		{
			name: "Database error",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT .+ FROM urls WHERE").
					WithArgs("default", "test123").
					WillReturnError(errors.New("connection reset"))
			},
			scope:       models.DefaultScope,
			expectedErr: errors.New("connection reset"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMockPostgres(t)
			tt.setup(mock)

			u, err := repo.FindActiveURL(context.Background(), tt.scope, "test123")
			if tt.expectedErr != nil {
				require.Error(t, err)
				assert.Equal(t, tt.expectedErr.Error(), err.Error())
				assert.Nil(t, u)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.expectedURL, u)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPostgresRepository_SaveURL(t *testing.T) {
	tests := []struct {
		name        string
		execErr     error
		expectedErr error
	}{
		{name: "Save success"},
		{name: "Unique violation", execErr: &pgconn.PgError{Code: "23505"}, expectedErr: ErrShortCodeExists},
		{name: "Other error", execErr: errors.New("disk full"), expectedErr: errors.New("disk full")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMockPostgres(t)
			u := newTestURL("id1", "abc123", strPtr("dom-1"))

			exp := mock.ExpectExec("INSERT INTO urls").
				WithArgs(u.ID, u.ShortCode, u.OriginalURL, "dom-1", u.OwnerID, nil, true, "PERMANENT", u.CreatedAt, u.UpdatedAt)
			if tt.execErr != nil {
				exp.WillReturnError(tt.execErr)
			} else {
				exp.WillReturnResult(sqlmock.NewResult(1, 1))
			}

			err := repo.SaveURL(context.Background(), u)
			if tt.expectedErr != nil {
				require.Error(t, err)
				assert.Equal(t, tt.expectedErr.Error(), err.Error())
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPostgresRepository_UpdateURL(t *testing.T) {
	repo, mock := newMockPostgres(t)
	u := newTestURL("id1", "abc123", nil)

	mock.ExpectExec("UPDATE urls SET").
		WithArgs(u.ID, u.OriginalURL, nil, true, "PERMANENT", u.UpdatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	assert.NoError(t, repo.UpdateURL(context.Background(), u))

	mock.ExpectExec("UPDATE urls SET").
		WithArgs(u.ID, u.OriginalURL, nil, true, "PERMANENT", u.UpdatedAt).
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.UpdateURL(context.Background(), u), ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_CountAndExists(t *testing.T) {
	repo, mock := newMockPostgres(t)
	ctx := context.Background()

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM urls WHERE owner_id = \\$1 AND is_active").
		WithArgs("owner-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))
	count, err := repo.CountActiveURLs(ctx, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, 7, count)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("default", "abc123").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	exists, err := repo.ShortCodeExists(ctx, models.DefaultScope, "abc123")
	require.NoError(t, err)
	assert.True(t, exists)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_ListURLs(t *testing.T) {
	repo, mock := newMockPostgres(t)
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT .+ FROM urls WHERE owner_id = \\$1 ORDER BY created_at DESC").
		WithArgs("owner-1").
		WillReturnRows(sqlmock.NewRows(urlColumnNames).
			AddRow("id2", "bbb", "https://b.example.com", nil, "owner-1", nil, true, "PERMANENT", created.Add(time.Hour), created).
			AddRow("id1", "aaa", "https://a.example.com", nil, "owner-1", nil, false, "TEMPORARY", created, created))

	urls, err := repo.ListURLs(context.Background(), "owner-1")
	require.NoError(t, err)
	require.Len(t, urls, 2)
	assert.Equal(t, "id2", urls[0].ID)
	assert.False(t, urls[1].IsActive)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_FindVerifiedDomain(t *testing.T) {
	repo, mock := newMockPostgres(t)
	ctx := context.Background()
	verifiedAt := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT id, domain, owner_id, verified, verified_at FROM domains WHERE lower\\(domain\\) = \\$1 AND verified").
		WithArgs("go.example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "domain", "owner_id", "verified", "verified_at"}).
			AddRow("dom-1", "go.example.com", "owner-1", true, verifiedAt))
	d, err := repo.FindVerifiedDomain(ctx, "Go.Example.COM")
	require.NoError(t, err)
	assert.Equal(t, "dom-1", d.ID)
	assert.Equal(t, &verifiedAt, d.VerifiedAt)

	mock.ExpectQuery("SELECT id, domain, owner_id, verified, verified_at FROM domains").
		WithArgs("unknown.example.com").
		WillReturnError(sql.ErrNoRows)
	_, err = repo.FindVerifiedDomain(ctx, "unknown.example.com")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_Domains(t *testing.T) {
	repo, mock := newMockPostgres(t)
	ctx := context.Background()

	mock.ExpectExec("INSERT INTO domains").
		WithArgs("dom-1", "go.example.com", "owner-1", false, nil).
		WillReturnResult(sqlmock.NewResult(1, 1))
	require.NoError(t, repo.SaveDomain(ctx, &models.Domain{ID: "dom-1", Domain: "Go.Example.com", OwnerID: "owner-1"}))

	mock.ExpectExec("INSERT INTO domains").
		WithArgs("dom-2", "go.example.com", "owner-2", false, nil).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	assert.ErrorIs(t, repo.SaveDomain(ctx, &models.Domain{ID: "dom-2", Domain: "go.example.com", OwnerID: "owner-2"}), ErrDomainExists)

	mock.ExpectQuery("SELECT id, domain, owner_id, verified, verified_at FROM domains WHERE owner_id = \\$1 ORDER BY domain").
		WithArgs("owner-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "domain", "owner_id", "verified", "verified_at"}).
			AddRow("dom-3", "a.example.com", "owner-1", false, nil).
			AddRow("dom-1", "go.example.com", "owner-1", false, nil))
	domains, err := repo.ListDomains(ctx, "owner-1")
	require.NoError(t, err)
	require.Len(t, domains, 2)
	assert.Equal(t, "a.example.com", domains[0].Domain)

	tests := []struct {
		name        string
		setup       func(exp *sqlmock.ExpectedExec)
		expectedErr error
	}{
		{name: "Deleted", setup: func(exp *sqlmock.ExpectedExec) { exp.WillReturnResult(sqlmock.NewResult(0, 1)) }},
		{name: "Missing", setup: func(exp *sqlmock.ExpectedExec) { exp.WillReturnResult(sqlmock.NewResult(0, 0)) }, expectedErr: ErrNotFound},
		{name: "Referenced by URLs", setup: func(exp *sqlmock.ExpectedExec) { exp.WillReturnError(&pgconn.PgError{Code: "23503"}) }, expectedErr: ErrDomainInUse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup(mock.ExpectExec("DELETE FROM domains WHERE id = \\$1").WithArgs("dom-1"))
			err := repo.DeleteDomain(ctx, "dom-1")
			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_Ping(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()
	repo := NewPostgresRepository(db, zap.NewNop())

	mock.ExpectPing().WillReturnError(errors.New("unreachable"))
	assert.Error(t, repo.Ping(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
