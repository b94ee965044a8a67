// Package app содержит HTTP-хендлеры: редирект по короткому коду и API управления ссылками.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/tempizhere/linkgate/internal/middleware"
	"github.com/tempizhere/linkgate/internal/models"
	"github.com/tempizhere/linkgate/internal/repository"
	"github.com/tempizhere/linkgate/internal/service"
	"go.uber.org/zap"
)

// maxBodySize ограничение тела запроса API
const maxBodySize = 1 << 20

// pingTimeout время ожидания ответа базы данных в HandlePing
const pingTimeout = 2 * time.Second

// HealthResponse ответ GET /health
type HealthResponse struct {
	Status string `json:"status"`
}

// App содержит хендлеры и зависимости
type App struct {
	links    *service.Links
	domains  *service.Domains
	resolver *service.Resolver
	db       repository.Database
	logger   *zap.Logger
}

// NewApp создаёт новое приложение. db может быть nil, если хранилище не использует базу данных.
func NewApp(links *service.Links, domains *service.Domains, resolver *service.Resolver, db repository.Database, logger *zap.Logger) *App {
	return &App{links: links, domains: domains, resolver: resolver, db: db, logger: logger}
}

// HandleRedirect обрабатывает GET-запросы на "/{code}"
func (a *App) HandleRedirect(w http.ResponseWriter, r *http.Request) {
	decision, err := a.resolver.Resolve(r.Context(), r.Host, r.URL.Path, service.ClientInfo{
		IP:        middleware.GetClientIP(r),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	w.Header().Set("Location", decision.URL)
	w.WriteHeader(decision.HTTPStatus)
}

// HandleHealth обрабатывает GET-запросы на "/health"
func (a *App) HandleHealth(w http.ResponseWriter, r *http.Request) {
	a.writeJSONResponse(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// HandlePing обрабатывает GET-запросы на "/ping"
func (a *App) HandlePing(w http.ResponseWriter, r *http.Request) {
	if a.db == nil {
		http.Error(w, "Database not configured", http.StatusInternalServerError)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
	defer cancel()
	if err := a.db.PingContext(ctx); err != nil {
		a.logger.Error("Database ping failed", zap.Error(err))
		http.Error(w, "Database connection failed", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// HandleCreateURL обрабатывает POST-запросы на "/api/urls"
func (a *App) HandleCreateURL(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := middleware.GetOwnerID(r)
	if !ok {
		a.writeJSONResponse(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Unauthorized"})
		return
	}
	var req models.CreateURLRequest
	if !a.decodeJSON(w, r, &req) {
		return
	}

	u, err := a.links.CreateURL(r.Context(), ownerID, req)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSONResponse(w, http.StatusCreated, a.shortURLResponse(r.Context(), u))
}

// HandleListURLs обрабатывает GET-запросы на "/api/urls"
func (a *App) HandleListURLs(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := middleware.GetOwnerID(r)
	if !ok {
		a.writeJSONResponse(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Unauthorized"})
		return
	}

	urls, err := a.links.ListURLs(r.Context(), ownerID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	resp := make([]models.ShortURLResponse, len(urls))
	for i := range urls {
		resp[i] = a.shortURLResponse(r.Context(), &urls[i])
	}
	a.writeJSONResponse(w, http.StatusOK, resp)
}

// HandleGetURL обрабатывает GET-запросы на "/api/urls/{id}"
func (a *App) HandleGetURL(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := middleware.GetOwnerID(r)
	if !ok {
		a.writeJSONResponse(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Unauthorized"})
		return
	}

	u, err := a.links.GetURL(r.Context(), ownerID, chi.URLParam(r, "id"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSONResponse(w, http.StatusOK, a.shortURLResponse(r.Context(), u))
}

// HandleUpdateURL обрабатывает PATCH-запросы на "/api/urls/{id}"
func (a *App) HandleUpdateURL(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := middleware.GetOwnerID(r)
	if !ok {
		a.writeJSONResponse(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Unauthorized"})
		return
	}
	var req models.UpdateURLRequest
	if !a.decodeJSON(w, r, &req) {
		return
	}

	u, err := a.links.UpdateURL(r.Context(), ownerID, chi.URLParam(r, "id"), req)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSONResponse(w, http.StatusOK, a.shortURLResponse(r.Context(), u))
}

// HandleDeleteURL обрабатывает DELETE-запросы на "/api/urls/{id}"
func (a *App) HandleDeleteURL(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := middleware.GetOwnerID(r)
	if !ok {
		a.writeJSONResponse(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Unauthorized"})
		return
	}

	if err := a.links.DeactivateURL(r.Context(), ownerID, chi.URLParam(r, "id")); err != nil {
		a.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleCreateDomain обрабатывает POST-запросы на "/api/domains"
func (a *App) HandleCreateDomain(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := middleware.GetOwnerID(r)
	if !ok {
		a.writeJSONResponse(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Unauthorized"})
		return
	}
	var req models.CreateDomainRequest
	if !a.decodeJSON(w, r, &req) {
		return
	}

	d, err := a.domains.CreateDomain(r.Context(), ownerID, req.Domain)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSONResponse(w, http.StatusCreated, a.domainResponse(d))
}

// HandleListDomains обрабатывает GET-запросы на "/api/domains"
func (a *App) HandleListDomains(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := middleware.GetOwnerID(r)
	if !ok {
		a.writeJSONResponse(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Unauthorized"})
		return
	}

	domains, err := a.domains.ListDomains(r.Context(), ownerID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	resp := make([]models.DomainResponse, len(domains))
	for i := range domains {
		resp[i] = a.domainResponse(&domains[i])
	}
	a.writeJSONResponse(w, http.StatusOK, resp)
}

// HandleGetDomain обрабатывает GET-запросы на "/api/domains/{id}"
func (a *App) HandleGetDomain(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := middleware.GetOwnerID(r)
	if !ok {
		a.writeJSONResponse(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Unauthorized"})
		return
	}

	d, err := a.domains.GetDomain(r.Context(), ownerID, chi.URLParam(r, "id"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSONResponse(w, http.StatusOK, a.domainResponse(d))
}

// HandleDeleteDomain обрабатывает DELETE-запросы на "/api/domains/{id}"
func (a *App) HandleDeleteDomain(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := middleware.GetOwnerID(r)
	if !ok {
		a.writeJSONResponse(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Unauthorized"})
		return
	}

	if err := a.domains.DeleteDomain(r.Context(), ownerID, chi.URLParam(r, "id")); err != nil {
		a.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *App) domainResponse(d *models.Domain) models.DomainResponse {
	return models.DomainResponse{Domain: *d, Verification: a.domains.Verification(d)}
}

func (a *App) shortURLResponse(ctx context.Context, u *models.URL) models.ShortURLResponse {
	return models.ShortURLResponse{ShortURL: a.links.ShortURL(ctx, u), URL: u}
}

// decodeJSON читает тело запроса; при ошибке пишет ответ 400 и возвращает false
func (a *App) decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if !strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		a.writeJSONResponse(w, http.StatusBadRequest, models.ErrorResponse{Error: "Content-Type must be application/json"})
		return false
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(v); err != nil {
		a.writeJSONResponse(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid JSON"})
		return false
	}
	return true
}

// writeError переводит ошибку сервиса в HTTP-ответ
func (a *App) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, message := statusFor(err)
	if status >= http.StatusInternalServerError {
		a.logger.Error("Request failed",
			zap.String("method", r.Method),
			zap.String("uri", r.RequestURI),
			zap.Error(err))
	}
	a.writeJSONResponse(w, status, models.ErrorResponse{Error: message})
}

// writeJSONResponse пишет JSON-ответ с проверкой ошибок
func (a *App) writeJSONResponse(w http.ResponseWriter, status int, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "Failed to encode JSON", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		a.logger.Debug("Failed to write response", zap.Error(err))
	}
}

var errorStatuses = []struct {
	err    error
	status int
}{
	{service.ErrInvalidURL, http.StatusBadRequest},
	{service.ErrInvalidShortCode, http.StatusBadRequest},
	{service.ErrInvalidRedirectType, http.StatusBadRequest},
	{service.ErrPlanLimit, http.StatusForbidden},
	{service.ErrNotFound, http.StatusNotFound},
	{service.ErrDomainNotVerified, http.StatusNotFound},
	{service.ErrGone, http.StatusGone},
	{service.ErrShortCodeTaken, http.StatusConflict},
	{service.ErrGenerationExhausted, http.StatusConflict},
	{service.ErrInvalidDomain, http.StatusBadRequest},
	{service.ErrDomainNotFound, http.StatusNotFound},
	{service.ErrDomainTaken, http.StatusConflict},
	{service.ErrDomainInUse, http.StatusConflict},
}

// statusFor возвращает код статуса и текст ответа для ошибки сервиса
func statusFor(err error) (int, string) {
	for _, s := range errorStatuses {
		if errors.Is(err, s.err) {
			return s.status, s.err.Error()
		}
	}
	if errors.Is(err, service.ErrInfrastructure) ||
		errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return http.StatusServiceUnavailable, "Service temporarily unavailable"
	}
	return http.StatusInternalServerError, "Internal server error"
}
