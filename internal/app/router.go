package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/tempizhere/linkgate/internal/middleware"
)

// RouterConfig параметры маршрутизатора
type RouterConfig struct {
	JWTSecret     string
	TrustedSubnet string
}

// NewRouter собирает маршруты приложения. Всё, что не занято служебными маршрутами
// и API, считается коротким кодом.
func NewRouter(a *App, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.ClientIPMiddleware(cfg.TrustedSubnet, a.logger))
	r.Use(middleware.LoggingMiddleware(a.logger))
	r.Use(chimw.Recoverer)

	r.Get("/health", a.HandleHealth)
	r.Get("/ping", a.HandlePing)

	r.Route("/api", func(r chi.Router) {
		r.Use(chimw.Compress(5, "application/json"))
		r.Use(middleware.AuthMiddleware(cfg.JWTSecret, a.logger))
		r.Route("/urls", func(r chi.Router) {
			r.Post("/", a.HandleCreateURL)
			r.Get("/", a.HandleListURLs)
			r.Get("/{id}", a.HandleGetURL)
			r.Patch("/{id}", a.HandleUpdateURL)
			r.Delete("/{id}", a.HandleDeleteURL)
		})
		r.Route("/domains", func(r chi.Router) {
			r.Post("/", a.HandleCreateDomain)
			r.Get("/", a.HandleListDomains)
			r.Get("/{id}", a.HandleGetDomain)
			r.Delete("/{id}", a.HandleDeleteDomain)
		})
	})

	r.Get("/*", a.HandleRedirect)

	return r
}
