package api

import (
	"embed"
	"encoding/json"
	"html/template"
	"net/http"

	"pagebot-core-console/internal/application"
	"pagebot-core-console/internal/infrastructure/facebook"
	"pagebot-core-console/internal/infrastructure/pubsub"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	httpSwagger "github.com/swaggo/http-swagger"
)

//go:embed templates/*.html
var templateFS embed.FS

// AuthURLer builds the provider login URL for an OAuth state
type AuthURLer interface {
	AuthCodeURL(state string) string
}

// Console serves the operator view and its JSON API
type Console struct {
	engine   *application.ReconciliationEngine
	oauth    AuthURLer
	states   *facebook.StateStore
	events   *pubsub.PageEventPubSub
	logger   zerolog.Logger
	pages    *template.Template
	docsPath string
}

// Options configures optional console collaborators
type Options struct {
	OAuth    AuthURLer               // nil disables the OAuth code flow
	Events   *pubsub.PageEventPubSub // nil disables /api/events
	DocsPath string                  // swagger.json location, default ./docs/swagger.json
}

// NewConsole creates the console
func NewConsole(engine *application.ReconciliationEngine, opts Options, logger zerolog.Logger) *Console {
	docs := opts.DocsPath
	if docs == "" {
		docs = "./docs/swagger.json"
	}
	return &Console{
		engine:   engine,
		oauth:    opts.OAuth,
		states:   facebook.NewStateStore(facebook.DefaultStateTTL),
		events:   opts.Events,
		logger:   logger,
		pages:    template.Must(template.ParseFS(templateFS, "templates/*.html")),
		docsPath: docs,
	}
}

// Router builds the HTTP routes
func (c *Console) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(SecurityHeadersMiddleware())
	r.Use(MetricsMiddleware())
	r.Use(AuditLoggingMiddleware(c.logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: false,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	r.Get("/swagger/doc.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		http.ServeFile(w, r, c.docsPath)
	})

	// HTML view
	r.Get("/", c.handleIndex)
	r.Post("/login", c.handleFormLogin)
	r.Post("/logout", c.handleFormLogout)
	r.Post("/pages/{pageId}/draft", c.handleFormDraft)
	r.Post("/pages/{pageId}/install", c.handleFormInstall)
	r.Post("/pages/{pageId}/save", c.handleFormSave)
	r.Post("/refresh", c.handleFormRefresh)

	// OAuth code flow
	r.Get("/auth/facebook", c.handleOAuthStart)
	r.Get("/auth/callback", c.handleOAuthCallback)

	// JSON API
	r.Route("/api", func(r chi.Router) {
		r.Post("/login", c.handleLogin)
		r.Post("/logout", c.handleLogout)
		r.Get("/session", c.handleSession)
		r.Post("/refresh", c.handleRefresh)
		r.Get("/events", c.handleEvents)

		r.Get("/pages", c.handleListPages)
		r.Post("/pages/reload", c.handleReloadPages)
		r.Get("/pages/{pageId}", c.handleGetPage)
		r.Put("/pages/{pageId}/fields/{field}", c.handleSetField)
		r.Post("/pages/{pageId}/install", c.handleInstall)
		r.Post("/pages/{pageId}/config", c.handleSaveConfig)
		r.Get("/pages/{pageId}/history", c.handleHistory)
	})

	return r
}
