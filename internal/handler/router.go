package handler

import (
	"io/fs"
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/joestump/gqlboot/internal/api"
	"github.com/joestump/gqlboot/internal/graphql"
	"github.com/joestump/gqlboot/internal/metrics"
	"github.com/joestump/gqlboot/internal/provider"
	"github.com/joestump/gqlboot/web"
)

// Deps holds all dependencies required to build the HTTP router.
type Deps struct {
	Client         *graphql.Client
	SessionManager *scs.SessionManager
	Layout         Layout
}

// NewRouter assembles the full chi router. Every route below the provider
// middleware reads the one client from the request context.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Static assets (embedded). Use fs.Sub so the file server sees
	// css/app.css directly, not static/css/... paths.
	staticSub, err := fs.Sub(web.StaticFS, "static")
	if err != nil {
		panic("failed to sub static FS: " + err.Error())
	}
	r.Handle("/static/*", http.StripPrefix("/static", http.FileServerFS(staticSub)))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", metrics.Handler())

	themeHandler := NewThemeHandler()
	r.Post("/theme", themeHandler.Toggle)

	// Everything below shares the provided client.
	r.Group(func(r chi.Router) {
		r.Use(provider.Provide(deps.Client))

		// API sub-router has no session state.
		r.Mount("/api", api.NewAPIRouter())

		r.Group(func(r chi.Router) {
			r.Use(deps.SessionManager.LoadAndSave)

			explorer := NewExplorerHandler(deps.Layout, deps.SessionManager)
			schema := NewSchemaHandler(deps.Layout)
			cacheHandler := NewCacheHandler()

			r.Get("/", explorer.Show)
			r.Post("/query", explorer.Run)
			r.Get("/schema", schema.Show)
			r.Post("/cache/reset", cacheHandler.Reset)
		})
	})

	return r
}
