package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lattice-cms/lattice/internal/audit"
	"github.com/lattice-cms/lattice/internal/auth"
	"github.com/lattice-cms/lattice/internal/channels"
	"github.com/lattice-cms/lattice/internal/contents"
	"github.com/lattice-cms/lattice/internal/library"
	"github.com/lattice-cms/lattice/internal/observability"
	"github.com/lattice-cms/lattice/internal/rbac"
	"github.com/lattice-cms/lattice/internal/shared"
	"github.com/lattice-cms/lattice/internal/sites"
	"github.com/lattice-cms/lattice/internal/users"
	"github.com/lattice-cms/lattice/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	AuthService    *auth.Service

	AuthHandler     *auth.Handler
	SitesHandler    *sites.Handler
	ChannelsHandler *channels.Handler
	ContentsHandler *contents.Handler
	LibraryHandler  *library.Handler
	RBACHandler     *rbac.Handler
	UsersHandler    *users.Handler
	AuditHandler    *audit.Handler
	JobHandler      *jobs.Handler
	Metrics         *observability.Metrics

	Pool *pgxpool.Pool
}

// NewRouter constructs the chi.Router with application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		AuthService:    params.AuthService,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)
	if params.Metrics != nil {
		r.Use(params.Metrics.Middleware)
		r.Handle("/metrics", params.Metrics.Handler())
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if params.Pool != nil {
			if err := params.Pool.Ping(r.Context()); err != nil {
				params.Logger.Warn("readiness ping failed", slog.Any("error", err))
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})

	r.Route("/api", func(api chi.Router) {
		params.AuthHandler.MountRoutes(api)
		params.SitesHandler.MountRoutes(api)
		params.ChannelsHandler.MountRoutes(api)
		params.ContentsHandler.MountRoutes(api)
		params.LibraryHandler.MountRoutes(api)
		params.RBACHandler.MountRoutes(api)
		params.UsersHandler.MountRoutes(api)
		params.AuditHandler.MountRoutes(api)
		if params.JobHandler != nil {
			api.Route("/jobs", params.JobHandler.MountRoutes)
		}
	})

	return r
}
