package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/virtuallab/virtuallab/internal/auth"
	"github.com/virtuallab/virtuallab/internal/authz"
	"github.com/virtuallab/virtuallab/internal/dashboard"
	"github.com/virtuallab/virtuallab/internal/observability"
	"github.com/virtuallab/virtuallab/internal/platform/httpx"
	"github.com/virtuallab/virtuallab/internal/shared"
	"github.com/virtuallab/virtuallab/internal/students"
	"github.com/virtuallab/virtuallab/internal/users"
	"github.com/virtuallab/virtuallab/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager

	AuthHandler        *auth.Handler
	PermissionsHandler *authz.Handler
	UsersHandler       *users.Handler
	StudentsHandler    *students.Handler
	DashboardHandler   *dashboard.Handler
	JobsHandler        *jobs.Handler

	AuthzMiddleware authz.Middleware
	Metrics         *observability.Metrics
}

// NewRouter constructs the chi.Router.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// The SPA fetches its token here once per session and replays it in
	// the X-CSRF-Token header on mutations.
	r.Get("/auth/csrf", func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		token, err := params.CSRFManager.EnsureToken(r.Context(), sess)
		if err != nil {
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"csrf_token": token})
	})

	r.Route("/auth", params.AuthHandler.MountRoutes)

	r.Route("/api", func(r chi.Router) {
		r.Route("/permissions", params.PermissionsHandler.MountRoutes)
		r.Route("/users", params.UsersHandler.MountRoutes)
		r.Route("/students", params.StudentsHandler.MountRoutes)
		r.Route("/dashboard", params.DashboardHandler.MountRoutes)
		if params.JobsHandler != nil {
			r.Group(func(r chi.Router) {
				r.Use(params.AuthzMiddleware.RequirePermission(authz.PermSystemMaintenance))
				r.Route("/jobs", params.JobsHandler.MountRoutes)
			})
		}
	})

	// Server-side navigation guard. The registered pages answer a small
	// JSON descriptor; anonymous or denied visitors are redirected per
	// the page rule, matching what the SPA router does client side.
	r.Group(func(r chi.Router) {
		r.Use(params.AuthzMiddleware.GuardPage)
		for _, path := range authz.RegisteredPages() {
			r.Get(path, pageDescriptor(path))
		}
	})

	r.With(params.AuthzMiddleware.WithPrincipal).Get("/", func(w http.ResponseWriter, r *http.Request) {
		p := authz.PrincipalFromContext(r.Context())
		if p == nil {
			http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
			return
		}
		http.Redirect(w, r, authz.DefaultRouteFor(p), http.StatusSeeOther)
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}

func pageDescriptor(path string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rule := authz.PageRuleFor(path)
		p := authz.PrincipalFromContext(r.Context())
		httpx.JSON(w, http.StatusOK, map[string]any{
			"page":           rule.Name,
			"path":           rule.Path,
			"dashboard_name": authz.DashboardNameFor(p),
		})
	}
}
