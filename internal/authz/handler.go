package authz

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/virtuallab/virtuallab/internal/platform/httpx"
)

// Handler exposes permission introspection endpoints consumed by the
// frontend: a generic check endpoint mirroring the in-process API and a
// summary of what the current principal may reach.
type Handler struct {
	logger *slog.Logger
	mw     Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, mw Middleware) *Handler {
	return &Handler{logger: logger, mw: mw}
}

// MountRoutes registers permission routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequirePermission())
		r.Get("/", h.summary)
		r.Post("/check", h.check)
	})
}

type checkRequest struct {
	Type           string `json:"type"`
	Pathname       string `json:"pathname"`
	Resource       string `json:"resource"`
	Action         string `json:"action"`
	ResourceID     string `json:"resource_id"`
	SchoolID       int64  `json:"school_id"`
	RequiredAccess string `json:"required_access"`
}

func (h *Handler) check(w http.ResponseWriter, r *http.Request) {
	p := PrincipalFromContext(r.Context())

	var req checkRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed check request")
		return
	}

	var verdict Verdict
	switch req.Type {
	case "page":
		verdict = CheckPageAccess(p, req.Pathname)
	case "resource":
		verdict = CheckResourceAccess(p, req.Resource, Action(req.Action), req.ResourceID)
	case "school_resource":
		verdict = CheckSchoolResourceAccess(p, req.Resource, Action(req.Action), req.SchoolID, AccessLevel(req.RequiredAccess))
	default:
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid permission check type")
		return
	}

	httpx.JSON(w, http.StatusOK, verdict)
}

type resourceSummary struct {
	Resource string   `json:"resource"`
	Actions  []Action `json:"actions"`
}

type summaryResponse struct {
	Roles           []Role            `json:"roles"`
	Permissions     []string          `json:"permissions"`
	AccessiblePages []string          `json:"accessible_pages"`
	Resources       []resourceSummary `json:"resources"`
	DefaultRoute    string            `json:"default_route"`
	DashboardName   string            `json:"dashboard_name"`
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	p := PrincipalFromContext(r.Context())

	resources := make([]resourceSummary, 0, len(RegisteredResources()))
	for _, resource := range RegisteredResources() {
		actions := ResourceActions(p, resource)
		if len(actions) == 0 {
			continue
		}
		resources = append(resources, resourceSummary{Resource: resource, Actions: actions})
	}

	httpx.JSON(w, http.StatusOK, summaryResponse{
		Roles:           p.Roles,
		Permissions:     p.Permissions,
		AccessiblePages: AccessiblePages(p),
		Resources:       resources,
		DefaultRoute:    DefaultRouteFor(p),
		DashboardName:   DashboardNameFor(p),
	})
}
