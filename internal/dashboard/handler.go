package dashboard

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/virtuallab/virtuallab/internal/authz"
	"github.com/virtuallab/virtuallab/internal/platform/httpx"
)

// Handler serves the dashboard summary endpoint.
type Handler struct {
	logger  *slog.Logger
	service *Service
	mw      authz.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, mw authz.Middleware) *Handler {
	return &Handler{logger: logger, service: service, mw: mw}
}

// MountRoutes registers dashboard routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequirePermission())
		r.Get("/", h.summary)
	})
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	actor := authz.PrincipalFromContext(r.Context())
	summary, err := h.service.Summary(r.Context(), actor)
	if err != nil {
		if h.logger != nil {
			h.logger.Error("dashboard summary", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}
