package users

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/virtuallab/virtuallab/internal/authz"
	"github.com/virtuallab/virtuallab/internal/platform/httpx"
	"github.com/virtuallab/virtuallab/internal/shared"
)

// Handler manages user management endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	mw        authz.Middleware
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, mw authz.Middleware) *Handler {
	return &Handler{logger: logger, service: service, mw: mw, validator: validator.New()}
}

// MountRoutes registers user routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequirePermission(authz.PermUsersRead))
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequirePermission(authz.PermUsersCreate))
		r.Post("/", h.create)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequirePermission(authz.PermUsersUpdate))
		r.Patch("/{id}", h.update)
		r.Post("/{id}/activate", h.activate)
		r.Post("/{id}/deactivate", h.deactivate)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequirePermission(authz.PermUsersManageRoles))
		r.Post("/{id}/roles", h.assignRole)
		r.Delete("/{id}/roles/{role}", h.revokeRole)
	})
}

type listResponse struct {
	Users      []User            `json:"users"`
	Pagination shared.Pagination `json:"pagination"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	actor := authz.PrincipalFromContext(r.Context())
	filter := ListFilter{
		Query: r.URL.Query().Get("q"),
		Role:  authz.Role(r.URL.Query().Get("role")),
	}
	if v := r.URL.Query().Get("active"); v != "" {
		active := v == "true"
		filter.Active = &active
	}
	filter.Page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	filter.PerPage, _ = strconv.Atoi(r.URL.Query().Get("per_page"))

	result, pagination, err := h.service.List(r.Context(), actor, filter)
	if err != nil {
		h.fail(w, "list users", err)
		return
	}
	if result == nil {
		result = []User{}
	}
	httpx.JSON(w, http.StatusOK, listResponse{Users: result, Pagination: pagination})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	actor := authz.PrincipalFromContext(r.Context())
	user, err := h.service.Get(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, "get user", err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

type createRequest struct {
	Username          string   `json:"username" validate:"required,min=3,max=64"`
	Email             string   `json:"email" validate:"required,email"`
	Password          string   `json:"password" validate:"required,min=8"`
	FirstName         string   `json:"first_name" validate:"required"`
	LastName          string   `json:"last_name" validate:"required"`
	Phone             string   `json:"phone"`
	PreferredLanguage string   `json:"preferred_language" validate:"omitempty,oneof=km en"`
	Roles             []string `json:"roles" validate:"required,min=1"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	actor := authz.PrincipalFromContext(r.Context())

	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed user payload")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	roles := make([]authz.Role, 0, len(req.Roles))
	for _, name := range req.Roles {
		role := authz.Role(name)
		if authz.RoleRank(role) == 0 {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "unknown role: "+name)
			return
		}
		roles = append(roles, role)
	}

	user, err := h.service.Create(r.Context(), actor, CreateInput{
		Username:          req.Username,
		Email:             req.Email,
		Password:          req.Password,
		FirstName:         req.FirstName,
		LastName:          req.LastName,
		Phone:             req.Phone,
		PreferredLanguage: req.PreferredLanguage,
		Roles:             roles,
	})
	if err != nil {
		h.fail(w, "create user", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, user)
}

type updateRequest struct {
	Email             *string `json:"email" validate:"omitempty,email"`
	FirstName         *string `json:"first_name"`
	LastName          *string `json:"last_name"`
	Phone             *string `json:"phone"`
	PreferredLanguage *string `json:"preferred_language" validate:"omitempty,oneof=km en"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	actor := authz.PrincipalFromContext(r.Context())

	var req updateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed user payload")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	user, err := h.service.Update(r.Context(), actor, chi.URLParam(r, "id"), UpdateInput{
		Email:             req.Email,
		FirstName:         req.FirstName,
		LastName:          req.LastName,
		Phone:             req.Phone,
		PreferredLanguage: req.PreferredLanguage,
	})
	if err != nil {
		h.fail(w, "update user", err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

func (h *Handler) activate(w http.ResponseWriter, r *http.Request) {
	actor := authz.PrincipalFromContext(r.Context())
	if err := h.service.Activate(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		h.fail(w, "activate user", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "active"})
}

func (h *Handler) deactivate(w http.ResponseWriter, r *http.Request) {
	actor := authz.PrincipalFromContext(r.Context())
	if err := h.service.Deactivate(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		h.fail(w, "deactivate user", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "inactive"})
}

type roleRequest struct {
	Role string `json:"role" validate:"required"`
}

func (h *Handler) assignRole(w http.ResponseWriter, r *http.Request) {
	actor := authz.PrincipalFromContext(r.Context())

	var req roleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed role payload")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.service.AssignRole(r.Context(), actor, chi.URLParam(r, "id"), authz.Role(req.Role)); err != nil {
		h.fail(w, "assign role", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "assigned"})
}

func (h *Handler) revokeRole(w http.ResponseWriter, r *http.Request) {
	actor := authz.PrincipalFromContext(r.Context())
	if err := h.service.RevokeRole(r.Context(), actor, chi.URLParam(r, "id"), authz.Role(chi.URLParam(r, "role"))); err != nil {
		h.fail(w, "revoke role", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "revoked"})
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if h.logger != nil {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
