package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/virtuallab/virtuallab/internal/authz"
	"github.com/virtuallab/virtuallab/internal/observability"
	"github.com/virtuallab/virtuallab/internal/platform/httpx"
	"github.com/virtuallab/virtuallab/internal/shared"
)

// Handler wires HTTP endpoints for authentication flows. The frontend is
// an external SPA, so every endpoint speaks JSON.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	sessionManager *shared.SessionManager
	activity       *shared.ActivityLogger
	metrics        *observability.Metrics
	validator      *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, sessions *shared.SessionManager, activity *shared.ActivityLogger, metrics *observability.Metrics) *Handler {
	return &Handler{
		logger:         logger,
		service:        service,
		sessionManager: sessions,
		activity:       activity,
		metrics:        metrics,
		validator:      validator.New(),
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
	r.Get("/session", h.handleSession)
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
}

type loginResponse struct {
	User         sessionUser `json:"user"`
	DefaultRoute string      `json:"default_route"`
}

type sessionUser struct {
	ID       string       `json:"id"`
	Username string       `json:"username"`
	Email    string       `json:"email"`
	Name     string       `json:"name"`
	Roles    []authz.Role `json:"roles"`
	Locale   string       `json:"locale"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed login request")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "username and password are required")
		return
	}

	user, err := h.service.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, shared.ErrInvalidCredentials) {
			h.metrics.RecordLogin("failure")
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid credentials")
			return
		}
		h.logger.Error("authenticate", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	sess.SetUser(user.ID)
	if user.PreferredLanguage != "" {
		sess.Set(shared.SessionLocaleKey, user.PreferredLanguage)
	}

	expiresAt := time.Now().Add(h.sessionManager.TTL())
	if err := h.service.RegisterSession(r.Context(), sess.ID, user.ID, expiresAt, clientIP(r), r.UserAgent()); err != nil {
		h.logger.Error("register session", slog.Any("error", err))
	}
	h.recordActivity(r, user.ID, "login", sess.ID)
	h.metrics.RecordLogin("success")

	principal, err := h.service.PrincipalByID(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("hydrate principal", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	httpx.JSON(w, http.StatusOK, loginResponse{
		User: sessionUser{
			ID:       user.ID,
			Username: user.Username,
			Email:    user.Email,
			Name:     user.Name(),
			Roles:    principal.Roles,
			Locale:   shared.NegotiateLocale(r, sess),
		},
		DefaultRoute: authz.DefaultRouteFor(principal),
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil || sess.User() == "" {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "no active session")
		return
	}
	userID := sess.User()
	if err := h.service.RemoveSession(r.Context(), sess.ID); err != nil {
		h.logger.Warn("remove session", slog.Any("error", err))
	}
	h.recordActivity(r, userID, "logout", sess.ID)
	h.sessionManager.Destroy(sess)
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

func (h *Handler) handleSession(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil || sess.User() == "" {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "no active session")
		return
	}
	principal, err := h.service.PrincipalByID(r.Context(), sess.User())
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "session user no longer active")
			return
		}
		h.logger.Error("hydrate principal", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"principal":     principal,
		"default_route": authz.DefaultRouteFor(principal),
		"locale":        shared.NegotiateLocale(r, sess),
	})
}

func (h *Handler) recordActivity(r *http.Request, userID, action, sessionID string) {
	if h.activity == nil {
		return
	}
	entry := shared.Activity{
		UserID:     userID,
		Action:     action,
		Resource:   "session",
		ResourceID: sessionID,
		IP:         clientIP(r),
		UserAgent:  r.UserAgent(),
	}
	if err := h.activity.Record(r.Context(), entry); err != nil {
		h.logger.Warn("record activity", slog.Any("error", err))
	}
}

func clientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	return r.RemoteAddr
}
