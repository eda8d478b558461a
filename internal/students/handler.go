package students

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/virtuallab/virtuallab/internal/authz"
	"github.com/virtuallab/virtuallab/internal/platform/httpx"
	"github.com/virtuallab/virtuallab/internal/shared"
)

// Handler manages student endpoints.
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

// MountRoutes registers student routes. The school listing lives under
// its own subtree so the school id is always explicit.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequirePermission(authz.PermStudentsRead))
		r.Get("/counts", h.counts)
		r.Get("/school/{schoolID}", h.listBySchool)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequireResource("students", authz.ActionRead))
		r.Get("/{id}", h.get)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequirePermission(authz.PermStudentsCreate))
		r.Post("/", h.create)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequirePermission(authz.PermStudentsUpdate))
		r.Patch("/{id}", h.update)
	})
}

type listResponse struct {
	Students   []Student         `json:"students"`
	Pagination shared.Pagination `json:"pagination"`
}

func (h *Handler) listBySchool(w http.ResponseWriter, r *http.Request) {
	actor := authz.PrincipalFromContext(r.Context())
	schoolID, err := strconv.ParseInt(chi.URLParam(r, "schoolID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid school id")
		return
	}

	filter := ListFilter{
		Query:      r.URL.Query().Get("q"),
		GradeLevel: r.URL.Query().Get("grade"),
		Class:      r.URL.Query().Get("class"),
	}
	filter.Page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	filter.PerPage, _ = strconv.Atoi(r.URL.Query().Get("per_page"))

	result, pagination, err := h.service.ListForSchool(r.Context(), actor, schoolID, filter)
	if err != nil {
		h.fail(w, "list students", err)
		return
	}
	if result == nil {
		result = []Student{}
	}
	httpx.JSON(w, http.StatusOK, listResponse{Students: result, Pagination: pagination})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	actor := authz.PrincipalFromContext(r.Context())
	student, err := h.service.Get(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, "get student", err)
		return
	}
	httpx.JSON(w, http.StatusOK, student)
}

type createRequest struct {
	SchoolID      int64  `json:"school_id" validate:"required,gt=0"`
	UserID        string `json:"user_id"`
	StudentNumber string `json:"student_number" validate:"required"`
	FirstName     string `json:"first_name" validate:"required"`
	LastName      string `json:"last_name" validate:"required"`
	Gender        string `json:"gender" validate:"omitempty,oneof=male female other"`
	GradeLevel    string `json:"grade_level" validate:"required"`
	Class         string `json:"class"`
	DateOfBirth   string `json:"date_of_birth" validate:"omitempty,datetime=2006-01-02"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	actor := authz.PrincipalFromContext(r.Context())

	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed student payload")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	input := CreateInput{
		SchoolID:      req.SchoolID,
		UserID:        req.UserID,
		StudentNumber: req.StudentNumber,
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		Gender:        req.Gender,
		GradeLevel:    req.GradeLevel,
		Class:         req.Class,
	}
	if req.DateOfBirth != "" {
		dob, _ := time.Parse("2006-01-02", req.DateOfBirth)
		input.DateOfBirth = &dob
	}

	student, err := h.service.Create(r.Context(), actor, input)
	if err != nil {
		h.fail(w, "create student", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, student)
}

type updateRequest struct {
	FirstName   *string `json:"first_name"`
	LastName    *string `json:"last_name"`
	Gender      *string `json:"gender" validate:"omitempty,oneof=male female other"`
	GradeLevel  *string `json:"grade_level"`
	Class       *string `json:"class"`
	DateOfBirth *string `json:"date_of_birth" validate:"omitempty,datetime=2006-01-02"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	actor := authz.PrincipalFromContext(r.Context())

	var req updateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed student payload")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	input := UpdateInput{
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Gender:     req.Gender,
		GradeLevel: req.GradeLevel,
		Class:      req.Class,
	}
	if req.DateOfBirth != nil && *req.DateOfBirth != "" {
		dob, _ := time.Parse("2006-01-02", *req.DateOfBirth)
		input.DateOfBirth = &dob
	}

	student, err := h.service.Update(r.Context(), actor, chi.URLParam(r, "id"), input)
	if err != nil {
		h.fail(w, "update student", err)
		return
	}
	httpx.JSON(w, http.StatusOK, student)
}

func (h *Handler) counts(w http.ResponseWriter, r *http.Request) {
	actor := authz.PrincipalFromContext(r.Context())
	counts, err := h.service.EnrollmentCounts(r.Context(), actor)
	if err != nil {
		h.fail(w, "enrollment counts", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"counts": counts})
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if h.logger != nil {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
