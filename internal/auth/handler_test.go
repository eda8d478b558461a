package auth_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/virtuallab/virtuallab/internal/auth"
	"github.com/virtuallab/virtuallab/internal/authz"
	"github.com/virtuallab/virtuallab/internal/shared"
	_ "github.com/virtuallab/virtuallab/testing"
)

type stubRepo struct {
	user      *auth.User
	principal *authz.Principal
	sessions  map[string]string
}

func (s *stubRepo) FindByUsername(ctx context.Context, username string) (*auth.User, error) {
	if s.user == nil || s.user.Username != username {
		return nil, shared.ErrNotFound
	}
	return s.user, nil
}

func (s *stubRepo) Principal(ctx context.Context, userID string) (*authz.Principal, error) {
	if s.principal == nil || s.principal.ID != userID {
		return nil, shared.ErrNotFound
	}
	return s.principal, nil
}

func (s *stubRepo) CreateSession(ctx context.Context, id, userID string, expiresAt time.Time, ip, ua string) error {
	if s.sessions == nil {
		s.sessions = make(map[string]string)
	}
	s.sessions[id] = userID
	return nil
}

func (s *stubRepo) DeleteSession(ctx context.Context, id string) error {
	delete(s.sessions, id)
	return nil
}

func (s *stubRepo) TouchLastLogin(ctx context.Context, userID string) error {
	return nil
}

func newHandler(t *testing.T, repo auth.Repository) (*auth.Handler, *shared.SessionManager) {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessionManager := shared.NewSessionManager(redisClient, "test_session", "secret", time.Hour, false)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := auth.NewHandler(logger, auth.NewService(repo), sessionManager, nil, nil)
	return handler, sessionManager
}

func chiRouterFor(h *auth.Handler) chi.Router {
	r := chi.NewRouter()
	r.Route("/auth", h.MountRoutes)
	return r
}

func attachSession(t *testing.T, sm *shared.SessionManager, req *http.Request) (*http.Request, *shared.Session) {
	t.Helper()
	sess, err := sm.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	ctx := shared.ContextWithSession(req.Context(), sess)
	return req.WithContext(ctx), sess
}

func demoRepo(t *testing.T) *stubRepo {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte("sokha-pass-123"), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return &stubRepo{
		user: &auth.User{
			ID:           "u-1",
			Username:     "sokha",
			Email:        "sokha@school.kh",
			FirstName:    "Sokha",
			LastName:     "Chan",
			PasswordHash: string(hashed),
			IsActive:     true,
		},
		principal: &authz.Principal{
			ID:          "u-1",
			Username:    "sokha",
			Roles:       []authz.Role{authz.RoleStudent},
			Permissions: []string{authz.PermPageStudentPortal},
		},
	}
}

func TestLoginSuccess(t *testing.T) {
	repo := demoRepo(t)
	handler, sm := newHandler(t, repo)

	body := `{"username":"sokha","password":"sokha-pass-123"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	req, sess := attachSession(t, sm, req)
	res := httptest.NewRecorder()

	r := chiRouterFor(handler)
	r.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if sess.User() != "u-1" {
		t.Fatalf("session user not set, got %q", sess.User())
	}
	if _, ok := repo.sessions[sess.ID]; !ok {
		t.Fatalf("session record not registered")
	}

	var resp struct {
		User struct {
			Name string `json:"name"`
		} `json:"user"`
		DefaultRoute string `json:"default_route"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.User.Name != "Sokha Chan" {
		t.Fatalf("unexpected display name %q", resp.User.Name)
	}
	if resp.DefaultRoute != "/student" {
		t.Fatalf("student must land on /student, got %q", resp.DefaultRoute)
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	handler, sm := newHandler(t, demoRepo(t))

	body := `{"username":"sokha","password":"wrong-password"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	req, sess := attachSession(t, sm, req)
	res := httptest.NewRecorder()

	chiRouterFor(handler).ServeHTTP(res, req)

	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}
	if sess.User() != "" {
		t.Fatalf("session user must not be set on failed login")
	}
}

func TestLoginValidation(t *testing.T) {
	handler, sm := newHandler(t, demoRepo(t))

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"username":"sokha"}`))
	req, _ = attachSession(t, sm, req)
	res := httptest.NewRecorder()

	chiRouterFor(handler).ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestSessionEndpointRequiresUser(t *testing.T) {
	handler, sm := newHandler(t, demoRepo(t))

	req := httptest.NewRequest(http.MethodGet, "/auth/session", nil)
	req, _ = attachSession(t, sm, req)
	res := httptest.NewRecorder()

	chiRouterFor(handler).ServeHTTP(res, req)

	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}
}

func TestSessionEndpointReturnsPrincipal(t *testing.T) {
	handler, sm := newHandler(t, demoRepo(t))

	req := httptest.NewRequest(http.MethodGet, "/auth/session", nil)
	req, sess := attachSession(t, sm, req)
	sess.SetUser("u-1")
	res := httptest.NewRecorder()

	chiRouterFor(handler).ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	var resp struct {
		Principal    authz.Principal `json:"principal"`
		DefaultRoute string          `json:"default_route"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Principal.ID != "u-1" {
		t.Fatalf("unexpected principal %q", resp.Principal.ID)
	}
	if resp.DefaultRoute != "/student" {
		t.Fatalf("unexpected default route %q", resp.DefaultRoute)
	}
}
