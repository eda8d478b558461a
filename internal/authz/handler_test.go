package authz

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

func permissionsRouter() chi.Router {
	h := NewHandler(nil, Middleware{})
	r := chi.NewRouter()
	r.Route("/api/permissions", h.MountRoutes)
	return r
}

func checkRequestAs(p *Principal, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/permissions/check", strings.NewReader(body))
	return req.WithContext(ContextWithPrincipal(req.Context(), p))
}

func TestCheckEndpointRequiresAuth(t *testing.T) {
	res := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/permissions/check", strings.NewReader(`{"type":"page","pathname":"/dashboard"}`))

	permissionsRouter().ServeHTTP(res, req)

	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}
}

func TestCheckEndpointPage(t *testing.T) {
	p := principalWith([]Role{RoleStudent}, []string{PermPageStudentPortal})

	res := httptest.NewRecorder()
	req := checkRequestAs(p, `{"type":"page","pathname":"/dashboard/admin"}`)

	permissionsRouter().ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	var verdict Verdict
	if err := json.Unmarshal(res.Body.Bytes(), &verdict); err != nil {
		t.Fatalf("decode verdict: %v", err)
	}
	if verdict.Allowed {
		t.Fatalf("student must not reach the admin panel")
	}
	if verdict.Fallback != DefaultFallbackPage {
		t.Fatalf("expected fallback %q, got %q", DefaultFallbackPage, verdict.Fallback)
	}
}

func TestCheckEndpointResource(t *testing.T) {
	p := principalWith([]Role{RoleTeacher}, []string{PermGradesRead})

	res := httptest.NewRecorder()
	req := checkRequestAs(p, `{"type":"resource","resource":"grades","action":"read"}`)

	permissionsRouter().ServeHTTP(res, req)

	var verdict Verdict
	if err := json.Unmarshal(res.Body.Bytes(), &verdict); err != nil {
		t.Fatalf("decode verdict: %v", err)
	}
	if !verdict.Allowed {
		t.Fatalf("expected allow, got reason %q", verdict.Reason)
	}
}

func TestCheckEndpointSchoolResource(t *testing.T) {
	p := principalWith([]Role{RoleTeacher}, []string{PermGradesUpdate})
	p.SchoolAccess = []SchoolGrant{{SchoolID: 3, Level: AccessRead}}

	res := httptest.NewRecorder()
	req := checkRequestAs(p, `{"type":"school_resource","resource":"grades","action":"update","school_id":3,"required_access":"write"}`)

	permissionsRouter().ServeHTTP(res, req)

	var verdict Verdict
	if err := json.Unmarshal(res.Body.Bytes(), &verdict); err != nil {
		t.Fatalf("decode verdict: %v", err)
	}
	if verdict.Allowed {
		t.Fatalf("read grant must not satisfy write requirement")
	}
	if verdict.Reason != `insufficient school access, required: write` {
		t.Fatalf("unexpected reason %q", verdict.Reason)
	}
}

func TestCheckEndpointInvalidType(t *testing.T) {
	p := principalWith([]Role{RoleTeacher}, nil)

	res := httptest.NewRecorder()
	req := checkRequestAs(p, `{"type":"unknown"}`)

	permissionsRouter().ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestSummaryEndpoint(t *testing.T) {
	p := principalWith([]Role{RoleTeacher}, []string{PermGradesRead, PermGradesUpdate, PermStudentsRead})

	res := httptest.NewRecorder()
	req := requestWithPrincipal(http.MethodGet, "/api/permissions/", p)

	permissionsRouter().ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}

	var resp struct {
		Roles        []Role `json:"roles"`
		Permissions  []string
		Resources    []struct {
			Resource string   `json:"resource"`
			Actions  []Action `json:"actions"`
		} `json:"resources"`
		DefaultRoute  string `json:"default_route"`
		DashboardName string `json:"dashboard_name"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if resp.DefaultRoute != "/dashboard" {
		t.Fatalf("unexpected default route %q", resp.DefaultRoute)
	}
	if resp.DashboardName != "Teacher Dashboard" {
		t.Fatalf("unexpected dashboard name %q", resp.DashboardName)
	}

	found := false
	for _, rs := range resp.Resources {
		if rs.Resource == "grades" {
			found = true
			if len(rs.Actions) != 2 {
				t.Fatalf("expected read+update on grades, got %v", rs.Actions)
			}
		}
	}
	if !found {
		t.Fatalf("grades missing from summary resources")
	}
}
