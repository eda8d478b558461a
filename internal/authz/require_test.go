package authz

import (
	"errors"
	"testing"

	"github.com/virtuallab/virtuallab/internal/platform/httpx"
)

func TestRequirePermission(t *testing.T) {
	p := &Principal{Permissions: []string{PermGradesRead}}
	if err := RequirePermission(p, PermGradesRead); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := RequirePermission(p, PermGradesDelete)
	if err == nil {
		t.Fatalf("expected error for missing permission")
	}
	if !errors.Is(err, httpx.ErrForbidden) {
		t.Fatalf("error must wrap the forbidden sentinel, got %v", err)
	}
}

func TestRequireRole(t *testing.T) {
	p := &Principal{Roles: []Role{RoleLibrarian}}
	if err := RequireRole(p, RoleLibrarian); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := RequireRole(p, RoleAdmin); !errors.Is(err, httpx.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestRequireSchoolAccess(t *testing.T) {
	p := &Principal{SchoolAccess: []SchoolGrant{{SchoolID: 4, Level: AccessWrite}}}
	if err := RequireSchoolAccess(p, 4, AccessWrite); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Empty level defaults to read.
	if err := RequireSchoolAccess(p, 4, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := RequireSchoolAccess(p, 4, AccessAdmin); !errors.Is(err, httpx.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}
