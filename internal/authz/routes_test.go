package authz

import "testing"

func TestDefaultRouteFor(t *testing.T) {
	cases := []struct {
		name  string
		roles []Role
		want  string
	}{
		{"student", []Role{RoleStudent}, "/student"},
		{"parent", []Role{RoleParent}, "/parent"},
		{"guardian", []Role{RoleGuardian}, "/parent"},
		{"teacher", []Role{RoleTeacher}, "/dashboard"},
		{"highest role wins", []Role{RoleStudent, RoleTeacher}, "/dashboard"},
		{"no roles", nil, "/dashboard"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := &Principal{Roles: tc.roles}
			if got := DefaultRouteFor(p); got != tc.want {
				t.Fatalf("expected %s got %s", tc.want, got)
			}
		})
	}
}

func TestDashboardNameFor(t *testing.T) {
	p := &Principal{Roles: []Role{RoleTeacher, RolePrincipal}}
	if got := DashboardNameFor(p); got != "Principal Dashboard" {
		t.Fatalf("unexpected dashboard name %q", got)
	}
	if got := DashboardNameFor(&Principal{}); got != "Dashboard" {
		t.Fatalf("roleless principal gets the generic label, got %q", got)
	}
}
