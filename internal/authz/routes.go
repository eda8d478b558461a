package authz

// RoleRoute names the landing page for one role.
type RoleRoute struct {
	Role        Role
	DefaultPath string
	Name        string
}

// roleRoutes maps every role to its landing page and dashboard label.
var roleRoutes = map[Role]RoleRoute{
	RoleSuperAdmin:       {Role: RoleSuperAdmin, DefaultPath: "/dashboard", Name: "Super Administrator Dashboard"},
	RoleAdmin:            {Role: RoleAdmin, DefaultPath: "/dashboard", Name: "Administrator Dashboard"},
	RolePrincipal:        {Role: RolePrincipal, DefaultPath: "/dashboard", Name: "Principal Dashboard"},
	RoleClusterMentor:    {Role: RoleClusterMentor, DefaultPath: "/dashboard", Name: "Cluster Mentor Dashboard"},
	RoleTeacher:          {Role: RoleTeacher, DefaultPath: "/dashboard", Name: "Teacher Dashboard"},
	RoleAssistantTeacher: {Role: RoleAssistantTeacher, DefaultPath: "/dashboard", Name: "Assistant Teacher Dashboard"},
	RoleLibrarian:        {Role: RoleLibrarian, DefaultPath: "/dashboard", Name: "Librarian Dashboard"},
	RoleCounselor:        {Role: RoleCounselor, DefaultPath: "/dashboard", Name: "Counselor Dashboard"},
	RoleStudent:          {Role: RoleStudent, DefaultPath: "/student", Name: "Student Portal"},
	RoleParent:           {Role: RoleParent, DefaultPath: "/parent", Name: "Parent Portal"},
	RoleGuardian:         {Role: RoleGuardian, DefaultPath: "/parent", Name: "Guardian Portal"},
	RoleViewer:           {Role: RoleViewer, DefaultPath: "/dashboard", Name: "Viewer Dashboard"},
}

// highestRole returns the principal's highest-ranked role, empty when the
// principal holds none.
func highestRole(p *Principal) Role {
	if p == nil {
		return ""
	}
	var best Role
	bestRank := 0
	for _, r := range p.Roles {
		if rank := roleRanks[r]; rank > bestRank {
			bestRank = rank
			best = r
		}
	}
	return best
}

// DefaultRouteFor returns the landing path for the principal's highest
// role, falling back to the dashboard.
func DefaultRouteFor(p *Principal) string {
	if route, ok := roleRoutes[highestRole(p)]; ok {
		return route.DefaultPath
	}
	return DefaultFallbackPage
}

// DashboardNameFor returns the dashboard label for the principal's highest
// role.
func DashboardNameFor(p *Principal) string {
	if route, ok := roleRoutes[highestRole(p)]; ok {
		return route.Name
	}
	return "Dashboard"
}
