package authz

// PageRule guards one URL path. Every present condition must hold for
// access; a path with no conditions is open. Unregistered paths are open
// by default.
type PageRule struct {
	Path       string
	Name       string
	Permission string
	Role       Role
	Custom     func(*Principal) bool
	Fallback   string
}

// DefaultFallbackPage receives principals denied on a page whose rule does
// not name its own fallback.
const DefaultFallbackPage = "/dashboard"

// pageRules is the page registry in declaration order. AccessiblePages
// iterates this slice directly so the order here is the order callers see.
var pageRules = []PageRule{
	{Path: "/dashboard", Name: "dashboard", Permission: PermPageDashboard},
	{Path: "/dashboard/users", Name: "user_management", Permission: PermPageUserManagement},
	{Path: "/dashboard/roles", Name: "role_management", Permission: PermPageRoleManagement},
	{Path: "/dashboard/students", Name: "student_management", Permission: PermPageStudentManagement},
	{Path: "/dashboard/courses", Name: "course_management", Permission: PermPageCourseManagement},
	{Path: "/dashboard/content", Name: "content_management", Permission: PermPageContentManagement},
	{Path: "/dashboard/assessments", Name: "assessment_entry", Permission: PermPageAssessmentEntry},
	{Path: "/dashboard/gradebook", Name: "grade_book", Permission: PermPageGradeBook},
	{Path: "/dashboard/attendance", Name: "attendance", Permission: PermPageAttendance},
	{Path: "/dashboard/communication", Name: "communication", Permission: PermPageCommunication},
	{Path: "/dashboard/reports", Name: "reports", Permission: PermPageReports},
	{Path: "/dashboard/settings", Name: "settings", Permission: PermPageSettings},
	{Path: "/dashboard/admin", Name: "admin_panel", Permission: PermPageAdminPanel, Role: RoleSuperAdmin},
	{Path: "/student", Name: "student_portal", Permission: PermPageStudentPortal, Role: RoleStudent, Fallback: "/dashboard"},
	{Path: "/parent", Name: "parent_portal", Permission: PermPageParentPortal, Fallback: "/dashboard",
		Custom: func(p *Principal) bool {
			return p.HasRole(RoleParent) || p.HasRole(RoleGuardian)
		}},
}

var pageIndex = func() map[string]*PageRule {
	idx := make(map[string]*PageRule, len(pageRules))
	for i := range pageRules {
		idx[pageRules[i].Path] = &pageRules[i]
	}
	return idx
}()

// PageRuleFor returns the registered rule for a path, nil when the path is
// unregistered.
func PageRuleFor(path string) *PageRule {
	return pageIndex[path]
}

// RegisteredPages lists all guarded paths in declaration order.
func RegisteredPages() []string {
	paths := make([]string, len(pageRules))
	for i, rule := range pageRules {
		paths[i] = rule.Path
	}
	return paths
}
