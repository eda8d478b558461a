package authz

// CustomCheck is an instance-level ownership predicate. It runs only when
// the request names a concrete instance; collection-level requests rely on
// the flat permission alone.
type CustomCheck func(p *Principal, resourceID string) bool

// ResourceRule maps a protected resource to the permission required per
// CRUD action, with optional per-action ownership checks.
type ResourceRule struct {
	Resource     string
	Permissions  map[Action]string
	CustomChecks map[Action]CustomCheck
}

// ownRecordCheck restricts students to their own record and parents or
// guardians to their children's records. Everyone else passes through to
// the flat permission result.
func ownRecordCheck(p *Principal, resourceID string) bool {
	if p.HasRole(RoleStudent) {
		return p.StudentID == resourceID
	}
	if p.HasRole(RoleParent) || p.HasRole(RoleGuardian) {
		for _, id := range p.ChildrenIDs {
			if id == resourceID {
				return true
			}
		}
		return false
	}
	return true
}

// resourceRules is the resource registry.
var resourceRules = map[string]ResourceRule{
	"users": {
		Resource: "users",
		Permissions: map[Action]string{
			ActionCreate: PermUsersCreate,
			ActionRead:   PermUsersRead,
			ActionUpdate: PermUsersUpdate,
			ActionDelete: PermUsersDelete,
		},
	},
	"roles": {
		Resource: "roles",
		Permissions: map[Action]string{
			ActionCreate: PermRolesCreate,
			ActionRead:   PermRolesRead,
			ActionUpdate: PermRolesUpdate,
			ActionDelete: PermRolesDelete,
		},
	},
	"students": {
		Resource: "students",
		Permissions: map[Action]string{
			ActionCreate: PermStudentsCreate,
			ActionRead:   PermStudentsRead,
			ActionUpdate: PermStudentsUpdate,
			ActionDelete: PermStudentsDelete,
		},
		CustomChecks: map[Action]CustomCheck{
			ActionRead: ownRecordCheck,
		},
	},
	"courses": {
		Resource: "courses",
		Permissions: map[Action]string{
			ActionCreate: PermCoursesCreate,
			ActionRead:   PermCoursesRead,
			ActionUpdate: PermCoursesUpdate,
			ActionDelete: PermCoursesDelete,
		},
	},
	"content": {
		Resource: "content",
		Permissions: map[Action]string{
			ActionCreate: PermContentCreate,
			ActionRead:   PermContentRead,
			ActionUpdate: PermContentUpdate,
			ActionDelete: PermContentDelete,
		},
	},
	"assessments": {
		Resource: "assessments",
		Permissions: map[Action]string{
			ActionCreate: PermAssessmentsCreate,
			ActionRead:   PermAssessmentsRead,
			ActionUpdate: PermAssessmentsUpdate,
			ActionDelete: PermAssessmentsDelete,
		},
	},
	"grades": {
		Resource: "grades",
		Permissions: map[Action]string{
			ActionCreate: PermGradesCreate,
			ActionRead:   PermGradesRead,
			ActionUpdate: PermGradesUpdate,
			ActionDelete: PermGradesDelete,
		},
		CustomChecks: map[Action]CustomCheck{
			ActionRead: ownRecordCheck,
		},
	},
	"attendance": {
		Resource: "attendance",
		Permissions: map[Action]string{
			ActionCreate: PermAttendanceCreate,
			ActionRead:   PermAttendanceRead,
			ActionUpdate: PermAttendanceUpdate,
			ActionDelete: PermAttendanceDelete,
		},
	},
	"schools": {
		Resource: "schools",
		Permissions: map[Action]string{
			ActionCreate: PermSchoolsCreate,
			ActionRead:   PermSchoolsRead,
			ActionUpdate: PermSchoolsUpdate,
			ActionDelete: PermSchoolsDelete,
		},
	},
}

// ResourceRuleFor returns the registered rule for a resource name.
func ResourceRuleFor(resource string) (ResourceRule, bool) {
	rule, ok := resourceRules[resource]
	return rule, ok
}

// RegisteredResources lists all protected resource names in a stable order.
func RegisteredResources() []string {
	return []string{
		"users", "roles", "students", "courses", "content",
		"assessments", "grades", "attendance", "schools",
	}
}
