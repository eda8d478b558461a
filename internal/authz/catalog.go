// Package authz implements the portal's layered authorization model: a
// global role hierarchy, flat named permissions, per-resource CRUD
// permission mappings, per-school access levels and instance-level
// ownership checks. All registries are package-level constants built at
// load time; every check is a pure function over an immutable Principal,
// so the package is safe for concurrent use without coordination.
package authz

// Role is a named category with a fixed rank in the role hierarchy.
type Role string

// Closed role enumeration.
const (
	RoleSuperAdmin       Role = "super_admin"
	RoleAdmin            Role = "admin"
	RolePrincipal        Role = "principal"
	RoleClusterMentor    Role = "cluster_mentor"
	RoleTeacher          Role = "teacher"
	RoleAssistantTeacher Role = "assistant_teacher"
	RoleStudent          Role = "student"
	RoleParent           Role = "parent"
	RoleGuardian         Role = "guardian"
	RoleLibrarian        Role = "librarian"
	RoleCounselor        Role = "counselor"
	RoleViewer           Role = "viewer"
)

// roleRanks assigns every role its place in the hierarchy. Ranks are used
// for "at least as privileged as" comparisons, never equality.
var roleRanks = map[Role]int{
	RoleStudent:          1,
	RoleParent:           1,
	RoleGuardian:         1,
	RoleViewer:           2,
	RoleAssistantTeacher: 3,
	RoleTeacher:          4,
	RoleLibrarian:        4,
	RoleCounselor:        4,
	RoleClusterMentor:    5,
	RolePrincipal:        6,
	RoleAdmin:            7,
	RoleSuperAdmin:       8,
}

// RoleRank returns the hierarchy rank for a role, zero when unknown.
func RoleRank(role Role) int {
	return roleRanks[role]
}

// Roles returns the closed role set ordered by ascending rank.
func Roles() []Role {
	return []Role{
		RoleStudent, RoleParent, RoleGuardian,
		RoleViewer,
		RoleAssistantTeacher,
		RoleTeacher, RoleLibrarian, RoleCounselor,
		RoleClusterMentor,
		RolePrincipal,
		RoleAdmin,
		RoleSuperAdmin,
	}
}

// Action is a CRUD action on a protected resource.
type Action string

const (
	ActionCreate Action = "create"
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// crudActions lists all actions in canonical declaration order.
var crudActions = []Action{ActionCreate, ActionRead, ActionUpdate, ActionDelete}

// AccessLevel is a graded access level on a school. Levels are totally
// ordered: read < write < admin.
type AccessLevel string

const (
	AccessRead  AccessLevel = "read"
	AccessWrite AccessLevel = "write"
	AccessAdmin AccessLevel = "admin"
)

var accessRanks = map[AccessLevel]int{
	AccessRead:  1,
	AccessWrite: 2,
	AccessAdmin: 3,
}

// AccessRank returns the lattice rank of an access level, zero when unknown.
func AccessRank(level AccessLevel) int {
	return accessRanks[level]
}

// User management permissions.
const (
	PermUsersCreate            = "users.create"
	PermUsersRead              = "users.read"
	PermUsersUpdate            = "users.update"
	PermUsersDelete            = "users.delete"
	PermUsersManageRoles       = "users.manage_roles"
	PermUsersManagePermissions = "users.manage_permissions"
	PermUsersImport            = "users.import"
	PermUsersExport            = "users.export"
)

// Role management permissions.
const (
	PermRolesCreate            = "roles.create"
	PermRolesRead              = "roles.read"
	PermRolesUpdate            = "roles.update"
	PermRolesDelete            = "roles.delete"
	PermRolesManagePermissions = "roles.manage_permissions"
)

// Student management permissions.
const (
	PermStudentsCreate         = "students.create"
	PermStudentsRead           = "students.read"
	PermStudentsUpdate         = "students.update"
	PermStudentsDelete         = "students.delete"
	PermStudentsSelect         = "students.select"
	PermStudentsExport         = "students.export"
	PermStudentsEnroll         = "students.enroll"
	PermStudentsManageProgress = "students.manage_progress"
	PermStudentsViewGrades     = "students.view_grades"
)

// Course management permissions.
const (
	PermCoursesCreate           = "courses.create"
	PermCoursesRead             = "courses.read"
	PermCoursesUpdate           = "courses.update"
	PermCoursesDelete           = "courses.delete"
	PermCoursesManageEnrollment = "courses.manage_enrollment"
	PermCoursesManageContent    = "courses.manage_content"
	PermCoursesPublish          = "courses.publish"
)

// Content management permissions.
const (
	PermContentCreate         = "content.create"
	PermContentRead           = "content.read"
	PermContentUpdate         = "content.update"
	PermContentDelete         = "content.delete"
	PermContentPublish        = "content.publish"
	PermContentManageVersions = "content.manage_versions"
)

// Assessment permissions.
const (
	PermAssessmentsCreate  = "assessments.create"
	PermAssessmentsRead    = "assessments.read"
	PermAssessmentsUpdate  = "assessments.update"
	PermAssessmentsDelete  = "assessments.delete"
	PermAssessmentsExport  = "assessments.export"
	PermAssessmentsGrade   = "assessments.grade"
	PermAssessmentsPublish = "assessments.publish"
)

// Grade book permissions.
const (
	PermGradesCreate  = "grades.create"
	PermGradesRead    = "grades.read"
	PermGradesUpdate  = "grades.update"
	PermGradesDelete  = "grades.delete"
	PermGradesExport  = "grades.export"
	PermGradesPublish = "grades.publish"
)

// Attendance permissions.
const (
	PermAttendanceCreate = "attendance.create"
	PermAttendanceRead   = "attendance.read"
	PermAttendanceUpdate = "attendance.update"
	PermAttendanceDelete = "attendance.delete"
	PermAttendanceExport = "attendance.export"
)

// Communication permissions.
const (
	PermCommunicationSendMessage         = "communication.send_message"
	PermCommunicationReadMessage         = "communication.read_message"
	PermCommunicationSendAnnouncement    = "communication.send_announcement"
	PermCommunicationManageNotifications = "communication.manage_notifications"
)

// School management permissions.
const (
	PermSchoolsCreate        = "schools.create"
	PermSchoolsRead          = "schools.read"
	PermSchoolsUpdate        = "schools.update"
	PermSchoolsDelete        = "schools.delete"
	PermSchoolsManageAccess  = "schools.manage_access"
	PermSchoolsManageClasses = "schools.manage_classes"
)

// Reporting permissions.
const (
	PermReportsRead           = "reports.read"
	PermReportsExport         = "reports.export"
	PermReportsCreateCustom   = "reports.create_custom"
	PermReportsAcademic       = "reports.academic"
	PermReportsAdministrative = "reports.administrative"
)

// System administration permissions.
const (
	PermSystemBackup      = "system.backup"
	PermSystemRestore     = "system.restore"
	PermSystemLogs        = "system.logs"
	PermSystemSettings    = "system.settings"
	PermSystemMaintenance = "system.maintenance"
)

// Page access permissions.
const (
	PermPageDashboard         = "pages.dashboard"
	PermPageUserManagement    = "pages.user_management"
	PermPageRoleManagement    = "pages.role_management"
	PermPageStudentManagement = "pages.student_management"
	PermPageCourseManagement  = "pages.course_management"
	PermPageContentManagement = "pages.content_management"
	PermPageAssessmentEntry   = "pages.assessment_entry"
	PermPageGradeBook         = "pages.grade_book"
	PermPageAttendance        = "pages.attendance"
	PermPageReports           = "pages.reports"
	PermPageCommunication     = "pages.communication"
	PermPageSettings          = "pages.settings"
	PermPageAdminPanel        = "pages.admin_panel"
	PermPageStudentPortal     = "pages.student_portal"
	PermPageParentPortal      = "pages.parent_portal"
)

// AllPermissions returns every permission atom known to the catalog.
func AllPermissions() []string {
	return []string{
		PermUsersCreate, PermUsersRead, PermUsersUpdate, PermUsersDelete,
		PermUsersManageRoles, PermUsersManagePermissions, PermUsersImport, PermUsersExport,
		PermRolesCreate, PermRolesRead, PermRolesUpdate, PermRolesDelete, PermRolesManagePermissions,
		PermStudentsCreate, PermStudentsRead, PermStudentsUpdate, PermStudentsDelete,
		PermStudentsSelect, PermStudentsExport, PermStudentsEnroll, PermStudentsManageProgress, PermStudentsViewGrades,
		PermCoursesCreate, PermCoursesRead, PermCoursesUpdate, PermCoursesDelete,
		PermCoursesManageEnrollment, PermCoursesManageContent, PermCoursesPublish,
		PermContentCreate, PermContentRead, PermContentUpdate, PermContentDelete,
		PermContentPublish, PermContentManageVersions,
		PermAssessmentsCreate, PermAssessmentsRead, PermAssessmentsUpdate, PermAssessmentsDelete,
		PermAssessmentsExport, PermAssessmentsGrade, PermAssessmentsPublish,
		PermGradesCreate, PermGradesRead, PermGradesUpdate, PermGradesDelete,
		PermGradesExport, PermGradesPublish,
		PermAttendanceCreate, PermAttendanceRead, PermAttendanceUpdate, PermAttendanceDelete, PermAttendanceExport,
		PermCommunicationSendMessage, PermCommunicationReadMessage,
		PermCommunicationSendAnnouncement, PermCommunicationManageNotifications,
		PermSchoolsCreate, PermSchoolsRead, PermSchoolsUpdate, PermSchoolsDelete,
		PermSchoolsManageAccess, PermSchoolsManageClasses,
		PermReportsRead, PermReportsExport, PermReportsCreateCustom,
		PermReportsAcademic, PermReportsAdministrative,
		PermSystemBackup, PermSystemRestore, PermSystemLogs, PermSystemSettings, PermSystemMaintenance,
		PermPageDashboard, PermPageUserManagement, PermPageRoleManagement,
		PermPageStudentManagement, PermPageCourseManagement, PermPageContentManagement,
		PermPageAssessmentEntry, PermPageGradeBook, PermPageAttendance,
		PermPageReports, PermPageCommunication, PermPageSettings,
		PermPageAdminPanel, PermPageStudentPortal, PermPageParentPortal,
	}
}
