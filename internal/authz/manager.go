package authz

import (
	"fmt"
	"strings"
)

// Verdict is the outcome of an authorization check. A deny carries a
// diagnostic reason and, for page checks, the path the caller should be
// redirected to.
type Verdict struct {
	Allowed  bool   `json:"allowed"`
	Reason   string `json:"reason,omitempty"`
	Fallback string `json:"fallback,omitempty"`
}

func allow() Verdict {
	return Verdict{Allowed: true}
}

func deny(reason string) Verdict {
	return Verdict{Allowed: false, Reason: reason}
}

func denyPage(reason string, rule *PageRule) Verdict {
	fallback := rule.Fallback
	if fallback == "" {
		fallback = DefaultFallbackPage
	}
	return Verdict{Allowed: false, Reason: reason, Fallback: fallback}
}

// CheckPageAccess evaluates the page registry for a path. Conditions are
// checked in order (role, permission, custom) and the first failure wins;
// unregistered paths are allowed.
func CheckPageAccess(p *Principal, path string) Verdict {
	rule := PageRuleFor(path)
	if rule == nil {
		return allow()
	}
	if rule.Role != "" && !p.HasRole(rule.Role) {
		return denyPage(fmt.Sprintf("required role: %s", rule.Role), rule)
	}
	if rule.Permission != "" {
		resource, action, _ := strings.Cut(rule.Permission, ".")
		if !p.HasPermission(resource, action) {
			return denyPage(fmt.Sprintf("required permission: %s", rule.Permission), rule)
		}
	}
	if rule.Custom != nil && !rule.Custom(p) {
		return denyPage("custom check failed", rule)
	}
	return allow()
}

// CheckResourceAccess evaluates a CRUD action on a resource, optionally
// for a specific instance. Unknown resources and unmapped actions deny
// with distinct reasons rather than failing. The registered ownership
// check runs only when resourceID is non-empty: list requests are judged
// on the flat permission alone.
func CheckResourceAccess(p *Principal, resource string, action Action, resourceID string) Verdict {
	rule, ok := ResourceRuleFor(resource)
	if !ok {
		return deny("unknown resource")
	}
	required, ok := rule.Permissions[action]
	if !ok {
		return deny(fmt.Sprintf("action %q not allowed on resource %q", action, resource))
	}
	permResource, permAction, _ := strings.Cut(required, ".")
	if !p.HasPermission(permResource, permAction) {
		return deny(fmt.Sprintf("missing permission: %s", required))
	}
	if resourceID != "" {
		if check, ok := rule.CustomChecks[action]; ok && !check(p, resourceID) {
			return deny("custom authorization check failed")
		}
	}
	return allow()
}

// CheckSchoolResourceAccess composes the resource check with a school
// access-level check. The resource check runs first and its verdict is
// returned unchanged on deny, so its reason is the one surfaced.
func CheckSchoolResourceAccess(p *Principal, resource string, action Action, schoolID int64, required AccessLevel) Verdict {
	if required == "" {
		required = AccessRead
	}
	if verdict := CheckResourceAccess(p, resource, action, ""); !verdict.Allowed {
		return verdict
	}
	if !p.HasMinimumAccess(schoolID, required) {
		return deny(fmt.Sprintf("insufficient school access, required: %s", required))
	}
	return allow()
}

// HasRole reports exact role membership.
func HasRole(p *Principal, role Role) bool {
	return p.HasRole(role)
}

// HasAnyRole reports whether the principal holds at least one of the roles.
func HasAnyRole(p *Principal, roles ...Role) bool {
	for _, role := range roles {
		if p.HasRole(role) {
			return true
		}
	}
	return false
}

// HasMinimumRole reports whether the principal's highest role rank is at
// least the rank of the given role. A principal with no roles sits below
// every role; an unknown required role is never satisfied.
func HasMinimumRole(p *Principal, role Role) bool {
	required := roleRanks[role]
	if required == 0 {
		return false
	}
	return p.MaxRoleRank() >= required
}

// HasAnyPermission reports whether the principal holds at least one of the
// given resource.action permission atoms.
func HasAnyPermission(p *Principal, permissions ...string) bool {
	for _, permission := range permissions {
		resource, action, _ := strings.Cut(permission, ".")
		if p.HasPermission(resource, action) {
			return true
		}
	}
	return false
}

// AccessiblePages filters the page registry through CheckPageAccess,
// preserving registry declaration order.
func AccessiblePages(p *Principal) []string {
	pages := make([]string, 0, len(pageRules))
	for _, rule := range pageRules {
		if CheckPageAccess(p, rule.Path).Allowed {
			pages = append(pages, rule.Path)
		}
	}
	return pages
}

// ResourceActions returns the registered actions on a resource whose
// mapped permission the principal currently holds. Ownership checks are
// not consulted here: there is no instance context at this granularity.
func ResourceActions(p *Principal, resource string) []Action {
	rule, ok := ResourceRuleFor(resource)
	if !ok {
		return nil
	}
	actions := make([]Action, 0, len(rule.Permissions))
	for _, action := range crudActions {
		required, ok := rule.Permissions[action]
		if !ok {
			continue
		}
		permResource, permAction, _ := strings.Cut(required, ".")
		if p.HasPermission(permResource, permAction) {
			actions = append(actions, action)
		}
	}
	return actions
}

// CanManageUser reports whether the principal may manage the target user
// account. Super admins manage anyone; otherwise users.update is required,
// either on the principal's own account or combined with the admin role.
func CanManageUser(p *Principal, targetID string) bool {
	if p.HasRole(RoleSuperAdmin) {
		return true
	}
	if p != nil && p.ID == targetID && p.HasPermission("users", "update") {
		return true
	}
	return p.HasPermission("users", "update") && p.HasRole(RoleAdmin)
}

// CanAssignRole reports whether the principal may grant the target role:
// users.manage_roles is required and the principal's highest rank must
// strictly exceed the target's. Nobody hands out their own rank or above,
// and a role outside the catalog is never assignable.
func CanAssignRole(p *Principal, target Role) bool {
	if !p.HasPermission("users", "manage_roles") {
		return false
	}
	required := roleRanks[target]
	if required == 0 {
		return false
	}
	return p.MaxRoleRank() > required
}
