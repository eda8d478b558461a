package authz

import (
	"fmt"
	"strings"

	"github.com/virtuallab/virtuallab/internal/platform/httpx"
)

// The Require helpers translate a false check into an error for callers
// that abort on denial, typically inside mutations after the request-entry
// guard already passed. Request-entry authorization should prefer the
// Verdict-returning checks so an ordinary deny never surfaces as a 500.

// RequirePermission fails unless the principal holds the permission atom.
func RequirePermission(p *Principal, permission string) error {
	resource, action, _ := strings.Cut(permission, ".")
	if !p.HasPermission(resource, action) {
		return fmt.Errorf("%w: required permission %s", httpx.ErrForbidden, permission)
	}
	return nil
}

// RequireRole fails unless the principal holds the exact role.
func RequireRole(p *Principal, role Role) error {
	if !p.HasRole(role) {
		return fmt.Errorf("%w: required role %s", httpx.ErrForbidden, role)
	}
	return nil
}

// RequireSchoolAccess fails unless the principal holds at least the
// required level on the school.
func RequireSchoolAccess(p *Principal, schoolID int64, required AccessLevel) error {
	if required == "" {
		required = AccessRead
	}
	if !p.HasMinimumAccess(schoolID, required) {
		return fmt.Errorf("%w: required school access %s for school %d", httpx.ErrForbidden, required, schoolID)
	}
	return nil
}
