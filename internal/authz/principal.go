package authz

// SchoolGrant gives a principal a graded access level on one school,
// optionally restricted to a subject.
type SchoolGrant struct {
	SchoolID int64       `json:"school_id"`
	Level    AccessLevel `json:"level"`
	Subject  string      `json:"subject,omitempty"`
}

// Principal is the authenticated actor being authorized. It is built once
// per request by the session layer and must not be mutated afterwards:
// every check in this package treats it as read-only.
type Principal struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`

	// Roles and Permissions are independent sets: permissions are granted
	// flat and never derived from roles here. Role-to-permission expansion
	// happens upstream when the principal is hydrated from storage.
	Roles       []Role   `json:"roles"`
	Permissions []string `json:"permissions"`

	SchoolAccess []SchoolGrant `json:"school_access"`

	// Ownership context for instance-level checks.
	StudentID   string   `json:"student_id,omitempty"`
	ChildrenIDs []string `json:"children_ids,omitempty"`

	PreferredLanguage string `json:"preferred_language,omitempty"`
}

// HasRole reports exact membership of role in the principal's role set.
func (p *Principal) HasRole(role Role) bool {
	if p == nil {
		return false
	}
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// HasPermission reports whether the flat permission set contains
// resource.action.
func (p *Principal) HasPermission(resource, action string) bool {
	if p == nil {
		return false
	}
	want := resource + "." + action
	for _, perm := range p.Permissions {
		if perm == want {
			return true
		}
	}
	return false
}

// MaxRoleRank returns the highest hierarchy rank over the principal's
// roles. A principal with no roles has rank zero, below every real role.
func (p *Principal) MaxRoleRank() int {
	if p == nil {
		return 0
	}
	max := 0
	for _, r := range p.Roles {
		if rank := roleRanks[r]; rank > max {
			max = rank
		}
	}
	return max
}

// HasMinimumAccess reports whether the principal holds at least the
// required level on the given school. When duplicate grants exist for one
// school the most permissive wins.
func (p *Principal) HasMinimumAccess(schoolID int64, required AccessLevel) bool {
	if p == nil {
		return false
	}
	requiredRank := accessRanks[required]
	if requiredRank == 0 {
		return false
	}
	best := 0
	for _, grant := range p.SchoolAccess {
		if grant.SchoolID != schoolID {
			continue
		}
		if rank := accessRanks[grant.Level]; rank > best {
			best = rank
		}
	}
	return best >= requiredRank
}

// AccessibleSchoolIDs returns the IDs of all schools where the principal
// holds at least the required level, preserving grant order. Duplicate
// grants yield duplicate IDs; callers that need a set must dedup.
func (p *Principal) AccessibleSchoolIDs(required AccessLevel) []int64 {
	if p == nil {
		return nil
	}
	requiredRank := accessRanks[required]
	ids := make([]int64, 0, len(p.SchoolAccess))
	for _, grant := range p.SchoolAccess {
		if accessRanks[grant.Level] >= requiredRank {
			ids = append(ids, grant.SchoolID)
		}
	}
	return ids
}
