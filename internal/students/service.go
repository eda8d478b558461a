package students

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/virtuallab/virtuallab/internal/authz"
	"github.com/virtuallab/virtuallab/internal/platform/httpx"
	"github.com/virtuallab/virtuallab/internal/shared"
)

// Service handles student business logic. School-scoped operations are
// gated on the actor's per-school access level, single-record reads on
// the ownership-aware resource check.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// ListForSchool returns the school's students when the actor holds
// students.read plus read access to that school.
func (s *Service) ListForSchool(ctx context.Context, actor *authz.Principal, schoolID int64, filter ListFilter) ([]Student, shared.Pagination, error) {
	verdict := authz.CheckSchoolResourceAccess(actor, "students", authz.ActionRead, schoolID, authz.AccessRead)
	if !verdict.Allowed {
		return nil, shared.Pagination{}, fmt.Errorf("%w: %s", httpx.ErrForbidden, verdict.Reason)
	}
	result, total, err := s.repo.ListBySchool(ctx, schoolID, filter)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return result, shared.NewPagination(filter.Page, filter.PerPage, total), nil
}

// Get loads one record. The instance id flows into the check so a
// student only passes for their own record and a parent only for a
// child's.
func (s *Service) Get(ctx context.Context, actor *authz.Principal, id string) (*Student, error) {
	verdict := authz.CheckResourceAccess(actor, "students", authz.ActionRead, id)
	if !verdict.Allowed {
		return nil, fmt.Errorf("%w: %s", httpx.ErrForbidden, verdict.Reason)
	}
	return s.repo.Get(ctx, id)
}

// Create enrolls a student. Requires write access to the school.
func (s *Service) Create(ctx context.Context, actor *authz.Principal, input CreateInput) (*Student, error) {
	verdict := authz.CheckSchoolResourceAccess(actor, "students", authz.ActionCreate, input.SchoolID, authz.AccessWrite)
	if !verdict.Allowed {
		return nil, fmt.Errorf("%w: %s", httpx.ErrForbidden, verdict.Reason)
	}

	student := &Student{
		ID:            uuid.NewString(),
		UserID:        input.UserID,
		SchoolID:      input.SchoolID,
		StudentNumber: input.StudentNumber,
		FirstName:     input.FirstName,
		LastName:      input.LastName,
		Gender:        input.Gender,
		GradeLevel:    input.GradeLevel,
		Class:         input.Class,
		DateOfBirth:   input.DateOfBirth,
		IsActive:      true,
	}
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, err
	}
	return student, nil
}

// Update edits a record. The school is resolved from the stored record
// so a caller cannot bypass the scope by lying about the school.
func (s *Service) Update(ctx context.Context, actor *authz.Principal, id string, input UpdateInput) (*Student, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	verdict := authz.CheckSchoolResourceAccess(actor, "students", authz.ActionUpdate, existing.SchoolID, authz.AccessWrite)
	if !verdict.Allowed {
		return nil, fmt.Errorf("%w: %s", httpx.ErrForbidden, verdict.Reason)
	}
	return s.repo.Update(ctx, id, input)
}

// EnrollmentCounts returns per-school totals across every school the
// actor can read.
func (s *Service) EnrollmentCounts(ctx context.Context, actor *authz.Principal) (map[int64]int, error) {
	if err := authz.RequirePermission(actor, authz.PermStudentsRead); err != nil {
		return nil, err
	}
	schools := actor.AccessibleSchoolIDs(authz.AccessRead)
	return s.repo.CountBySchool(ctx, schools)
}
