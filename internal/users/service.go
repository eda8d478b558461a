package users

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/virtuallab/virtuallab/internal/authz"
	"github.com/virtuallab/virtuallab/internal/platform/httpx"
	"github.com/virtuallab/virtuallab/internal/shared"
)

// ActivityRecorder captures management actions in the activity log.
type ActivityRecorder interface {
	Record(ctx context.Context, entry shared.Activity) error
}

// Service handles user management business logic. Every operation takes
// the acting principal and enforces the authorization rules before
// touching the repository.
type Service struct {
	repo     RepositoryPort
	activity ActivityRecorder
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, activity ActivityRecorder) *Service {
	return &Service{repo: repo, activity: activity}
}

// List returns users the actor may see.
func (s *Service) List(ctx context.Context, actor *authz.Principal, filter ListFilter) ([]User, shared.Pagination, error) {
	if err := authz.RequirePermission(actor, authz.PermUsersRead); err != nil {
		return nil, shared.Pagination{}, err
	}
	result, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return result, shared.NewPagination(filter.Page, filter.PerPage, total), nil
}

// Get loads a single account.
func (s *Service) Get(ctx context.Context, actor *authz.Principal, id string) (*User, error) {
	if err := authz.RequirePermission(actor, authz.PermUsersRead); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// Create provisions a new account with its initial roles. The actor
// must hold users.create and outrank every role being granted.
func (s *Service) Create(ctx context.Context, actor *authz.Principal, input CreateInput) (*User, error) {
	if err := authz.RequirePermission(actor, authz.PermUsersCreate); err != nil {
		return nil, err
	}
	for _, role := range input.Roles {
		if !authz.CanAssignRole(actor, role) {
			return nil, fmt.Errorf("%w: cannot assign role %q", httpx.ErrForbidden, role)
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &User{
		ID:                uuid.NewString(),
		Username:          input.Username,
		Email:             input.Email,
		FirstName:         input.FirstName,
		LastName:          input.LastName,
		Phone:             input.Phone,
		PreferredLanguage: input.PreferredLanguage,
		IsActive:          true,
		Roles:             input.Roles,
	}
	if err := s.repo.Create(ctx, user, string(hash)); err != nil {
		return nil, err
	}
	s.record(ctx, actor, "user.create", user.ID, map[string]any{"username": user.Username, "roles": user.Roles})
	return user, nil
}

// Update edits profile fields on an account the actor may manage.
func (s *Service) Update(ctx context.Context, actor *authz.Principal, id string, input UpdateInput) (*User, error) {
	if !authz.CanManageUser(actor, id) {
		return nil, fmt.Errorf("%w: cannot manage this user", httpx.ErrForbidden)
	}
	user, err := s.repo.Update(ctx, id, input)
	if err != nil {
		return nil, err
	}
	s.record(ctx, actor, "user.update", id, nil)
	return user, nil
}

// Deactivate disables an account. Self-deactivation is rejected so an
// administrator cannot lock themselves out.
func (s *Service) Deactivate(ctx context.Context, actor *authz.Principal, id string) error {
	if !authz.CanManageUser(actor, id) {
		return fmt.Errorf("%w: cannot manage this user", httpx.ErrForbidden)
	}
	if actor != nil && actor.ID == id {
		return fmt.Errorf("%w: cannot deactivate own account", httpx.ErrValidation)
	}
	if err := s.repo.SetActive(ctx, id, false); err != nil {
		return err
	}
	s.record(ctx, actor, "user.deactivate", id, nil)
	return nil
}

// Activate re-enables a disabled account.
func (s *Service) Activate(ctx context.Context, actor *authz.Principal, id string) error {
	if !authz.CanManageUser(actor, id) {
		return fmt.Errorf("%w: cannot manage this user", httpx.ErrForbidden)
	}
	if err := s.repo.SetActive(ctx, id, true); err != nil {
		return err
	}
	s.record(ctx, actor, "user.activate", id, nil)
	return nil
}

// AssignRole grants a role. The actor needs users.manage_roles and a
// strictly higher rank than the role being granted.
func (s *Service) AssignRole(ctx context.Context, actor *authz.Principal, userID string, role authz.Role) error {
	if !authz.CanAssignRole(actor, role) {
		return fmt.Errorf("%w: cannot assign role %q", httpx.ErrForbidden, role)
	}
	assignedBy := ""
	if actor != nil {
		assignedBy = actor.ID
	}
	if err := s.repo.AssignRole(ctx, userID, role, assignedBy); err != nil {
		return err
	}
	s.record(ctx, actor, "user.assign_role", userID, map[string]any{"role": role})
	return nil
}

// RevokeRole removes a role grant under the same rank rule as granting.
func (s *Service) RevokeRole(ctx context.Context, actor *authz.Principal, userID string, role authz.Role) error {
	if !authz.CanAssignRole(actor, role) {
		return fmt.Errorf("%w: cannot revoke role %q", httpx.ErrForbidden, role)
	}
	if err := s.repo.RevokeRole(ctx, userID, role); err != nil {
		return err
	}
	s.record(ctx, actor, "user.revoke_role", userID, map[string]any{"role": role})
	return nil
}

func (s *Service) record(ctx context.Context, actor *authz.Principal, action, targetID string, details map[string]any) {
	if s.activity == nil || actor == nil {
		return
	}
	_ = s.activity.Record(ctx, shared.Activity{
		UserID:     actor.ID,
		Action:     action,
		Resource:   "users",
		ResourceID: targetID,
		Details:    details,
	})
}
