package users

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/virtuallab/virtuallab/internal/authz"
	"github.com/virtuallab/virtuallab/internal/platform/httpx"
	"github.com/virtuallab/virtuallab/internal/shared"
	_ "github.com/virtuallab/virtuallab/testing"
)

type mockRepository struct {
	users map[string]*User

	createError error
	listError   error
}

func newMockRepository() *mockRepository {
	return &mockRepository{users: make(map[string]*User)}
}

func (m *mockRepository) List(ctx context.Context, filter ListFilter) ([]User, int, error) {
	if m.listError != nil {
		return nil, 0, m.listError
	}
	var result []User
	for _, u := range m.users {
		result = append(result, *u)
	}
	return result, len(result), nil
}

func (m *mockRepository) Get(ctx context.Context, id string) (*User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, httpx.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (m *mockRepository) Create(ctx context.Context, user *User, passwordHash string) error {
	if m.createError != nil {
		return m.createError
	}
	for _, existing := range m.users {
		if existing.Username == user.Username {
			return httpx.ErrDuplicate
		}
	}
	copied := *user
	m.users[user.ID] = &copied
	return nil
}

func (m *mockRepository) Update(ctx context.Context, id string, input UpdateInput) (*User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, httpx.ErrNotFound
	}
	if input.Email != nil {
		u.Email = *input.Email
	}
	if input.FirstName != nil {
		u.FirstName = *input.FirstName
	}
	if input.LastName != nil {
		u.LastName = *input.LastName
	}
	copied := *u
	return &copied, nil
}

func (m *mockRepository) SetActive(ctx context.Context, id string, active bool) error {
	u, ok := m.users[id]
	if !ok {
		return httpx.ErrNotFound
	}
	u.IsActive = active
	return nil
}

func (m *mockRepository) AssignRole(ctx context.Context, userID string, role authz.Role, assignedBy string) error {
	u, ok := m.users[userID]
	if !ok {
		return httpx.ErrNotFound
	}
	u.Roles = append(u.Roles, role)
	return nil
}

func (m *mockRepository) RevokeRole(ctx context.Context, userID string, role authz.Role) error {
	u, ok := m.users[userID]
	if !ok {
		return httpx.ErrNotFound
	}
	for i, r := range u.Roles {
		if r == role {
			u.Roles = append(u.Roles[:i], u.Roles[i+1:]...)
			return nil
		}
	}
	return httpx.ErrNotFound
}

type recordedActivity struct {
	entries []shared.Activity
}

func (r *recordedActivity) Record(ctx context.Context, entry shared.Activity) error {
	r.entries = append(r.entries, entry)
	return nil
}

func adminActor() *authz.Principal {
	return &authz.Principal{
		ID:    "admin-1",
		Roles: []authz.Role{authz.RoleAdmin},
		Permissions: []string{
			authz.PermUsersCreate, authz.PermUsersRead, authz.PermUsersUpdate,
			authz.PermUsersDelete, authz.PermUsersManageRoles,
		},
	}
}

func TestCreateUser(t *testing.T) {
	repo := newMockRepository()
	activity := &recordedActivity{}
	svc := NewService(repo, activity)

	user, err := svc.Create(context.Background(), adminActor(), CreateInput{
		Username:  "dara",
		Email:     "dara@school.kh",
		Password:  "long-enough-pass",
		FirstName: "Dara",
		LastName:  "Kim",
		Roles:     []authz.Role{authz.RoleTeacher},
	})
	require.NoError(t, err)
	require.NotNil(t, user)

	assert.NotEmpty(t, user.ID)
	assert.True(t, user.IsActive)
	assert.Equal(t, []authz.Role{authz.RoleTeacher}, user.Roles)

	require.Len(t, activity.entries, 1)
	assert.Equal(t, "user.create", activity.entries[0].Action)
	assert.Equal(t, user.ID, activity.entries[0].ResourceID)
}

func TestCreateUserRequiresPermission(t *testing.T) {
	svc := NewService(newMockRepository(), nil)
	viewer := &authz.Principal{ID: "v-1", Roles: []authz.Role{authz.RoleViewer}, Permissions: []string{authz.PermUsersRead}}

	_, err := svc.Create(context.Background(), viewer, CreateInput{Username: "x", Password: "long-enough-pass"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, httpx.ErrForbidden))
}

func TestCreateUserCannotEscalate(t *testing.T) {
	svc := NewService(newMockRepository(), nil)
	admin := adminActor()

	// admin ranks below super_admin, so granting it must fail
	_, err := svc.Create(context.Background(), admin, CreateInput{
		Username: "boss",
		Password: "long-enough-pass",
		Roles:    []authz.Role{authz.RoleSuperAdmin},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, httpx.ErrForbidden))

	// equal rank is also rejected
	_, err = svc.Create(context.Background(), admin, CreateInput{
		Username: "peer",
		Password: "long-enough-pass",
		Roles:    []authz.Role{authz.RoleAdmin},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, httpx.ErrForbidden))
}

func TestCreateUserDuplicate(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil)
	actor := adminActor()

	_, err := svc.Create(context.Background(), actor, CreateInput{Username: "dara", Password: "long-enough-pass", Roles: []authz.Role{authz.RoleTeacher}})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), actor, CreateInput{Username: "dara", Password: "long-enough-pass", Roles: []authz.Role{authz.RoleTeacher}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, httpx.ErrDuplicate))
}

func TestUpdateSelfWithoutAdminRole(t *testing.T) {
	repo := newMockRepository()
	repo.users["t-1"] = &User{ID: "t-1", Username: "vanna", IsActive: true}
	svc := NewService(repo, nil)

	self := &authz.Principal{ID: "t-1", Roles: []authz.Role{authz.RoleTeacher}, Permissions: []string{authz.PermUsersUpdate}}
	email := "vanna@school.kh"
	user, err := svc.Update(context.Background(), self, "t-1", UpdateInput{Email: &email})
	require.NoError(t, err)
	assert.Equal(t, email, user.Email)

	// same permissions, different target
	_, err = svc.Update(context.Background(), self, "t-2", UpdateInput{Email: &email})
	require.Error(t, err)
	assert.True(t, errors.Is(err, httpx.ErrForbidden))
}

func TestDeactivateRejectsSelf(t *testing.T) {
	repo := newMockRepository()
	repo.users["admin-1"] = &User{ID: "admin-1", IsActive: true}
	repo.users["t-1"] = &User{ID: "t-1", IsActive: true}
	svc := NewService(repo, nil)
	actor := adminActor()

	err := svc.Deactivate(context.Background(), actor, "admin-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, httpx.ErrValidation))
	assert.True(t, repo.users["admin-1"].IsActive)

	require.NoError(t, svc.Deactivate(context.Background(), actor, "t-1"))
	assert.False(t, repo.users["t-1"].IsActive)
}

func TestAssignRoleRankBoundary(t *testing.T) {
	repo := newMockRepository()
	repo.users["t-1"] = &User{ID: "t-1"}
	svc := NewService(repo, nil)

	principalActor := &authz.Principal{
		ID:          "p-1",
		Roles:       []authz.Role{authz.RolePrincipal},
		Permissions: []string{authz.PermUsersManageRoles},
	}

	require.NoError(t, svc.AssignRole(context.Background(), principalActor, "t-1", authz.RoleTeacher))
	assert.Equal(t, []authz.Role{authz.RoleTeacher}, repo.users["t-1"].Roles)

	err := svc.AssignRole(context.Background(), principalActor, "t-1", authz.RolePrincipal)
	require.Error(t, err)
	assert.True(t, errors.Is(err, httpx.ErrForbidden))

	// manage_roles permission missing entirely
	bare := &authz.Principal{ID: "p-2", Roles: []authz.Role{authz.RolePrincipal}}
	err = svc.AssignRole(context.Background(), bare, "t-1", authz.RoleTeacher)
	require.Error(t, err)
	assert.True(t, errors.Is(err, httpx.ErrForbidden))

	// a role name outside the catalog is denied, not passed to storage
	err = svc.AssignRole(context.Background(), principalActor, "t-1", authz.Role("janitor"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, httpx.ErrForbidden))
	assert.Equal(t, []authz.Role{authz.RoleTeacher}, repo.users["t-1"].Roles)
}

func TestRevokeRole(t *testing.T) {
	repo := newMockRepository()
	repo.users["t-1"] = &User{ID: "t-1", Roles: []authz.Role{authz.RoleTeacher}}
	svc := NewService(repo, nil)
	actor := adminActor()

	require.NoError(t, svc.RevokeRole(context.Background(), actor, "t-1", authz.RoleTeacher))
	assert.Empty(t, repo.users["t-1"].Roles)
}

func TestListRequiresRead(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil)

	_, _, err := svc.List(context.Background(), &authz.Principal{ID: "x"}, ListFilter{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, httpx.ErrForbidden))

	_, pagination, err := svc.List(context.Background(), adminActor(), ListFilter{Page: 1, PerPage: 10})
	require.NoError(t, err)
	assert.Equal(t, 0, pagination.Total)
}
