package students

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/virtuallab/virtuallab/internal/authz"
	"github.com/virtuallab/virtuallab/internal/platform/httpx"
	_ "github.com/virtuallab/virtuallab/testing"
)

type mockRepository struct {
	students map[string]*Student
}

func newMockRepository() *mockRepository {
	return &mockRepository{students: make(map[string]*Student)}
}

func (m *mockRepository) ListBySchool(ctx context.Context, schoolID int64, filter ListFilter) ([]Student, int, error) {
	var result []Student
	for _, s := range m.students {
		if s.SchoolID == schoolID && s.IsActive {
			result = append(result, *s)
		}
	}
	return result, len(result), nil
}

func (m *mockRepository) Get(ctx context.Context, id string) (*Student, error) {
	s, ok := m.students[id]
	if !ok {
		return nil, httpx.ErrNotFound
	}
	copied := *s
	return &copied, nil
}

func (m *mockRepository) Create(ctx context.Context, student *Student) error {
	copied := *student
	m.students[student.ID] = &copied
	return nil
}

func (m *mockRepository) Update(ctx context.Context, id string, input UpdateInput) (*Student, error) {
	s, ok := m.students[id]
	if !ok {
		return nil, httpx.ErrNotFound
	}
	if input.Class != nil {
		s.Class = *input.Class
	}
	if input.GradeLevel != nil {
		s.GradeLevel = *input.GradeLevel
	}
	copied := *s
	return &copied, nil
}

func (m *mockRepository) CountBySchool(ctx context.Context, schoolIDs []int64) (map[int64]int, error) {
	counts := make(map[int64]int)
	for _, s := range m.students {
		for _, id := range schoolIDs {
			if s.SchoolID == id && s.IsActive {
				counts[id]++
			}
		}
	}
	return counts, nil
}

func teacherAt(schoolID int64, level authz.AccessLevel) *authz.Principal {
	return &authz.Principal{
		ID:    "t-1",
		Roles: []authz.Role{authz.RoleTeacher},
		Permissions: []string{
			authz.PermStudentsCreate, authz.PermStudentsRead, authz.PermStudentsUpdate,
		},
		SchoolAccess: []authz.SchoolGrant{{SchoolID: schoolID, Level: level}},
	}
}

func seedStudent(repo *mockRepository, id string, schoolID int64) {
	repo.students[id] = &Student{ID: id, SchoolID: schoolID, FirstName: "Srey", LastName: "Neang", GradeLevel: "4", IsActive: true}
}

func TestListForSchoolScoping(t *testing.T) {
	repo := newMockRepository()
	seedStudent(repo, "st-1", 5)
	seedStudent(repo, "st-2", 9)
	svc := NewService(repo)

	actor := teacherAt(5, authz.AccessRead)
	result, pagination, err := svc.ListForSchool(context.Background(), actor, 5, ListFilter{Page: 1, PerPage: 10})
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "st-1", result[0].ID)
	assert.Equal(t, 1, pagination.Total)

	_, _, err = svc.ListForSchool(context.Background(), actor, 9, ListFilter{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, httpx.ErrForbidden))
	assert.True(t, strings.Contains(err.Error(), "insufficient school access"))
}

func TestGetOwnership(t *testing.T) {
	repo := newMockRepository()
	seedStudent(repo, "st-1", 5)
	seedStudent(repo, "st-2", 5)
	svc := NewService(repo)

	self := &authz.Principal{
		ID:          "u-1",
		Roles:       []authz.Role{authz.RoleStudent},
		Permissions: []string{authz.PermStudentsRead},
		StudentID:   "st-1",
	}

	student, err := svc.Get(context.Background(), self, "st-1")
	require.NoError(t, err)
	assert.Equal(t, "st-1", student.ID)

	_, err = svc.Get(context.Background(), self, "st-2")
	require.Error(t, err)
	assert.True(t, errors.Is(err, httpx.ErrForbidden))
}

func TestGetParentSeesChildOnly(t *testing.T) {
	repo := newMockRepository()
	seedStudent(repo, "st-1", 5)
	seedStudent(repo, "st-2", 5)
	svc := NewService(repo)

	parent := &authz.Principal{
		ID:          "p-1",
		Roles:       []authz.Role{authz.RoleParent},
		Permissions: []string{authz.PermStudentsRead},
		ChildrenIDs: []string{"st-2"},
	}

	_, err := svc.Get(context.Background(), parent, "st-2")
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), parent, "st-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, httpx.ErrForbidden))
}

func TestCreateRequiresWriteAccess(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)

	reader := teacherAt(5, authz.AccessRead)
	_, err := svc.Create(context.Background(), reader, CreateInput{SchoolID: 5, StudentNumber: "S-100", FirstName: "Bopha", LastName: "Sok", GradeLevel: "3"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, httpx.ErrForbidden))

	writer := teacherAt(5, authz.AccessWrite)
	student, err := svc.Create(context.Background(), writer, CreateInput{SchoolID: 5, StudentNumber: "S-100", FirstName: "Bopha", LastName: "Sok", GradeLevel: "3"})
	require.NoError(t, err)
	assert.NotEmpty(t, student.ID)
	assert.True(t, student.IsActive)
}

func TestUpdateResolvesSchoolFromRecord(t *testing.T) {
	repo := newMockRepository()
	seedStudent(repo, "st-1", 9)
	svc := NewService(repo)

	// writer on school 5 cannot touch a school 9 record
	actor := teacherAt(5, authz.AccessWrite)
	class := "4B"
	_, err := svc.Update(context.Background(), actor, "st-1", UpdateInput{Class: &class})
	require.Error(t, err)
	assert.True(t, errors.Is(err, httpx.ErrForbidden))

	actor = teacherAt(9, authz.AccessWrite)
	student, err := svc.Update(context.Background(), actor, "st-1", UpdateInput{Class: &class})
	require.NoError(t, err)
	assert.Equal(t, "4B", student.Class)
}

func TestEnrollmentCounts(t *testing.T) {
	repo := newMockRepository()
	seedStudent(repo, "st-1", 5)
	seedStudent(repo, "st-2", 5)
	seedStudent(repo, "st-3", 9)
	svc := NewService(repo)

	actor := teacherAt(5, authz.AccessRead)
	counts, err := svc.EnrollmentCounts(context.Background(), actor)
	require.NoError(t, err)
	assert.Equal(t, map[int64]int{5: 2}, counts)

	noRead := &authz.Principal{ID: "x"}
	_, err = svc.EnrollmentCounts(context.Background(), noRead)
	require.Error(t, err)
	assert.True(t, errors.Is(err, httpx.ErrForbidden))
}
