package dashboard

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/virtuallab/virtuallab/internal/authz"
	_ "github.com/virtuallab/virtuallab/testing"
)

type mockRepository struct {
	stats    map[int64]SchoolStat
	activity []ActivityEntry

	statsCalls int
}

func (m *mockRepository) SchoolStats(ctx context.Context, schoolIDs []int64) ([]SchoolStat, error) {
	m.statsCalls++
	var result []SchoolStat
	for _, id := range schoolIDs {
		if stat, ok := m.stats[id]; ok {
			result = append(result, stat)
		}
	}
	return result, nil
}

func (m *mockRepository) RecentActivity(ctx context.Context, userID string, limit int) ([]ActivityEntry, error) {
	return m.activity, nil
}

func testCache(t *testing.T) *Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	return NewCache(redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Minute)
}

func mentorPrincipal() *authz.Principal {
	return &authz.Principal{
		ID:          "m-1",
		Roles:       []authz.Role{authz.RoleClusterMentor},
		Permissions: []string{authz.PermPageDashboard, authz.PermStudentsRead},
		SchoolAccess: []authz.SchoolGrant{
			{SchoolID: 5, Level: authz.AccessRead},
			{SchoolID: 9, Level: authz.AccessWrite},
		},
	}
}

func TestSummaryScopesToAccessibleSchools(t *testing.T) {
	repo := &mockRepository{
		stats: map[int64]SchoolStat{
			5: {SchoolID: 5, SchoolName: "Wat Bo Primary", StudentCount: 120, TeacherCount: 6},
			9: {SchoolID: 9, SchoolName: "Kralanh Primary", StudentCount: 80, TeacherCount: 4},
			7: {SchoolID: 7, SchoolName: "Elsewhere", StudentCount: 999},
		},
		activity: []ActivityEntry{{Action: "login", Resource: "session", OccurredAt: time.Now()}},
	}
	svc := NewService(repo, testCache(t))

	summary, err := svc.Summary(context.Background(), mentorPrincipal())
	require.NoError(t, err)

	require.Len(t, summary.Schools, 2)
	assert.Equal(t, 200, summary.TotalStudents)
	assert.Equal(t, "Cluster Mentor Dashboard", summary.DashboardName)
	assert.Equal(t, "/dashboard", summary.DefaultRoute)
	require.Len(t, summary.RecentActivity, 1)
}

func TestSummaryUsesCache(t *testing.T) {
	repo := &mockRepository{stats: map[int64]SchoolStat{5: {SchoolID: 5, StudentCount: 10}}}
	svc := NewService(repo, testCache(t))
	actor := mentorPrincipal()

	_, err := svc.Summary(context.Background(), actor)
	require.NoError(t, err)
	_, err = svc.Summary(context.Background(), actor)
	require.NoError(t, err)

	assert.Equal(t, 1, repo.statsCalls)
}

func TestInvalidateBumpsVersion(t *testing.T) {
	repo := &mockRepository{stats: map[int64]SchoolStat{5: {SchoolID: 5, StudentCount: 10}}}
	svc := NewService(repo, testCache(t))
	actor := mentorPrincipal()

	_, err := svc.Summary(context.Background(), actor)
	require.NoError(t, err)

	require.NoError(t, svc.Invalidate(context.Background()))

	repo.stats[5] = SchoolStat{SchoolID: 5, StudentCount: 11}
	summary, err := svc.Summary(context.Background(), actor)
	require.NoError(t, err)
	assert.Equal(t, 11, summary.TotalStudents)
	assert.Equal(t, 2, repo.statsCalls)
}

func TestSummaryRejectsAnonymous(t *testing.T) {
	svc := NewService(&mockRepository{}, testCache(t))
	_, err := svc.Summary(context.Background(), nil)
	require.Error(t, err)
}
