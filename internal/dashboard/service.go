package dashboard

import (
	"context"

	"golang.org/x/sync/singleflight"

	"github.com/virtuallab/virtuallab/internal/authz"
)

// Summary is the role-aware landing payload. Schools only contains the
// schools the principal can read, so two users with the same role still
// see different numbers.
type Summary struct {
	DashboardName   string          `json:"dashboard_name"`
	DefaultRoute    string          `json:"default_route"`
	Roles           []authz.Role    `json:"roles"`
	AccessiblePages []string        `json:"accessible_pages"`
	Schools         []SchoolStat    `json:"schools"`
	TotalStudents   int             `json:"total_students"`
	RecentActivity  []ActivityEntry `json:"recent_activity"`
}

// Service assembles dashboard summaries with a Redis cache in front of
// the aggregate queries and singleflight collapsing concurrent builds
// of the same user's summary.
type Service struct {
	repo  RepositoryPort
	cache *Cache
	group singleflight.Group
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, cache *Cache) *Service {
	return &Service{repo: repo, cache: cache}
}

// Summary returns the landing payload for the principal.
func (s *Service) Summary(ctx context.Context, actor *authz.Principal) (*Summary, error) {
	if actor == nil {
		return nil, authz.RequirePermission(nil, authz.PermPageDashboard)
	}

	key, err := s.cache.BuildKey(ctx, "dashboard", "summary", actor.ID)
	if err != nil {
		return nil, err
	}

	result, err, _ := s.group.Do(key, func() (any, error) {
		var summary Summary
		err := s.cache.FetchJSON(ctx, key, &summary, func(ctx context.Context) (any, error) {
			return s.build(ctx, actor)
		})
		if err != nil {
			return nil, err
		}
		return &summary, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*Summary), nil
}

// Invalidate drops every cached summary.
func (s *Service) Invalidate(ctx context.Context) error {
	return s.cache.Bump(ctx)
}

func (s *Service) build(ctx context.Context, actor *authz.Principal) (*Summary, error) {
	summary := &Summary{
		DashboardName:   authz.DashboardNameFor(actor),
		DefaultRoute:    authz.DefaultRouteFor(actor),
		Roles:           actor.Roles,
		AccessiblePages: authz.AccessiblePages(actor),
	}

	schools := actor.AccessibleSchoolIDs(authz.AccessRead)
	stats, err := s.repo.SchoolStats(ctx, schools)
	if err != nil {
		return nil, err
	}
	summary.Schools = stats
	for _, stat := range stats {
		summary.TotalStudents += stat.StudentCount
	}

	activity, err := s.repo.RecentActivity(ctx, actor.ID, 10)
	if err != nil {
		return nil, err
	}
	summary.RecentActivity = activity
	return summary, nil
}
