package dashboard

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// SchoolStat aggregates one school's headline numbers.
type SchoolStat struct {
	SchoolID     int64  `json:"school_id"`
	SchoolName   string `json:"school_name"`
	StudentCount int    `json:"student_count"`
	TeacherCount int    `json:"teacher_count"`
}

// ActivityEntry is one row of the recent activity feed.
type ActivityEntry struct {
	Action     string    `json:"action"`
	Resource   string    `json:"resource"`
	ResourceID string    `json:"resource_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// RepositoryPort defines data access for dashboard aggregates.
type RepositoryPort interface {
	SchoolStats(ctx context.Context, schoolIDs []int64) ([]SchoolStat, error)
	RecentActivity(ctx context.Context, userID string, limit int) ([]ActivityEntry, error)
}

// Repository provides PostgreSQL backed aggregates.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// SchoolStats returns per-school enrolment and staffing counts for the
// given schools, ordered by school name.
func (r *Repository) SchoolStats(ctx context.Context, schoolIDs []int64) ([]SchoolStat, error) {
	if len(schoolIDs) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT s.id, s.name,
			(SELECT COUNT(*) FROM students st WHERE st.school_id = s.id AND st.is_active),
			(SELECT COUNT(DISTINCT usa.user_id) FROM user_school_access usa WHERE usa.school_id = s.id AND usa.is_active AND usa.access_level IN ('write', 'admin'))
		FROM schools s
		WHERE s.id = ANY($1) AND s.is_active
		ORDER BY s.name`, schoolIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []SchoolStat
	for rows.Next() {
		var stat SchoolStat
		if err := rows.Scan(&stat.SchoolID, &stat.SchoolName, &stat.StudentCount, &stat.TeacherCount); err != nil {
			return nil, err
		}
		stats = append(stats, stat)
	}
	return stats, rows.Err()
}

// RecentActivity returns the user's latest activity log entries.
func (r *Repository) RecentActivity(ctx context.Context, userID string, limit int) ([]ActivityEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.pool.Query(ctx, `SELECT action, COALESCE(resource, ''), COALESCE(resource_id, ''), occurred_at
		FROM user_activity_log WHERE user_id = $1 ORDER BY occurred_at DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []ActivityEntry
	for rows.Next() {
		var entry ActivityEntry
		if err := rows.Scan(&entry.Action, &entry.Resource, &entry.ResourceID, &entry.OccurredAt); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
