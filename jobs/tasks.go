package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	jobmetrics "github.com/virtuallab/virtuallab/internal/jobs"
	"github.com/virtuallab/virtuallab/internal/shared"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskSessionCleanup removes expired login sessions.
	TaskSessionCleanup = "auth:session_cleanup"
	// TaskActivityPrune trims old activity log rows.
	TaskActivityPrune = "activity:prune"
)

// ActivityPrunePayload bounds the prune run.
type ActivityPrunePayload struct {
	RetainDays int `json:"retain_days"`
}

// NewSessionCleanupTask constructs the cleanup task.
func NewSessionCleanupTask() *asynq.Task {
	return asynq.NewTask(TaskSessionCleanup, nil)
}

// NewActivityPruneTask constructs the prune task.
func NewActivityPruneTask(payload ActivityPrunePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskActivityPrune, data), nil
}

// Tasks bundles the handlers with their dependencies.
type Tasks struct {
	pool    *pgxpool.Pool
	redis   *redis.Client
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
}

// NewTasks constructs task handlers.
func NewTasks(pool *pgxpool.Pool, redisClient *redis.Client, logger *slog.Logger, metrics *jobmetrics.Metrics) *Tasks {
	return &Tasks{pool: pool, redis: redisClient, logger: logger, metrics: metrics}
}

// HandleSessionCleanup deactivates expired session rows and drops their
// Redis payloads so a stale cookie can never resurrect a login.
func (t *Tasks) HandleSessionCleanup(ctx context.Context, task *asynq.Task) error {
	tracker := t.metrics.Track("session_cleanup")

	rows, err := t.pool.Query(ctx, `UPDATE user_sessions SET is_active = FALSE
		WHERE is_active AND expires_at < NOW() RETURNING id`)
	if err != nil {
		return tracker.End(err)
	}
	defer rows.Close()

	var expired []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return tracker.End(err)
		}
		expired = append(expired, id)
	}
	if err := rows.Err(); err != nil {
		return tracker.End(err)
	}

	for _, id := range expired {
		if err := t.redis.Del(ctx, shared.SessionKey(id)).Err(); err != nil && err != redis.Nil {
			t.logger.Warn("drop session payload", slog.String("session_id", id), slog.Any("error", err))
		}
	}

	t.logger.Info("session cleanup", slog.Int("expired", len(expired)))
	return tracker.End(nil)
}

// HandleActivityPrune deletes activity log rows older than the retention
// window. Defaults to 180 days when the payload carries none.
func (t *Tasks) HandleActivityPrune(ctx context.Context, task *asynq.Task) error {
	tracker := t.metrics.Track("activity_prune")

	var payload ActivityPrunePayload
	if len(task.Payload()) > 0 {
		if err := json.Unmarshal(task.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	retain := payload.RetainDays
	if retain <= 0 {
		retain = 180
	}

	cutoff := time.Now().AddDate(0, 0, -retain)
	tag, err := t.pool.Exec(ctx, `DELETE FROM user_activity_log WHERE occurred_at < $1`, cutoff)
	if err != nil {
		return tracker.End(err)
	}

	t.logger.Info("activity prune", slog.Int64("deleted", tag.RowsAffected()), slog.Time("cutoff", cutoff))
	return tracker.End(nil)
}
