package shared

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Activity represents a record stored in user_activity_log.
type Activity struct {
	UserID     string
	Action     string
	Resource   string
	ResourceID string
	Details    map[string]any
	IP         string
	UserAgent  string
	At         time.Time
}

// ActivityLogger writes records into user_activity_log.
type ActivityLogger struct {
	pool *pgxpool.Pool
}

// NewActivityLogger returns a new ActivityLogger.
func NewActivityLogger(pool *pgxpool.Pool) *ActivityLogger {
	return &ActivityLogger{pool: pool}
}

// Record persists the activity entry.
func (l *ActivityLogger) Record(ctx context.Context, entry Activity) error {
	if l == nil {
		return errors.New("activity logger not initialised")
	}
	if entry.UserID == "" || entry.Action == "" {
		return errors.New("activity log requires user_id/action")
	}
	details, err := json.Marshal(entry.Details)
	if err != nil {
		return err
	}
	occurredAt := entry.At
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}
	_, err = l.pool.Exec(ctx, `INSERT INTO user_activity_log (user_id, action, resource, resource_id, details, ip_address, user_agent, occurred_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		entry.UserID, entry.Action, entry.Resource, entry.ResourceID, details, entry.IP, entry.UserAgent, occurredAt)
	return err
}
