package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskAuthzCacheWarmup preloads permission sets for recently active actors.
	TaskAuthzCacheWarmup = "authz:cache:warmup"
	// TaskAuditRetention prunes audit events older than the retention window.
	TaskAuditRetention = "audit:retention"
	// TaskSessionSweep removes expired login sessions.
	TaskSessionSweep = "auth:session:sweep"
)

// AuthzCacheWarmupPayload scopes a warmup run. A zero SiteID warms every site
// an actor has touched; ActiveWindow narrows which sessions count as recent.
type AuthzCacheWarmupPayload struct {
	SiteID        int64  `json:"site_id,omitempty"`
	ActiveWindow  string `json:"active_window,omitempty"`
	MaxActors     int    `json:"max_actors,omitempty"`
	IncludeGlobal bool   `json:"include_global"`
}

// NewAuthzCacheWarmupTask constructs an Asynq task for a warmup run.
func NewAuthzCacheWarmupTask(payload AuthzCacheWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAuthzCacheWarmup, data), nil
}

// AuditRetentionPayload optionally overrides the configured retention window.
type AuditRetentionPayload struct {
	Retention string `json:"retention,omitempty"`
}

// NewAuditRetentionTask constructs an Asynq task for a retention run.
func NewAuditRetentionTask(payload AuditRetentionPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAuditRetention, data), nil
}

// SessionSweepPayload is currently empty; the sweep always removes every
// session past its expiry.
type SessionSweepPayload struct{}

// NewSessionSweepTask constructs an Asynq task for a session sweep.
func NewSessionSweepTask() (*asynq.Task, error) {
	data, err := json.Marshal(SessionSweepPayload{})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSessionSweep, data), nil
}
