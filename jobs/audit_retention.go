package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/lattice-cms/lattice/internal/audit"
	jobmetrics "github.com/lattice-cms/lattice/internal/jobs"
)

// AuditRetentionJob prunes audit events older than the retention window.
type AuditRetentionJob struct {
	Audit     *audit.Service
	Retention time.Duration
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
}

// NewAuditRetentionJob wires dependencies for the retention handler.
func NewAuditRetentionJob(auditSvc *audit.Service, retention time.Duration, logger *slog.Logger, metrics *jobmetrics.Metrics) *AuditRetentionJob {
	return &AuditRetentionJob{
		Audit:     auditSvc,
		Retention: retention,
		Logger:    logger,
		Metrics:   metrics,
	}
}

// Handle processes retention tasks.
func (j *AuditRetentionJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Audit == nil {
		return errors.New("audit retention: handler not configured")
	}
	var payload AuditRetentionPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	retention := j.Retention
	if payload.Retention != "" {
		parsed, err := time.ParseDuration(payload.Retention)
		if err != nil {
			return asynq.SkipRetry
		}
		retention = parsed
	}
	if retention <= 0 {
		// A zero window would wipe the whole trail.
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskAuditRetention)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	pruned, err := j.Audit.Retain(ctx, retention)
	if err != nil {
		resultErr = err
		return resultErr
	}
	j.metrics().AddPruned("audit_events", pruned)
	j.logger().Info("audit retention complete",
		slog.Duration("retention", retention),
		slog.Int64("pruned", pruned))
	return nil
}

func (j *AuditRetentionJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

func (j *AuditRetentionJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
