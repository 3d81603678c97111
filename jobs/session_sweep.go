package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	jobmetrics "github.com/lattice-cms/lattice/internal/jobs"
)

// SessionSweepJob removes login sessions past their expiry.
type SessionSweepJob struct {
	Pool    *pgxpool.Pool
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewSessionSweepJob wires dependencies for the sweep handler.
func NewSessionSweepJob(pool *pgxpool.Pool, logger *slog.Logger, metrics *jobmetrics.Metrics) *SessionSweepJob {
	return &SessionSweepJob{
		Pool:    pool,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes session sweep tasks.
func (j *SessionSweepJob) Handle(ctx context.Context, _ *asynq.Task) error {
	if j == nil || j.Pool == nil {
		return errors.New("session sweep: handler not configured")
	}

	tracker := j.metrics().Track(TaskSessionSweep)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	tag, err := j.Pool.Exec(ctx, `DELETE FROM login_sessions WHERE expires_at <= $1`, j.clock())
	if err != nil {
		resultErr = err
		return resultErr
	}
	j.metrics().AddPruned("login_sessions", tag.RowsAffected())

	keyTag, err := j.Pool.Exec(ctx, `DELETE FROM idempotency_keys WHERE created_at < $1`, j.clock().Add(-24*time.Hour))
	if err != nil {
		resultErr = err
		return resultErr
	}
	j.metrics().AddPruned("idempotency_keys", keyTag.RowsAffected())

	j.logger().Info("session sweep complete",
		slog.Int64("sessions_removed", tag.RowsAffected()),
		slog.Int64("idempotency_keys_removed", keyTag.RowsAffected()))
	return nil
}

func (j *SessionSweepJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

func (j *SessionSweepJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
