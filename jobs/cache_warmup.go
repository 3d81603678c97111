package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lattice-cms/lattice/internal/authz"
	jobmetrics "github.com/lattice-cms/lattice/internal/jobs"
	"github.com/lattice-cms/lattice/internal/shared"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// AuthzCacheWarmupJob pre-populates permission-set cache entries for actors
// with a live login session, so the first request after a deploy or a cache
// flush does not pay the resolution cost.
type AuthzCacheWarmupJob struct {
	Resolver *authz.Resolver
	Pool     *pgxpool.Pool
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
	clock    func() time.Time
}

// NewAuthzCacheWarmupJob wires dependencies for the warmup handler.
func NewAuthzCacheWarmupJob(resolver *authz.Resolver, pool *pgxpool.Pool, logger *slog.Logger, metrics *jobmetrics.Metrics) *AuthzCacheWarmupJob {
	return &AuthzCacheWarmupJob{
		Resolver: resolver,
		Pool:     pool,
		Logger:   logger,
		Metrics:  metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes cache warmup tasks.
func (j *AuthzCacheWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Resolver == nil || j.Pool == nil {
		return errors.New("authz warmup: handler not configured")
	}
	var payload AuthzCacheWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	window := 24 * time.Hour
	if payload.ActiveWindow != "" {
		parsed, err := time.ParseDuration(payload.ActiveWindow)
		if err != nil {
			return asynq.SkipRetry
		}
		window = parsed
	}
	maxActors := payload.MaxActors
	if maxActors <= 0 {
		maxActors = 200
	}

	tracker := j.metrics().Track(TaskAuthzCacheWarmup)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	actors, err := j.recentActors(ctx, j.clock().Add(-window), maxActors)
	if err != nil {
		resultErr = err
		return resultErr
	}
	siteIDs, err := j.siteIDs(ctx, payload.SiteID)
	if err != nil {
		resultErr = err
		return resultErr
	}

	warmed := 0
	for i := range actors {
		actor := &actors[i]
		if payload.IncludeGlobal {
			if _, err := j.Resolver.PermissionSet(ctx, actor, 0); err != nil {
				j.logger().Warn("warmup global set",
					slog.String("actor", actor.Key()),
					slog.Any("error", err))
				continue
			}
			warmed++
		}
		for _, siteID := range siteIDs {
			if _, err := j.Resolver.PermissionSet(ctx, actor, siteID); err != nil {
				j.logger().Warn("warmup site set",
					slog.String("actor", actor.Key()),
					slog.Int64("site_id", siteID),
					slog.Any("error", err))
				continue
			}
			warmed++
			j.metrics().AddWarmed(string(actor.Kind), 1)
		}
	}

	j.logger().Info("authz cache warmup complete",
		slog.Int("actors", len(actors)),
		slog.Int("sites", len(siteIDs)),
		slog.Int("permission_sets", warmed))
	return nil
}

func (j *AuthzCacheWarmupJob) recentActors(ctx context.Context, since time.Time, limit int) ([]shared.Actor, error) {
	rows, err := j.Pool.Query(ctx, `
		SELECT DISTINCT actor_kind, actor_id
		FROM login_sessions
		WHERE expires_at > $1
		LIMIT $2`, since, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var actors []shared.Actor
	for rows.Next() {
		var kind string
		var id int64
		if err := rows.Scan(&kind, &id); err != nil {
			return nil, err
		}
		actors = append(actors, shared.Actor{Kind: shared.ActorKind(kind), ID: id})
	}
	return actors, rows.Err()
}

func (j *AuthzCacheWarmupJob) siteIDs(ctx context.Context, only int64) ([]int64, error) {
	if only > 0 {
		return []int64{only}, nil
	}
	rows, err := j.Pool.Query(ctx, `SELECT id FROM sites ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (j *AuthzCacheWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

func (j *AuthzCacheWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
