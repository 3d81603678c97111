package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lattice-cms/lattice/internal/shared"
)

// RepositoryPort defines persistence for the audit log.
type RepositoryPort interface {
	Insert(ctx context.Context, event *Event) error
	Window(ctx context.Context, filters TimelineFilters, limit, offset int32) ([]Event, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// PGRepository implements RepositoryPort using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

func (r *PGRepository) Insert(ctx context.Context, event *Event) error {
	at := event.At
	if at.IsZero() {
		at = time.Now()
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO audit_events (kind, actor_key, site_id, channel_id, content_id, detail, at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		string(event.Kind), event.ActorKey, event.SiteID, event.ChannelID, event.ContentID, event.Detail, at.UTC())
	if err != nil {
		return storeErr("insert", err)
	}
	return nil
}

func (r *PGRepository) Window(ctx context.Context, filters TimelineFilters, limit, offset int32) ([]Event, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, kind, actor_key, site_id, channel_id, content_id, detail, at
		 FROM audit_events
		 WHERE ($1::text = '' OR kind = $1)
		   AND ($2::bigint = 0 OR site_id = $2)
		   AND ($3::text = '' OR actor_key = $3)
		   AND ($4::timestamptz IS NULL OR at >= $4)
		   AND ($5::timestamptz IS NULL OR at < $5)
		 ORDER BY at DESC, id DESC
		 LIMIT $6 OFFSET $7`,
		string(filters.Kind), filters.SiteID, filters.ActorKey,
		nullTime(filters.From), nullTime(filters.To), limit, offset)
	if err != nil {
		return nil, storeErr("window", err)
	}
	defer rows.Close()
	var out []Event
	for rows.Next() {
		var e Event
		var kind string
		if err := rows.Scan(&e.ID, &kind, &e.ActorKey, &e.SiteID, &e.ChannelID, &e.ContentID, &e.Detail, &e.At); err != nil {
			return nil, storeErr("window", err)
		}
		e.Kind = EventKind(kind)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("window", err)
	}
	return out, nil
}

// DeleteBefore trims aged entries, returning how many were removed.
func (r *PGRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM audit_events WHERE at < $1`, cutoff.UTC())
	if err != nil {
		return 0, storeErr("delete before", err)
	}
	return tag.RowsAffected(), nil
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	u := t.UTC()
	return &u
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%w: audit %s: %v", shared.ErrStoreUnavailable, op, err)
}

var _ RepositoryPort = (*PGRepository)(nil)
