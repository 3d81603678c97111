package contents

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lattice-cms/lattice/internal/shared"
	"github.com/lattice-cms/lattice/internal/workflow"
)

// RepositoryPort defines persistence for contents.
type RepositoryPort interface {
	Get(ctx context.Context, siteID, id int64) (*Content, error)
	List(ctx context.Context, siteID int64, filter ListFilter) ([]Content, error)
	Create(ctx context.Context, c *Content) (*Content, error)
	Update(ctx context.Context, c *Content) (*Content, error)
	Delete(ctx context.Context, siteID, id int64) error
}

// PGRepository implements RepositoryPort using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const contentColumns = `c.id, ch.site_id, c.channel_id, c.title, c.summary, c.body,
	c.author_kind, c.author_id, c.check_state, c.checked, c.taxis, c.version, c.created_at, c.updated_at`

func scanContent(row pgx.Row) (*Content, error) {
	var c Content
	var authorKind, state string
	err := row.Scan(&c.ID, &c.SiteID, &c.ChannelID, &c.Title, &c.Summary, &c.Body,
		&authorKind, &c.AuthorID, &state, &c.Checked, &c.Taxis, &c.Version, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	c.AuthorKind = shared.ActorKind(authorKind)
	c.CheckState = workflow.State(state)
	return &c, nil
}

func (r *PGRepository) Get(ctx context.Context, siteID, id int64) (*Content, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+contentColumns+` FROM contents c
		 JOIN channels ch ON ch.id = c.channel_id
		 WHERE c.id = $1 AND ch.site_id = $2`, id, siteID)
	c, err := scanContent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &shared.NotFoundError{Level: shared.NotFoundContent, SiteID: siteID, ContentID: id}
		}
		return nil, storeErr("get content", err)
	}
	return c, nil
}

func (r *PGRepository) List(ctx context.Context, siteID int64, filter ListFilter) ([]Content, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 30
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+contentColumns+` FROM contents c
		 JOIN channels ch ON ch.id = c.channel_id
		 WHERE ch.site_id = $1
		   AND ($2::bigint = 0 OR c.channel_id = $2)
		   AND ($3::text = '' OR c.check_state = $3)
		 ORDER BY c.taxis DESC, c.id DESC
		 LIMIT $4 OFFSET $5`,
		siteID, filter.ChannelID, string(filter.CheckState), limit, filter.Offset)
	if err != nil {
		return nil, storeErr("list contents", err)
	}
	defer rows.Close()
	var out []Content
	for rows.Next() {
		c, err := scanContent(rows)
		if err != nil {
			return nil, storeErr("list contents", err)
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list contents", err)
	}
	return out, nil
}

func (r *PGRepository) Create(ctx context.Context, c *Content) (*Content, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO contents (channel_id, title, summary, body, author_kind, author_id,
		   check_state, checked, taxis, version, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8,
		   COALESCE(NULLIF($9::int, 0), (SELECT COALESCE(MAX(taxis), 0) + 1 FROM contents WHERE channel_id = $1)),
		   1, NOW(), NOW())
		 RETURNING id, taxis, version, created_at, updated_at`,
		c.ChannelID, c.Title, c.Summary, c.Body, string(c.AuthorKind), c.AuthorID,
		string(c.CheckState), c.Checked, c.Taxis).
		Scan(&c.ID, &c.Taxis, &c.Version, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, storeErr("create content", err)
	}
	return c, nil
}

// Update writes the editable fields guarded by the version the caller
// read. A stale version loses and reports the conflict.
func (r *PGRepository) Update(ctx context.Context, c *Content) (*Content, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE contents SET title = $3, summary = $4, body = $5, taxis = $6,
		   version = version + 1, updated_at = NOW()
		 WHERE id = $1 AND version = $2`,
		c.ID, c.Version, c.Title, c.Summary, c.Body, c.Taxis)
	if err != nil {
		return nil, storeErr("update content", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, fmt.Errorf("content %d version %d: %w", c.ID, c.Version, shared.ErrConflict)
	}
	return r.Get(ctx, c.SiteID, c.ID)
}

func (r *PGRepository) Delete(ctx context.Context, siteID, id int64) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM contents c USING channels ch
		 WHERE c.id = $1 AND c.channel_id = ch.id AND ch.site_id = $2`, id, siteID)
	if err != nil {
		return storeErr("delete content", err)
	}
	if tag.RowsAffected() == 0 {
		return &shared.NotFoundError{Level: shared.NotFoundContent, SiteID: siteID, ContentID: id}
	}
	return nil
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%w: contents %s: %v", shared.ErrStoreUnavailable, op, err)
}

var _ RepositoryPort = (*PGRepository)(nil)
