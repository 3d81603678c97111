package channels

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lattice-cms/lattice/internal/shared"
)

// RepositoryPort defines persistence for channels.
type RepositoryPort interface {
	Get(ctx context.Context, siteID, id int64) (*Channel, error)
	ListBySite(ctx context.Context, siteID int64) ([]Channel, error)
	Create(ctx context.Context, ch *Channel) (*Channel, error)
	Update(ctx context.Context, ch *Channel) (*Channel, error)
	Delete(ctx context.Context, siteID, id int64) (int64, error)
	CountContents(ctx context.Context, channelIDs []int64) (int64, error)
	DescendantIDs(ctx context.Context, siteID, id int64) ([]int64, error)
}

// PGRepository implements RepositoryPort using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const channelColumns = `id, site_id, parent_id, name, index_name, taxis, created_at, updated_at`

func (r *PGRepository) Get(ctx context.Context, siteID, id int64) (*Channel, error) {
	var ch Channel
	err := r.pool.QueryRow(ctx,
		`SELECT `+channelColumns+` FROM channels WHERE id = $1 AND site_id = $2`, id, siteID).
		Scan(&ch.ID, &ch.SiteID, &ch.ParentID, &ch.Name, &ch.IndexName, &ch.Taxis, &ch.CreatedAt, &ch.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &shared.NotFoundError{Level: shared.NotFoundChannel, SiteID: siteID, ChannelID: id}
		}
		return nil, storeErr("get channel", err)
	}
	return &ch, nil
}

func (r *PGRepository) ListBySite(ctx context.Context, siteID int64) ([]Channel, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+channelColumns+` FROM channels WHERE site_id = $1 ORDER BY parent_id, taxis, id`, siteID)
	if err != nil {
		return nil, storeErr("list channels", err)
	}
	defer rows.Close()
	var out []Channel
	for rows.Next() {
		var ch Channel
		if err := rows.Scan(&ch.ID, &ch.SiteID, &ch.ParentID, &ch.Name, &ch.IndexName, &ch.Taxis, &ch.CreatedAt, &ch.UpdatedAt); err != nil {
			return nil, storeErr("list channels", err)
		}
		out = append(out, ch)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list channels", err)
	}
	return out, nil
}

func (r *PGRepository) Create(ctx context.Context, ch *Channel) (*Channel, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO channels (site_id, parent_id, name, index_name, taxis, created_at, updated_at)
		 VALUES ($1, $2, $3, $4,
		   COALESCE(NULLIF($5::int, 0), (SELECT COALESCE(MAX(taxis), 0) + 1 FROM channels WHERE site_id = $1 AND parent_id = $2)),
		   NOW(), NOW())
		 RETURNING `+channelColumns,
		ch.SiteID, ch.ParentID, ch.Name, ch.IndexName, ch.Taxis).
		Scan(&ch.ID, &ch.SiteID, &ch.ParentID, &ch.Name, &ch.IndexName, &ch.Taxis, &ch.CreatedAt, &ch.UpdatedAt)
	if err != nil {
		return nil, storeErr("create channel", err)
	}
	return ch, nil
}

func (r *PGRepository) Update(ctx context.Context, ch *Channel) (*Channel, error) {
	err := r.pool.QueryRow(ctx,
		`UPDATE channels SET name = $3, index_name = $4, taxis = $5, updated_at = NOW()
		 WHERE id = $1 AND site_id = $2 RETURNING `+channelColumns,
		ch.ID, ch.SiteID, ch.Name, ch.IndexName, ch.Taxis).
		Scan(&ch.ID, &ch.SiteID, &ch.ParentID, &ch.Name, &ch.IndexName, &ch.Taxis, &ch.CreatedAt, &ch.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &shared.NotFoundError{Level: shared.NotFoundChannel, SiteID: ch.SiteID, ChannelID: ch.ID}
		}
		return nil, storeErr("update channel", err)
	}
	return ch, nil
}

func (r *PGRepository) Delete(ctx context.Context, siteID, id int64) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM channels WHERE id = $1 AND site_id = $2`, id, siteID)
	if err != nil {
		return 0, storeErr("delete channel", err)
	}
	return tag.RowsAffected(), nil
}

func (r *PGRepository) CountContents(ctx context.Context, channelIDs []int64) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM contents WHERE channel_id = ANY($1)`, channelIDs).Scan(&count)
	if err != nil {
		return 0, storeErr("count contents", err)
	}
	return count, nil
}

// DescendantIDs returns the subtree rooted at id, the root included.
func (r *PGRepository) DescendantIDs(ctx context.Context, siteID, id int64) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `
WITH RECURSIVE subtree AS (
	SELECT id FROM channels WHERE id = $1 AND site_id = $2
	UNION ALL
	SELECT c.id FROM channels c JOIN subtree s ON c.parent_id = s.id
)
SELECT id FROM subtree`, id, siteID)
	if err != nil {
		return nil, storeErr("descendants", err)
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var cid int64
		if err := rows.Scan(&cid); err != nil {
			return nil, storeErr("descendants", err)
		}
		ids = append(ids, cid)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("descendants", err)
	}
	return ids, nil
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%w: channels %s: %v", shared.ErrStoreUnavailable, op, err)
}

var _ RepositoryPort = (*PGRepository)(nil)
