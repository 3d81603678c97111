package library

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lattice-cms/lattice/internal/platform/db"
	"github.com/lattice-cms/lattice/internal/shared"
)

// RepositoryPort defines persistence for the media libraries.
type RepositoryPort interface {
	ListGroups(ctx context.Context, siteID int64, kind Kind) ([]Group, error)
	GetGroup(ctx context.Context, siteID, id int64) (*Group, error)
	CreateGroup(ctx context.Context, g *Group) (*Group, error)
	DeleteGroup(ctx context.Context, siteID, id int64) error
	ListItems(ctx context.Context, siteID int64, kind Kind, groupID int64, limit, offset int32) ([]Item, error)
	GetItem(ctx context.Context, siteID, id int64) (*Item, error)
	CreateItem(ctx context.Context, item *Item) (*Item, error)
	DeleteItem(ctx context.Context, siteID, id int64) error
}

// PGRepository implements RepositoryPort using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

func (r *PGRepository) ListGroups(ctx context.Context, siteID int64, kind Kind) ([]Group, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, site_id, kind, name, taxis, created_at, updated_at
		 FROM library_groups WHERE site_id = $1 AND kind = $2 ORDER BY taxis, id`,
		siteID, string(kind))
	if err != nil {
		return nil, storeErr("list groups", err)
	}
	defer rows.Close()
	var out []Group
	for rows.Next() {
		var g Group
		var k string
		if err := rows.Scan(&g.ID, &g.SiteID, &k, &g.Name, &g.Taxis, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, storeErr("list groups", err)
		}
		g.Kind = Kind(k)
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list groups", err)
	}
	return out, nil
}

func (r *PGRepository) GetGroup(ctx context.Context, siteID, id int64) (*Group, error) {
	var g Group
	var k string
	err := r.pool.QueryRow(ctx,
		`SELECT id, site_id, kind, name, taxis, created_at, updated_at
		 FROM library_groups WHERE id = $1 AND site_id = $2`, id, siteID).
		Scan(&g.ID, &g.SiteID, &k, &g.Name, &g.Taxis, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, storeErr("get group", err)
	}
	g.Kind = Kind(k)
	return &g, nil
}

func (r *PGRepository) CreateGroup(ctx context.Context, g *Group) (*Group, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO library_groups (site_id, kind, name, taxis, created_at, updated_at)
		 VALUES ($1, $2, $3,
		   COALESCE(NULLIF($4::int, 0), (SELECT COALESCE(MAX(taxis), 0) + 1 FROM library_groups WHERE site_id = $1 AND kind = $2)),
		   NOW(), NOW())
		 RETURNING id, taxis, created_at, updated_at`,
		g.SiteID, string(g.Kind), g.Name, g.Taxis).
		Scan(&g.ID, &g.Taxis, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return nil, storeErr("create group", err)
	}
	return g, nil
}

// DeleteGroup removes a group; its items fall back to the "all" group.
func (r *PGRepository) DeleteGroup(ctx context.Context, siteID, id int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`UPDATE library_items SET group_id = 0 WHERE site_id = $2 AND group_id = $1`, id, siteID); err != nil {
			return storeErr("detach items", err)
		}
		tag, err := tx.Exec(ctx,
			`DELETE FROM library_groups WHERE id = $1 AND site_id = $2`, id, siteID)
		if err != nil {
			return storeErr("delete group", err)
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

const itemColumns = `id, site_id, group_id, kind, title, file_name, url, size_bytes, created_at, updated_at`

// ListItems returns items of a library. GroupID 0 matches every group.
func (r *PGRepository) ListItems(ctx context.Context, siteID int64, kind Kind, groupID int64, limit, offset int32) ([]Item, error) {
	if limit <= 0 || limit > 500 {
		limit = 30
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+itemColumns+` FROM library_items
		 WHERE site_id = $1 AND kind = $2 AND ($3::bigint = 0 OR group_id = $3)
		 ORDER BY id DESC LIMIT $4 OFFSET $5`,
		siteID, string(kind), groupID, limit, offset)
	if err != nil {
		return nil, storeErr("list items", err)
	}
	defer rows.Close()
	var out []Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, storeErr("list items", err)
		}
		out = append(out, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list items", err)
	}
	return out, nil
}

func (r *PGRepository) GetItem(ctx context.Context, siteID, id int64) (*Item, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+itemColumns+` FROM library_items WHERE id = $1 AND site_id = $2`, id, siteID)
	item, err := scanItem(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, storeErr("get item", err)
	}
	return item, nil
}

func scanItem(row pgx.Row) (*Item, error) {
	var item Item
	var k string
	err := row.Scan(&item.ID, &item.SiteID, &item.GroupID, &k, &item.Title,
		&item.FileName, &item.URL, &item.SizeBytes, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return nil, err
	}
	item.Kind = Kind(k)
	return &item, nil
}

func (r *PGRepository) CreateItem(ctx context.Context, item *Item) (*Item, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO library_items (site_id, group_id, kind, title, file_name, url, size_bytes, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		 RETURNING id, created_at, updated_at`,
		item.SiteID, item.GroupID, string(item.Kind), item.Title, item.FileName, item.URL, item.SizeBytes).
		Scan(&item.ID, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return nil, storeErr("create item", err)
	}
	return item, nil
}

func (r *PGRepository) DeleteItem(ctx context.Context, siteID, id int64) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM library_items WHERE id = $1 AND site_id = $2`, id, siteID)
	if err != nil {
		return storeErr("delete item", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%w: library %s: %v", shared.ErrStoreUnavailable, op, err)
}

var _ RepositoryPort = (*PGRepository)(nil)
