package sites

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lattice-cms/lattice/internal/shared"
)

// RepositoryPort defines persistence for sites.
type RepositoryPort interface {
	List(ctx context.Context) ([]Site, error)
	Get(ctx context.Context, id int64) (*Site, error)
	Create(ctx context.Context, site *Site) (*Site, error)
	Update(ctx context.Context, site *Site) (*Site, error)
	Delete(ctx context.Context, id int64) error
	GetSettings(ctx context.Context, siteID int64) (*Settings, error)
	UpdateSettings(ctx context.Context, settings *Settings) error
}

// PGRepository implements RepositoryPort using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const siteColumns = `id, name, dir, description, taxis, created_at, updated_at`

func (r *PGRepository) List(ctx context.Context) ([]Site, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+siteColumns+` FROM sites ORDER BY taxis, id`)
	if err != nil {
		return nil, storeErr("list sites", err)
	}
	defer rows.Close()
	var out []Site
	for rows.Next() {
		var s Site
		if err := rows.Scan(&s.ID, &s.Name, &s.Dir, &s.Description, &s.Taxis, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, storeErr("list sites", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list sites", err)
	}
	return out, nil
}

func (r *PGRepository) Get(ctx context.Context, id int64) (*Site, error) {
	var s Site
	err := r.pool.QueryRow(ctx, `SELECT `+siteColumns+` FROM sites WHERE id = $1`, id).
		Scan(&s.ID, &s.Name, &s.Dir, &s.Description, &s.Taxis, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &shared.NotFoundError{Level: shared.NotFoundSite, SiteID: id}
		}
		return nil, storeErr("get site", err)
	}
	return &s, nil
}

func (r *PGRepository) Create(ctx context.Context, site *Site) (*Site, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO sites (name, dir, description, taxis, created_at, updated_at)
		 VALUES ($1, $2, $3, COALESCE(NULLIF($4, 0), (SELECT COALESCE(MAX(taxis), 0) + 1 FROM sites)), NOW(), NOW())
		 RETURNING `+siteColumns,
		site.Name, site.Dir, site.Description, site.Taxis).
		Scan(&site.ID, &site.Name, &site.Dir, &site.Description, &site.Taxis, &site.CreatedAt, &site.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("site dir %q: %w", site.Dir, shared.ErrDuplicate)
		}
		return nil, storeErr("create site", err)
	}
	return site, nil
}

func (r *PGRepository) Update(ctx context.Context, site *Site) (*Site, error) {
	err := r.pool.QueryRow(ctx,
		`UPDATE sites SET name = $2, dir = $3, description = $4, taxis = $5, updated_at = NOW()
		 WHERE id = $1 RETURNING `+siteColumns,
		site.ID, site.Name, site.Dir, site.Description, site.Taxis).
		Scan(&site.ID, &site.Name, &site.Dir, &site.Description, &site.Taxis, &site.CreatedAt, &site.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &shared.NotFoundError{Level: shared.NotFoundSite, SiteID: site.ID}
		}
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("site dir %q: %w", site.Dir, shared.ErrDuplicate)
		}
		return nil, storeErr("update site", err)
	}
	return site, nil
}

func (r *PGRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM sites WHERE id = $1`, id)
	if err != nil {
		return storeErr("delete site", err)
	}
	if tag.RowsAffected() == 0 {
		return &shared.NotFoundError{Level: shared.NotFoundSite, SiteID: id}
	}
	return nil
}

func (r *PGRepository) GetSettings(ctx context.Context, siteID int64) (*Settings, error) {
	s := Settings{SiteID: siteID}
	err := r.pool.QueryRow(ctx,
		`SELECT check_content_is_admin, page_size, channel_separator
		 FROM site_settings WHERE site_id = $1`, siteID).
		Scan(&s.CheckContentIsAdmin, &s.PageSize, &s.ChannelSeparator)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Defaults apply until settings are written for the site.
			return &Settings{SiteID: siteID, PageSize: 30, ChannelSeparator: " > "}, nil
		}
		return nil, storeErr("get settings", err)
	}
	return &s, nil
}

func (r *PGRepository) UpdateSettings(ctx context.Context, settings *Settings) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO site_settings (site_id, check_content_is_admin, page_size, channel_separator)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (site_id) DO UPDATE SET
		   check_content_is_admin = EXCLUDED.check_content_is_admin,
		   page_size = EXCLUDED.page_size,
		   channel_separator = EXCLUDED.channel_separator`,
		settings.SiteID, settings.CheckContentIsAdmin, settings.PageSize, settings.ChannelSeparator)
	if err != nil {
		return storeErr("update settings", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%w: sites %s: %v", shared.ErrStoreUnavailable, op, err)
}

var _ RepositoryPort = (*PGRepository)(nil)
