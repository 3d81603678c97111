package hierarchy

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lattice-cms/lattice/internal/shared"
)

// Repository provides PostgreSQL backed chain lookup.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetSite returns the site or nil when it does not exist.
func (r *Repository) GetSite(ctx context.Context, siteID int64) (*SiteRef, error) {
	var site SiteRef
	err := r.pool.QueryRow(ctx,
		`SELECT id, name FROM sites WHERE id = $1`, siteID,
	).Scan(&site.ID, &site.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("get site", err)
	}
	return &site, nil
}

// GetChannel returns the channel scoped to the site, or nil when it does
// not exist in that site. The site_id predicate is the tenant-isolation
// guard: a channel ID from another site's tree resolves to nothing.
func (r *Repository) GetChannel(ctx context.Context, siteID, channelID int64) (*ChannelRef, error) {
	var ch ChannelRef
	err := r.pool.QueryRow(ctx,
		`SELECT id, site_id, parent_id, name FROM channels WHERE id = $1 AND site_id = $2`,
		channelID, siteID,
	).Scan(&ch.ID, &ch.SiteID, &ch.ParentID, &ch.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("get channel", err)
	}
	return &ch, nil
}

// GetContent returns the content scoped to the channel, or nil when it
// does not exist in that channel.
func (r *Repository) GetContent(ctx context.Context, channelID, contentID int64) (*ContentRef, error) {
	var c ContentRef
	err := r.pool.QueryRow(ctx,
		`SELECT c.id, c.channel_id, ch.site_id, c.title, c.author_id, c.author_kind, c.check_state, c.checked, c.version
		 FROM contents c JOIN channels ch ON ch.id = c.channel_id
		 WHERE c.id = $1 AND c.channel_id = $2`,
		contentID, channelID,
	).Scan(&c.ID, &c.ChannelID, &c.SiteID, &c.Title, &c.AuthorID, &c.AuthorKind, &c.CheckState, &c.Checked, &c.Version)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("get content", err)
	}
	return &c, nil
}

// FindContent returns the content by ID alone, with its owning channel and
// site. Used when the caller supplies only (siteID, contentID); the
// service still verifies the resolved site.
func (r *Repository) FindContent(ctx context.Context, contentID int64) (*ContentRef, error) {
	var c ContentRef
	err := r.pool.QueryRow(ctx,
		`SELECT c.id, c.channel_id, ch.site_id, c.title, c.author_id, c.author_kind, c.check_state, c.checked, c.version
		 FROM contents c JOIN channels ch ON ch.id = c.channel_id
		 WHERE c.id = $1`,
		contentID,
	).Scan(&c.ID, &c.ChannelID, &c.SiteID, &c.Title, &c.AuthorID, &c.AuthorKind, &c.CheckState, &c.Checked, &c.Version)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("find content", err)
	}
	return &c, nil
}

// ChannelPath returns channel names from the root to the channel, used for
// the channel name navigation shown alongside content.
func (r *Repository) ChannelPath(ctx context.Context, siteID, channelID int64) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`WITH RECURSIVE path AS (
			SELECT id, parent_id, name, 0 AS depth FROM channels WHERE id = $1 AND site_id = $2
			UNION ALL
			SELECT ch.id, ch.parent_id, ch.name, p.depth + 1 FROM channels ch
			JOIN path p ON ch.id = p.parent_id
		)
		SELECT name FROM path ORDER BY depth DESC`,
		channelID, siteID,
	)
	if err != nil {
		return nil, storeErr("channel path", err)
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, storeErr("channel path", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("channel path", err)
	}
	return names, nil
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%w: hierarchy %s: %v", shared.ErrStoreUnavailable, op, err)
}
