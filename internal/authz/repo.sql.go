package authz

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lattice-cms/lattice/internal/shared"
)

// Repository provides PostgreSQL backed grant lookup. Grants reach an actor
// either directly (subject_kind = actor kind) or through roles assigned in
// role_assignments; site-scoped role assignments only contribute within
// their site.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const subjectsCTE = `WITH subjects AS (
	SELECT $1::text AS kind, $2::bigint AS id
	UNION
	SELECT 'role', role_id FROM role_assignments
	WHERE actor_kind = $1 AND actor_id = $2 AND site_id IN (0, $3)
)`

// GlobalGrants returns capabilities granted at global scope.
func (r *Repository) GlobalGrants(ctx context.Context, actor *shared.Actor) ([]Capability, error) {
	rows, err := r.pool.Query(ctx, subjectsCTE+`
SELECT DISTINCT g.capability FROM permission_grants g
JOIN subjects s ON g.subject_kind = s.kind AND g.subject_id = s.id
WHERE g.site_id = 0 AND g.channel_id = 0`, string(actor.Kind), actor.ID, 0)
	if err != nil {
		return nil, storeErr("global grants", err)
	}
	return scanCapabilities(rows)
}

// SiteGrants returns capabilities granted at the scope of one site.
func (r *Repository) SiteGrants(ctx context.Context, actor *shared.Actor, siteID int64) ([]Capability, error) {
	rows, err := r.pool.Query(ctx, subjectsCTE+`
SELECT DISTINCT g.capability FROM permission_grants g
JOIN subjects s ON g.subject_kind = s.kind AND g.subject_id = s.id
WHERE g.site_id = $3 AND g.channel_id = 0`, string(actor.Kind), actor.ID, siteID)
	if err != nil {
		return nil, storeErr("site grants", err)
	}
	return scanCapabilities(rows)
}

// ChannelGrants returns the channel override rows for the actor in a site.
func (r *Repository) ChannelGrants(ctx context.Context, actor *shared.Actor, siteID int64) (map[int64][]Capability, error) {
	rows, err := r.pool.Query(ctx, subjectsCTE+`
SELECT DISTINCT g.channel_id, g.capability FROM permission_grants g
JOIN subjects s ON g.subject_kind = s.kind AND g.subject_id = s.id
WHERE g.site_id = $3 AND g.channel_id > 0`, string(actor.Kind), actor.ID, siteID)
	if err != nil {
		return nil, storeErr("channel grants", err)
	}
	defer rows.Close()
	grants := make(map[int64][]Capability)
	for rows.Next() {
		var channelID int64
		var capability string
		if err := rows.Scan(&channelID, &capability); err != nil {
			return nil, storeErr("channel grants", err)
		}
		grants[channelID] = append(grants[channelID], Capability(capability))
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("channel grants", err)
	}
	return grants, nil
}

func scanCapabilities(rows pgx.Rows) ([]Capability, error) {
	defer rows.Close()
	var caps []Capability
	for rows.Next() {
		var capability string
		if err := rows.Scan(&capability); err != nil {
			return nil, storeErr("scan", err)
		}
		caps = append(caps, Capability(capability))
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("scan", err)
	}
	return caps, nil
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%w: authz %s: %v", shared.ErrStoreUnavailable, op, err)
}
