package rbac

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lattice-cms/lattice/internal/authz"
	"github.com/lattice-cms/lattice/internal/platform/db"
	"github.com/lattice-cms/lattice/internal/shared"
)

// RepositoryPort defines persistence for roles, grants and assignments.
type RepositoryPort interface {
	ListRoles(ctx context.Context) ([]Role, error)
	GetRole(ctx context.Context, id int64) (*Role, error)
	CreateRole(ctx context.Context, name, description string) (*Role, error)
	UpdateRole(ctx context.Context, id int64, name, description string) (*Role, error)
	DeleteRole(ctx context.Context, id int64) error
	ListGrants(ctx context.Context, subject Subject) ([]Grant, error)
	InsertGrants(ctx context.Context, subject Subject, siteID, channelID int64, caps []authz.Capability) error
	DeleteGrants(ctx context.Context, subject Subject, siteID, channelID int64, caps []authz.Capability) error
	ListAssignments(ctx context.Context, actorKind shared.ActorKind, actorID int64) ([]Assignment, error)
	InsertAssignment(ctx context.Context, a Assignment) error
	DeleteAssignment(ctx context.Context, a Assignment) error
}

// PGRepository implements RepositoryPort using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

func (r *PGRepository) ListRoles(ctx context.Context) ([]Role, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, description, created_at, updated_at FROM roles ORDER BY name`)
	if err != nil {
		return nil, storeErr("list roles", err)
	}
	defer rows.Close()
	var roles []Role
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, storeErr("list roles", err)
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list roles", err)
	}
	return roles, nil
}

func (r *PGRepository) GetRole(ctx context.Context, id int64) (*Role, error) {
	var role Role
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, description, created_at, updated_at FROM roles WHERE id = $1`, id).
		Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, storeErr("get role", err)
	}
	return &role, nil
}

func (r *PGRepository) CreateRole(ctx context.Context, name, description string) (*Role, error) {
	var role Role
	err := r.pool.QueryRow(ctx,
		`INSERT INTO roles (name, description, created_at, updated_at)
		 VALUES ($1, $2, NOW(), NOW())
		 RETURNING id, name, description, created_at, updated_at`,
		name, description).
		Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("role %q: %w", name, shared.ErrDuplicate)
		}
		return nil, storeErr("create role", err)
	}
	return &role, nil
}

func (r *PGRepository) UpdateRole(ctx context.Context, id int64, name, description string) (*Role, error) {
	var role Role
	err := r.pool.QueryRow(ctx,
		`UPDATE roles SET name = $2, description = $3, updated_at = NOW()
		 WHERE id = $1
		 RETURNING id, name, description, created_at, updated_at`,
		id, name, description).
		Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("role %q: %w", name, shared.ErrDuplicate)
		}
		return nil, storeErr("update role", err)
	}
	return &role, nil
}

// DeleteRole removes the role along with its grants and assignments.
func (r *PGRepository) DeleteRole(ctx context.Context, id int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`DELETE FROM permission_grants WHERE subject_kind = 'role' AND subject_id = $1`, id); err != nil {
			return storeErr("delete role grants", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM role_assignments WHERE role_id = $1`, id); err != nil {
			return storeErr("delete role assignments", err)
		}
		tag, err := tx.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
		if err != nil {
			return storeErr("delete role", err)
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

func (r *PGRepository) ListGrants(ctx context.Context, subject Subject) ([]Grant, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT site_id, channel_id, capability, created_at FROM permission_grants
		 WHERE subject_kind = $1 AND subject_id = $2
		 ORDER BY site_id, channel_id, capability`,
		string(subject.Kind), subject.ID)
	if err != nil {
		return nil, storeErr("list grants", err)
	}
	defer rows.Close()
	var grants []Grant
	for rows.Next() {
		g := Grant{Subject: subject}
		var capability string
		if err := rows.Scan(&g.SiteID, &g.ChannelID, &capability, &g.CreatedAt); err != nil {
			return nil, storeErr("list grants", err)
		}
		g.Capability = authz.Capability(capability)
		grants = append(grants, g)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list grants", err)
	}
	return grants, nil
}

func (r *PGRepository) InsertGrants(ctx context.Context, subject Subject, siteID, channelID int64, caps []authz.Capability) error {
	batch := &pgx.Batch{}
	for _, c := range caps {
		batch.Queue(
			`INSERT INTO permission_grants (subject_kind, subject_id, site_id, channel_id, capability, created_at)
			 VALUES ($1, $2, $3, $4, $5, NOW())
			 ON CONFLICT DO NOTHING`,
			string(subject.Kind), subject.ID, siteID, channelID, string(c))
	}
	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		return storeErr("insert grants", err)
	}
	return nil
}

// DeleteGrants removes the listed capabilities at the scope, or every
// grant at the scope when caps is empty.
func (r *PGRepository) DeleteGrants(ctx context.Context, subject Subject, siteID, channelID int64, caps []authz.Capability) error {
	if len(caps) == 0 {
		_, err := r.pool.Exec(ctx,
			`DELETE FROM permission_grants
			 WHERE subject_kind = $1 AND subject_id = $2 AND site_id = $3 AND channel_id = $4`,
			string(subject.Kind), subject.ID, siteID, channelID)
		if err != nil {
			return storeErr("delete grants", err)
		}
		return nil
	}
	names := make([]string, len(caps))
	for i, c := range caps {
		names[i] = string(c)
	}
	_, err := r.pool.Exec(ctx,
		`DELETE FROM permission_grants
		 WHERE subject_kind = $1 AND subject_id = $2 AND site_id = $3 AND channel_id = $4
		   AND capability = ANY($5)`,
		string(subject.Kind), subject.ID, siteID, channelID, names)
	if err != nil {
		return storeErr("delete grants", err)
	}
	return nil
}

func (r *PGRepository) ListAssignments(ctx context.Context, actorKind shared.ActorKind, actorID int64) ([]Assignment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT role_id, site_id, created_at FROM role_assignments
		 WHERE actor_kind = $1 AND actor_id = $2 ORDER BY role_id`,
		string(actorKind), actorID)
	if err != nil {
		return nil, storeErr("list assignments", err)
	}
	defer rows.Close()
	var assignments []Assignment
	for rows.Next() {
		a := Assignment{ActorKind: actorKind, ActorID: actorID}
		if err := rows.Scan(&a.RoleID, &a.SiteID, &a.CreatedAt); err != nil {
			return nil, storeErr("list assignments", err)
		}
		assignments = append(assignments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list assignments", err)
	}
	return assignments, nil
}

func (r *PGRepository) InsertAssignment(ctx context.Context, a Assignment) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO role_assignments (actor_kind, actor_id, role_id, site_id, created_at)
		 VALUES ($1, $2, $3, $4, NOW())
		 ON CONFLICT DO NOTHING`,
		string(a.ActorKind), a.ActorID, a.RoleID, a.SiteID)
	if err != nil {
		return storeErr("insert assignment", err)
	}
	return nil
}

func (r *PGRepository) DeleteAssignment(ctx context.Context, a Assignment) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM role_assignments
		 WHERE actor_kind = $1 AND actor_id = $2 AND role_id = $3 AND site_id = $4`,
		string(a.ActorKind), a.ActorID, a.RoleID, a.SiteID)
	if err != nil {
		return storeErr("delete assignment", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && strings.HasPrefix(pgErr.Code, "23")
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%w: rbac %s: %v", shared.ErrStoreUnavailable, op, err)
}

var _ RepositoryPort = (*PGRepository)(nil)
