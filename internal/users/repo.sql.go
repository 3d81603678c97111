package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lattice-cms/lattice/internal/shared"
)

// RepositoryPort defines persistence for account administration.
type RepositoryPort interface {
	ListAdministrators(ctx context.Context) ([]Account, error)
	ListSiteUsers(ctx context.Context, limit, offset int32) ([]Account, error)
	CountSiteUsers(ctx context.Context) (int, error)
	CreateAdministrator(ctx context.Context, username, passwordHash, roleName string) (int64, error)
	CreateSiteUser(ctx context.Context, username, passwordHash string) (int64, error)
	SetActive(ctx context.Context, kind shared.ActorKind, id int64, active bool) error
	SetPassword(ctx context.Context, kind shared.ActorKind, id int64, passwordHash string) error
}

// PGRepository implements RepositoryPort using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

func (r *PGRepository) ListAdministrators(ctx context.Context) ([]Account, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, username, role_name, is_super_admin, is_active, last_login_at, created_at
		 FROM administrators ORDER BY username`)
	if err != nil {
		return nil, storeErr("list administrators", err)
	}
	defer rows.Close()
	var out []Account
	for rows.Next() {
		a := Account{Kind: shared.ActorAdministrator}
		if err := rows.Scan(&a.ID, &a.Username, &a.RoleName, &a.SuperAdmin, &a.IsActive, &a.LastLoginAt, &a.CreatedAt); err != nil {
			return nil, storeErr("list administrators", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list administrators", err)
	}
	return out, nil
}

func (r *PGRepository) ListSiteUsers(ctx context.Context, limit, offset int32) ([]Account, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id, username, is_active, created_at FROM site_users
		 ORDER BY username LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, storeErr("list site users", err)
	}
	defer rows.Close()
	var out []Account
	for rows.Next() {
		a := Account{Kind: shared.ActorUser}
		if err := rows.Scan(&a.ID, &a.Username, &a.IsActive, &a.CreatedAt); err != nil {
			return nil, storeErr("list site users", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list site users", err)
	}
	return out, nil
}

func (r *PGRepository) CountSiteUsers(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM site_users`).Scan(&n); err != nil {
		return 0, storeErr("count site users", err)
	}
	return n, nil
}

func (r *PGRepository) CreateAdministrator(ctx context.Context, username, passwordHash, roleName string) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO administrators (username, password_hash, role_name, is_super_admin, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, FALSE, TRUE, NOW(), NOW()) RETURNING id`,
		username, passwordHash, roleName).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("username %q: %w", username, shared.ErrDuplicate)
		}
		return 0, storeErr("create administrator", err)
	}
	return id, nil
}

func (r *PGRepository) CreateSiteUser(ctx context.Context, username, passwordHash string) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO site_users (username, password_hash, is_active, created_at, updated_at)
		 VALUES ($1, $2, TRUE, NOW(), NOW()) RETURNING id`,
		username, passwordHash).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("username %q: %w", username, shared.ErrDuplicate)
		}
		return 0, storeErr("create site user", err)
	}
	return id, nil
}

func (r *PGRepository) SetActive(ctx context.Context, kind shared.ActorKind, id int64, active bool) error {
	tag, err := r.pool.Exec(ctx, fmt.Sprintf(
		`UPDATE %s SET is_active = $2, updated_at = NOW() WHERE id = $1`, tableFor(kind)), id, active)
	if err != nil {
		return storeErr("set active", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *PGRepository) SetPassword(ctx context.Context, kind shared.ActorKind, id int64, passwordHash string) error {
	tag, err := r.pool.Exec(ctx, fmt.Sprintf(
		`UPDATE %s SET password_hash = $2, updated_at = NOW() WHERE id = $1`, tableFor(kind)), id, passwordHash)
	if err != nil {
		return storeErr("set password", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func tableFor(kind shared.ActorKind) string {
	if kind == shared.ActorAdministrator {
		return "administrators"
	}
	return "site_users"
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%w: users %s: %v", shared.ErrStoreUnavailable, op, err)
}

var _ RepositoryPort = (*PGRepository)(nil)
