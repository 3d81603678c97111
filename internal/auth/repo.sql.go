package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lattice-cms/lattice/internal/shared"
)

// Repository defines persistence operations for the auth module.
type Repository interface {
	FindAdministratorByUsername(ctx context.Context, username string) (*Administrator, error)
	FindAdministratorByID(ctx context.Context, id int64) (*Administrator, error)
	FindSiteUserByUsername(ctx context.Context, username string) (*SiteUser, error)
	FindSiteUserByID(ctx context.Context, id int64) (*SiteUser, error)
	TouchAdministratorLogin(ctx context.Context, id int64, at time.Time) error
	CreateSession(ctx context.Context, id string, kind shared.ActorKind, actorID int64, expiresAt time.Time, ip, ua string) error
	DeleteSession(ctx context.Context, id string) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const administratorColumns = `id, username, password_hash, role_name, is_super_admin, is_active, last_login_at, created_at, updated_at`

func (r *PGRepository) FindAdministratorByUsername(ctx context.Context, username string) (*Administrator, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+administratorColumns+` FROM administrators WHERE lower(username) = lower($1)`, username)
	return scanAdministrator(row)
}

func (r *PGRepository) FindAdministratorByID(ctx context.Context, id int64) (*Administrator, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+administratorColumns+` FROM administrators WHERE id = $1`, id)
	return scanAdministrator(row)
}

func scanAdministrator(row pgx.Row) (*Administrator, error) {
	var admin Administrator
	err := row.Scan(&admin.ID, &admin.Username, &admin.PasswordHash, &admin.RoleName,
		&admin.SuperAdmin, &admin.IsActive, &admin.LastLoginAt, &admin.CreatedAt, &admin.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("find administrator: %w: %v", shared.ErrStoreUnavailable, err)
	}
	return &admin, nil
}

func (r *PGRepository) FindSiteUserByUsername(ctx context.Context, username string) (*SiteUser, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, username, password_hash, is_active, created_at, updated_at
		 FROM site_users WHERE lower(username) = lower($1)`, username)
	return scanSiteUser(row)
}

func (r *PGRepository) FindSiteUserByID(ctx context.Context, id int64) (*SiteUser, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, username, password_hash, is_active, created_at, updated_at
		 FROM site_users WHERE id = $1`, id)
	return scanSiteUser(row)
}

func scanSiteUser(row pgx.Row) (*SiteUser, error) {
	var user SiteUser
	err := row.Scan(&user.ID, &user.Username, &user.PasswordHash, &user.IsActive, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("find site user: %w: %v", shared.ErrStoreUnavailable, err)
	}
	return &user, nil
}

func (r *PGRepository) TouchAdministratorLogin(ctx context.Context, id int64, at time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE administrators SET last_login_at = $2, updated_at = NOW() WHERE id = $1`, id, at.UTC())
	if err != nil {
		return fmt.Errorf("touch administrator login: %w: %v", shared.ErrStoreUnavailable, err)
	}
	return nil
}

// CreateSession persists login session metadata for auditing.
func (r *PGRepository) CreateSession(ctx context.Context, id string, kind shared.ActorKind, actorID int64, expiresAt time.Time, ip, ua string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO login_sessions (id, actor_kind, actor_id, created_at, expires_at, ip, ua)
		 VALUES ($1, $2, $3, NOW(), $4, NULLIF($5, ''), NULLIF($6, ''))`,
		id, string(kind), actorID, expiresAt.UTC(), ip, ua)
	if err != nil {
		return fmt.Errorf("create session: %w: %v", shared.ErrStoreUnavailable, err)
	}
	return nil
}

// DeleteSession removes a session record.
func (r *PGRepository) DeleteSession(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM login_sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete session: %w: %v", shared.ErrStoreUnavailable, err)
	}
	return nil
}

var _ Repository = (*PGRepository)(nil)
