package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lattice-cms/lattice/internal/shared"
)

// Repository provides PostgreSQL backed state persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TransitionContent applies the state change only when the stored state
// still equals from. The predicate makes concurrent duplicate transitions
// resolve to a single winner at the database.
func (r *Repository) TransitionContent(ctx context.Context, contentID int64, from, to State, checked bool) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE contents SET check_state = $3, checked = $4, version = version + 1, updated_at = NOW()
		 WHERE id = $1 AND check_state = $2`,
		contentID, string(from), string(to), checked,
	)
	if err != nil {
		return false, fmt.Errorf("%w: workflow transition: %v", shared.ErrStoreUnavailable, err)
	}
	return tag.RowsAffected() == 1, nil
}

// GetState reads the current check state of the content.
func (r *Repository) GetState(ctx context.Context, contentID int64) (State, error) {
	var state string
	err := r.pool.QueryRow(ctx,
		`SELECT check_state FROM contents WHERE id = $1`, contentID,
	).Scan(&state)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", &shared.NotFoundError{Level: shared.NotFoundContent, ContentID: contentID}
	}
	if err != nil {
		return "", fmt.Errorf("%w: workflow get state: %v", shared.ErrStoreUnavailable, err)
	}
	return State(state), nil
}
