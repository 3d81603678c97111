package workflow

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lattice-cms/lattice/internal/shared"
)

// History actions recorded for check-state changes.
const (
	// ActionSubmit marks a draft submitted for review.
	ActionSubmit = "SUBMIT"
	// ActionApprove marks an approval.
	ActionApprove = "APPROVE"
	// ActionReject marks a rejection.
	ActionReject = "REJECT"
	// ActionResubmit marks a rejected item resubmitted.
	ActionResubmit = "RESUBMIT"
	// ActionRevoke marks published content pulled back to draft.
	ActionRevoke = "REVOKE"
)

// HistoryEntry represents a single check-history record.
type HistoryEntry struct {
	ID        int64
	SiteID    int64
	ContentID int64
	ActorKind shared.ActorKind
	ActorID   int64
	Action    string
	FromState State
	ToState   State
	Reason    string
	At        time.Time
}

// HistoryRecorder persists check history.
type HistoryRecorder struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewHistoryRecorder constructs HistoryRecorder.
func NewHistoryRecorder(pool *pgxpool.Pool, logger *slog.Logger) *HistoryRecorder {
	return &HistoryRecorder{pool: pool, logger: logger}
}

// Record writes a history entry to the database.
func (r *HistoryRecorder) Record(ctx context.Context, entry HistoryEntry) error {
	if r == nil {
		return errors.New("history recorder not initialised")
	}
	if entry.ContentID == 0 {
		return errors.New("history content required")
	}
	if entry.ActorID == 0 {
		return errors.New("history actor required")
	}
	if entry.Action == "" {
		return errors.New("history action required")
	}
	at := entry.At
	if at.IsZero() {
		at = time.Now()
	}
	_, err := r.pool.Exec(ctx, `INSERT INTO content_check_history (site_id, content_id, actor_kind, actor_id, action, from_state, to_state, reason, at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		entry.SiteID, entry.ContentID, string(entry.ActorKind), entry.ActorID, entry.Action,
		string(entry.FromState), string(entry.ToState), entry.Reason, at)
	if err != nil {
		r.logger.Error("record check history", slog.Any("error", err))
		return err
	}
	return nil
}

// List returns the history for one content item, oldest first.
func (r *HistoryRecorder) List(ctx context.Context, contentID int64) ([]HistoryEntry, error) {
	if r == nil {
		return nil, errors.New("history recorder not initialised")
	}
	rows, err := r.pool.Query(ctx, `SELECT id, site_id, content_id, actor_kind, actor_id, action, from_state, to_state, reason, at
FROM content_check_history WHERE content_id = $1 ORDER BY at ASC`, contentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		var actorKind, action, from, to string
		if err := rows.Scan(&e.ID, &e.SiteID, &e.ContentID, &actorKind, &e.ActorID, &action, &from, &to, &e.Reason, &e.At); err != nil {
			return nil, err
		}
		e.ActorKind = shared.ActorKind(actorKind)
		e.Action = action
		e.FromState = State(from)
		e.ToState = State(to)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
