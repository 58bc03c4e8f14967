package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/handoff-wait/internal/model"
)

const handoffColumns = `id, token, start_time, end_time, duration_seconds`

const (
	qOpenForUpdate = `SELECT ` + handoffColumns + ` FROM handoffs
               WHERE token = ? AND end_time IS NULL
               LIMIT 1 FOR UPDATE`
	qInsertOpen = `INSERT INTO handoffs (token, start_time) VALUES (?, ?)`
	qClose      = `UPDATE handoffs SET end_time = ?, duration_seconds = ? WHERE id = ? AND end_time IS NULL`

	// qLatestByToken returns the open handoff when there is one, otherwise
	// the closed handoff with the greatest end_time.
	qLatestByToken = `SELECT ` + handoffColumns + ` FROM handoffs
               WHERE token = ?
               ORDER BY (end_time IS NULL) DESC, end_time DESC
               LIMIT 1`
	qOpenByToken = `SELECT ` + handoffColumns + ` FROM handoffs
               WHERE token = ? AND end_time IS NULL
               ORDER BY start_time DESC
               LIMIT 1`
	qLatestClosedByToken = `SELECT ` + handoffColumns + ` FROM handoffs
               WHERE token = ? AND end_time IS NOT NULL
               ORDER BY end_time DESC
               LIMIT 1`
	qRecentCompleted = `SELECT duration_seconds, end_time FROM handoffs
               WHERE end_time IS NOT NULL AND end_time >= ?
               ORDER BY end_time DESC
               LIMIT ?`
)

// HandoffRepo provides data access to the handoffs table.  All timestamps
// are written and compared in UTC.
type HandoffRepo struct {
	db *sql.DB
}

// NewHandoffRepo returns a new HandoffRepo bound to the provided database.
func NewHandoffRepo(db *sql.DB) *HandoffRepo { return &HandoffRepo{db: db} }

// DB exposes the underlying sql.DB.
func (r *HandoffRepo) DB() *sql.DB { return r.db }

// RecordScan applies one scan of token at time now.  The open handoff is
// read with SELECT ... FOR UPDATE and the decision is made by
// model.NextTransition inside the same transaction, so two scans of the
// same token are serialized by the database.  When a concurrent scan wins
// the race (duplicate open_token or deadlock) the whole transaction is
// re-run once against the new state.
func (r *HandoffRepo) RecordScan(ctx context.Context, token string, now time.Time) (model.Transition, error) {
	tr, err := r.recordScanOnce(ctx, token, now)
	if err != nil && isRetryable(err) {
		tr, err = r.recordScanOnce(ctx, token, now)
		if err != nil && isRetryable(err) {
			return model.Transition{}, fmt.Errorf("%w: %v", ErrConflict, err)
		}
	}
	return tr, err
}

func (r *HandoffRepo) recordScanOnce(ctx context.Context, token string, now time.Time) (model.Transition, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Transition{}, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	open, err := scanHandoff(tx.QueryRowContext(ctx, qOpenForUpdate, token))
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return model.Transition{}, err
	}

	tr := model.NextTransition(open, now.UTC())
	if tr.Open {
		if _, err := tx.ExecContext(ctx, qInsertOpen, token, tr.At); err != nil {
			return model.Transition{}, err
		}
	} else {
		res, err := tx.ExecContext(ctx, qClose, tr.At, tr.Seconds, tr.Close.ID)
		if err != nil {
			return model.Transition{}, err
		}
		if n, err := res.RowsAffected(); err == nil && n != 1 {
			return model.Transition{}, ErrConflict
		}
	}

	if err := tx.Commit(); err != nil {
		return model.Transition{}, err
	}
	committed = true
	return tr, nil
}

// LatestByToken answers a status lookup in one statement: the open
// handoff for token if any, otherwise the most recently closed one.  It
// returns nil, nil when the token has never been scanned.
func (r *HandoffRepo) LatestByToken(ctx context.Context, token string) (*model.Handoff, error) {
	return nilOnNoRows(scanHandoff(r.db.QueryRowContext(ctx, qLatestByToken, token)))
}

// OpenByToken returns the open handoff for token, or nil.
func (r *HandoffRepo) OpenByToken(ctx context.Context, token string) (*model.Handoff, error) {
	return nilOnNoRows(scanHandoff(r.db.QueryRowContext(ctx, qOpenByToken, token)))
}

// LatestClosedByToken returns the closed handoff with the greatest
// end_time for token, or nil.
func (r *HandoffRepo) LatestClosedByToken(ctx context.Context, token string) (*model.Handoff, error) {
	return nilOnNoRows(scanHandoff(r.db.QueryRowContext(ctx, qLatestClosedByToken, token)))
}

// RecentCompletedDurations returns up to limit completed handoffs whose
// end_time is at or after since, newest first.
func (r *HandoffRepo) RecentCompletedDurations(ctx context.Context, since time.Time, limit int) ([]model.CompletedDuration, error) {
	rows, err := r.db.QueryContext(ctx, qRecentCompleted, since.UTC(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.CompletedDuration, 0, limit)
	for rows.Next() {
		var (
			dur sql.NullInt64
			end time.Time
		)
		if err := rows.Scan(&dur, &end); err != nil {
			return nil, err
		}
		out = append(out, model.CompletedDuration{DurationSeconds: dur.Int64, EndTime: end})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// scanHandoff reads one handoffs row selected with handoffColumns.
func scanHandoff(row *sql.Row) (*model.Handoff, error) {
	var (
		h   model.Handoff
		end sql.NullTime
		dur sql.NullInt64
	)
	if err := row.Scan(&h.ID, &h.Token, &h.StartTime, &end, &dur); err != nil {
		return nil, err
	}
	if end.Valid {
		t := end.Time
		h.EndTime = &t
	}
	if dur.Valid {
		d := dur.Int64
		h.DurationSeconds = &d
	}
	return &h, nil
}

func nilOnNoRows(h *model.Handoff, err error) (*model.Handoff, error) {
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return h, err
}
