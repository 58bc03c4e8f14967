package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/handoff-wait/internal/model"
)

const (
	qGetSettings          = `SELECT display_on, manual_minutes, updated_at FROM settings WHERE id = ?`
	qGetSettingsForUpdate = qGetSettings + ` FOR UPDATE`
	qUpsertSettings       = `INSERT INTO settings (id, display_on, manual_minutes, updated_at) VALUES (?, ?, ?, ?)
               ON DUPLICATE KEY UPDATE display_on = VALUES(display_on), manual_minutes = VALUES(manual_minutes), updated_at = VALUES(updated_at)`
)

// SettingsRepo reads and writes the single settings row (id = 1).
type SettingsRepo struct {
	db  *sql.DB
	now func() time.Time
}

// NewSettingsRepo returns a SettingsRepo bound to db.
func NewSettingsRepo(db *sql.DB) *SettingsRepo {
	return &SettingsRepo{db: db, now: time.Now}
}

// Get returns the settings row or ErrSettingsNotFound when it has never
// been written.
func (r *SettingsRepo) Get(ctx context.Context) (*model.Settings, error) {
	s, err := scanSettings(r.db.QueryRowContext(ctx, qGetSettings, model.SettingsID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSettingsNotFound
	}
	return s, err
}

// Upsert merges patch into the settings row, creating the row from
// model.DefaultSettings on the first write.  The read and the write
// happen in one transaction so concurrent patches touching different
// fields do not overwrite each other.
func (r *SettingsRepo) Upsert(ctx context.Context, patch model.SettingsPatch) (*model.Settings, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	base := model.DefaultSettings()
	cur, err := scanSettings(tx.QueryRowContext(ctx, qGetSettingsForUpdate, model.SettingsID))
	switch {
	case err == nil:
		base = *cur
	case !errors.Is(err, sql.ErrNoRows):
		return nil, err
	}

	next := base.Apply(patch)
	next.UpdatedAt = r.now().UTC()
	var manual interface{}
	if next.ManualMinutes != nil {
		manual = int64(*next.ManualMinutes)
	}
	if _, err := tx.ExecContext(ctx, qUpsertSettings, model.SettingsID, next.DisplayOn, manual, next.UpdatedAt); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return &next, nil
}

func scanSettings(row *sql.Row) (*model.Settings, error) {
	var (
		s      model.Settings
		manual sql.NullInt64
	)
	if err := row.Scan(&s.DisplayOn, &manual, &s.UpdatedAt); err != nil {
		return nil, err
	}
	if manual.Valid {
		m := int(manual.Int64)
		s.ManualMinutes = &m
	}
	return &s, nil
}
