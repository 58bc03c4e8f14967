package service

import (
	"context"
	"sync"
	"time"

	"github.com/iliyamo/handoff-wait/internal/model"
	"github.com/iliyamo/handoff-wait/internal/repository"
)

// memStore is an in-memory handoff table.  A single mutex plays the role
// of the database's row lock on the token.
type memStore struct {
	mu      sync.Mutex
	rows    []model.Handoff
	nextID  uint64
	failErr error
}

func (m *memStore) RecordScan(_ context.Context, token string, now time.Time) (model.Transition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return model.Transition{}, m.failErr
	}
	var open *model.Handoff
	for i := range m.rows {
		if m.rows[i].Token == token && m.rows[i].IsOpen() {
			open = &m.rows[i]
		}
	}
	tr := model.NextTransition(open, now)
	if tr.Open {
		m.nextID++
		m.rows = append(m.rows, model.Handoff{ID: m.nextID, Token: token, StartTime: now})
		return tr, nil
	}
	end, secs := now, tr.Seconds
	open.EndTime = &end
	open.DurationSeconds = &secs
	return tr, nil
}

func (m *memStore) openCount(token string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, h := range m.rows {
		if h.Token == token && h.IsOpen() {
			n++
		}
	}
	return n
}

type memSettings struct {
	mu      sync.Mutex
	row     *model.Settings
	getErr  error
	now     time.Time
	upserts int
}

func (m *memSettings) Get(context.Context) (*model.Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	if m.row == nil {
		return nil, repository.ErrSettingsNotFound
	}
	cp := *m.row
	return &cp, nil
}

func (m *memSettings) Upsert(_ context.Context, p model.SettingsPatch) (*model.Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	base := model.DefaultSettings()
	if m.row != nil {
		base = *m.row
	}
	next := base.Apply(p)
	next.UpdatedAt = m.now
	m.row = &next
	m.upserts++
	cp := next
	return &cp, nil
}

type memHistory struct {
	rows      []model.CompletedDuration
	err       error
	gotSince  time.Time
	gotLimit  int
	callCount int
}

func (m *memHistory) RecentCompletedDurations(_ context.Context, since time.Time, limit int) ([]model.CompletedDuration, error) {
	m.callCount++
	m.gotSince, m.gotLimit = since, limit
	if m.err != nil {
		return nil, m.err
	}
	return m.rows, nil
}

type recordingNotifier struct {
	mu      sync.Mutex
	changes []model.Change
}

func (r *recordingNotifier) Notify(_ context.Context, c model.Change) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, c)
}

func (r *recordingNotifier) all() []model.Change {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Change(nil), r.changes...)
}

func intp(v int) *int { return &v }
