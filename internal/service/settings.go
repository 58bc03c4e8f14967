package service

import (
	"context"
	"errors"

	"github.com/iliyamo/handoff-wait/internal/model"
	"github.com/iliyamo/handoff-wait/internal/repository"
)

// SettingsStore reads and patches the settings row.  Get returns
// repository.ErrSettingsNotFound before the first write.
type SettingsStore interface {
	Get(ctx context.Context) (*model.Settings, error)
	Upsert(ctx context.Context, patch model.SettingsPatch) (*model.Settings, error)
}

// SettingsService is the operator-facing side of the settings row.
type SettingsService struct {
	store    SettingsStore
	notifier Notifier
}

func NewSettingsService(store SettingsStore, notifier Notifier) *SettingsService {
	return &SettingsService{store: store, notifier: notifier}
}

// Get returns the settings or nil when none have been written yet.
func (s *SettingsService) Get(ctx context.Context) (*model.Settings, error) {
	st, err := s.store.Get(ctx)
	if errors.Is(err, repository.ErrSettingsNotFound) {
		return nil, nil
	}
	return st, err
}

// Update applies patch, creating the row on first use, and announces the
// change.  An empty patch still creates the row.
func (s *SettingsService) Update(ctx context.Context, patch model.SettingsPatch) (*model.Settings, error) {
	st, err := s.store.Upsert(ctx, patch)
	if err != nil {
		return nil, err
	}
	notifyAsync(ctx, s.notifier, model.Change{Table: model.TableSettings, At: st.UpdatedAt})
	return st, nil
}

func isSettingsNotFound(err error) bool {
	return errors.Is(err, repository.ErrSettingsNotFound)
}
