package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/iliyamo/handoff-wait/internal/config"
	"github.com/iliyamo/handoff-wait/internal/model"
)

func newTestRefresher(s SettingsStore, h HistoryStore, now time.Time) *Refresher {
	cfg := config.DefaultDisplayConfig()
	cfg.RefreshInterval = time.Hour
	r := NewRefresher(s, h, cfg)
	r.now = func() time.Time { return now }
	return r
}

func TestRefresher_Average(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	settings := &memSettings{row: &model.Settings{DisplayOn: true}}
	history := &memHistory{rows: []model.CompletedDuration{{DurationSeconds: 300}, {DurationSeconds: 420}}}
	r := newTestRefresher(settings, history, now)

	snap := r.Refresh(context.Background())
	if snap.Value != "6" || snap.Source != SourceAverage {
		t.Errorf("snapshot = %+v, want 6 from average", snap)
	}
	if !snap.ComputedAt.Equal(now) {
		t.Errorf("ComputedAt = %v, want %v", snap.ComputedAt, now)
	}
	if !history.gotSince.Equal(now.Add(-120*time.Minute)) || history.gotLimit != 10 {
		t.Errorf("history queried with since=%v limit=%d", history.gotSince, history.gotLimit)
	}
}

func TestRefresher_ManualSkipsHistory(t *testing.T) {
	settings := &memSettings{row: &model.Settings{DisplayOn: true, ManualMinutes: intp(8)}}
	history := &memHistory{}
	r := newTestRefresher(settings, history, time.Now())

	if snap := r.Refresh(context.Background()); snap.Value != "8" {
		t.Errorf("Value = %q, want 8", snap.Value)
	}
	if history.callCount != 0 {
		t.Errorf("history read %d times, want 0", history.callCount)
	}
}

func TestRefresher_DegradesToUnknown(t *testing.T) {
	t.Run("settings missing", func(t *testing.T) {
		r := newTestRefresher(&memSettings{}, &memHistory{}, time.Now())
		if snap := r.Refresh(context.Background()); snap.Value != Unknown || snap.Source != SourceOff {
			t.Errorf("snapshot = %+v", snap)
		}
	})
	t.Run("settings error", func(t *testing.T) {
		r := newTestRefresher(&memSettings{getErr: errors.New("down")}, &memHistory{}, time.Now())
		if snap := r.Refresh(context.Background()); snap.Value != Unknown {
			t.Errorf("Value = %q, want %q", snap.Value, Unknown)
		}
	})
	t.Run("history error", func(t *testing.T) {
		settings := &memSettings{row: &model.Settings{DisplayOn: true}}
		r := newTestRefresher(settings, &memHistory{err: errors.New("down")}, time.Now())
		if snap := r.Refresh(context.Background()); snap.Value != Unknown || snap.Source != SourceNone {
			t.Errorf("snapshot = %+v", snap)
		}
	})
}

func TestRefresher_CurrentComputesOnce(t *testing.T) {
	settings := &memSettings{row: &model.Settings{DisplayOn: true, ManualMinutes: intp(4)}}
	r := newTestRefresher(settings, &memHistory{}, time.Now())

	if snap := r.Current(context.Background()); snap.Value != "4" {
		t.Fatalf("Current() = %+v", snap)
	}
	settings.row.ManualMinutes = intp(9)
	if snap := r.Current(context.Background()); snap.Value != "4" {
		t.Errorf("Current() recomputed without a refresh: %+v", snap)
	}
	if snap := r.Refresh(context.Background()); snap.Value != "9" {
		t.Errorf("Refresh() = %+v, want 9", snap)
	}
}

func TestRefresher_StaleResultDoesNotWin(t *testing.T) {
	r := newTestRefresher(&memSettings{}, &memHistory{}, time.Now())
	newer := &Snapshot{Estimate: Estimate{Value: "12"}, seq: 5}
	older := &Snapshot{Estimate: Estimate{Value: "3"}, seq: 4}

	r.publish(newer)
	if got := r.publish(older); got.Value != "12" {
		t.Errorf("publish(older) = %+v, want the newer snapshot", got)
	}
	if cur := r.Current(context.Background()); cur.Value != "12" {
		t.Errorf("Current() = %+v, want 12", cur)
	}
}

func TestRefresher_NotifyCoalesces(t *testing.T) {
	r := newTestRefresher(&memSettings{}, &memHistory{}, time.Now())
	for i := 0; i < 10; i++ {
		r.Notify()
	}
	if n := len(r.signals); n != 1 {
		t.Errorf("pending signals = %d, want 1", n)
	}
}

func TestRefresher_RunReactsToNotify(t *testing.T) {
	settings := &memSettings{row: &model.Settings{DisplayOn: true, ManualMinutes: intp(2)}}
	r := newTestRefresher(settings, &memHistory{}, time.Now())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	waitFor(t, func() bool { return r.current.Load() != nil && r.current.Load().Value == "2" })

	settings.mu.Lock()
	settings.row.ManualMinutes = intp(6)
	settings.mu.Unlock()
	r.NotifyChange().Notify(ctx, model.Change{Table: model.TableSettings})

	waitFor(t, func() bool { return r.current.Load().Value == "6" })

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
