package service

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/iliyamo/handoff-wait/internal/config"
	"github.com/iliyamo/handoff-wait/internal/model"
)

// HistoryStore returns completed handoffs that ended at or after since,
// newest first, at most limit of them.
type HistoryStore interface {
	RecentCompletedDurations(ctx context.Context, since time.Time, limit int) ([]model.CompletedDuration, error)
}

// Snapshot is the display value as of ComputedAt.
type Snapshot struct {
	Estimate
	ComputedAt time.Time `json:"computed_at"`

	seq uint64
}

// Refresher keeps the current display value.  It recomputes on a timer
// and whenever Notify is called; bursts of notifications collapse into
// one recomputation.  Readers always see a complete snapshot, and a
// slow computation that finishes after a newer one never replaces it.
type Refresher struct {
	settings SettingsStore
	history  HistoryStore
	cfg      config.DisplayConfig
	now      func() time.Time

	signals chan struct{}
	seq     atomic.Uint64
	current atomic.Pointer[Snapshot]
	mu      sync.Mutex // serializes publish
}

// NewRefresher returns a Refresher with no snapshot yet.
func NewRefresher(settings SettingsStore, history HistoryStore, cfg config.DisplayConfig) *Refresher {
	return &Refresher{
		settings: settings,
		history:  history,
		cfg:      cfg,
		now:      time.Now,
		signals:  make(chan struct{}, 1),
	}
}

// Refresh recomputes the display value and publishes it.  A settings
// read failure is treated as "display off" and a history read failure as
// "no history"; both are logged and neither is returned, so the display
// degrades to "--" instead of going stale.
func (r *Refresher) Refresh(ctx context.Context) Snapshot {
	seq := r.seq.Add(1)
	now := r.now()

	st, err := r.settings.Get(ctx)
	if err != nil {
		if !isSettingsNotFound(err) {
			log.Printf("display: read settings: %v", err)
		}
		st = nil
	}

	var recent []int64
	if st != nil && st.DisplayOn && st.ManualMinutes == nil {
		rows, err := r.history.RecentCompletedDurations(ctx, now.Add(-r.cfg.Window()), r.cfg.AverageLastN)
		if err != nil {
			log.Printf("display: read history: %v", err)
		}
		recent = make([]int64, 0, len(rows))
		for _, row := range rows {
			recent = append(recent, row.DurationSeconds)
		}
	}

	snap := &Snapshot{
		Estimate:   EstimateWait(st, recent, BiasOptionsFrom(r.cfg)),
		ComputedAt: now,
		seq:        seq,
	}
	return *r.publish(snap)
}

// publish stores snap unless a later computation already did, and
// returns whichever snapshot is current.
func (r *Refresher) publish(snap *Snapshot) *Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur := r.current.Load(); cur != nil && cur.seq > snap.seq {
		return cur
	}
	r.current.Store(snap)
	return snap
}

// Current returns the latest snapshot, computing one if none exists.
func (r *Refresher) Current(ctx context.Context) Snapshot {
	if cur := r.current.Load(); cur != nil {
		return *cur
	}
	return r.Refresh(ctx)
}

// Notify asks Run to recompute soon.  It never blocks.
func (r *Refresher) Notify() {
	select {
	case r.signals <- struct{}{}:
	default:
	}
}

// NotifyChange lets the Refresher be used as a Notifier.
func (r *Refresher) NotifyChange() Notifier {
	return NotifierFunc(func(context.Context, model.Change) { r.Notify() })
}

// Run computes an initial snapshot and then recomputes on every tick of
// the refresh interval and on every coalesced Notify until ctx is done.
func (r *Refresher) Run(ctx context.Context) {
	r.Refresh(ctx)
	ticker := time.NewTicker(r.cfg.RefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Refresh(ctx)
		case <-r.signals:
			r.Refresh(ctx)
		}
	}
}
