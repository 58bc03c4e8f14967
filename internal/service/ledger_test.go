package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/iliyamo/handoff-wait/internal/model"
)

func newTestLedger(store HandoffStore, n Notifier, now *time.Time) *Ledger {
	l := NewLedger(store, n)
	l.now = func() time.Time { return *now }
	return l
}

func TestLedger_OpenThenClose(t *testing.T) {
	store := &memStore{}
	notes := &recordingNotifier{}
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	l := newTestLedger(store, notes, &now)

	res, err := l.RecordScan(context.Background(), "  QT-001 ")
	if err != nil {
		t.Fatalf("first scan: %v", err)
	}
	if res.Completed {
		t.Fatalf("first scan completed = true, want false")
	}

	now = now.Add(5 * time.Minute)
	res, err = l.RecordScan(context.Background(), "QT-001")
	if err != nil {
		t.Fatalf("second scan: %v", err)
	}
	if !res.Completed || res.DurationSeconds == nil || *res.DurationSeconds != 300 {
		t.Fatalf("second scan = %+v, want completed in 300s", res)
	}

	// A third scan reuses the token for a new handoff.
	now = now.Add(time.Minute)
	res, err = l.RecordScan(context.Background(), "QT-001")
	if err != nil || res.Completed {
		t.Fatalf("third scan = %+v, %v; want a new open handoff", res, err)
	}
	if len(store.rows) != 2 {
		t.Errorf("stored %d handoffs, want 2", len(store.rows))
	}

	waitFor(t, func() bool { return len(notes.all()) == 3 })
	got := notes.all()
	for _, c := range got {
		if c.Table != model.TableHandoffs || c.Token != "QT-001" {
			t.Errorf("change = %+v", c)
		}
	}
}

func TestLedger_EmptyToken(t *testing.T) {
	store := &memStore{}
	now := time.Now()
	l := newTestLedger(store, nil, &now)

	for _, tok := range []string{"", "   ", "\t\n"} {
		if _, err := l.RecordScan(context.Background(), tok); !errors.Is(err, ErrEmptyToken) {
			t.Errorf("RecordScan(%q) error = %v, want ErrEmptyToken", tok, err)
		}
	}
	if len(store.rows) != 0 {
		t.Errorf("empty tokens must not be stored")
	}
}

func TestLedger_TokenTooLong(t *testing.T) {
	store := &memStore{}
	now := time.Now()
	l := newTestLedger(store, nil, &now)

	long := strings.Repeat("x", model.MaxTokenLen+1)
	if _, err := l.RecordScan(context.Background(), long); !errors.Is(err, ErrTokenTooLong) {
		t.Fatalf("RecordScan(%d bytes) error = %v, want ErrTokenTooLong", len(long), err)
	}
	if len(store.rows) != 0 {
		t.Fatalf("over-long token was stored")
	}

	// Surrounding whitespace does not count towards the limit.
	exact := " " + strings.Repeat("y", model.MaxTokenLen) + " "
	if _, err := l.RecordScan(context.Background(), exact); err != nil {
		t.Fatalf("RecordScan(%d-byte token) error = %v", model.MaxTokenLen, err)
	}
	if len(store.rows) != 1 || len(store.rows[0].Token) != model.MaxTokenLen {
		t.Errorf("rows = %+v, want one %d-byte token", store.rows, model.MaxTokenLen)
	}
}

func TestLedger_SlowNotifierDoesNotBlockScan(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	stuck := NotifierFunc(func(context.Context, model.Change) { <-release })

	now := time.Now()
	l := newTestLedger(&memStore{}, stuck, &now)

	done := make(chan error, 1)
	go func() {
		_, err := l.RecordScan(context.Background(), "QT-005")
		done <- err
	}()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("RecordScan: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("RecordScan waited on the notifier")
	}
}

func TestLedger_NotifyOutlivesRequest(t *testing.T) {
	got := make(chan error, 1)
	n := NotifierFunc(func(ctx context.Context, _ model.Change) { got <- ctx.Err() })

	now := time.Now()
	l := newTestLedger(&memStore{}, n, &now)

	ctx, cancel := context.WithCancel(context.Background())
	if _, err := l.RecordScan(ctx, "QT-006"); err != nil {
		t.Fatal(err)
	}
	cancel()
	select {
	case err := <-got:
		if err != nil {
			t.Errorf("notifier saw ctx error %v, want a live context", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("notifier never called")
	}
}

func TestLedger_SaveFailure(t *testing.T) {
	boom := errors.New("db down")
	store := &memStore{failErr: boom}
	notes := &recordingNotifier{}
	now := time.Now()
	l := newTestLedger(store, notes, &now)

	_, err := l.RecordScan(context.Background(), "QT-002")
	if !errors.Is(err, ErrSaveScan) {
		t.Fatalf("error = %v, want ErrSaveScan", err)
	}
	if len(notes.all()) != 0 {
		t.Errorf("failed save must not notify")
	}
}

func TestLedger_ClockSkewStoresZero(t *testing.T) {
	store := &memStore{}
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	l := newTestLedger(store, nil, &now)

	if _, err := l.RecordScan(context.Background(), "QT-003"); err != nil {
		t.Fatal(err)
	}
	now = now.Add(-30 * time.Second)
	res, err := l.RecordScan(context.Background(), "QT-003")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Completed || *res.DurationSeconds != 0 {
		t.Errorf("result = %+v, want completed with 0s", res)
	}
}

func TestLedger_ConcurrentScansKeepOneOpen(t *testing.T) {
	store := &memStore{}
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	l := newTestLedger(store, nil, &now)

	const scans = 51
	var wg sync.WaitGroup
	wg.Add(scans)
	for i := 0; i < scans; i++ {
		go func() {
			defer wg.Done()
			if _, err := l.RecordScan(context.Background(), "QT-004"); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	// An odd number of scans leaves exactly one handoff open.
	if n := store.openCount("QT-004"); n != 1 {
		t.Errorf("open handoffs = %d, want 1", n)
	}
	if len(store.rows) != (scans+1)/2 {
		t.Errorf("handoffs = %d, want %d", len(store.rows), (scans+1)/2)
	}
}
