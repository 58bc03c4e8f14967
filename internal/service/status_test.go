package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/iliyamo/handoff-wait/internal/model"
)

type fakeLookup struct {
	latest, open, closed *model.Handoff
	latestErr, openErr   error
	closedErr            error
}

func (f fakeLookup) LatestByToken(context.Context, string) (*model.Handoff, error) {
	return f.latest, f.latestErr
}

func (f fakeLookup) OpenByToken(context.Context, string) (*model.Handoff, error) {
	return f.open, f.openErr
}

func (f fakeLookup) LatestClosedByToken(context.Context, string) (*model.Handoff, error) {
	return f.closed, f.closedErr
}

func fixedResolver(primary, fallback StatusStrategy, now time.Time) *StatusResolver {
	r := NewStatusResolver(primary, fallback)
	r.now = func() time.Time { return now }
	return r
}

func TestStatusResolver_Strategies(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	start := now.Add(-2 * time.Minute)
	end := start.Add(time.Minute)
	dur := int64(60)
	open := &model.Handoff{ID: 2, Token: "QT-1", StartTime: now.Add(-10 * time.Second)}
	closed := &model.Handoff{ID: 1, Token: "QT-1", StartTime: start, EndTime: &end, DurationSeconds: &dur}

	tests := []struct {
		name string
		f    fakeLookup
		want model.StatusKind
	}{
		{"unknown", fakeLookup{}, model.StatusNotFound},
		{"open", fakeLookup{latest: open, open: open, closed: closed}, model.StatusOpen},
		{"completed", fakeLookup{latest: closed, closed: closed}, model.StatusCompleted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, s := range []StatusStrategy{AtomicStatus{tt.f}, TwoStepStatus{tt.f}} {
				st, err := fixedResolver(s, nil, now).TicketStatus(context.Background(), "QT-1")
				if err != nil {
					t.Fatalf("%T: %v", s, err)
				}
				if st.Kind != tt.want {
					t.Errorf("%T: Kind = %s, want %s", s, st.Kind, tt.want)
				}
			}
		})
	}
}

func TestStatusResolver_ElapsedForOpen(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	open := &model.Handoff{Token: "QT-2", StartTime: now.Add(-95 * time.Second)}
	st, err := fixedResolver(AtomicStatus{fakeLookup{latest: open}}, nil, now).TicketStatus(context.Background(), "QT-2")
	if err != nil {
		t.Fatal(err)
	}
	if st.ElapsedSeconds == nil || *st.ElapsedSeconds != 95 {
		t.Errorf("ElapsedSeconds = %v, want 95", st.ElapsedSeconds)
	}
}

func TestStatusResolver_FallsBack(t *testing.T) {
	now := time.Now()
	open := &model.Handoff{Token: "QT-3", StartTime: now}
	primary := AtomicStatus{fakeLookup{latestErr: errors.New("syntax error")}}
	fallback := TwoStepStatus{fakeLookup{open: open}}

	st, err := fixedResolver(primary, fallback, now).TicketStatus(context.Background(), "QT-3")
	if err != nil {
		t.Fatalf("TicketStatus() error = %v", err)
	}
	if st.Kind != model.StatusOpen {
		t.Errorf("Kind = %s, want open", st.Kind)
	}
}

func TestStatusResolver_Unavailable(t *testing.T) {
	down := errors.New("db down")
	primary := AtomicStatus{fakeLookup{latestErr: down}}
	fallback := TwoStepStatus{fakeLookup{closedErr: down}}

	_, err := fixedResolver(primary, fallback, time.Now()).TicketStatus(context.Background(), "QT-4")
	if !errors.Is(err, ErrStatusUnavailable) {
		t.Fatalf("error = %v, want ErrStatusUnavailable", err)
	}
	_, err = fixedResolver(primary, nil, time.Now()).TicketStatus(context.Background(), "QT-4")
	if !errors.Is(err, ErrStatusUnavailable) {
		t.Fatalf("no fallback: error = %v, want ErrStatusUnavailable", err)
	}
}

func TestStatusResolver_EmptyToken(t *testing.T) {
	r := fixedResolver(AtomicStatus{fakeLookup{}}, nil, time.Now())
	if _, err := r.TicketStatus(context.Background(), " "); !errors.Is(err, ErrEmptyToken) {
		t.Errorf("error = %v, want ErrEmptyToken", err)
	}
}

func TestStatusResolver_TokenTooLong(t *testing.T) {
	r := fixedResolver(AtomicStatus{fakeLookup{}}, nil, time.Now())
	long := strings.Repeat("Q", model.MaxTokenLen+1)
	if _, err := r.TicketStatus(context.Background(), long); !errors.Is(err, ErrTokenTooLong) {
		t.Errorf("error = %v, want ErrTokenTooLong", err)
	}
}
