package model

import (
	"testing"
	"time"
)

func TestResolveStatus(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 30, 0, 0, time.UTC)
	closedStart := now.Add(-20 * time.Minute)
	closedEnd := closedStart.Add(300 * time.Second)
	dur := int64(300)
	closed := &Handoff{Token: "QT-005", StartTime: closedStart, EndTime: &closedEnd, DurationSeconds: &dur}
	open := &Handoff{Token: "QT-005", StartTime: now.Add(-45 * time.Second)}

	t.Run("not found", func(t *testing.T) {
		st := ResolveStatus("QT-005", nil, nil, now)
		if st.Kind != StatusNotFound {
			t.Errorf("Kind = %s, want not_found", st.Kind)
		}
	})

	t.Run("open", func(t *testing.T) {
		st := ResolveStatus("QT-005", open, nil, now)
		if st.Kind != StatusOpen {
			t.Fatalf("Kind = %s, want open", st.Kind)
		}
		if st.ElapsedSeconds == nil || *st.ElapsedSeconds != 45 {
			t.Errorf("ElapsedSeconds = %v, want 45", st.ElapsedSeconds)
		}
		if st.EndTime != nil || st.DurationSeconds != nil {
			t.Errorf("open status must not carry end/duration: %+v", st)
		}
	})

	t.Run("completed", func(t *testing.T) {
		st := ResolveStatus("QT-005", nil, closed, now)
		if st.Kind != StatusCompleted {
			t.Fatalf("Kind = %s, want completed", st.Kind)
		}
		if st.DurationSeconds == nil || *st.DurationSeconds != 300 {
			t.Errorf("DurationSeconds = %v, want 300", st.DurationSeconds)
		}
		if st.EndTime == nil || !st.EndTime.Equal(closedEnd) {
			t.Errorf("EndTime = %v, want %v", st.EndTime, closedEnd)
		}
	})

	t.Run("open wins over closed history", func(t *testing.T) {
		st := ResolveStatus("QT-005", open, closed, now)
		if st.Kind != StatusOpen {
			t.Errorf("Kind = %s, want open", st.Kind)
		}
	})

	t.Run("closed row passed as open is ignored", func(t *testing.T) {
		st := ResolveStatus("QT-005", closed, nil, now)
		if st.Kind != StatusNotFound {
			t.Errorf("Kind = %s, want not_found", st.Kind)
		}
	})

	t.Run("missing duration is derived", func(t *testing.T) {
		noDur := &Handoff{Token: "QT-005", StartTime: closedStart, EndTime: &closedEnd}
		st := ResolveStatus("QT-005", nil, noDur, now)
		if st.DurationSeconds == nil || *st.DurationSeconds != 300 {
			t.Errorf("DurationSeconds = %v, want 300", st.DurationSeconds)
		}
	})
}
