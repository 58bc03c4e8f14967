package model

import "time"

// MaxTokenLen is the longest token, in bytes, the handoffs table stores.
const MaxTokenLen = 128

// Handoff represents one open-to-close lifecycle of a physical ticket.
// A handoff is opened by the first scan of a token and closed by the
// next one.  Tokens are reusable: once closed, a later scan opens a
// new handoff for the same token.
//
// Fields:
//  ID              – primary key identifier.
//  Token           – trimmed, non-empty ticket identifier.
//  StartTime       – when the handoff was opened; never changes.
//  EndTime         – when the handoff was closed; nil while open.
//  DurationSeconds – EndTime-StartTime in whole seconds; nil while open.
type Handoff struct {
	ID              uint64     // handoffs.id
	Token           string     // handoffs.token
	StartTime       time.Time  // handoffs.start_time
	EndTime         *time.Time // handoffs.end_time (nullable)
	DurationSeconds *int64     // handoffs.duration_seconds (nullable)
}

// IsOpen reports whether the handoff has not been closed yet.
func (h *Handoff) IsOpen() bool {
	return h != nil && h.EndTime == nil
}

// CompletedDuration is one row of the recent-history window used by the
// wait-time estimator.
type CompletedDuration struct {
	DurationSeconds int64     // handoffs.duration_seconds
	EndTime         time.Time // handoffs.end_time
}

// ScanResult is returned from recording a scan.  Completed is false when
// the scan opened a new handoff and true when it closed one, in which
// case DurationSeconds carries the closed handoff's duration.
type ScanResult struct {
	Completed       bool   `json:"completed"`
	DurationSeconds *int64 `json:"duration_seconds,omitempty"`
}

// Transition is the mutation a scan produces against a token's current
// open handoff.  Exactly one of Open or Close is set.
type Transition struct {
	Open    bool      // insert a new handoff starting at At
	Close   *Handoff  // the open handoff to close at At
	At      time.Time // scan time
	Seconds int64     // duration of the closed handoff, clamped to >= 0
	Skew    int64     // raw negative duration when the clock went backwards, else 0
}

// Result converts the transition into the caller-facing scan result.
func (t Transition) Result() ScanResult {
	if t.Open {
		return ScanResult{Completed: false}
	}
	secs := t.Seconds
	return ScanResult{Completed: true, DurationSeconds: &secs}
}

// NextTransition decides what a scan at time now does given the token's
// currently open handoff (nil when there is none).  With no open handoff
// the scan opens one; otherwise it closes the open one.
func NextTransition(open *Handoff, now time.Time) Transition {
	if !open.IsOpen() {
		return Transition{Open: true, At: now}
	}
	secs, skew := DurationSeconds(open.StartTime, now)
	return Transition{Close: open, At: now, Seconds: secs, Skew: skew}
}

// DurationSeconds returns end-start in whole seconds.  A negative value
// (end before start) is clamped to zero and the raw value is returned as
// skew so the caller can report it.
func DurationSeconds(start, end time.Time) (secs int64, skew int64) {
	d := int64(end.Sub(start) / time.Second)
	if d < 0 {
		return 0, d
	}
	return d, 0
}
