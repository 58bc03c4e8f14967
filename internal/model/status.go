package model

import "time"

// StatusKind names the state of a ticket.
type StatusKind string

const (
	StatusNotFound  StatusKind = "not_found"
	StatusOpen      StatusKind = "open"
	StatusCompleted StatusKind = "completed"
)

// TicketStatus answers "what is the current state of token T".  Which
// fields are populated depends on Kind:
//  open      – StartTime and ElapsedSeconds (computed at query time).
//  completed – StartTime, EndTime and DurationSeconds of the most
//              recently closed handoff.
//  not_found – nothing.
type TicketStatus struct {
	Kind            StatusKind `json:"status"`
	Token           string     `json:"token"`
	StartTime       *time.Time `json:"start_time,omitempty"`
	EndTime         *time.Time `json:"end_time,omitempty"`
	ElapsedSeconds  *int64     `json:"elapsed_seconds,omitempty"`
	DurationSeconds *int64     `json:"duration_seconds,omitempty"`
}

// ResolveStatus combines a token's open handoff and its most recently
// closed handoff (either may be nil).  An open handoff always wins over
// closed history.
func ResolveStatus(token string, open, lastClosed *Handoff, now time.Time) TicketStatus {
	if open.IsOpen() {
		start := open.StartTime
		elapsed, _ := DurationSeconds(start, now)
		return TicketStatus{Kind: StatusOpen, Token: token, StartTime: &start, ElapsedSeconds: &elapsed}
	}
	if lastClosed != nil && lastClosed.EndTime != nil {
		start := lastClosed.StartTime
		end := *lastClosed.EndTime
		var dur int64
		if lastClosed.DurationSeconds != nil {
			dur = *lastClosed.DurationSeconds
		} else {
			dur, _ = DurationSeconds(start, end)
		}
		return TicketStatus{Kind: StatusCompleted, Token: token, StartTime: &start, EndTime: &end, DurationSeconds: &dur}
	}
	return TicketStatus{Kind: StatusNotFound, Token: token}
}
