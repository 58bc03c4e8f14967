package scan

import (
	"context"
	"errors"
	"fmt"

	"github.com/iliyamo/handoff-wait/internal/model"
	"github.com/iliyamo/handoff-wait/internal/service"
)

// Kind classifies what happened to one payload.
type Kind int

const (
	Opened Kind = iota
	Completed
	SaveFailed
	Status
	StatusFailed
	Rejected
)

// Outcome is the result of dispatching one payload.
type Outcome struct {
	Kind            Kind
	Token           string
	DurationSeconds int64
	Status          model.TicketStatus
	Err             error
}

// String renders the outcome the way the station prints it.
func (o Outcome) String() string {
	switch o.Kind {
	case Opened:
		return fmt.Sprintf("%s: opened", o.Token)
	case Completed:
		return fmt.Sprintf("%s: completed (%ds)", o.Token, o.DurationSeconds)
	case SaveFailed:
		return fmt.Sprintf("%s: error saving scan", o.Token)
	case Status:
		return statusLine(o.Status)
	case Rejected:
		return fmt.Sprintf("%.20s...: rejected: %v", o.Token, o.Err)
	default:
		return fmt.Sprintf("%s: status unavailable: %v", o.Token, o.Err)
	}
}

func statusLine(st model.TicketStatus) string {
	switch st.Kind {
	case model.StatusOpen:
		return fmt.Sprintf("%s: open for %ds", st.Token, deref(st.ElapsedSeconds))
	case model.StatusCompleted:
		return fmt.Sprintf("%s: completed in %ds at %s", st.Token, deref(st.DurationSeconds), st.EndTime.Format("15:04:05"))
	default:
		return fmt.Sprintf("%s: not found", st.Token)
	}
}

func deref(p *int64) int64 {
	if p == nil {
		return 0
	}
	return *p
}

// Dispatcher handles one non-empty payload.
type Dispatcher interface {
	Dispatch(ctx context.Context, token string) Outcome
}

// ScanRecorder is the subset of service.Ledger a record station needs.
type ScanRecorder interface {
	RecordScan(ctx context.Context, token string) (model.ScanResult, error)
}

// RecordDispatcher records each payload as a scan.
type RecordDispatcher struct{ Ledger ScanRecorder }

func (d RecordDispatcher) Dispatch(ctx context.Context, token string) Outcome {
	res, err := d.Ledger.RecordScan(ctx, token)
	switch {
	case errors.Is(err, service.ErrTokenTooLong):
		return Outcome{Kind: Rejected, Token: token, Err: err}
	case err != nil:
		return Outcome{Kind: SaveFailed, Token: token, Err: err}
	}
	if !res.Completed {
		return Outcome{Kind: Opened, Token: token}
	}
	var secs int64
	if res.DurationSeconds != nil {
		secs = *res.DurationSeconds
	}
	return Outcome{Kind: Completed, Token: token, DurationSeconds: secs}
}

// StatusLookup is the subset of service.StatusResolver a check station
// needs.
type StatusLookup interface {
	TicketStatus(ctx context.Context, token string) (model.TicketStatus, error)
}

// StatusDispatcher looks up each payload's status without writing.
type StatusDispatcher struct{ Resolver StatusLookup }

func (d StatusDispatcher) Dispatch(ctx context.Context, token string) Outcome {
	st, err := d.Resolver.TicketStatus(ctx, token)
	if errors.Is(err, service.ErrTokenTooLong) {
		return Outcome{Kind: Rejected, Token: token, Err: err}
	}
	if err != nil {
		return Outcome{Kind: StatusFailed, Token: token, Err: err}
	}
	return Outcome{Kind: Status, Token: token, Status: st}
}
