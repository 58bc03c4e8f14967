package service

import (
	"context"

	"github.com/iliyamo/handoff-wait/internal/model"
)

// Notifier announces that stored rows changed.  Delivery is best-effort:
// implementations log failures instead of returning them, and displays
// fall back to polling.
type Notifier interface {
	Notify(ctx context.Context, change model.Change)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, change model.Change)

func (f NotifierFunc) Notify(ctx context.Context, change model.Change) { f(ctx, change) }

// Notifiers fans a change out to every non-nil notifier in order.
type Notifiers []Notifier

func (ns Notifiers) Notify(ctx context.Context, change model.Change) {
	for _, n := range ns {
		if n != nil {
			n.Notify(ctx, change)
		}
	}
}

// notifyAsync hands change to n without holding up the caller.  The
// write being announced has already committed, so the request context is
// detached: a client hanging up must not cancel the announcement.
func notifyAsync(ctx context.Context, n Notifier, change model.Change) {
	if n == nil {
		return
	}
	go n.Notify(context.WithoutCancel(ctx), change)
}
