package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/iliyamo/handoff-wait/internal/model"
)

// ErrStatusUnavailable is returned when no status strategy could reach
// the store.
var ErrStatusUnavailable = errors.New("ticket status unavailable")

// StatusStrategy answers a status lookup for one token.  Every strategy
// applies the same precedence rule (model.ResolveStatus); they differ
// only in how they query the store.
type StatusStrategy interface {
	Status(ctx context.Context, token string, now time.Time) (model.TicketStatus, error)
}

// LatestLookup finds the open handoff, or failing that the latest closed
// one, in a single statement.
type LatestLookup interface {
	LatestByToken(ctx context.Context, token string) (*model.Handoff, error)
}

// SplitLookup finds the open and the latest closed handoff separately.
type SplitLookup interface {
	OpenByToken(ctx context.Context, token string) (*model.Handoff, error)
	LatestClosedByToken(ctx context.Context, token string) (*model.Handoff, error)
}

// AtomicStatus resolves status from one LatestByToken query.
type AtomicStatus struct{ Store LatestLookup }

func (s AtomicStatus) Status(ctx context.Context, token string, now time.Time) (model.TicketStatus, error) {
	h, err := s.Store.LatestByToken(ctx, token)
	if err != nil {
		return model.TicketStatus{}, err
	}
	if h.IsOpen() {
		return model.ResolveStatus(token, h, nil, now), nil
	}
	return model.ResolveStatus(token, nil, h, now), nil
}

// TwoStepStatus resolves status from two queries, the open handoff and
// the latest closed one, combined by the same precedence rule.
type TwoStepStatus struct{ Store SplitLookup }

func (s TwoStepStatus) Status(ctx context.Context, token string, now time.Time) (model.TicketStatus, error) {
	open, err := s.Store.OpenByToken(ctx, token)
	if err != nil {
		return model.TicketStatus{}, err
	}
	if open.IsOpen() {
		return model.ResolveStatus(token, open, nil, now), nil
	}
	closed, err := s.Store.LatestClosedByToken(ctx, token)
	if err != nil {
		return model.TicketStatus{}, err
	}
	return model.ResolveStatus(token, nil, closed, now), nil
}

// StatusResolver answers getTicketStatus.  Primary is tried first; when
// it fails and Fallback is set, Fallback is tried before giving up.
type StatusResolver struct {
	primary  StatusStrategy
	fallback StatusStrategy
	now      func() time.Time
}

// NewStatusResolver returns a resolver.  fallback may be nil.
func NewStatusResolver(primary, fallback StatusStrategy) *StatusResolver {
	return &StatusResolver{primary: primary, fallback: fallback, now: time.Now}
}

// TicketStatus returns the token's state.  A token that was never
// scanned yields StatusNotFound with a nil error.
func (r *StatusResolver) TicketStatus(ctx context.Context, token string) (model.TicketStatus, error) {
	token, err := normalizeToken(token)
	if err != nil {
		return model.TicketStatus{}, err
	}
	now := r.now()
	st, err := r.primary.Status(ctx, token, now)
	if err == nil {
		return st, nil
	}
	if r.fallback == nil {
		return model.TicketStatus{}, fmt.Errorf("%w: %v", ErrStatusUnavailable, err)
	}
	log.Printf("status: lookup token=%q failed, using fallback: %v", token, err)
	st, ferr := r.fallback.Status(ctx, token, now)
	if ferr != nil {
		return model.TicketStatus{}, fmt.Errorf("%w: %v; fallback: %v", ErrStatusUnavailable, err, ferr)
	}
	return st, nil
}
