package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/iliyamo/handoff-wait/internal/model"
)

var (
	// ErrEmptyToken is returned for a token that is empty after trimming.
	ErrEmptyToken = errors.New("empty token")
	// ErrTokenTooLong is returned for a token longer than
	// model.MaxTokenLen bytes.  Nothing is written for it.
	ErrTokenTooLong = fmt.Errorf("token longer than %d bytes", model.MaxTokenLen)
	// ErrSaveScan wraps any store failure while recording a scan.  The
	// physical handoff happened even though the record did not, so
	// callers must show this differently from "nothing scanned" and let
	// the operator scan again.
	ErrSaveScan = errors.New("error saving scan")
)

// HandoffStore applies a scan atomically per token.  The store reads the
// token's open handoff, decides with model.NextTransition and writes the
// result in one transaction.
type HandoffStore interface {
	RecordScan(ctx context.Context, token string, now time.Time) (model.Transition, error)
}

// Ledger records scans.  It holds no handoff state of its own.
type Ledger struct {
	store    HandoffStore
	notifier Notifier
	now      func() time.Time
}

// NewLedger returns a Ledger writing to store.  notifier may be nil.
func NewLedger(store HandoffStore, notifier Notifier) *Ledger {
	return &Ledger{store: store, notifier: notifier, now: time.Now}
}

// RecordScan opens a handoff for token or closes the open one.  It is
// never retried here: a failed save is returned as ErrSaveScan and the
// operator re-scans.
func (l *Ledger) RecordScan(ctx context.Context, token string) (model.ScanResult, error) {
	token, err := normalizeToken(token)
	if err != nil {
		return model.ScanResult{}, err
	}

	tr, err := l.store.RecordScan(ctx, token, l.now())
	if err != nil {
		log.Printf("ledger: save scan token=%q failed: %v", token, err)
		return model.ScanResult{}, fmt.Errorf("%w: %v", ErrSaveScan, err)
	}
	if tr.Skew < 0 {
		log.Printf("ledger: WARN token=%q handoff=%d closed %ds before it started; duration stored as 0",
			token, tr.Close.ID, -tr.Skew)
	}

	notifyAsync(ctx, l.notifier, model.Change{Table: model.TableHandoffs, Token: token, At: tr.At})
	return tr.Result(), nil
}

// normalizeToken trims raw and checks it fits the store.
func normalizeToken(raw string) (string, error) {
	token := strings.TrimSpace(raw)
	switch {
	case token == "":
		return "", ErrEmptyToken
	case len(token) > model.MaxTokenLen:
		return "", ErrTokenTooLong
	}
	return token, nil
}
