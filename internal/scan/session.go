package scan

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
)

// Session owns one capture source for its whole life.  Payloads are
// dispatched strictly in order; the next one is not read until the
// previous outcome has been reported.  Sessions share nothing, so two
// stations can run side by side.
type Session struct {
	src  Source
	disp Dispatcher

	once    sync.Once
	stopped chan struct{}
	stopErr error
}

// NewSession returns a Session reading src and handing payloads to disp.
func NewSession(src Source, disp Dispatcher) *Session {
	return &Session{src: src, disp: disp, stopped: make(chan struct{})}
}

// Run reads until the source is exhausted, ctx is done or Stop is
// called, reporting each outcome to onOutcome.  A source failure ends the
// session with an error wrapping ErrCapture.  The source is closed on
// every return path.
func (s *Session) Run(ctx context.Context, onOutcome func(Outcome)) error {
	defer s.Stop()
	for {
		if s.isStopped() {
			return nil
		}
		payload, err := s.src.Next(ctx)
		if err != nil {
			switch {
			case errors.Is(err, io.EOF), s.isStopped():
				return nil
			case ctx.Err() != nil:
				return ctx.Err()
			}
			log.Printf("scan: capture failed: %v", err)
			return fmt.Errorf("%w: %v", ErrCapture, err)
		}
		token := strings.TrimSpace(payload)
		if token == "" {
			continue
		}
		out := s.disp.Dispatch(ctx, token)
		if onOutcome != nil {
			onOutcome(out)
		}
	}
}

// Stop ends the session and releases the source.  It is safe to call
// repeatedly and from any goroutine; only the first call closes the
// source and its error is returned every time.
func (s *Session) Stop() error {
	s.once.Do(func() {
		close(s.stopped)
		s.stopErr = s.src.Close()
	})
	return s.stopErr
}

func (s *Session) isStopped() bool {
	select {
	case <-s.stopped:
		return true
	default:
		return false
	}
}
