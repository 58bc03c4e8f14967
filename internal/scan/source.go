// Package scan runs an operator scan station: a capture source yields
// decoded payloads, a session feeds them one at a time to a dispatcher,
// and each result is reported as an Outcome.
package scan

import (
	"bufio"
	"context"
	"errors"
	"io"
)

// ErrCapture marks a failure of the capture source itself, as opposed to
// a failure handling one payload.
var ErrCapture = errors.New("capture error")

// Source yields decoded payloads.  Next returns io.EOF when the source is
// exhausted.  Close releases the underlying device and may be called
// more than once.
type Source interface {
	Next(ctx context.Context) (string, error)
	Close() error
}

// LineSource reads one payload per line, the way a keyboard-wedge
// barcode reader types them.
type LineSource struct {
	sc     *bufio.Scanner
	closer io.Closer
}

// NewLineSource reads from r.  When r is an io.Closer it is closed by
// Close.
func NewLineSource(r io.Reader) *LineSource {
	ls := &LineSource{sc: bufio.NewScanner(r)}
	if c, ok := r.(io.Closer); ok {
		ls.closer = c
	}
	return ls
}

func (s *LineSource) Next(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.sc.Scan() {
		return s.sc.Text(), nil
	}
	if err := s.sc.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

func (s *LineSource) Close() error {
	if s.closer == nil {
		return nil
	}
	c := s.closer
	s.closer = nil
	return c.Close()
}
