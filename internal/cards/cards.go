// Package cards produces the printable ticket cards handed to customers:
// sequential tokens and a QR code image for each.
package cards

import (
	"errors"
	"fmt"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

const (
	// MaxCount is the largest batch printed at once.
	MaxCount = 60

	DefaultSize = 256
	minSize     = 64
	maxSize     = 1024

	prefix = "QT-"
)

// ErrCount is returned for a batch size outside 1..MaxCount.
var ErrCount = fmt.Errorf("count must be between 1 and %d", MaxCount)

// ErrToken is returned when asked to render an empty token.
var ErrToken = errors.New("empty token")

// GenerateTokens returns QT-001 through QT-<count>.
func GenerateTokens(count int) ([]string, error) {
	if count < 1 || count > MaxCount {
		return nil, ErrCount
	}
	out := make([]string, count)
	for i := range out {
		out[i] = fmt.Sprintf("%s%03d", prefix, i+1)
	}
	return out, nil
}

// ClampSize keeps a requested image edge length within what scanners
// read reliably; zero or negative selects DefaultSize.
func ClampSize(size int) int {
	switch {
	case size <= 0:
		return DefaultSize
	case size < minSize:
		return minSize
	case size > maxSize:
		return maxSize
	}
	return size
}

// QRPNG encodes token as a square PNG QR code of the given edge length.
func QRPNG(token string, size int) ([]byte, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrToken
	}
	png, err := qrcode.Encode(token, qrcode.Medium, ClampSize(size))
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return png, nil
}
