package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"
)

// StationHeader names the scan station sending a request.  Stations are
// not authenticated; the name only separates rate-limit buckets and log
// lines.
const StationHeader = "X-Station"

const maxStationLen = 64

// Station returns the caller's station name, or "anon" when none was
// sent.  Anything outside [A-Za-z0-9._-] is replaced so the value is safe
// inside a redis key.
func Station(c echo.Context) string {
	raw := strings.TrimSpace(c.Request().Header.Get(StationHeader))
	if raw == "" {
		return "anon"
	}
	if len(raw) > maxStationLen {
		raw = raw[:maxStationLen]
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			return r
		}
		return '_'
	}, raw)
}
