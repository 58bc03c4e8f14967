package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/handoff-wait/internal/service"
)

// DisplaySource is satisfied by *service.Refresher.
type DisplaySource interface {
	Current(ctx context.Context) service.Snapshot
}

// DisplayHandler serves the public wait-time board.
type DisplayHandler struct {
	Display DisplaySource
}

// GetDisplay returns the latest display value, e.g.
// {"value":"25","source":"average","computed_at":"..."}.  The value is
// "--" whenever there is nothing trustworthy to show.
func (h *DisplayHandler) GetDisplay(c echo.Context) error {
	snap := h.Display.Current(c.Request().Context())
	return c.JSON(http.StatusOK, snap)
}
