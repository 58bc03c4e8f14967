package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/handoff-wait/internal/model"
	"github.com/iliyamo/handoff-wait/internal/scan"
	"github.com/iliyamo/handoff-wait/internal/service"
)

var (
	errEmptyToken   = service.ErrEmptyToken
	errTokenTooLong = service.ErrTokenTooLong
)

// TicketHandler answers "where is my ticket" lookups.
type TicketHandler struct {
	Status scan.StatusLookup
}

// GetStatus returns the ticket's state.  A token that was never scanned
// is a 404 carrying {"status":"not_found"}; a store outage is a 503.
func (h *TicketHandler) GetStatus(c echo.Context) error {
	st, err := h.Status.TicketStatus(c.Request().Context(), c.Param("token"))
	switch {
	case errors.Is(err, errEmptyToken):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "token is required"})
	case errors.Is(err, errTokenTooLong):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case err != nil:
		c.Logger().Errorf("ticket status %q: %v", c.Param("token"), err)
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "status unavailable"})
	case st.Kind == model.StatusNotFound:
		return c.JSON(http.StatusNotFound, st)
	}
	return c.JSON(http.StatusOK, st)
}
