package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/handoff-wait/internal/middleware"
	"github.com/iliyamo/handoff-wait/internal/scan"
)

// ScanHandler accepts scans from stations that post over HTTP instead of
// running the scanner CLI against the database.
type ScanHandler struct {
	Ledger scan.ScanRecorder
}

type scanRequest struct {
	Token string `json:"token"`
}

// PostScan records one scan.  It answers 201 when a handoff was opened
// and 200 with the duration when one was completed.  A token the store
// cannot hold is a 400 and nothing is written.  A failed save is a 500
// with "error saving scan" so the station knows to scan again.
func (h *ScanHandler) PostScan(c echo.Context) error {
	var req scanRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	res, err := h.Ledger.RecordScan(c.Request().Context(), req.Token)
	switch {
	case errors.Is(err, errEmptyToken):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "token is required"})
	case errors.Is(err, errTokenTooLong):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case err != nil:
		c.Logger().Errorf("scan station=%s token=%q: %v", middleware.Station(c), req.Token, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "error saving scan"})
	}
	if res.Completed {
		return c.JSON(http.StatusOK, res)
	}
	return c.JSON(http.StatusCreated, res)
}
