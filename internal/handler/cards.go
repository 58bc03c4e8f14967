package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/handoff-wait/internal/cards"
)

// ListCards returns the tokens for a print run: GET /v1/cards?count=N.
// count defaults to the full batch.
func ListCards(c echo.Context) error {
	count := cards.MaxCount
	if raw := c.QueryParam("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "count must be an integer"})
		}
		count = n
	}
	tokens, err := cards.GenerateTokens(count)
	if errors.Is(err, cards.ErrCount) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": tokens, "count": len(tokens)})
}

// CardQR renders one card's QR code: GET /v1/cards/:token/qr.png?size=256.
func CardQR(c echo.Context) error {
	size := 0
	if raw := c.QueryParam("size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "size must be an integer"})
		}
		size = n
	}
	png, err := cards.QRPNG(c.Param("token"), size)
	switch {
	case errors.Is(err, cards.ErrToken):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "token is required"})
	case err != nil:
		c.Logger().Errorf("render qr %q: %v", c.Param("token"), err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not render card"})
	}
	return c.Blob(http.StatusOK, "image/png", png)
}
