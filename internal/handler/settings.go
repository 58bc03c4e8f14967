package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/handoff-wait/internal/model"
)

// SettingsStore is satisfied by *service.SettingsService.  Get returns
// nil, nil before the first write.
type SettingsStore interface {
	Get(ctx context.Context) (*model.Settings, error)
	Update(ctx context.Context, patch model.SettingsPatch) (*model.Settings, error)
}

// SettingsHandler is the operator's control panel for the display.
type SettingsHandler struct {
	Settings SettingsStore
}

type settingsResponse struct {
	*model.Settings
	Exists bool `json:"exists"`
}

// GetSettings returns the settings row.  Before anything was saved it
// answers with the display off and exists=false, which is also what the
// display shows in that state.
func (h *SettingsHandler) GetSettings(c echo.Context) error {
	st, err := h.Settings.Get(c.Request().Context())
	if err != nil {
		c.Logger().Errorf("get settings: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if st == nil {
		return c.JSON(http.StatusOK, echo.Map{"display_on": false, "manual_minutes": nil, "exists": false})
	}
	return c.JSON(http.StatusOK, settingsResponse{Settings: st, Exists: true})
}

// PatchSettings updates any of display_on and manual_minutes.  Sending
// "manual_minutes": null clears the override; leaving the field out keeps
// it.
func (h *SettingsHandler) PatchSettings(c echo.Context) error {
	patch, err := decodePatch(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	return h.apply(c, patch)
}

// DisplayOn and DisplayOff back the admin panel's toggle buttons.
func (h *SettingsHandler) DisplayOn(c echo.Context) error {
	on := true
	return h.apply(c, model.SettingsPatch{DisplayOn: &on})
}

func (h *SettingsHandler) DisplayOff(c echo.Context) error {
	off := false
	return h.apply(c, model.SettingsPatch{DisplayOn: &off})
}

// ClearManual drops the manual override so the average is shown again.
func (h *SettingsHandler) ClearManual(c echo.Context) error {
	return h.apply(c, model.SettingsPatch{ManualSet: true})
}

func (h *SettingsHandler) apply(c echo.Context, patch model.SettingsPatch) error {
	st, err := h.Settings.Update(c.Request().Context(), patch)
	if err != nil {
		c.Logger().Errorf("update settings: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, settingsResponse{Settings: st, Exists: true})
}

type patchError string

func (e patchError) Error() string { return string(e) }

// decodePatch reads the body into a SettingsPatch, keeping the difference
// between a missing manual_minutes and an explicit null.
func decodePatch(c echo.Context) (model.SettingsPatch, error) {
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(c.Request().Body).Decode(&raw); err != nil {
		return model.SettingsPatch{}, patchError("invalid request body")
	}
	var p model.SettingsPatch
	if v, ok := raw["display_on"]; ok {
		var on bool
		if err := json.Unmarshal(v, &on); err != nil {
			return p, patchError("display_on must be a boolean")
		}
		p.DisplayOn = &on
	}
	if v, ok := raw["manual_minutes"]; ok {
		p.ManualSet = true
		if !bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			var m int
			if err := json.Unmarshal(v, &m); err != nil {
				return p, patchError("manual_minutes must be an integer or null")
			}
			p.ManualMinutes = &m
		}
	}
	return p, nil
}
