package model

import "time"

// Tables whose changes are announced to displays.
const (
	TableHandoffs = "handoffs"
	TableSettings = "settings"
)

// Change tells listeners that rows in Table changed.  Listeners treat it
// only as a signal to re-fetch; Token is informational.
type Change struct {
	Table string    `json:"table"`
	Token string    `json:"token,omitempty"`
	At    time.Time `json:"at"`
}
