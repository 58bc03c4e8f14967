package model

import "time"

// SettingsID is the primary key of the single settings row.
const SettingsID = 1

// Settings controls what the public display shows.  There is exactly one
// logical settings row; it is created by the first write and only
// updated afterwards.
//
// Fields:
//  DisplayOn     – when false the display shows "--" regardless of
//                  anything else.
//  ManualMinutes – operator override for the estimate; nil means use
//                  the rolling average.
//  UpdatedAt     – last modification timestamp.
type Settings struct {
	DisplayOn     bool      `json:"display_on"`     // settings.display_on
	ManualMinutes *int      `json:"manual_minutes"` // settings.manual_minutes (nullable)
	UpdatedAt     time.Time `json:"updated_at"`     // settings.updated_at
}

// SettingsPatch is a partial update of Settings.  Nil DisplayOn leaves
// the flag untouched.  ManualSet marks that the patch addresses the
// manual override; with ManualSet and a nil ManualMinutes the override
// is cleared.
type SettingsPatch struct {
	DisplayOn     *bool
	ManualSet     bool
	ManualMinutes *int
}

// DefaultSettings is the row a first write starts from.  The display is
// on unless explicitly switched off.
func DefaultSettings() Settings {
	return Settings{DisplayOn: true}
}

// Apply merges the patch into s and returns the result.  Manual values
// below zero are stored as zero.
func (s Settings) Apply(p SettingsPatch) Settings {
	out := s
	if p.DisplayOn != nil {
		out.DisplayOn = *p.DisplayOn
	}
	if p.ManualSet {
		if p.ManualMinutes == nil {
			out.ManualMinutes = nil
		} else {
			v := *p.ManualMinutes
			if v < 0 {
				v = 0
			}
			out.ManualMinutes = &v
		}
	}
	return out
}

// Empty reports whether the patch changes nothing.
func (p SettingsPatch) Empty() bool {
	return p.DisplayOn == nil && !p.ManualSet
}
