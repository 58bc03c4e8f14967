package config

import "time"

// DisplayConfig controls how the public wait-time estimate is computed.
//
//   AVERAGE_LAST_N             – how many recent completions are averaged (10)
//   AVERAGE_WINDOW_MINUTES     – only completions that ended this recently count (120)
//   DISPLAY_PAD_TO_FIVES       – round up to a multiple of five and pad (false)
//   DISPLAY_EXTRA_PAD_MINUTES  – minutes added after rounding up (5)
//   DISPLAY_APPLY_TO_MANUAL    – also pad the operator's manual value (true)
//   DISPLAY_REFRESH_INTERVAL   – polling fallback for change notifications (30s)
type DisplayConfig struct {
	AverageLastN         int
	AverageWindowMinutes int
	PadToFives           bool
	ExtraPadMinutes      int
	ApplyToManual        bool
	RefreshInterval      time.Duration
}

// DefaultDisplayConfig returns the values used when nothing is configured.
func DefaultDisplayConfig() DisplayConfig {
	return DisplayConfig{
		AverageLastN:         10,
		AverageWindowMinutes: 120,
		PadToFives:           false,
		ExtraPadMinutes:      5,
		ApplyToManual:        true,
		RefreshInterval:      30 * time.Second,
	}
}

// LoadDisplayConfig reads DisplayConfig from the environment.  Counts and
// windows must be positive and the pad cannot be negative; values that
// break those rules fall back to the defaults.
func LoadDisplayConfig() DisplayConfig {
	def := DefaultDisplayConfig()
	cfg := DisplayConfig{
		AverageLastN:         envInt("AVERAGE_LAST_N", def.AverageLastN),
		AverageWindowMinutes: envInt("AVERAGE_WINDOW_MINUTES", def.AverageWindowMinutes),
		PadToFives:           envBool("DISPLAY_PAD_TO_FIVES", def.PadToFives),
		ExtraPadMinutes:      envInt("DISPLAY_EXTRA_PAD_MINUTES", def.ExtraPadMinutes),
		ApplyToManual:        envBool("DISPLAY_APPLY_TO_MANUAL", def.ApplyToManual),
		RefreshInterval:      envDur("DISPLAY_REFRESH_INTERVAL", def.RefreshInterval),
	}
	if cfg.AverageLastN < 1 {
		cfg.AverageLastN = def.AverageLastN
	}
	if cfg.AverageWindowMinutes < 1 {
		cfg.AverageWindowMinutes = def.AverageWindowMinutes
	}
	if cfg.ExtraPadMinutes < 0 {
		cfg.ExtraPadMinutes = 0
	}
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = def.RefreshInterval
	}
	return cfg
}

// Window returns AverageWindowMinutes as a duration.
func (c DisplayConfig) Window() time.Duration {
	return time.Duration(c.AverageWindowMinutes) * time.Minute
}
