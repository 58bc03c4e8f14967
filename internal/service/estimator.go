package service

import (
	"math"
	"strconv"

	"github.com/iliyamo/handoff-wait/internal/config"
	"github.com/iliyamo/handoff-wait/internal/model"
)

// Unknown is what the display shows when there is no estimate.
const Unknown = "--"

// Source says where a display value came from.
type Source string

const (
	SourceOff     Source = "off"     // settings missing or display switched off
	SourceNone    Source = "none"    // no manual value and no usable history
	SourceManual  Source = "manual"  // operator override
	SourceAverage Source = "average" // rolling average of recent handoffs
)

// BiasOptions is the "bias up" policy applied to a raw estimate.  With
// PadToFives the estimate is rounded up to a multiple of five and
// ExtraPadMinutes is added, so the display overstates rather than
// understates the wait.
type BiasOptions struct {
	PadToFives      bool
	ExtraPadMinutes int
	ApplyToManual   bool
}

// BiasOptionsFrom extracts the bias policy from the display config.
func BiasOptionsFrom(cfg config.DisplayConfig) BiasOptions {
	return BiasOptions{
		PadToFives:      cfg.PadToFives,
		ExtraPadMinutes: cfg.ExtraPadMinutes,
		ApplyToManual:   cfg.ApplyToManual,
	}
}

// Estimate is a computed display value and its origin.
type Estimate struct {
	Value  string `json:"value"`
	Source Source `json:"source"`
}

// ComputeDisplayValue returns the string shown on the public display:
// a non-negative number of minutes or Unknown.
//
// recentSeconds holds the durations of recently completed handoffs,
// already limited to the lookback window and the configured count.
func ComputeDisplayValue(settings *model.Settings, recentSeconds []int64, opts BiasOptions) string {
	return EstimateWait(settings, recentSeconds, opts).Value
}

// EstimateWait is ComputeDisplayValue with the value's source attached.
func EstimateWait(settings *model.Settings, recentSeconds []int64, opts BiasOptions) Estimate {
	if settings == nil || !settings.DisplayOn {
		return Estimate{Value: Unknown, Source: SourceOff}
	}

	if settings.ManualMinutes != nil {
		candidate := float64(*settings.ManualMinutes)
		if candidate < 0 {
			candidate = 0
		}
		if !opts.ApplyToManual {
			return Estimate{Value: strconv.Itoa(roundMinutes(candidate)), Source: SourceManual}
		}
		return Estimate{Value: strconv.Itoa(biasUp(candidate, opts)), Source: SourceManual}
	}

	avg, ok := averageMinutes(recentSeconds)
	if !ok {
		return Estimate{Value: Unknown, Source: SourceNone}
	}
	return Estimate{Value: strconv.Itoa(biasUp(avg, opts)), Source: SourceAverage}
}

// averageMinutes is the arithmetic mean of the strictly positive
// durations, in fractional minutes.  Zero-length handoffs carry no
// information and are skipped.
func averageMinutes(seconds []int64) (float64, bool) {
	var sum float64
	n := 0
	for _, s := range seconds {
		if s <= 0 {
			continue
		}
		sum += float64(s) / 60
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

func roundMinutes(m float64) int {
	n := int(math.Round(m))
	if n < 0 {
		return 0
	}
	return n
}

func biasUp(m float64, opts BiasOptions) int {
	n := roundMinutes(m)
	if !opts.PadToFives {
		return n
	}
	extra := opts.ExtraPadMinutes
	if extra < 0 {
		extra = 0
	}
	n = (n+4)/5*5 + extra
	// A padded display never advertises a zero-minute wait.
	if n == 0 {
		n = 5
	}
	return n
}
