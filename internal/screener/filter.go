package screener

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrInvalidConfig is returned when a FilterConfig is rejected before a scan.
var ErrInvalidConfig = errors.New("invalid filter config")

// MAMode selects how the moving-average proximity filter treats the averages.
type MAMode string

const (
	// MAModeAll passes when close is below the lowest defined average, within tolerance.
	MAModeAll MAMode = "all"
	// MAModeAny passes when close is below at least one defined average, within tolerance.
	MAModeAny MAMode = "any"
)

// RSIMode selects the direction of the RSI filter.
type RSIMode string

const (
	RSIModeBelow RSIMode = "below"
	RSIModeAbove RSIMode = "above"
)

// Combine selects how enabled filters are combined.
type Combine string

const (
	CombineAnd Combine = "and"
	CombineOr  Combine = "or"
)

// FilterConfig is supplied per scan and not modified during it.
type FilterConfig struct {
	UseMA       bool
	MATolerance float64 // 0.05 = within 5% above the average
	MAMode      MAMode

	UseVolume            bool
	VolumeRatioThreshold float64
	VolumeWindow         int

	UseRSI       bool
	RSIThreshold float64
	RSIMode      RSIMode

	// CeilingChangeThreshold enables the ceiling-day filter when non-nil.
	CeilingChangeThreshold *float64

	Combine Combine
	MinBars int

	Commentary bool // attach commentary to each result
	Extras     bool // compute breadth and Supertrend
}

// DefaultFilterConfig returns the MA-dip plus volume-surge screen.
func DefaultFilterConfig() FilterConfig {
	return FilterConfig{
		UseMA:                true,
		MATolerance:          0.05,
		MAMode:               MAModeAll,
		UseVolume:            true,
		VolumeRatioThreshold: 1.5,
		VolumeWindow:         20,
		RSIThreshold:         30,
		RSIMode:              RSIModeBelow,
		Combine:              CombineAnd,
		MinBars:              30,
	}
}

// Ceiling returns a pointer suitable for CeilingChangeThreshold.
func Ceiling(pct float64) *float64 { return &pct }

// Validate rejects malformed values. Empty modes are accepted and read as
// their defaults.
func (c FilterConfig) Validate() error {
	invalid := func(format string, args ...interface{}) error {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
	}
	if math.IsNaN(c.MATolerance) || c.MATolerance < 0 {
		return invalid("ma_tolerance must be non-negative, got %v", c.MATolerance)
	}
	if math.IsNaN(c.VolumeRatioThreshold) || c.VolumeRatioThreshold < 0 {
		return invalid("volume_ratio_threshold must be non-negative, got %v", c.VolumeRatioThreshold)
	}
	if c.UseVolume && c.VolumeRatioThreshold == 0 {
		return invalid("volume_ratio_threshold must be positive when the volume filter is enabled")
	}
	if c.VolumeWindow <= 0 {
		return invalid("volume_window must be positive, got %d", c.VolumeWindow)
	}
	if math.IsNaN(c.RSIThreshold) || c.RSIThreshold < 0 || c.RSIThreshold > 100 {
		return invalid("rsi_threshold must be within [0, 100], got %v", c.RSIThreshold)
	}
	if c.CeilingChangeThreshold != nil && math.IsNaN(*c.CeilingChangeThreshold) {
		return invalid("ceiling_change_threshold must be a number")
	}
	if c.MinBars < 2 {
		return invalid("min_bars must be at least 2, got %d", c.MinBars)
	}
	switch c.MAMode {
	case "", MAModeAll, MAModeAny:
	default:
		return invalid("unknown ma_mode %q", c.MAMode)
	}
	switch c.RSIMode {
	case "", RSIModeBelow, RSIModeAbove:
	default:
		return invalid("unknown rsi_mode %q", c.RSIMode)
	}
	switch c.Combine {
	case "", CombineAnd, CombineOr:
	default:
		return invalid("unknown combine %q", c.Combine)
	}
	return nil
}

// Describe renders the enabled filters for logs and audit rows.
func (c FilterConfig) Describe() string {
	var parts []string
	if c.UseMA {
		parts = append(parts, fmt.Sprintf("ma(%s,+%.1f%%)", orDefault(string(c.MAMode), string(MAModeAll)), c.MATolerance*100))
	}
	if c.UseVolume {
		parts = append(parts, fmt.Sprintf("volume(>=%.2fx/%dd)", c.VolumeRatioThreshold, c.VolumeWindow))
	}
	if c.UseRSI {
		parts = append(parts, fmt.Sprintf("rsi(%s %.0f)", orDefault(string(c.RSIMode), string(RSIModeBelow)), c.RSIThreshold))
	}
	if c.CeilingChangeThreshold != nil {
		parts = append(parts, fmt.Sprintf("ceiling(>=%.2f%%)", *c.CeilingChangeThreshold))
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, " "+orDefault(string(c.Combine), string(CombineAnd))+" ")
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// maProximity reports whether close sits below the averages within tolerance.
// Undefined averages are ignored; with none defined the filter fails.
func maProximity(close, tolerance float64, mode MAMode, mas ...float64) bool {
	defined := 0
	lowest := math.Inf(1)
	anyBelow := false
	for _, ma := range mas {
		if math.IsNaN(ma) {
			continue
		}
		defined++
		if ma < lowest {
			lowest = ma
		}
		if close < ma*(1+tolerance) {
			anyBelow = true
		}
	}
	if defined == 0 {
		return false
	}
	if mode == MAModeAny {
		return anyBelow
	}
	return close < lowest*(1+tolerance)
}

func rsiPasses(rsi, threshold float64, mode RSIMode) bool {
	if math.IsNaN(rsi) {
		return false
	}
	if mode == RSIModeAbove {
		return rsi >= threshold
	}
	return rsi <= threshold
}

// combine folds the outcomes of the enabled filters. No enabled filter passes.
func combine(mode Combine, outcomes []bool) bool {
	if len(outcomes) == 0 {
		return true
	}
	if mode == CombineOr {
		for _, ok := range outcomes {
			if ok {
				return true
			}
		}
		return false
	}
	for _, ok := range outcomes {
		if !ok {
			return false
		}
	}
	return true
}
