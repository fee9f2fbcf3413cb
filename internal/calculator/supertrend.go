package calculator

import (
	"errors"
	"math"

	"DipScreener/internal/model"
)

// SupertrendResult holds the Supertrend line, its direction and both bands.
// Up is false wherever Line is NaN.
type SupertrendResult struct {
	Line  []float64
	Up    []bool
	Upper []float64
	Lower []float64
}

// trendState is carried from bar to bar by the Supertrend fold.
type trendState struct {
	onUpper bool // the line is currently capped by the upper band
	up      bool
}

// step advances the state by one bar and returns the line value for it.
func (s trendState) step(close, upper, lower float64) (trendState, float64) {
	if s.onUpper {
		if close <= upper {
			return trendState{onUpper: true, up: false}, upper
		}
		return trendState{onUpper: false, up: true}, lower
	}
	if close >= lower {
		return trendState{onUpper: false, up: true}, lower
	}
	return trendState{onUpper: true, up: false}, upper
}

// Supertrend computes the trend-following overlay.
//
// The volatility term is the rolling mean over period of
// (rolling max(high, period) - rolling min(low, period)), not Wilder's ATR.
// Bands are hl2 ± multiplier·volatility. The fold is seeded at the first
// index >= period where the bands are defined, starting on the upper band
// with direction up.
func Supertrend(bars []model.OHLCV, period int, multiplier float64) (SupertrendResult, error) {
	if period <= 0 {
		return SupertrendResult{}, ErrInvalidPeriod
	}
	if multiplier <= 0 {
		return SupertrendResult{}, errors.New("supertrend multiplier must be positive")
	}
	n := len(bars)
	series := model.PriceSeries{Bars: bars}

	hh, _ := RollingMax(series.Highs(), period)
	ll, _ := RollingMin(series.Lows(), period)
	span := nanSlice(n)
	for i := range span {
		span[i] = hh[i] - ll[i]
	}
	atr, _ := SMA(span, period)

	res := SupertrendResult{
		Line:  nanSlice(n),
		Up:    make([]bool, n),
		Upper: nanSlice(n),
		Lower: nanSlice(n),
	}
	for i, b := range bars {
		if math.IsNaN(atr[i]) {
			continue
		}
		hl2 := (b.High + b.Low) / 2
		res.Upper[i] = hl2 + multiplier*atr[i]
		res.Lower[i] = hl2 - multiplier*atr[i]
	}

	seed := -1
	for i := period; i < n; i++ {
		if !math.IsNaN(res.Upper[i]) {
			seed = i
			break
		}
	}
	if seed < 0 {
		return res, nil
	}

	state := trendState{onUpper: true, up: true}
	res.Line[seed] = res.Upper[seed]
	res.Up[seed] = state.up
	for i := seed + 1; i < n; i++ {
		var v float64
		state, v = state.step(bars[i].Close, res.Upper[i], res.Lower[i])
		res.Line[i] = v
		res.Up[i] = state.up
	}
	return res, nil
}
