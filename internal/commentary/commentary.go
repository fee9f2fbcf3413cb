// Package commentary maps the latest indicator values to short labels.
package commentary

import (
	"math"
	"strings"

	"DipScreener/internal/model"
)

// Disclaimer is appended to every commentary shown to a user.
const Disclaimer = "not investment advice"

const (
	rsiOverbought = 70.0
	rsiOversold   = 30.0
	volumeHigh    = 1.5
	volumeLow     = 0.8
)

// Snapshot holds the scalars the labels are derived from. Undefined values
// are NaN and fall through to the neutral label of their group.
type Snapshot struct {
	Close       float64
	MA20        float64
	MA50        float64
	RSI         float64
	VolumeRatio float64

	MACD           float64
	MACDSignal     float64
	PrevMACD       float64
	PrevMACDSignal float64

	BBUpper float64
	BBLower float64
}

// Commentary is the label of each indicator group.
type Commentary struct {
	RSI    string
	Volume string
	Trend  string
	MACD   string
	Band   string
}

// Generate computes the labels for s.
func Generate(s Snapshot) Commentary {
	var c Commentary

	switch {
	case s.RSI >= rsiOverbought:
		c.RSI = "overbought"
	case s.RSI <= rsiOversold:
		c.RSI = "oversold"
	default:
		c.RSI = "neutral"
	}

	switch {
	case s.VolumeRatio > volumeHigh:
		c.Volume = "volume elevated"
	case s.VolumeRatio < volumeLow:
		c.Volume = "volume low"
	default:
		c.Volume = "volume average"
	}

	switch {
	case s.Close > s.MA20 && s.MA20 > s.MA50:
		c.Trend = "uptrend"
	case s.Close < s.MA20 && s.MA20 < s.MA50:
		c.Trend = "downtrend"
	default:
		c.Trend = "indecisive/near averages"
	}

	switch {
	case s.MACD > s.MACDSignal && s.PrevMACD <= s.PrevMACDSignal:
		c.MACD = "buy signal"
	case s.MACD < s.MACDSignal && s.PrevMACD >= s.PrevMACDSignal:
		c.MACD = "sell signal"
	default:
		c.MACD = "neutral MACD"
	}

	switch {
	case s.Close > s.BBUpper:
		c.Band = "overbought (band)"
	case s.Close < s.BBLower:
		c.Band = "oversold (band)"
	default:
		c.Band = "within band"
	}
	return c
}

// Labels returns the labels in display order.
func (c Commentary) Labels() []string {
	return []string{c.RSI, c.Volume, c.Trend, c.MACD, c.Band}
}

// String joins the labels and appends the disclaimer.
func (c Commentary) String() string {
	return strings.Join(c.Labels(), "; ") + ". " + Disclaimer
}

// FromTable builds a snapshot from the last two rows of t.
func FromTable(t *model.IndicatorTable, volumeRatio float64) Snapshot {
	n := t.Series.Len()
	s := Snapshot{
		Close:          math.NaN(),
		MA20:           at(t.MA20, n-1),
		MA50:           at(t.MA50, n-1),
		RSI:            at(t.RSI, n-1),
		VolumeRatio:    volumeRatio,
		MACD:           at(t.MACD, n-1),
		MACDSignal:     at(t.MACDSignal, n-1),
		PrevMACD:       at(t.MACD, n-2),
		PrevMACDSignal: at(t.MACDSignal, n-2),
		BBUpper:        at(t.BBUpper, n-1),
		BBLower:        at(t.BBLower, n-1),
	}
	if last, ok := t.Series.Last(); ok {
		s.Close = last.Close
	}
	return s
}

func at(series []float64, i int) float64 {
	if i < 0 || i >= len(series) {
		return math.NaN()
	}
	return series[i]
}
