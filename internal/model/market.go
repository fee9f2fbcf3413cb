package model

import (
	"math"
	"time"
)

// OHLCV represents a single daily bar.
type OHLCV struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Date returns the calendar day of the bar in its own location.
func (b OHLCV) Date() string {
	return b.Time.Format("2006-01-02")
}

// IsNull reports whether the bar carries no usable price (holidays, provider gaps).
func (b OHLCV) IsNull() bool {
	for _, v := range []float64{b.Open, b.High, b.Low, b.Close} {
		if math.IsNaN(v) {
			return true
		}
	}
	return b.Open == 0 && b.High == 0 && b.Low == 0 && b.Close == 0
}

// PriceSeries holds the ascending, date-unique daily bars of one symbol.
type PriceSeries struct {
	Symbol    string
	Bars      []OHLCV
	FetchedAt time.Time
}

// Len returns the number of bars.
func (s PriceSeries) Len() int { return len(s.Bars) }

// Closes extracts the close column.
func (s PriceSeries) Closes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Close
	}
	return out
}

// Highs extracts the high column.
func (s PriceSeries) Highs() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.High
	}
	return out
}

// Lows extracts the low column.
func (s PriceSeries) Lows() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Low
	}
	return out
}

// Volumes extracts the volume column.
func (s PriceSeries) Volumes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Volume
	}
	return out
}

// Last returns the most recent bar. ok is false for an empty series.
func (s PriceSeries) Last() (OHLCV, bool) {
	if len(s.Bars) == 0 {
		return OHLCV{}, false
	}
	return s.Bars[len(s.Bars)-1], true
}
