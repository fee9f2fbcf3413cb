package model

// IndicatorTable is a PriceSeries with derived columns aligned to its bars.
// Rolling columns hold NaN until their window is filled.
type IndicatorTable struct {
	Series PriceSeries

	MA20      []float64
	MA50      []float64
	MA200     []float64
	AvgVolume []float64
	EMAFast   []float64
	EMASlow   []float64
	RSI       []float64

	MACD       []float64
	MACDSignal []float64
	MACDHist   []float64

	BBMid   []float64
	BBUpper []float64
	BBLower []float64

	// Supertrend columns are nil unless extras were requested.
	Supertrend      []float64
	SupertrendUp    []bool
	SupertrendUpper []float64
	SupertrendLower []float64
}

// HasSupertrend reports whether the Supertrend columns were computed.
func (t *IndicatorTable) HasSupertrend() bool {
	return t != nil && t.Supertrend != nil
}
