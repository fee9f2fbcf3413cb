package calculator

import "math"

// MACDResult holds the three MACD columns.
type MACDResult struct {
	Line   []float64
	Signal []float64
	Hist   []float64
}

// EMA computes the exponential moving average with alpha = 2/(span+1),
// seeded by the first defined value without bias adjustment.
//
// talib's Ema seeds with an SMA of the first span values, which shifts every
// later value, so the recursion is written out here.
func EMA(series []float64, span int) ([]float64, error) {
	if span <= 0 {
		return nil, ErrInvalidPeriod
	}
	out := nanSlice(len(series))
	start := firstDefined(series)
	if start < 0 {
		return out, nil
	}
	alpha := 2.0 / float64(span+1)
	prev := series[start]
	out[start] = prev
	for i := start + 1; i < len(series); i++ {
		v := series[i]
		if math.IsNaN(v) {
			out[i] = prev
			continue
		}
		prev = alpha*v + (1-alpha)*prev
		out[i] = prev
	}
	return out, nil
}

// MACD computes line = EMA(fast) - EMA(slow), signal = EMA(line, signal)
// and histogram = line - signal.
func MACD(series []float64, fast, slow, signal int) (MACDResult, error) {
	emaFast, err := EMA(series, fast)
	if err != nil {
		return MACDResult{}, err
	}
	emaSlow, err := EMA(series, slow)
	if err != nil {
		return MACDResult{}, err
	}
	return macdFrom(emaFast, emaSlow, signal)
}

func macdFrom(emaFast, emaSlow []float64, signal int) (MACDResult, error) {
	line := make([]float64, len(emaFast))
	for i := range line {
		line[i] = emaFast[i] - emaSlow[i]
	}
	sig, err := EMA(line, signal)
	if err != nil {
		return MACDResult{}, err
	}
	hist := make([]float64, len(line))
	for i := range hist {
		hist[i] = line[i] - sig[i]
	}
	return MACDResult{Line: line, Signal: sig, Hist: hist}, nil
}
