package calculator

import "math"

// flatTolerance treats rolling averages below it as zero so that running-sum
// residue does not turn a saturated RSI into 99.9999.
const flatTolerance = 1e-12

// RSI computes the relative strength index using simple rolling means of
// gains and losses over period. The first defined value is at index period.
//
// Zero average loss saturates at 100. A flat window (no gains and no losses)
// yields NaN.
func RSI(series []float64, period int) ([]float64, error) {
	if period <= 0 {
		return nil, ErrInvalidPeriod
	}
	n := len(series)
	gains := nanSlice(n)
	losses := nanSlice(n)
	for i := 1; i < n; i++ {
		delta := series[i] - series[i-1]
		if math.IsNaN(delta) {
			continue
		}
		gains[i] = math.Max(delta, 0)
		losses[i] = math.Max(-delta, 0)
	}

	avgGain, err := SMA(gains, period)
	if err != nil {
		return nil, err
	}
	avgLoss, err := SMA(losses, period)
	if err != nil {
		return nil, err
	}

	out := nanSlice(n)
	for i := range out {
		out[i] = rsiValue(avgGain[i], avgLoss[i])
	}
	return out, nil
}

func rsiValue(avgGain, avgLoss float64) float64 {
	switch {
	case math.IsNaN(avgGain) || math.IsNaN(avgLoss):
		return math.NaN()
	case avgLoss <= flatTolerance && avgGain <= flatTolerance:
		return math.NaN()
	case avgLoss <= flatTolerance:
		return 100.0
	}
	rs := avgGain / avgLoss
	return 100.0 - 100.0/(1.0+rs)
}
