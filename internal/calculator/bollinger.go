package calculator

import (
	"errors"
	"math"

	"github.com/markcheno/go-talib"
)

// BollingerResult holds the middle, upper and lower bands.
type BollingerResult struct {
	Mid   []float64
	Upper []float64
	Lower []float64
}

// Bollinger computes mid = SMA(window) and upper/lower = mid ± k·stddev, where
// stddev is the sample (ddof=1) rolling standard deviation.
func Bollinger(series []float64, window int, k float64) (BollingerResult, error) {
	if window < 2 {
		return BollingerResult{}, errors.New("bollinger window must be at least 2")
	}
	if k <= 0 {
		return BollingerResult{}, errors.New("bollinger multiplier must be positive")
	}
	mid, err := SMA(series, window)
	if err != nil {
		return BollingerResult{}, err
	}
	std := SampleStdDev(series, window)

	upper := nanSlice(len(series))
	lower := nanSlice(len(series))
	for i := range series {
		if math.IsNaN(mid[i]) || math.IsNaN(std[i]) {
			continue
		}
		upper[i] = mid[i] + k*std[i]
		lower[i] = mid[i] - k*std[i]
	}
	return BollingerResult{Mid: mid, Upper: upper, Lower: lower}, nil
}

// SampleStdDev returns the rolling sample standard deviation. talib computes
// the population deviation, which is rescaled by sqrt(n/(n-1)).
func SampleStdDev(series []float64, window int) []float64 {
	if window < 2 {
		return nanSlice(len(series))
	}
	correction := math.Sqrt(float64(window) / float64(window-1))
	return rolling(series, window, func(in []float64, w int) []float64 {
		out := talib.StdDev(in, w, 1.0)
		for i := range out {
			out[i] *= correction
		}
		return out
	})
}
