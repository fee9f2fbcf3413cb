package calculator

import (
	"errors"
	"math"

	"github.com/markcheno/go-talib"
)

// ErrInvalidPeriod is returned when a window, span or period is not positive.
var ErrInvalidPeriod = errors.New("period must be positive")

// SMA computes the simple moving average of the trailing window values.
// Index i is NaN until window values are available. Leading NaNs in the
// input shift the first defined index accordingly.
func SMA(series []float64, window int) ([]float64, error) {
	if window <= 0 {
		return nil, ErrInvalidPeriod
	}
	return rolling(series, window, talib.Sma), nil
}

// RollingMax returns the maximum of the trailing window values.
func RollingMax(series []float64, window int) ([]float64, error) {
	if window <= 0 {
		return nil, ErrInvalidPeriod
	}
	return rolling(series, window, talib.Max), nil
}

// RollingMin returns the minimum of the trailing window values.
func RollingMin(series []float64, window int) ([]float64, error) {
	if window <= 0 {
		return nil, ErrInvalidPeriod
	}
	return rolling(series, window, talib.Min), nil
}

// rolling runs a talib window function over the defined suffix of series and
// re-aligns the output, filling the warm-up indices with NaN.
func rolling(series []float64, window int, fn func([]float64, int) []float64) []float64 {
	out := nanSlice(len(series))
	start := firstDefined(series)
	if start < 0 || len(series)-start < window {
		return out
	}
	tail := series[start:]
	var values []float64
	if window == 1 {
		// talib treats a one-bar window as a no-op for max/min
		values = append([]float64(nil), tail...)
	} else {
		values = fn(tail, window)
	}
	for i := window - 1; i < len(tail); i++ {
		out[start+i] = values[i]
	}
	return out
}

// Last returns the final value of a series, or NaN if it is empty.
func Last(series []float64) float64 {
	if len(series) == 0 {
		return math.NaN()
	}
	return series[len(series)-1]
}

// LastTwo returns the previous and final values of a series.
func LastTwo(series []float64) (prev, last float64) {
	if len(series) < 2 {
		return math.NaN(), Last(series)
	}
	return series[len(series)-2], series[len(series)-1]
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

func firstDefined(series []float64) int {
	for i, v := range series {
		if !math.IsNaN(v) {
			return i
		}
	}
	return -1
}
