package calculator

import "DipScreener/internal/model"

// Level is a support or resistance price anchored at the bar that formed it.
type Level struct {
	Date  string
	Price float64
}

// SupportResistance scans bars from index window onward. A bar is a support
// level when its low equals the lowest low of the previous window bars, and a
// resistance level when its high equals the highest high of those bars.
func SupportResistance(bars []model.OHLCV, window int) (support, resistance []Level, err error) {
	series := model.PriceSeries{Bars: bars}
	lows, err := RollingMin(series.Lows(), window)
	if err != nil {
		return nil, nil, err
	}
	highs, err := RollingMax(series.Highs(), window)
	if err != nil {
		return nil, nil, err
	}
	for i := window; i < len(bars); i++ {
		// lows[i-1] covers bars[i-window:i]
		if bars[i].Low == lows[i-1] {
			support = append(support, Level{Date: bars[i].Date(), Price: bars[i].Low})
		}
		if bars[i].High == highs[i-1] {
			resistance = append(resistance, Level{Date: bars[i].Date(), Price: bars[i].High})
		}
	}
	return support, resistance, nil
}

// Tail returns at most the last n levels.
func Tail(levels []Level, n int) []Level {
	if n <= 0 {
		return nil
	}
	if len(levels) > n {
		return levels[len(levels)-n:]
	}
	return levels
}
