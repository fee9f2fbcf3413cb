package calculator

import (
	"math"
	"testing"
	"time"

	"DipScreener/internal/model"
)

var testStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func barsFromCloses(closes []float64) []model.OHLCV {
	bars := make([]model.OHLCV, len(closes))
	for i, c := range closes {
		bars[i] = model.OHLCV{
			Time:   testStart.AddDate(0, 0, i),
			Open:   c,
			High:   c * 1.01,
			Low:    c * 0.99,
			Close:  c,
			Volume: 1000,
		}
	}
	return bars
}

func linear(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}

func approx(a, b float64) bool {
	return math.Abs(a-b) <= 1e-9*math.Max(1, math.Abs(b))
}

func assertApprox(t *testing.T, name string, got, want float64) {
	t.Helper()
	if !approx(got, want) {
		t.Errorf("%s: got %.12f, want %.12f", name, got, want)
	}
}

func countDefined(series []float64) int {
	n := 0
	for _, v := range series {
		if !math.IsNaN(v) {
			n++
		}
	}
	return n
}
