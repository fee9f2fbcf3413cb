package calculator

import (
	"math"
	"testing"

	"DipScreener/internal/model"
)

func TestSupertrend_FoldFlipsBetweenBands(t *testing.T) {
	ohlc := []struct{ h, l, c float64 }{
		{10, 8, 9},
		{11, 9, 10},
		{12, 10, 11},
		{20, 18, 20},
		{13, 11, 11},
	}
	bars := make([]model.OHLCV, len(ohlc))
	for i, b := range ohlc {
		bars[i] = model.OHLCV{Time: testStart.AddDate(0, 0, i), High: b.h, Low: b.l, Close: b.c, Open: b.c}
	}

	st, err := Supertrend(bars, 2, 0.01)
	if err != nil {
		t.Fatalf("Supertrend: %v", err)
	}
	for i := 0; i < 2; i++ {
		if !math.IsNaN(st.Line[i]) || st.Up[i] {
			t.Errorf("index %d should be undefined, got %v/%v", i, st.Line[i], st.Up[i])
		}
	}

	// seed: starts on the upper band, direction up
	assertApprox(t, "line[2]", st.Line[2], 11.03)
	if !st.Up[2] {
		t.Error("seed direction should be up")
	}
	// close 20 breaks above the upper band 19.065: flip to lower band
	assertApprox(t, "line[3]", st.Line[3], 18.935)
	if !st.Up[3] {
		t.Error("expected uptrend at index 3")
	}
	// close 11 falls below the lower band 11.905: flip back to upper band
	assertApprox(t, "line[4]", st.Line[4], 12.095)
	if st.Up[4] {
		t.Error("expected downtrend at index 4")
	}
}

func TestSupertrend_StaysCappedWhileBelowUpper(t *testing.T) {
	bars := barsFromCloses(linear(40, 50, 0))
	st, err := Supertrend(bars, 10, 3)
	if err != nil {
		t.Fatalf("Supertrend: %v", err)
	}
	seed := -1
	for i, v := range st.Line {
		if !math.IsNaN(v) {
			seed = i
			break
		}
	}
	// the volatility term needs 2*period-1 bars
	if seed != 18 {
		t.Fatalf("seed index = %d, want 18", seed)
	}
	for i := seed + 1; i < len(bars); i++ {
		if st.Up[i] {
			t.Errorf("index %d: flat prices should stay on the upper band", i)
		}
		assertApprox(t, "line", st.Line[i], st.Upper[i])
	}
}

func TestSupertrend_InvalidParams(t *testing.T) {
	if _, err := Supertrend(nil, 0, 3); err == nil {
		t.Error("expected error for zero period")
	}
	if _, err := Supertrend(nil, 10, -1); err == nil {
		t.Error("expected error for negative multiplier")
	}
}
