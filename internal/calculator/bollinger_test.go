package calculator

import (
	"math"
	"testing"
)

func TestBollinger_SampleDeviation(t *testing.T) {
	bb, err := Bollinger([]float64{1, 2, 3, 4, 5}, 5, 2)
	if err != nil {
		t.Fatalf("Bollinger: %v", err)
	}
	std := math.Sqrt(2.5)
	assertApprox(t, "mid", bb.Mid[4], 3)
	assertApprox(t, "upper", bb.Upper[4], 3+2*std)
	assertApprox(t, "lower", bb.Lower[4], 3-2*std)
	for i := 0; i < 4; i++ {
		if !math.IsNaN(bb.Upper[i]) || !math.IsNaN(bb.Lower[i]) {
			t.Errorf("index %d should be undefined", i)
		}
	}
}

func TestBollinger_ConstantSeriesCollapses(t *testing.T) {
	bb, _ := Bollinger(linear(30, 7, 0), 20, 2)
	for i := 19; i < 30; i++ {
		assertApprox(t, "upper", bb.Upper[i], 7)
		assertApprox(t, "lower", bb.Lower[i], 7)
	}
}

func TestBollinger_InvalidParams(t *testing.T) {
	if _, err := Bollinger([]float64{1, 2, 3}, 1, 2); err == nil {
		t.Error("expected error for window 1")
	}
	if _, err := Bollinger([]float64{1, 2, 3}, 2, 0); err == nil {
		t.Error("expected error for zero multiplier")
	}
}
