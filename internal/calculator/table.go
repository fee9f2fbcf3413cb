package calculator

import (
	"fmt"

	"DipScreener/internal/model"
)

// Params configures BuildTable.
type Params struct {
	RSIPeriod            int
	VolumeWindow         int
	MACDFast             int
	MACDSlow             int
	MACDSignal           int
	BollingerWindow      int
	BollingerK           float64
	SupertrendPeriod     int
	SupertrendMultiplier float64
	Extras               bool // compute Supertrend
}

// DefaultParams returns the conventional indicator settings.
func DefaultParams() Params {
	return Params{
		RSIPeriod:            14,
		VolumeWindow:         20,
		MACDFast:             12,
		MACDSlow:             26,
		MACDSignal:           9,
		BollingerWindow:      20,
		BollingerK:           2,
		SupertrendPeriod:     10,
		SupertrendMultiplier: 3,
	}
}

// Validate rejects non-positive windows before any series is processed.
func (p Params) Validate() error {
	checks := []struct {
		name  string
		value int
	}{
		{"rsi_period", p.RSIPeriod},
		{"volume_window", p.VolumeWindow},
		{"macd_fast", p.MACDFast},
		{"macd_slow", p.MACDSlow},
		{"macd_signal", p.MACDSignal},
		{"supertrend_period", p.SupertrendPeriod},
	}
	for _, c := range checks {
		if c.value <= 0 {
			return fmt.Errorf("%s must be positive, got %d", c.name, c.value)
		}
	}
	if p.BollingerWindow < 2 {
		return fmt.Errorf("bollinger_window must be at least 2, got %d", p.BollingerWindow)
	}
	if p.BollingerK <= 0 {
		return fmt.Errorf("bollinger_k must be positive, got %v", p.BollingerK)
	}
	if p.SupertrendMultiplier <= 0 {
		return fmt.Errorf("supertrend_multiplier must be positive, got %v", p.SupertrendMultiplier)
	}
	return nil
}

// BuildTable computes every indicator column for the series.
func BuildTable(series model.PriceSeries, p Params) (*model.IndicatorTable, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	closes := series.Closes()
	t := &model.IndicatorTable{Series: series}

	var err error
	if t.MA20, err = SMA(closes, 20); err != nil {
		return nil, fmt.Errorf("ma20: %w", err)
	}
	if t.MA50, err = SMA(closes, 50); err != nil {
		return nil, fmt.Errorf("ma50: %w", err)
	}
	if t.MA200, err = SMA(closes, 200); err != nil {
		return nil, fmt.Errorf("ma200: %w", err)
	}
	if t.AvgVolume, err = SMA(series.Volumes(), p.VolumeWindow); err != nil {
		return nil, fmt.Errorf("average volume: %w", err)
	}
	if t.RSI, err = RSI(closes, p.RSIPeriod); err != nil {
		return nil, fmt.Errorf("rsi: %w", err)
	}

	if t.EMAFast, err = EMA(closes, p.MACDFast); err != nil {
		return nil, fmt.Errorf("ema fast: %w", err)
	}
	if t.EMASlow, err = EMA(closes, p.MACDSlow); err != nil {
		return nil, fmt.Errorf("ema slow: %w", err)
	}
	macd, err := macdFrom(t.EMAFast, t.EMASlow, p.MACDSignal)
	if err != nil {
		return nil, fmt.Errorf("macd: %w", err)
	}
	t.MACD, t.MACDSignal, t.MACDHist = macd.Line, macd.Signal, macd.Hist

	bb, err := Bollinger(closes, p.BollingerWindow, p.BollingerK)
	if err != nil {
		return nil, fmt.Errorf("bollinger: %w", err)
	}
	t.BBMid, t.BBUpper, t.BBLower = bb.Mid, bb.Upper, bb.Lower

	if p.Extras {
		st, err := Supertrend(series.Bars, p.SupertrendPeriod, p.SupertrendMultiplier)
		if err != nil {
			return nil, fmt.Errorf("supertrend: %w", err)
		}
		t.Supertrend, t.SupertrendUp = st.Line, st.Up
		t.SupertrendUpper, t.SupertrendLower = st.Upper, st.Lower
	}
	return t, nil
}
