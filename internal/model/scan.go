package model

import "math"

// ScanResult is one qualifying symbol's snapshot from a single screening pass.
type ScanResult struct {
	Symbol      string
	AsOf        string // YYYY-MM-DD of the latest bar
	Close       float64
	ChangePct   float64
	MA20        float64
	MA50        float64
	MA200       float64
	Volume      float64
	AvgVolume   float64
	VolumeRatio float64
	RSI         float64 // NaN when undefined
	Commentary  string
}

// HasRSI reports whether the RSI value is defined.
func (r ScanResult) HasRSI() bool { return !math.IsNaN(r.RSI) }

// Breadth is the TRIN-like market-breadth statistic for one trading day.
type Breadth struct {
	Date             string
	Advancing        int
	Declining        int
	Unchanged        int
	AdvancingVolume  float64
	DecliningVolume  float64
	Ratio            float64 // NaN when insufficient data
	InsufficientData bool
}

// Valid reports whether the ratio could be computed.
func (b Breadth) Valid() bool { return !b.InsufficientData }
