// Package report renders scan results and indicator tables.
package report

import (
	"math"

	"github.com/shopspring/decimal"
)

// Fixed renders v rounded half away from zero to places digits, or "-" when
// v is undefined.
func Fixed(v float64, places int32) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "-"
	}
	return decimal.NewFromFloat(v).Round(places).StringFixed(places)
}

// Signed is Fixed with an explicit sign for positive values.
func Signed(v float64, places int32) string {
	s := Fixed(v, places)
	if s != "-" && v > 0 && s[0] != '-' {
		return "+" + s
	}
	return s
}

// Volume renders a traded volume without decimals.
func Volume(v float64) string {
	return Fixed(v, 0)
}

// Arrow returns the direction marker of a day change.
func Arrow(changePct float64) string {
	if changePct >= 0 {
		return "▲"
	}
	return "▼"
}

// roundPtr rounds v for export; undefined values become nil.
func roundPtr(v float64, places int32) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	f, _ := decimal.NewFromFloat(v).Round(places).Float64()
	return &f
}
