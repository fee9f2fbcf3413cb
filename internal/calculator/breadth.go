package calculator

import (
	"math"

	"DipScreener/internal/model"
)

// BreadthRatio computes the TRIN-like statistic
// (advancing/declining issues) / (advancing/declining volume) for the most
// recent trading day found across the universe.
//
// Only symbols whose latest bar falls on that day and that have a prior bar
// take part. The ratio is NaN with InsufficientData set when there are no
// declining issues, no declining volume or no advancing volume.
func BreadthRatio(universe []model.PriceSeries) model.Breadth {
	latest := ""
	for _, s := range universe {
		if last, ok := s.Last(); ok && s.Len() >= 2 && last.Date() > latest {
			latest = last.Date()
		}
	}

	b := model.Breadth{Date: latest, Ratio: math.NaN(), InsufficientData: true}
	if latest == "" {
		return b
	}

	for _, s := range universe {
		n := s.Len()
		if n < 2 || s.Bars[n-1].Date() != latest {
			continue
		}
		cur, prev := s.Bars[n-1], s.Bars[n-2]
		switch {
		case cur.Close > prev.Close:
			b.Advancing++
			b.AdvancingVolume += cur.Volume
		case cur.Close < prev.Close:
			b.Declining++
			b.DecliningVolume += cur.Volume
		default:
			b.Unchanged++
		}
	}

	if b.Declining == 0 || b.DecliningVolume == 0 || b.AdvancingVolume == 0 {
		return b
	}
	issues := float64(b.Advancing) / float64(b.Declining)
	volume := b.AdvancingVolume / b.DecliningVolume
	b.Ratio = issues / volume
	b.InsufficientData = false
	return b
}
