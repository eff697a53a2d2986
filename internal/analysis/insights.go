package analysis

import (
	"math"

	"compset/server/internal/models"
)

// ComputeInsights derives the market summary of an analysis.
//
// The subject's blended average rent is compared with the mean of the
// competitors' blended averages; competitors without rent data are left out
// of that mean. A difference within tolerancePercent of the mean is "at
// market". Without a comparable competitor the label is NoMarketData.
func ComputeInsights(subject models.PropertyAnalysis, competitors []models.PropertyAnalysis, tolerancePercent float64) models.MarketInsights {
	insights := models.MarketInsights{
		SubjectVsMarket:   models.NoMarketData,
		TotalVacancies:    subject.Summary.AvailableUnits,
		StrongestUnitType: strongestUnitType(subject, competitors),
	}

	if len(competitors) > 0 {
		var vacancies int
		for _, c := range competitors {
			vacancies += c.Summary.AvailableUnits
		}
		insights.CompetitorAvgVacancies = float64(vacancies) / float64(len(competitors))
	}

	var rentSum float64
	var rentCount int
	for _, c := range competitors {
		if c.Summary.RentSamples > 0 {
			rentSum += c.Summary.AvgRent
			rentCount++
		}
	}
	if rentCount == 0 || subject.Summary.RentSamples == 0 {
		return insights
	}

	marketRent := rentSum / float64(rentCount)
	delta := (subject.Summary.AvgRent - marketRent) / marketRent * 100
	insights.RentDeltaPercent = math.Round(delta*100) / 100

	switch {
	case delta > tolerancePercent:
		insights.SubjectVsMarket = models.AboveMarket
	case delta < -tolerancePercent:
		insights.SubjectVsMarket = models.BelowMarket
	default:
		insights.SubjectVsMarket = models.AtMarket
	}
	return insights
}

// strongestUnitType is the bucket where the subject's average rent exceeds the
// competitor mean for that bucket by the widest margin. Only buckets where
// both sides have rent data are considered; ties go to the earlier bucket.
func strongestUnitType(subject models.PropertyAnalysis, competitors []models.PropertyAnalysis) string {
	best := ""
	bestDelta := math.Inf(-1)

	for _, bucket := range models.UnitTypeBuckets {
		s := subject.UnitTypes[bucket]
		if s.RentSamples == 0 {
			continue
		}

		var sum float64
		var n int
		for _, c := range competitors {
			if m := c.UnitTypes[bucket]; m.RentSamples > 0 {
				sum += m.AvgRent
				n++
			}
		}
		if n == 0 {
			continue
		}

		if delta := s.AvgRent - sum/float64(n); delta > bestDelta {
			best = bucket
			bestDelta = delta
		}
	}
	return best
}
