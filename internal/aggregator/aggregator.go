// Package aggregator computes per-unit-type metrics for one property.
package aggregator

import (
	"compset/server/internal/filter"
	"compset/server/internal/models"
)

type bucketAccumulator struct {
	total     int
	available int
	rentSum   float64
	rentCount int
	rentMin   float64
	rentMax   float64
	sqftSum   float64
	sqftCount int
}

func (b *bucketAccumulator) addRent(v float64) {
	if b.rentCount == 0 || v < b.rentMin {
		b.rentMin = v
	}
	if b.rentCount == 0 || v > b.rentMax {
		b.rentMax = v
	}
	b.rentSum += v
	b.rentCount++
}

func (b *bucketAccumulator) metrics(label string) models.UnitTypeMetrics {
	m := models.UnitTypeMetrics{
		UnitType:       label,
		TotalUnits:     b.total,
		AvailableUnits: b.available,
		RentSamples:    b.rentCount,
	}
	if b.total > 0 {
		m.VacancyRate = float64(b.available) / float64(b.total) * 100
	}
	if b.rentCount > 0 {
		m.AvgRent = b.rentSum / float64(b.rentCount)
		m.RentRange = models.Range{Min: b.rentMin, Max: b.rentMax}
	}
	if b.sqftCount > 0 {
		m.AvgSqFt = b.sqftSum / float64(b.sqftCount)
	}
	return m
}

// Aggregate buckets units by bedroom count and computes metrics for each of
// the four canonical unit types. Totals count every unit in a bucket; the
// remaining statistics only count units matching criteria. Every bucket is
// present in the result, empty ones with zero metrics.
func Aggregate(units []models.PropertyUnit, criteria models.FilterCriteria) map[string]models.UnitTypeMetrics {
	acc := make(map[string]*bucketAccumulator, len(models.UnitTypeBuckets))
	for _, label := range models.UnitTypeBuckets {
		acc[label] = &bucketAccumulator{}
	}

	for _, unit := range units {
		b := acc[models.BucketFor(unit.Bedrooms)]
		b.total++

		if !filter.Matches(unit, criteria) {
			continue
		}
		if unit.Status.Available() {
			b.available++
		}
		if unit.HasRent() {
			b.addRent(*unit.Rent)
		}
		if unit.HasSquareFeet() {
			b.sqftSum += float64(*unit.SquareFeet)
			b.sqftCount++
		}
	}

	result := make(map[string]models.UnitTypeMetrics, len(acc))
	for label, b := range acc {
		result[label] = b.metrics(label)
	}
	return result
}

// Summarize rolls bucket metrics up to property level. The average rent is
// weighted by the number of rent samples in each bucket.
func Summarize(metrics map[string]models.UnitTypeMetrics) models.PropertySummary {
	var s models.PropertySummary
	var rentSum float64
	for _, m := range metrics {
		s.TotalUnits += m.TotalUnits
		s.AvailableUnits += m.AvailableUnits
		s.RentSamples += m.RentSamples
		rentSum += m.AvgRent * float64(m.RentSamples)
	}
	if s.TotalUnits > 0 {
		s.VacancyRate = float64(s.AvailableUnits) / float64(s.TotalUnits) * 100
	}
	if s.RentSamples > 0 {
		s.AvgRent = rentSum / float64(s.RentSamples)
	}
	return s
}
