// Package filter normalizes filter criteria and matches units against them.
package filter

import (
	"math"
	"strings"

	"compset/server/internal/errs"
	"compset/server/internal/models"
)

// Range ceilings of the interactive filter. A zero max is read as "no upper bound"
// and normalized to the ceiling.
const (
	MaxPrice         = 10000.0
	MaxSquareFootage = 5000.0
)

var horizonStatuses = map[string][]models.UnitStatus{
	models.AvailableNow:    {models.StatusVacant},
	models.Available30Days: {models.StatusVacant, models.StatusNoticeGiven},
	models.Available60Days: {models.StatusVacant, models.StatusNoticeGiven, models.StatusOccupied},
}

var bedroomAliases = map[string]string{
	"studio": models.BucketStudio,
	"0br":    models.BucketStudio,
	"0":      models.BucketStudio,
	"1br":    models.BucketOneBed,
	"1":      models.BucketOneBed,
	"2br":    models.BucketTwoBed,
	"2":      models.BucketTwoBed,
	"3br+":   models.BucketThreePlus,
	"3br":    models.BucketThreePlus,
	"3+":     models.BucketThreePlus,
	"3":      models.BucketThreePlus,
}

// Default returns the most inclusive criteria
func Default() models.FilterCriteria {
	return models.FilterCriteria{
		BedroomTypes:       []string{},
		PriceRange:         models.Range{Min: 0, Max: MaxPrice},
		Availability:       models.Available60Days,
		SquareFootageRange: models.Range{Min: 0, Max: MaxSquareFootage},
	}
}

// Normalize clamps and orders ranges, canonicalizes bedroom labels and
// replaces an unknown availability horizon with the most inclusive one.
// Normalize(Normalize(x)) == Normalize(x).
func Normalize(raw models.FilterCriteria) (models.FilterCriteria, error) {
	bedrooms, err := normalizeBedrooms(raw.BedroomTypes)
	if err != nil {
		return models.FilterCriteria{}, err
	}

	availability := strings.ToLower(strings.TrimSpace(raw.Availability))
	if _, ok := horizonStatuses[availability]; !ok {
		availability = models.Available60Days
	}

	return models.FilterCriteria{
		BedroomTypes:       bedrooms,
		PriceRange:         normalizeRange(raw.PriceRange, MaxPrice),
		Availability:       availability,
		SquareFootageRange: normalizeRange(raw.SquareFootageRange, MaxSquareFootage),
	}, nil
}

func normalizeBedrooms(labels []string) ([]string, error) {
	selected := make(map[string]bool, len(labels))
	for _, label := range labels {
		key := strings.ToLower(strings.TrimSpace(label))
		bucket, ok := bedroomAliases[key]
		if !ok {
			return nil, errs.Invalid("bedroomTypes", "unknown bedroom type %q", label)
		}
		selected[bucket] = true
	}

	out := make([]string, 0, len(selected))
	for _, bucket := range models.UnitTypeBuckets {
		if selected[bucket] {
			out = append(out, bucket)
		}
	}
	return out, nil
}

func normalizeRange(r models.Range, ceiling float64) models.Range {
	lo, hi := clamp(r.Min), clamp(r.Max)
	if hi == 0 {
		hi = ceiling
	}
	if lo > hi {
		lo, hi = hi, lo
	}
	return models.Range{Min: lo, Max: hi}
}

func clamp(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if math.IsInf(v, 1) {
		return math.MaxFloat64
	}
	return v
}

// restrictive reports whether a normalized range excludes anything
func restrictive(r models.Range, ceiling float64) bool {
	return r.Min > 0 || r.Max < ceiling
}

// Matches reports whether unit passes criteria. Criteria are expected to be
// normalized.
func Matches(unit models.PropertyUnit, criteria models.FilterCriteria) bool {
	if len(criteria.BedroomTypes) > 0 && !contains(criteria.BedroomTypes, models.BucketFor(unit.Bedrooms)) {
		return false
	}

	if restrictive(criteria.PriceRange, MaxPrice) {
		if !unit.HasRent() {
			return false
		}
		if *unit.Rent < criteria.PriceRange.Min || *unit.Rent > criteria.PriceRange.Max {
			return false
		}
	}

	if unit.HasSquareFeet() && restrictive(criteria.SquareFootageRange, MaxSquareFootage) {
		sqft := float64(*unit.SquareFeet)
		if sqft < criteria.SquareFootageRange.Min || sqft > criteria.SquareFootageRange.Max {
			return false
		}
	}

	return statusAllowed(unit.Status, criteria.Availability)
}

func statusAllowed(status models.UnitStatus, horizon string) bool {
	allowed, ok := horizonStatuses[horizon]
	if !ok {
		allowed = horizonStatuses[models.Available60Days]
	}
	for _, s := range allowed {
		if s == status {
			return true
		}
	}
	return false
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
