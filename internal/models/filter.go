package models

// Unit-type bucket labels, in canonical order
const (
	BucketStudio    = "Studio"
	BucketOneBed    = "1BR"
	BucketTwoBed    = "2BR"
	BucketThreePlus = "3BR+"
)

// UnitTypeBuckets lists the canonical buckets in display order
var UnitTypeBuckets = []string{BucketStudio, BucketOneBed, BucketTwoBed, BucketThreePlus}

// BucketFor derives the unit-type bucket from a bedroom count
func BucketFor(bedrooms int) string {
	switch {
	case bedrooms <= 0:
		return BucketStudio
	case bedrooms == 1:
		return BucketOneBed
	case bedrooms == 2:
		return BucketTwoBed
	default:
		return BucketThreePlus
	}
}

// Availability horizons
const (
	AvailableNow    = "now"
	Available30Days = "30days"
	Available60Days = "60days"
)

type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// FilterCriteria narrows which units contribute to aggregate metrics.
// The JSON shape is the one stored in workflow-state snapshots.
type FilterCriteria struct {
	BedroomTypes       []string `json:"bedroomTypes"`
	PriceRange         Range    `json:"priceRange"`
	Availability       string   `json:"availability"`
	SquareFootageRange Range    `json:"squareFootageRange"`
}
