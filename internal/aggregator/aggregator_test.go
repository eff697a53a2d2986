package aggregator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"compset/server/internal/filter"
	"compset/server/internal/models"
)

func ptrF(v float64) *float64 { return &v }
func ptrI(v int) *int         { return &v }

func unit(bedrooms int, rent *float64, sqft *int, status models.UnitStatus) models.PropertyUnit {
	return models.PropertyUnit{Bedrooms: bedrooms, Rent: rent, SquareFeet: sqft, Status: status}
}

func TestAggregateEmptyInput(t *testing.T) {
	result := Aggregate(nil, filter.Default())

	require.Len(t, result, 4)
	for _, label := range models.UnitTypeBuckets {
		m, ok := result[label]
		require.True(t, ok, label)
		assert.Equal(t, models.UnitTypeMetrics{UnitType: label}, m)
	}
}

func TestAggregateBuckets(t *testing.T) {
	units := []models.PropertyUnit{
		unit(0, ptrF(900), ptrI(450), models.StatusOccupied),
		unit(1, ptrF(1100), ptrI(650), models.StatusVacant),
		unit(1, ptrF(1300), ptrI(750), models.StatusOccupied),
		unit(2, ptrF(1600), nil, models.StatusNoticeGiven),
		unit(3, ptrF(2100), ptrI(1200), models.StatusOccupied),
		unit(4, ptrF(2500), ptrI(1500), models.StatusVacant),
	}

	result := Aggregate(units, filter.Default())

	studio := result[models.BucketStudio]
	assert.Equal(t, 1, studio.TotalUnits)
	assert.Equal(t, 0, studio.AvailableUnits)
	assert.Equal(t, 900.0, studio.AvgRent)

	oneBed := result[models.BucketOneBed]
	assert.Equal(t, 2, oneBed.TotalUnits)
	assert.Equal(t, 1, oneBed.AvailableUnits)
	assert.Equal(t, 50.0, oneBed.VacancyRate)
	assert.Equal(t, 1200.0, oneBed.AvgRent)
	assert.Equal(t, 700.0, oneBed.AvgSqFt)
	assert.Equal(t, models.Range{Min: 1100, Max: 1300}, oneBed.RentRange)

	twoBed := result[models.BucketTwoBed]
	assert.Equal(t, 100.0, twoBed.VacancyRate, "notice_given counts as available")
	assert.Equal(t, 0.0, twoBed.AvgSqFt)

	threePlus := result[models.BucketThreePlus]
	assert.Equal(t, 2, threePlus.TotalUnits)
	assert.Equal(t, 2300.0, threePlus.AvgRent)
	assert.Equal(t, models.Range{Min: 2100, Max: 2500}, threePlus.RentRange)
}

func TestAggregateExcludesAbsentRent(t *testing.T) {
	units := []models.PropertyUnit{
		unit(1, ptrF(1000), nil, models.StatusOccupied),
		unit(1, nil, nil, models.StatusOccupied),
		unit(1, ptrF(0), nil, models.StatusOccupied),
		unit(1, ptrF(2000), nil, models.StatusOccupied),
	}

	m := Aggregate(units, filter.Default())[models.BucketOneBed]
	assert.Equal(t, 4, m.TotalUnits)
	assert.Equal(t, 2, m.RentSamples)
	assert.Equal(t, 1500.0, m.AvgRent)
	assert.Equal(t, models.Range{Min: 1000, Max: 2000}, m.RentRange)
}

func TestAggregateTotalsArePreFilter(t *testing.T) {
	units := []models.PropertyUnit{
		unit(1, ptrF(1000), nil, models.StatusVacant),
		unit(1, ptrF(1500), nil, models.StatusVacant),
		unit(1, ptrF(2500), nil, models.StatusVacant),
	}
	criteria := filter.Default()
	criteria.PriceRange = models.Range{Min: 900, Max: 1600}

	m := Aggregate(units, criteria)[models.BucketOneBed]
	assert.Equal(t, 3, m.TotalUnits)
	assert.Equal(t, 2, m.AvailableUnits)
	assert.InDelta(t, 66.666, m.VacancyRate, 0.01)
	assert.Equal(t, 1250.0, m.AvgRent)
}

func TestAggregateNoMatchingUnits(t *testing.T) {
	units := []models.PropertyUnit{
		unit(2, ptrF(1800), ptrI(900), models.StatusOccupied),
	}
	criteria := filter.Default()
	criteria.Availability = models.AvailableNow

	m := Aggregate(units, criteria)[models.BucketTwoBed]
	assert.Equal(t, 1, m.TotalUnits)
	assert.Equal(t, 0, m.AvailableUnits)
	assert.Equal(t, 0.0, m.VacancyRate)
	assert.Equal(t, 0.0, m.AvgRent)
	assert.Equal(t, models.Range{}, m.RentRange)
}

func TestAggregateVacancyBounds(t *testing.T) {
	statuses := []models.UnitStatus{models.StatusOccupied, models.StatusVacant, models.StatusNoticeGiven}
	var units []models.PropertyUnit
	for i := 0; i < 30; i++ {
		units = append(units, unit(i%5, ptrF(float64(800+i*50)), ptrI(400+i*10), statuses[i%3]))
	}

	for _, horizon := range []string{models.AvailableNow, models.Available30Days, models.Available60Days} {
		criteria := filter.Default()
		criteria.Availability = horizon
		for label, m := range Aggregate(units, criteria) {
			assert.GreaterOrEqual(t, m.VacancyRate, 0.0, label)
			assert.LessOrEqual(t, m.VacancyRate, 100.0, label)
		}
	}
}

func TestSummarize(t *testing.T) {
	units := []models.PropertyUnit{
		unit(1, ptrF(1200), nil, models.StatusOccupied),
		unit(1, ptrF(1200), nil, models.StatusVacant),
		unit(2, ptrF(1500), nil, models.StatusOccupied),
		unit(2, nil, nil, models.StatusOccupied),
	}

	s := Summarize(Aggregate(units, filter.Default()))
	assert.Equal(t, 4, s.TotalUnits)
	assert.Equal(t, 1, s.AvailableUnits)
	assert.Equal(t, 25.0, s.VacancyRate)
	assert.Equal(t, 3, s.RentSamples)
	assert.Equal(t, 1300.0, s.AvgRent)

	assert.Equal(t, models.PropertySummary{}, Summarize(Aggregate(nil, filter.Default())))
}
