package optimization

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"compset/server/internal/errs"
)

func TestInterpolateIsMonotonicAndExact(t *testing.T) {
	pairs := [][2]Parameters{
		{{Occupancy: 98, Risk: RiskLow}, {Occupancy: 92, Risk: RiskMedium}},
		{{Occupancy: 85, Risk: RiskHigh}, {Occupancy: 98, Risk: RiskLow}},
		{{Occupancy: 92, Risk: RiskMedium}, {Occupancy: 92, Risk: RiskMedium}},
	}

	for _, pair := range pairs {
		from, to := pair[0], pair[1]
		frames := Interpolate(from, to, TransitionSteps)
		require.Len(t, frames, TransitionSteps)
		assert.Equal(t, to, frames[len(frames)-1])

		prev := from
		for _, f := range frames {
			if to.Occupancy >= from.Occupancy {
				assert.GreaterOrEqual(t, f.Occupancy, prev.Occupancy)
			} else {
				assert.LessOrEqual(t, f.Occupancy, prev.Occupancy)
			}
			if to.Risk >= from.Risk {
				assert.GreaterOrEqual(t, f.Risk, prev.Risk)
			} else {
				assert.LessOrEqual(t, f.Risk, prev.Risk)
			}
			prev = f
		}
	}

	assert.Equal(t, []Parameters{{Occupancy: 90, Risk: RiskLow}}, Interpolate(Parameters{}, Parameters{Occupancy: 90, Risk: RiskLow}, 0))
}

func TestController_OccupancyToBalanced(t *testing.T) {
	c := NewController()
	_, err := c.Select(MaximizeOccupancy)
	require.NoError(t, err)

	tr, err := c.Select(Balanced)
	require.NoError(t, err)

	assert.Equal(t, Parameters{Occupancy: 98, Risk: RiskLow}, tr.From)
	assert.Equal(t, Parameters{Occupancy: 92, Risk: RiskMedium}, tr.To)
	assert.Equal(t, tr.To, tr.Steps[len(tr.Steps)-1])

	goal, current := c.State()
	assert.Equal(t, Balanced, goal)
	assert.Equal(t, 92, current.Occupancy)
	assert.Equal(t, RiskMedium, current.Risk)
}

func TestController_CustomFreezesValues(t *testing.T) {
	c := NewController()
	_, err := c.Select(MaximizeRevenue)
	require.NoError(t, err)

	tr, err := c.Select(Custom)
	require.NoError(t, err)
	assert.Equal(t, tr.From, tr.To)

	goal, current := c.State()
	assert.Equal(t, Custom, goal)
	assert.Equal(t, Parameters{Occupancy: 85, Risk: RiskHigh}, current)
}

func TestController_AdjustSwitchesToCustom(t *testing.T) {
	c := NewController()
	tr, err := c.Adjust(Parameters{Occupancy: 95, Risk: RiskHigh})
	require.NoError(t, err)
	assert.Equal(t, Parameters{Occupancy: 92, Risk: RiskMedium}, tr.From)
	assert.Equal(t, []Parameters{{Occupancy: 95, Risk: RiskHigh}}, tr.Steps)

	goal, current := c.State()
	assert.Equal(t, Custom, goal)
	assert.Equal(t, Parameters{Occupancy: 95, Risk: RiskHigh}, current)

	tr, err = c.Adjust(Parameters{Occupancy: 97, Risk: RiskLow})
	require.NoError(t, err)
	assert.Equal(t, Parameters{Occupancy: 95, Risk: RiskHigh}, tr.From)

	_, err = c.Adjust(Parameters{Occupancy: 70, Risk: RiskHigh})
	assert.True(t, errs.IsValidation(err))
	_, current = c.State()
	assert.Equal(t, 97, current.Occupancy, "rejected values leave state unchanged")
}

func TestController_LeavingCustomTransitionsThroughPreset(t *testing.T) {
	c := NewController()
	_, err := c.Adjust(Parameters{Occupancy: 88, Risk: RiskLow})
	require.NoError(t, err)

	tr, err := c.Select(MaximizeOccupancy)
	require.NoError(t, err)

	assert.Equal(t, Parameters{Occupancy: 88, Risk: RiskLow}, tr.From)
	assert.Equal(t, Parameters{Occupancy: 98, Risk: RiskLow}, tr.To)
	assert.Len(t, tr.Steps, TransitionSteps)
	assert.NotEqual(t, tr.To, tr.Steps[0], "values move through intermediate frames")
}

func TestController_SelectUnknownGoal(t *testing.T) {
	c := NewController()
	_, err := c.Select("yolo")
	assert.True(t, errs.IsValidation(err))

	goal, _ := c.State()
	assert.Equal(t, Balanced, goal)
}

func TestRestore(t *testing.T) {
	c, err := Restore(Custom, Parameters{Occupancy: 90, Risk: RiskMedium})
	require.NoError(t, err)
	goal, current := c.State()
	assert.Equal(t, Custom, goal)
	assert.Equal(t, 90, current.Occupancy)

	_, err = Restore(Balanced, Parameters{Occupancy: 200, Risk: RiskMedium})
	assert.Error(t, err)
}
