package optimization

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"compset/server/internal/errs"
)

func TestParametersFor(t *testing.T) {
	tests := []struct {
		goal     Goal
		expected Parameters
	}{
		{MaximizeRevenue, Parameters{Occupancy: 85, Risk: RiskHigh}},
		{MaximizeOccupancy, Parameters{Occupancy: 98, Risk: RiskLow}},
		{Balanced, Parameters{Occupancy: 92, Risk: RiskMedium}},
	}

	for _, tt := range tests {
		t.Run(string(tt.goal), func(t *testing.T) {
			for i := 0; i < 3; i++ {
				got, ok := ParametersFor(tt.goal)
				require.True(t, ok)
				assert.Equal(t, tt.expected, got)
				assert.NoError(t, got.Validate())
			}
		})
	}
}

func TestParametersForCustomIsNeverMapped(t *testing.T) {
	_, ok := ParametersFor(Custom)
	assert.False(t, ok)
}

func TestParseGoal(t *testing.T) {
	g, err := ParseGoal(" Balanced ")
	require.NoError(t, err)
	assert.Equal(t, Balanced, g)

	g, err = ParseGoal("custom")
	require.NoError(t, err)
	assert.Equal(t, Custom, g)

	_, err = ParseGoal("maximize-chaos")
	var v *errs.ValidationError
	require.ErrorAs(t, err, &v)
	assert.Equal(t, "goal", v.Field)
}

func TestParametersValidate(t *testing.T) {
	assert.NoError(t, Parameters{Occupancy: 85, Risk: RiskLow}.Validate())
	assert.NoError(t, Parameters{Occupancy: 100, Risk: RiskHigh}.Validate())
	assert.True(t, errs.IsValidation(Parameters{Occupancy: 84, Risk: RiskLow}.Validate()))
	assert.True(t, errs.IsValidation(Parameters{Occupancy: 101, Risk: RiskLow}.Validate()))
	assert.True(t, errs.IsValidation(Parameters{Occupancy: 90, Risk: 4}.Validate()))
}

func TestRiskToleranceString(t *testing.T) {
	assert.Equal(t, "Low", RiskLow.String())
	assert.Equal(t, "Medium", RiskMedium.String())
	assert.Equal(t, "High", RiskHigh.String())
	assert.Equal(t, "Unknown", RiskTolerance(0).String())
}
