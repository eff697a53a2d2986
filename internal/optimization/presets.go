// Package optimization maps optimization goals to occupancy and risk parameters.
package optimization

import (
	"strings"

	"compset/server/internal/errs"
)

type Goal string

const (
	MaximizeRevenue   Goal = "maximize-revenue"
	MaximizeOccupancy Goal = "maximize-occupancy"
	Balanced          Goal = "balanced"
	Custom            Goal = "custom"
)

type RiskTolerance int

const (
	RiskLow    RiskTolerance = 1
	RiskMedium RiskTolerance = 2
	RiskHigh   RiskTolerance = 3
)

func (r RiskTolerance) String() string {
	switch r {
	case RiskLow:
		return "Low"
	case RiskMedium:
		return "Medium"
	case RiskHigh:
		return "High"
	default:
		return "Unknown"
	}
}

// Occupancy bounds of a target, in percent
const (
	MinOccupancy = 85
	MaxOccupancy = 100
)

type Parameters struct {
	Occupancy int           `json:"occupancy"`
	Risk      RiskTolerance `json:"risk"`
}

// Validate checks user-authored parameters
func (p Parameters) Validate() error {
	if p.Occupancy < MinOccupancy || p.Occupancy > MaxOccupancy {
		return errs.Invalid("occupancy", "must be between %d and %d", MinOccupancy, MaxOccupancy)
	}
	if p.Risk < RiskLow || p.Risk > RiskHigh {
		return errs.Invalid("risk", "must be 1, 2 or 3")
	}
	return nil
}

var presets = map[Goal]Parameters{
	MaximizeRevenue:   {Occupancy: 85, Risk: RiskHigh},
	MaximizeOccupancy: {Occupancy: 98, Risk: RiskLow},
	Balanced:          {Occupancy: 92, Risk: RiskMedium},
}

// ParseGoal reads a goal name, case-insensitively
func ParseGoal(s string) (Goal, error) {
	g := Goal(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := presets[g]; ok || g == Custom {
		return g, nil
	}
	return "", errs.Invalid("goal", "unknown optimization goal %q", s)
}

// ParametersFor returns the preset of a goal. Custom goals are user-authored
// and report false.
func ParametersFor(goal Goal) (Parameters, bool) {
	p, ok := presets[goal]
	return p, ok
}

// Goals lists every goal in display order
func Goals() []Goal {
	return []Goal{MaximizeRevenue, MaximizeOccupancy, Balanced, Custom}
}
