package optimization

import (
	"sync"
	"time"
)

// Transition animation settings
const (
	TransitionSteps    = 10
	TransitionDuration = 500 * time.Millisecond
)

// Transition describes the move from one parameter set to another. Steps are
// the intermediate frames for display; the last step always equals To.
type Transition struct {
	Goal     Goal         `json:"goal"`
	From     Parameters   `json:"from"`
	To       Parameters   `json:"to"`
	Steps    []Parameters `json:"steps"`
	Duration int64        `json:"durationMs"`
}

// Interpolate produces n monotonic frames from `from` to `to`. The final frame
// is exactly `to`.
func Interpolate(from, to Parameters, n int) []Parameters {
	if n < 1 {
		n = 1
	}
	frames := make([]Parameters, n)
	for i := 1; i <= n; i++ {
		frames[i-1] = Parameters{
			Occupancy: from.Occupancy + (to.Occupancy-from.Occupancy)*i/n,
			Risk:      from.Risk + (to.Risk-from.Risk)*RiskTolerance(i)/RiskTolerance(n),
		}
	}
	frames[n-1] = to
	return frames
}

// Controller tracks the active goal and the parameter values currently shown
// to the user. It is safe for concurrent use.
type Controller struct {
	mu      sync.Mutex
	goal    Goal
	current Parameters
}

// NewController starts on the balanced preset
func NewController() *Controller {
	p, _ := ParametersFor(Balanced)
	return &Controller{goal: Balanced, current: p}
}

// Restore starts a controller from persisted state
func Restore(goal Goal, current Parameters) (*Controller, error) {
	if _, err := ParseGoal(string(goal)); err != nil {
		return nil, err
	}
	if err := current.Validate(); err != nil {
		return nil, err
	}
	return &Controller{goal: goal, current: current}, nil
}

// State returns the active goal and parameter values
func (c *Controller) State() (Goal, Parameters) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.goal, c.current
}

// Select switches to goal. Preset goals transition to their table values;
// custom keeps the values that were active.
func (c *Controller) Select(goal Goal) (Transition, error) {
	if _, err := ParseGoal(string(goal)); err != nil {
		return Transition{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	from := c.current
	c.goal = goal

	target, ok := ParametersFor(goal)
	if !ok {
		return Transition{Goal: goal, From: from, To: from, Steps: []Parameters{from}}, nil
	}

	c.current = target
	return Transition{
		Goal:     goal,
		From:     from,
		To:       target,
		Steps:    Interpolate(from, target, TransitionSteps),
		Duration: TransitionDuration.Milliseconds(),
	}, nil
}

// Adjust records user-authored values, which makes the goal custom. The
// returned transition starts from the values that were active before.
func (c *Controller) Adjust(p Parameters) (Transition, error) {
	if err := p.Validate(); err != nil {
		return Transition{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	from := c.current
	c.goal = Custom
	c.current = p
	return Transition{Goal: Custom, From: from, To: p, Steps: []Parameters{p}}, nil
}
