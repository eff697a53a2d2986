package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"compset/server/internal/errs"
	"compset/server/internal/optimization"
)

func (h *Handler) GetOptimizationPreset(c *gin.Context) {
	goal, err := optimization.ParseGoal(c.Param("goal"))
	if err != nil {
		h.respondError(c, err, "Failed to resolve preset")
		return
	}

	params, ok := optimization.ParametersFor(goal)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"goal": goal, "auto_mapped": false})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"goal":        goal,
		"auto_mapped": true,
		"occupancy":   params.Occupancy,
		"risk":        params.Risk,
		"risk_label":  params.Risk.String(),
	})
}

func (h *Handler) ListOptimizationPresets(c *gin.Context) {
	presets := make([]gin.H, 0, len(optimization.Goals()))
	for _, goal := range optimization.Goals() {
		entry := gin.H{"goal": goal, "auto_mapped": false}
		if params, ok := optimization.ParametersFor(goal); ok {
			entry["auto_mapped"] = true
			entry["occupancy"] = params.Occupancy
			entry["risk"] = params.Risk
		}
		presets = append(presets, entry)
	}
	c.JSON(http.StatusOK, presets)
}

type TransitionRequest struct {
	PortfolioID int64                    `json:"portfolioId"`
	Goal        string                   `json:"goal"`
	Parameters  *optimization.Parameters `json:"parameters"`
}

func (h *Handler) controllerFor(portfolioID int64) *optimization.Controller {
	h.mu.Lock()
	defer h.mu.Unlock()

	ctrl, ok := h.controllers[portfolioID]
	if !ok {
		ctrl = optimization.NewController()
		h.controllers[portfolioID] = ctrl
	}
	return ctrl
}

// stateFor reads a portfolio's optimization state. Portfolios that never
// transitioned report the balanced default and are not tracked.
func (h *Handler) stateFor(portfolioID int64) (optimization.Goal, optimization.Parameters) {
	h.mu.Lock()
	ctrl, ok := h.controllers[portfolioID]
	h.mu.Unlock()
	if !ok {
		return optimization.NewController().State()
	}
	return ctrl.State()
}

// TransitionOptimization selects a goal, or records hand-tuned parameters,
// for a portfolio and returns the resulting transition.
func (h *Handler) TransitionOptimization(c *gin.Context) {
	var req TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if req.PortfolioID <= 0 {
		h.respondError(c, errs.Invalid("portfolioId", "must be a positive id"), "Failed to update optimization")
		return
	}

	if req.Parameters != nil {
		if req.Goal != "" {
			if goal, err := optimization.ParseGoal(req.Goal); err != nil || goal != optimization.Custom {
				h.respondError(c, errs.Invalid("parameters", "only allowed with the custom goal"), "Failed to update optimization")
				return
			}
		}
		transition, err := h.controllerFor(req.PortfolioID).Adjust(*req.Parameters)
		if err != nil {
			h.respondError(c, err, "Failed to update optimization")
			return
		}
		c.JSON(http.StatusOK, transition)
		return
	}

	goal, err := optimization.ParseGoal(req.Goal)
	if err != nil {
		h.respondError(c, err, "Failed to update optimization")
		return
	}

	transition, err := h.controllerFor(req.PortfolioID).Select(goal)
	if err != nil {
		h.respondError(c, err, "Failed to update optimization")
		return
	}

	c.JSON(http.StatusOK, transition)
}

func (h *Handler) GetOptimizationState(c *gin.Context) {
	portfolioID, err := parseID(c, "id")
	if err != nil {
		h.respondError(c, err, "Failed to read optimization state")
		return
	}

	goal, current := h.stateFor(portfolioID)
	c.JSON(http.StatusOK, gin.H{
		"goal":      goal,
		"occupancy": current.Occupancy,
		"risk":      current.Risk,
	})
}
