package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"compset/server/internal/analysis"
	"compset/server/internal/errs"
	"compset/server/internal/geometry"
	"compset/server/internal/models"
)

const analysisFailedMessage = "unable to compute analysis"

type AnalysisRequest struct {
	SubjectID      int64                 `json:"subjectId"`
	SessionID      string                `json:"sessionId"`
	FilterCriteria models.FilterCriteria `json:"filterCriteria"`
	Mode           models.AnalysisMode   `json:"mode"`
}

func (h *Handler) RunAnalysis(c *gin.Context) {
	var req AnalysisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	mode := req.Mode
	if mode == "" {
		mode = models.ModeExternal
	}

	// Workflow sessions are resolved by the caller, not here
	if req.SubjectID == 0 && req.SessionID != "" {
		err := errs.Invalid("subjectId", "is required; session lookup is not supported")
		h.metrics.ObserveAnalysis(string(mode), outcomeFor(err), 0)
		h.respondError(c, err, analysisFailedMessage)
		return
	}

	start := time.Now()
	result, err := h.analyzer.Analyze(c.Request.Context(), analysis.Request{
		SubjectID: req.SubjectID,
		Criteria:  req.FilterCriteria,
		Mode:      mode,
	})
	h.metrics.ObserveAnalysis(string(mode), outcomeFor(err), time.Since(start))
	if err != nil {
		h.respondError(c, err, analysisFailedMessage)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetMarketArea returns the competitive set of a subject as a GeoJSON layer
func (h *Handler) GetMarketArea(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		h.respondError(c, err, "Failed to build market area")
		return
	}

	subject, competitors, err := h.analyzer.CompetitiveSet(c.Request.Context(), id, models.AnalysisMode(c.Query("mode")))
	if err != nil {
		h.respondError(c, err, "Failed to build market area")
		return
	}

	c.JSON(http.StatusOK, geometry.MarketArea(subject, competitors))
}
