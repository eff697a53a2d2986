package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"compset/server/internal/errs"
	"compset/server/internal/models"
	"compset/server/internal/relationship"
)

type RelationshipRequest struct {
	PortfolioID      int64                   `json:"portfolioId"`
	PropertyAID      int64                   `json:"propertyAId"`
	PropertyBID      int64                   `json:"propertyBId"`
	RelationshipType models.RelationshipType `json:"relationshipType"`
}

func (r *RelationshipRequest) validate() error {
	if r.PortfolioID <= 0 {
		return errs.Invalid("portfolioId", "must be a positive id")
	}
	relType, err := relationship.ValidatePair(r.PropertyAID, r.PropertyBID, r.RelationshipType)
	if err != nil {
		return err
	}
	r.RelationshipType = relType
	return nil
}

func (h *Handler) prepare(ctx context.Context, req *RelationshipRequest) error {
	if err := req.validate(); err != nil {
		return err
	}
	return h.checkPair(ctx, req)
}

// checkPair requires both properties to exist in the request's portfolio
func (h *Handler) checkPair(ctx context.Context, req *RelationshipRequest) error {
	for _, id := range []int64{req.PropertyAID, req.PropertyBID} {
		p, err := h.properties.GetProperty(ctx, id)
		if err != nil {
			return err
		}
		if p.PortfolioID != req.PortfolioID {
			return errs.Invalid("portfolioId", "property %d belongs to portfolio %d", id, p.PortfolioID)
		}
	}
	return nil
}

func (h *Handler) CreateRelationship(c *gin.Context) {
	var req RelationshipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if err := h.prepare(c.Request.Context(), &req); err != nil {
		h.metrics.RelationshipMutation("create", outcomeFor(err))
		h.respondError(c, err, "Failed to create relationship")
		return
	}

	rel, err := h.relationships.Create(c.Request.Context(), req.PortfolioID, req.PropertyAID, req.PropertyBID, req.RelationshipType)
	h.metrics.RelationshipMutation("create", outcomeFor(err))
	if err != nil {
		h.respondError(c, err, "Failed to create relationship")
		return
	}

	h.logger.WithField("relationship_id", rel.ID).Info("Created competitive relationship")
	c.JSON(http.StatusCreated, rel)
}

func (h *Handler) ToggleRelationship(c *gin.Context) {
	rel, err := h.relationships.Toggle(c.Request.Context(), c.Param("id"))
	h.metrics.RelationshipMutation("toggle", outcomeFor(err))
	if err != nil {
		h.respondError(c, err, "Failed to toggle relationship")
		return
	}

	c.JSON(http.StatusOK, rel)
}

// ClickRelationship handles a matrix cell click: it toggles the pair's
// relationship or creates it when the pair has none.
func (h *Handler) ClickRelationship(c *gin.Context) {
	var req RelationshipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if err := h.prepare(c.Request.Context(), &req); err != nil {
		h.metrics.RelationshipMutation("click", outcomeFor(err))
		h.respondError(c, err, "Failed to update relationship")
		return
	}

	rel, err := h.relationships.ToggleOrCreate(c.Request.Context(), req.PortfolioID, req.PropertyAID, req.PropertyBID, req.RelationshipType)
	h.metrics.RelationshipMutation("click", outcomeFor(err))
	if err != nil {
		h.respondError(c, err, "Failed to update relationship")
		return
	}

	c.JSON(http.StatusOK, rel)
}

// LookupRelationship returns the relationship of an unordered pair, or null
func (h *Handler) LookupRelationship(c *gin.Context) {
	a, errA := strconv.ParseInt(c.Query("a"), 10, 64)
	b, errB := strconv.ParseInt(c.Query("b"), 10, 64)
	if errA != nil || errB != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Query parameters a and b must be integers"})
		return
	}

	rel, err := h.relationships.Get(c.Request.Context(), a, b)
	if err != nil {
		h.respondError(c, err, "Failed to look up relationship")
		return
	}

	c.JSON(http.StatusOK, gin.H{"relationship": rel})
}

func (h *Handler) ListRelationships(c *gin.Context) {
	portfolioID, err := parseID(c, "id")
	if err != nil {
		h.respondError(c, err, "Failed to list relationships")
		return
	}

	var rels []models.CompetitiveRelationship
	if c.Query("active") == "true" {
		rels, err = h.relationships.ListActive(c.Request.Context(), portfolioID)
	} else {
		rels, err = h.relationships.List(c.Request.Context(), portfolioID)
	}
	if err != nil {
		h.respondError(c, err, "Failed to list relationships")
		return
	}

	c.JSON(http.StatusOK, rels)
}
