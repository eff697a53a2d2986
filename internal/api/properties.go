package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"compset/server/internal/errs"
	"compset/server/internal/models"
	"compset/server/internal/queue"
)

func (h *Handler) CreateProperty(c *gin.Context) {
	portfolioID, err := parseID(c, "id")
	if err != nil {
		h.respondError(c, err, "Failed to create property")
		return
	}

	var property models.PropertyProfile
	if err := c.ShouldBindJSON(&property); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	property.ID = 0
	property.PortfolioID = portfolioID

	if err := property.Validate(); err != nil {
		h.respondError(c, err, "Failed to create property")
		return
	}
	h.locate(c, &property)
	if err := h.properties.CreateProperty(c.Request.Context(), &property); err != nil {
		h.respondError(c, err, "Failed to create property")
		return
	}

	h.logger.WithFields(logrus.Fields{
		"property_id":  property.ID,
		"portfolio_id": portfolioID,
		"profile_type": property.ProfileType,
	}).Info("Created property")
	c.JSON(http.StatusCreated, property)
}

func (h *Handler) ListProperties(c *gin.Context) {
	portfolioID, err := parseID(c, "id")
	if err != nil {
		h.respondError(c, err, "Failed to get properties")
		return
	}

	properties, err := h.properties.ListProperties(c.Request.Context(), portfolioID)
	if err != nil {
		h.respondError(c, err, "Failed to get properties")
		return
	}

	c.JSON(http.StatusOK, properties)
}

func (h *Handler) GetProperty(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		h.respondError(c, err, "Failed to get property")
		return
	}

	property, err := h.properties.GetProperty(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err, "Failed to get property")
		return
	}

	c.JSON(http.StatusOK, property)
}

func (h *Handler) ListUnits(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		h.respondError(c, err, "Failed to get units")
		return
	}

	if _, err := h.properties.GetProperty(c.Request.Context(), id); err != nil {
		h.respondError(c, err, "Failed to get units")
		return
	}

	units, err := h.properties.ListUnits(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err, "Failed to get units")
		return
	}

	c.JSON(http.StatusOK, units)
}

type UnitImportRequest struct {
	Units []models.PropertyUnit `json:"units"`
}

// ImportUnits validates a unit batch and queues it for the batch processor
func (h *Handler) ImportUnits(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		h.respondError(c, err, "Failed to import units")
		return
	}

	var req UnitImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if len(req.Units) == 0 {
		h.respondError(c, errs.Invalid("units", "at least one unit is required"), "Failed to import units")
		return
	}
	if len(req.Units) > h.maxBatchSize {
		h.respondError(c, errs.Invalid("units", "at most %d units per batch", h.maxBatchSize), "Failed to import units")
		return
	}

	seen := make(map[string]bool, len(req.Units))
	for i := range req.Units {
		if err := req.Units[i].Validate(); err != nil {
			h.respondError(c, fmt.Errorf("unit %d: %w", i, err), "Failed to import units")
			return
		}
		if seen[req.Units[i].UnitNumber] {
			h.respondError(c, errs.Invalid("units", "duplicate unit number %q", req.Units[i].UnitNumber), "Failed to import units")
			return
		}
		seen[req.Units[i].UnitNumber] = true
		req.Units[i].PropertyID = id
	}

	if _, err := h.properties.GetProperty(c.Request.Context(), id); err != nil {
		h.respondError(c, err, "Failed to import units")
		return
	}

	batch := &models.UnitImportBatch{PropertyID: id, Units: req.Units, ReceivedAt: time.Now().UTC()}
	if err := h.units.Push(batch); err != nil {
		if errors.Is(err, queue.ErrQueueFull) || errors.Is(err, queue.ErrQueueClosed) {
			h.logger.WithError(err).WithField("property_id", id).Warn("Unit import rejected")
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Import queue is unavailable, retry later"})
			return
		}
		h.respondError(c, err, "Failed to import units")
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"property_id": id,
		"queued":      len(req.Units),
		"status":      "queued",
	})
}

// locate fills in missing coordinates from the address. Failures leave the
// property unplaced.
func (h *Handler) locate(c *gin.Context, p *models.PropertyProfile) {
	if h.geocoder == nil || p.HasCoordinates() || p.Address == "" {
		return
	}

	lat, lon, err := h.geocoder.Geocode(c.Request.Context(), p.Address)
	if err != nil {
		h.logger.WithError(err).WithField("address", p.Address).Warn("Could not geocode property")
		return
	}
	p.Latitude, p.Longitude = &lat, &lon
}
