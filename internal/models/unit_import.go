package models

import (
	"math"
	"time"

	"compset/server/internal/errs"
)

// UnitImportBatch is one import request for a property's unit inventory
type UnitImportBatch struct {
	PropertyID int64          `json:"property_id"`
	Units      []PropertyUnit `json:"units"`
	ReceivedAt time.Time      `json:"received_at"`
}

// Validate checks a unit record coming from an import or edit flow.
// An empty status defaults to occupied.
func (u *PropertyUnit) Validate() error {
	if u.UnitNumber == "" {
		return errs.Invalid("unit_number", "is required")
	}
	if u.Bedrooms < 0 {
		return errs.Invalid("bedrooms", "must not be negative")
	}
	if u.Bathrooms < 0 || math.Mod(u.Bathrooms*2, 1) != 0 {
		return errs.Invalid("bathrooms", "must be a non-negative multiple of 0.5")
	}
	if u.SquareFeet != nil && *u.SquareFeet < 0 {
		return errs.Invalid("square_feet", "must not be negative")
	}
	if u.Rent != nil && (*u.Rent < 0 || math.IsNaN(*u.Rent)) {
		return errs.Invalid("rent", "must not be negative")
	}
	if u.Status == "" {
		u.Status = StatusOccupied
	}
	if !u.Status.Valid() {
		return errs.Invalid("status", "unknown unit status %q", u.Status)
	}
	return nil
}

// Validate checks a property profile coming from intake
func (p *PropertyProfile) Validate() error {
	if p.PortfolioID <= 0 {
		return errs.Invalid("portfolio_id", "must be a positive id")
	}
	if p.Name == "" {
		return errs.Invalid("name", "is required")
	}
	if !p.ProfileType.Valid() {
		return errs.Invalid("profile_type", "must be subject or competitor")
	}
	if p.TotalUnits < 0 {
		return errs.Invalid("total_units", "must not be negative")
	}
	if (p.Latitude == nil) != (p.Longitude == nil) {
		return errs.Invalid("latitude", "latitude and longitude must be given together")
	}
	if p.Latitude != nil && (*p.Latitude < -90 || *p.Latitude > 90) {
		return errs.Invalid("latitude", "must be between -90 and 90")
	}
	if p.Longitude != nil && (*p.Longitude < -180 || *p.Longitude > 180) {
		return errs.Invalid("longitude", "must be between -180 and 180")
	}
	return nil
}
