package models

import "time"

type ProfileType string

const (
	ProfileSubject    ProfileType = "subject"
	ProfileCompetitor ProfileType = "competitor"
)

// Valid reports whether p is a known profile type
func (p ProfileType) Valid() bool {
	return p == ProfileSubject || p == ProfileCompetitor
}

type UnitStatus string

const (
	StatusOccupied    UnitStatus = "occupied"
	StatusVacant      UnitStatus = "vacant"
	StatusNoticeGiven UnitStatus = "notice_given"
)

// Valid reports whether s is a known unit status
func (s UnitStatus) Valid() bool {
	switch s {
	case StatusOccupied, StatusVacant, StatusNoticeGiven:
		return true
	}
	return false
}

// Available reports whether a unit in this status counts toward vacancy
func (s UnitStatus) Available() bool {
	return s == StatusVacant || s == StatusNoticeGiven
}

type PropertyProfile struct {
	ID          int64       `json:"id"`
	PortfolioID int64       `json:"portfolio_id"`
	Name        string      `json:"name"`
	Address     string      `json:"address"`
	ProfileType ProfileType `json:"profile_type"`
	TotalUnits  int         `json:"total_units"`
	Latitude    *float64    `json:"latitude"`
	Longitude   *float64    `json:"longitude"`
	CreatedAt   time.Time   `json:"created_at"`
}

// HasCoordinates reports whether the property has been placed on the map
func (p *PropertyProfile) HasCoordinates() bool {
	return p.Latitude != nil && p.Longitude != nil
}

type PropertyUnit struct {
	ID         int64      `json:"id"`
	PropertyID int64      `json:"property_id"`
	UnitNumber string     `json:"unit_number"`
	Tag        *string    `json:"tag"`
	Bedrooms   int        `json:"bedrooms"`
	Bathrooms  float64    `json:"bathrooms"`
	SquareFeet *int       `json:"square_feet"`
	Rent       *float64   `json:"rent"`
	Status     UnitStatus `json:"status"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// HasRent reports whether the unit carries rent data. Zero rent means no data.
func (u *PropertyUnit) HasRent() bool {
	return u.Rent != nil && *u.Rent > 0
}

// HasSquareFeet reports whether the unit carries a square footage
func (u *PropertyUnit) HasSquareFeet() bool {
	return u.SquareFeet != nil && *u.SquareFeet > 0
}
