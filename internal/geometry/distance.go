// Package geometry places properties on the map relative to each other.
package geometry

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"

	"compset/server/internal/models"
)

// Point converts a property's coordinates to an orb point (lon, lat)
func Point(p *models.PropertyProfile) (orb.Point, bool) {
	if p == nil || !p.HasCoordinates() {
		return orb.Point{}, false
	}
	return orb.Point{*p.Longitude, *p.Latitude}, true
}

// DistanceKm returns the great-circle distance between two properties, or
// nil when either one has no coordinates.
func DistanceKm(from, to *models.PropertyProfile) *float64 {
	a, ok := Point(from)
	if !ok {
		return nil
	}
	b, ok := Point(to)
	if !ok {
		return nil
	}
	km := geo.DistanceHaversine(a, b) / 1000
	return &km
}

// Bound returns the bounding box around every located property
func Bound(properties []models.PropertyProfile) (orb.Bound, bool) {
	var points orb.MultiPoint
	for i := range properties {
		if p, ok := Point(&properties[i]); ok {
			points = append(points, p)
		}
	}
	if len(points) == 0 {
		return orb.Bound{}, false
	}
	return points.Bound(), true
}
