package geometry

import (
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"compset/server/internal/models"
)

// MarketArea builds the map layer of a competitive set: one point feature per
// located property and, when at least three distinct locations exist, the
// convex hull around them. Properties without coordinates are left out.
func MarketArea(subject *models.PropertyProfile, competitors []models.PropertyProfile) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	var points []orb.Point
	add := func(p *models.PropertyProfile, distanceKm *float64) {
		pt, ok := Point(p)
		if !ok {
			return
		}
		points = append(points, pt)

		f := geojson.NewFeature(pt)
		f.Properties["id"] = p.ID
		f.Properties["name"] = p.Name
		f.Properties["profile_type"] = string(p.ProfileType)
		if distanceKm != nil {
			f.Properties["distance_km"] = *distanceKm
		}
		fc.Append(f)
	}

	add(subject, nil)
	for i := range competitors {
		add(&competitors[i], DistanceKm(subject, &competitors[i]))
	}

	if hull := ConvexHull(points); hull != nil {
		f := geojson.NewFeature(orb.Polygon{hull})
		f.Properties["kind"] = "market_area"
		f.Properties["subject_id"] = subject.ID
		fc.Append(f)
	}

	if b, ok := Bound(append([]models.PropertyProfile{*subject}, competitors...)); ok {
		fc.BBox = geojson.NewBBox(b)
	}
	return fc
}

// ConvexHull returns the closed, counter-clockwise hull ring of points, or nil
// when fewer than three non-collinear points are given.
func ConvexHull(points []orb.Point) orb.Ring {
	pts := make([]orb.Point, len(points))
	copy(pts, points)
	sort.Slice(pts, func(i, j int) bool {
		if pts[i][0] != pts[j][0] {
			return pts[i][0] < pts[j][0]
		}
		return pts[i][1] < pts[j][1]
	})

	// Drop duplicate locations
	unique := pts[:0]
	for i, p := range pts {
		if i == 0 || p != pts[i-1] {
			unique = append(unique, p)
		}
	}
	pts = unique
	if len(pts) < 3 {
		return nil
	}

	// Monotone chain
	hull := make([]orb.Point, 0, 2*len(pts))
	for _, p := range pts {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	lower := len(hull) + 1
	for i := len(pts) - 2; i >= 0; i-- {
		p := pts[i]
		for len(hull) >= lower && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}

	// hull ends with the starting point, closing the ring
	if len(hull) < 4 {
		return nil
	}
	return orb.Ring(hull)
}

func cross(o, a, b orb.Point) float64 {
	return (a[0]-o[0])*(b[1]-o[1]) - (a[1]-o[1])*(b[0]-o[0])
}
