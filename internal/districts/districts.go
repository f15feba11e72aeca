// Package districts loads borough boundary polygons from shapefiles and
// assigns venues to the borough containing them.
package districts

import (
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"

	"github.com/ldnfood/linkage-cli/internal/model"
)

// District is one administrative area with its boundary in WGS84
// longitude/latitude order.
type District struct {
	Code     string
	Name     string
	Boundary *geom.MultiPolygon
}

// Set is a loaded collection of districts.
type Set struct {
	districts []District
}

// NewSet builds a Set from loaded districts, preserving order.
func NewSet(districts []District) *Set {
	return &Set{districts: districts}
}

// Districts returns the districts in load order.
func (s *Set) Districts() []District {
	return s.districts
}

// Len returns the number of districts.
func (s *Set) Len() int {
	return len(s.districts)
}

// Find returns the first district whose boundary contains the coordinate, or
// nil when the coordinate is missing or outside every district.
func (s *Set) Find(coord *model.Coord) *District {
	if coord == nil {
		return nil
	}
	for i := range s.districts {
		if containsPoint(s.districts[i].Boundary, coord.Lng, coord.Lat) {
			return &s.districts[i]
		}
	}
	return nil
}

// NameFor returns the containing district's name, or "" when unassigned.
func (s *Set) NameFor(coord *model.Coord) string {
	if d := s.Find(coord); d != nil {
		return d.Name
	}
	return ""
}

// containsPoint tests whether the multipolygon contains the point: inside an
// exterior ring and outside that polygon's holes.
func containsPoint(mp *geom.MultiPolygon, lng, lat float64) bool {
	if mp == nil {
		return false
	}
	pt := geom.Coord{lng, lat}
	for i := 0; i < mp.NumPolygons(); i++ {
		poly := mp.Polygon(i)
		if poly.NumLinearRings() == 0 {
			continue
		}
		if !xy.IsPointInRing(poly.Layout(), pt, poly.LinearRing(0).FlatCoords()) {
			continue
		}
		inHole := false
		for r := 1; r < poly.NumLinearRings(); r++ {
			if xy.IsPointInRing(poly.Layout(), pt, poly.LinearRing(r).FlatCoords()) {
				inHole = true
				break
			}
		}
		if !inHole {
			return true
		}
	}
	return false
}
