// Package geospatial provides the great-circle distance and bounding-window
// math used by the matching engine's spatial pruning.
package geospatial

import "math"

// EarthRadiusMeters is the mean Earth radius used for haversine distances.
const EarthRadiusMeters = 6371000.0

// metersPerDegreeLat is a conservative (low) estimate of meters per degree of
// latitude. Using the minimum over the globe keeps derived degree windows
// wider than the true distance cutoff.
const metersPerDegreeLat = 110574.0

// windowSlack widens pruning windows beyond the exact meters-to-degrees
// conversion so the coarse filter can never exclude a candidate that would
// pass the exact-distance test.
const windowSlack = 1.25

// Haversine returns the great-circle distance in meters between two points
// given in decimal degrees.
func Haversine(lat1, lng1, lat2, lng2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lng2 - lng1) * math.Pi / 180

	sinPhi := math.Sin(dPhi / 2)
	sinLambda := math.Sin(dLambda / 2)
	a := sinPhi*sinPhi + math.Cos(phi1)*math.Cos(phi2)*sinLambda*sinLambda
	return EarthRadiusMeters * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// BBox is a geographic bounding box in decimal degrees.
type BBox struct {
	MinLat float64 `json:"min_lat"`
	MinLng float64 `json:"min_lng"`
	MaxLat float64 `json:"max_lat"`
	MaxLng float64 `json:"max_lng"`
}

// Contains reports whether the point lies inside the box, inclusive.
func (b BBox) Contains(lat, lng float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lng >= b.MinLng && lng <= b.MaxLng
}

// Window returns a bounding box centered on (lat, lng) that is guaranteed to
// contain every point within meters of the center, and false when no finite
// window exists (centers too close to the poles, where the longitude span
// degenerates). Callers receiving ok == false must fall back to an unpruned
// scan.
//
// The latitude span uses a conservative meters-per-degree constant; the
// longitude span additionally accounts for cosine-of-latitude foreshortening.
func Window(lat, lng, meters float64) (BBox, bool) {
	if meters <= 0 {
		return BBox{}, false
	}

	latDeg := meters / metersPerDegreeLat * windowSlack

	// Evaluate the cosine at the edge of the latitude window, where degrees
	// of longitude are shortest.
	edgeLat := math.Max(math.Abs(lat-latDeg), math.Abs(lat+latDeg))
	cos := math.Cos(edgeLat * math.Pi / 180)
	if cos < 0.01 {
		return BBox{}, false
	}
	lngDeg := meters / (metersPerDegreeLat * cos) * windowSlack

	return BBox{
		MinLat: lat - latDeg,
		MinLng: lng - lngDeg,
		MaxLat: lat + latDeg,
		MaxLng: lng + lngDeg,
	}, true
}
