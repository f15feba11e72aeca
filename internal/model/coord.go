package model

import "strconv"

// Coord is a WGS84 coordinate pair in decimal degrees.
// A missing coordinate is represented by a nil *Coord, never by zero values.
type Coord struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// ParseCoord parses latitude/longitude strings into a Coord.
// Empty or unparseable input yields nil: the record is treated as having no
// coordinates rather than failing the batch.
func ParseCoord(lat, lng string) *Coord {
	if lat == "" || lng == "" {
		return nil
	}
	la, err := strconv.ParseFloat(lat, 64)
	if err != nil {
		return nil
	}
	ln, err := strconv.ParseFloat(lng, 64)
	if err != nil {
		return nil
	}
	return &Coord{Lat: la, Lng: ln}
}
