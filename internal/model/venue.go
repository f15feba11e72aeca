// Package model defines the immutable record types shared across the linkage
// pipeline: directory venues, FHRS establishments, and match results.
package model

// Venue is a food-service venue from the commercial places directory.
// It is the probe side of the linkage: each venue is searched for its best
// FHRS counterpart. Payload fields are carried through untouched for output
// enrichment.
type Venue struct {
	PlaceID    string  `json:"place_id"`
	Name       string  `json:"name"`
	Address    string  `json:"address"`
	Coord      *Coord  `json:"coord,omitempty"`
	Rating     float64 `json:"rating,omitempty"`
	NumReviews int     `json:"num_reviews,omitempty"`
	FoodTypes  string  `json:"food_types,omitempty"`
	PriceLevel string  `json:"price_level,omitempty"`
}
