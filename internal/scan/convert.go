package scan

import (
	"strconv"
	"strings"

	"github.com/ldnfood/linkage-cli/internal/model"
	"github.com/ldnfood/linkage-cli/pkg/fhrs"
	"github.com/ldnfood/linkage-cli/pkg/places"
)

// genericTypes are Places type tags that describe every food venue and carry
// no cuisine signal; they are dropped from the FoodTypes summary.
var genericTypes = map[string]bool{
	"restaurant":        true,
	"food":              true,
	"point_of_interest": true,
	"establishment":     true,
	"food_store":        true,
}

// VenueFromPlace converts a Places API result into a directory venue record.
func VenueFromPlace(p places.Place) model.Venue {
	var cuisines []string
	for _, t := range p.Types {
		if !genericTypes[t] {
			cuisines = append(cuisines, t)
		}
	}

	return model.Venue{
		PlaceID:    p.ID,
		Name:       p.DisplayName.Text,
		Address:    p.FormattedAddress,
		Coord:      &model.Coord{Lat: p.Location.Latitude, Lng: p.Location.Longitude},
		Rating:     p.Rating,
		NumReviews: p.UserRatingCount,
		FoodTypes:  strings.Join(cuisines, ", "),
		PriceLevel: p.PriceLevel,
	}
}

// EstablishmentFromFHRS converts an FHRS API result into a registry record.
// Geocode strings that are empty or malformed yield a nil coordinate.
func EstablishmentFromFHRS(e fhrs.Establishment) model.Establishment {
	return model.Establishment{
		FHRSID:          strconv.FormatInt(e.FHRSID, 10),
		BusinessName:    e.BusinessName,
		BusinessType:    e.BusinessType,
		Postcode:        e.PostCode,
		Coord:           model.ParseCoord(e.Geocode.Latitude, e.Geocode.Longitude),
		RatingValue:     e.RatingValue,
		RatingDate:      e.RatingDate,
		LocalAuthority:  e.LocalAuthority,
		HygieneScore:    e.Scores.Hygiene,
		StructuralScore: e.Scores.Structural,
		ConfidenceScore: e.Scores.ConfidenceInManagement,
	}
}
