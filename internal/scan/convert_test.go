package scan

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ldnfood/linkage-cli/pkg/places"
)

func TestVenueFromPlace_FoodTypes(t *testing.T) {
	p := place("a", "Taro")
	p.Types = []string{"japanese_restaurant", "restaurant", "food", "point_of_interest", "sushi_restaurant"}

	v := VenueFromPlace(p)
	assert.Equal(t, "japanese_restaurant, sushi_restaurant", v.FoodTypes)
}

func TestVenueFromPlace_OnlyGenericTypes(t *testing.T) {
	p := place("a", "Unnamed")
	p.Types = []string{"restaurant", "food", "establishment"}

	assert.Empty(t, VenueFromPlace(p).FoodTypes)
}

func TestVenueFromPlace_NoTypes(t *testing.T) {
	v := VenueFromPlace(places.Place{ID: "x"})
	assert.Empty(t, v.FoodTypes)
	assert.NotNil(t, v.Coord)
}
