package districts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/ldnfood/linkage-cli/internal/model"
)

// rect returns a single-ring rectangle multipolygon in lng/lat order.
func rect(minLng, minLat, maxLng, maxLat float64) *geom.MultiPolygon {
	mp := geom.NewMultiPolygon(geom.XY)
	poly := geom.NewPolygon(geom.XY)
	ring := geom.NewLinearRingFlat(geom.XY, []float64{
		minLng, minLat,
		maxLng, minLat,
		maxLng, maxLat,
		minLng, maxLat,
		minLng, minLat,
	})
	if err := poly.Push(ring); err != nil {
		panic(err)
	}
	if err := mp.Push(poly); err != nil {
		panic(err)
	}
	return mp
}

func testSet() *Set {
	return NewSet([]District{
		{Code: "E09000033", Name: "Westminster", Boundary: rect(-0.22, 51.48, -0.11, 51.54)},
		{Code: "E09000030", Name: "Tower Hamlets", Boundary: rect(-0.08, 51.48, 0.01, 51.55)},
	})
}

func TestSet_Find(t *testing.T) {
	s := testSet()

	d := s.Find(&model.Coord{Lat: 51.50, Lng: -0.14})
	require.NotNil(t, d)
	assert.Equal(t, "Westminster", d.Name)

	d = s.Find(&model.Coord{Lat: 51.51, Lng: -0.05})
	require.NotNil(t, d)
	assert.Equal(t, "Tower Hamlets", d.Name)
}

func TestSet_Find_Outside(t *testing.T) {
	s := testSet()
	assert.Nil(t, s.Find(&model.Coord{Lat: 53.48, Lng: -2.24})) // Manchester
}

func TestSet_Find_NilCoord(t *testing.T) {
	assert.Nil(t, testSet().Find(nil))
}

func TestSet_NameFor(t *testing.T) {
	s := testSet()
	assert.Equal(t, "Westminster", s.NameFor(&model.Coord{Lat: 51.50, Lng: -0.14}))
	assert.Empty(t, s.NameFor(nil))
	assert.Empty(t, s.NameFor(&model.Coord{Lat: 0, Lng: 0}))
}

func TestContainsPoint_Hole(t *testing.T) {
	mp := geom.NewMultiPolygon(geom.XY)
	poly := geom.NewPolygon(geom.XY)
	outer := geom.NewLinearRingFlat(geom.XY, []float64{0, 0, 10, 0, 10, 10, 0, 10, 0, 0})
	hole := geom.NewLinearRingFlat(geom.XY, []float64{4, 4, 6, 4, 6, 6, 4, 6, 4, 4})
	require.NoError(t, poly.Push(outer))
	require.NoError(t, poly.Push(hole))
	require.NoError(t, mp.Push(poly))

	assert.True(t, containsPoint(mp, 2, 2))
	assert.False(t, containsPoint(mp, 5, 5)) // inside the hole
	assert.False(t, containsPoint(mp, 20, 20))
}
