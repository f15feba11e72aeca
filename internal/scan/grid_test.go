package scan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ldnfood/linkage-cli/internal/geospatial"
)

func TestGrid(t *testing.T) {
	box := geospatial.BBox{MinLat: 51.28, MinLng: -0.51, MaxLat: 51.70, MaxLng: 0.33}

	cells := Grid(box, 3, 2)
	require.Len(t, cells, 6)

	// Row-major order, edges inclusive.
	assert.Equal(t, Cell{Row: 0, Col: 0, Lat: 51.28, Lng: -0.51}, cells[0])
	assert.Equal(t, 0, cells[1].Row)
	assert.Equal(t, 1, cells[1].Col)
	assert.InDelta(t, 0.33, cells[1].Lng, 1e-9)

	last := cells[len(cells)-1]
	assert.InDelta(t, 51.70, last.Lat, 1e-9)
	assert.InDelta(t, 0.33, last.Lng, 1e-9)

	// Middle row sits at the latitude midpoint.
	assert.InDelta(t, (51.28+51.70)/2, cells[2].Lat, 1e-9)
}

func TestGrid_SingleRowCollapsesToMidline(t *testing.T) {
	box := geospatial.BBox{MinLat: 51.0, MinLng: -1.0, MaxLat: 52.0, MaxLng: 1.0}

	cells := Grid(box, 1, 1)
	require.Len(t, cells, 1)
	assert.InDelta(t, 51.5, cells[0].Lat, 1e-9)
	assert.InDelta(t, 0.0, cells[0].Lng, 1e-9)
}

func TestGrid_InvalidDimensions(t *testing.T) {
	box := geospatial.BBox{MinLat: 51.0, MinLng: -1.0, MaxLat: 52.0, MaxLng: 1.0}

	assert.Nil(t, Grid(box, 0, 10))
	assert.Nil(t, Grid(box, 10, -1))
}
