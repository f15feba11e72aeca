// Package scan acquires the two source datasets by sweeping a grid of search
// circles across the target metropolitan area, deduplicating results by
// source id. Acquisition is sequential and rate-limited; the matching engine
// receives the finalized snapshots.
package scan

import "github.com/ldnfood/linkage-cli/internal/geospatial"

// Cell is one grid-scan search center.
type Cell struct {
	Row int
	Col int
	Lat float64
	Lng float64
}

// Grid returns rows x cols search centers evenly spaced across the bounding
// box, edges inclusive. A single row or column collapses to the box midline.
func Grid(box geospatial.BBox, rows, cols int) []Cell {
	if rows <= 0 || cols <= 0 {
		return nil
	}

	cells := make([]Cell, 0, rows*cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			cells = append(cells, Cell{
				Row: i,
				Col: j,
				Lat: axisPoint(box.MinLat, box.MaxLat, i, rows),
				Lng: axisPoint(box.MinLng, box.MaxLng, j, cols),
			})
		}
	}
	return cells
}

func axisPoint(min, max float64, i, n int) float64 {
	if n == 1 {
		return (min + max) / 2
	}
	return min + float64(i)*(max-min)/float64(n-1)
}
