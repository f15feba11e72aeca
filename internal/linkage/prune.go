package linkage

import (
	"sort"

	"github.com/ldnfood/linkage-cli/internal/geospatial"
)

// candidateIndex is the read-only spatial index over the candidate snapshot.
// It is built once before parallel dispatch and shared by all workers.
//
// Located candidates are kept sorted by latitude so a window query can
// binary-search the latitude band and then filter on longitude. Query results
// are returned in original snapshot order, which keeps the engine's first-max
// tie-break identical whether or not pruning applied.
type candidateIndex struct {
	all []candidate

	// byLat holds indices into all for candidates with coordinates, ordered
	// by latitude.
	byLat []int

	// unlocated holds indices of candidates without coordinates. They carry
	// no position to prune on, so every window query includes them; the
	// name and postcode signals still apply.
	unlocated []int
}

func newCandidateIndex(cands []candidate) *candidateIndex {
	ix := &candidateIndex{all: cands}
	for i, c := range cands {
		if c.est.Coord != nil {
			ix.byLat = append(ix.byLat, i)
		} else {
			ix.unlocated = append(ix.unlocated, i)
		}
	}
	sort.SliceStable(ix.byLat, func(a, b int) bool {
		return ix.all[ix.byLat[a]].est.Coord.Lat < ix.all[ix.byLat[b]].est.Coord.Lat
	})
	return ix
}

// everything returns the index of every candidate, located or not, in
// snapshot order. Used when the probe has no coordinates and no spatial
// pruning is possible.
func (ix *candidateIndex) everything() []int {
	out := make([]int, len(ix.all))
	for i := range out {
		out[i] = i
	}
	return out
}

// within returns the indices of located candidates inside the window plus
// every unlocated candidate, in snapshot order. The window is a
// necessary-but-not-sufficient filter; the engine re-checks the exact
// distance against the cutoff.
func (ix *candidateIndex) within(box geospatial.BBox) []int {
	lo := sort.Search(len(ix.byLat), func(i int) bool {
		return ix.all[ix.byLat[i]].est.Coord.Lat >= box.MinLat
	})
	hi := sort.Search(len(ix.byLat), func(i int) bool {
		return ix.all[ix.byLat[i]].est.Coord.Lat > box.MaxLat
	})

	out := append([]int(nil), ix.unlocated...)
	for _, idx := range ix.byLat[lo:hi] {
		c := ix.all[idx].est.Coord
		if c.Lng >= box.MinLng && c.Lng <= box.MaxLng {
			out = append(out, idx)
		}
	}
	sort.Ints(out)
	return out
}
