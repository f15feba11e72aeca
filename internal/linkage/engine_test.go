package linkage

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ldnfood/linkage-cli/internal/model"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := New(DefaultConfig())
	require.NoError(t, err)
	return e
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NameWeight = -1
	_, err := New(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config validation failed")
}

func TestNewFillsDefaultBuckets(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxDistanceMeters = 800
	cfg.DistanceBuckets = nil
	e, err := New(cfg)
	require.NoError(t, err)
	require.Len(t, e.cfg.DistanceBuckets, 4)
	assert.InDelta(t, 800, e.cfg.DistanceBuckets[3].UpToMeters, 0.001)
}

func TestRunPerfectMatch(t *testing.T) {
	e := newTestEngine(t)

	venues := []model.Venue{{
		PlaceID: "p1",
		Name:    "The Crown & Anchor LTD",
		Address: "1 SW1A 1AA",
		Coord:   &model.Coord{Lat: 51.5007, Lng: -0.1246},
	}}
	ests := []model.Establishment{{
		FHRSID:       "f1",
		BusinessName: "THE CROWN AND ANCHOR",
		Postcode:     "SW1A 1AA",
		Coord:        &model.Coord{Lat: 51.5008, Lng: -0.1247},
	}}

	results, err := e.Run(context.Background(), venues, ests)
	require.NoError(t, err)
	require.Len(t, results, 1)

	r := results[0]
	require.True(t, r.Matched())
	assert.Equal(t, "f1", r.Candidate.FHRSID)
	assert.InDelta(t, 1.0, r.NameScore, 1e-9)
	assert.InDelta(t, 1.0, r.DistanceScore, 1e-9)
	assert.InDelta(t, 1.0, r.PostcodeScore, 1e-9)
	assert.InDelta(t, 1.0, r.CombinedScore, 1e-9)
	require.NotNil(t, r.DistanceMeters)
	assert.Less(t, *r.DistanceMeters, 50.0)
}

func TestRunDistantCandidateNotConsidered(t *testing.T) {
	e := newTestEngine(t)

	venues := []model.Venue{{
		PlaceID: "p1",
		Name:    "The Crown & Anchor",
		Coord:   &model.Coord{Lat: 51.5007, Lng: -0.1246},
	}}
	// ~3 km north: outside the 500 m cutoff.
	ests := []model.Establishment{{
		FHRSID:       "f1",
		BusinessName: "Red Lion",
		Coord:        &model.Coord{Lat: 51.5277, Lng: -0.1246},
	}}

	results, err := e.Run(context.Background(), venues, ests)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.False(t, results[0].Matched())
	assert.Zero(t, results[0].CombinedScore)
}

func TestRunHardRejectInsideWindow(t *testing.T) {
	e := newTestEngine(t)

	// ~530 m north: inside the conservative degree window but beyond the
	// exact cutoff. The exact-distance re-check must reject it.
	venues := []model.Venue{{
		PlaceID: "p1",
		Name:    "Dishoom",
		Coord:   &model.Coord{Lat: 51.5000, Lng: -0.1200},
	}}
	ests := []model.Establishment{{
		FHRSID:       "f1",
		BusinessName: "Dishoom",
		Coord:        &model.Coord{Lat: 51.5048, Lng: -0.1200},
	}}

	results, err := e.Run(context.Background(), venues, ests)
	require.NoError(t, err)
	assert.False(t, results[0].Matched())
}

func TestRunProbeWithoutCoordinates(t *testing.T) {
	e := newTestEngine(t)

	venues := []model.Venue{{
		PlaceID: "p1",
		Name:    "Honest Burgers",
		Address: "4 Meard St, London W1F 0EF",
	}}
	ests := []model.Establishment{{
		FHRSID:       "f1",
		BusinessName: "Honest Burgers",
		Postcode:     "W1F 0EF",
		Coord:        &model.Coord{Lat: 51.5135, Lng: -0.1340},
	}}

	results, err := e.Run(context.Background(), venues, ests)
	require.NoError(t, err)

	r := results[0]
	// Distance signal forced to zero; name + postcode carry the match.
	require.True(t, r.Matched())
	assert.Nil(t, r.DistanceMeters)
	assert.Zero(t, r.DistanceScore)
	assert.InDelta(t, 0.8, r.CombinedScore, 1e-9)
}

func TestRunUnlocatedCandidateMatchesOnName(t *testing.T) {
	e := newTestEngine(t)

	venues := []model.Venue{{
		PlaceID: "p1",
		Name:    "Honest Burgers",
		Coord:   &model.Coord{Lat: 51.5135, Lng: -0.1340},
	}}
	ests := []model.Establishment{{
		FHRSID:       "f1",
		BusinessName: "Honest Burgers",
	}}

	results, err := e.Run(context.Background(), venues, ests)
	require.NoError(t, err)

	r := results[0]
	// No geocode on the candidate: the distance signal contributes nothing,
	// but the exact name still clears the floor on its own.
	require.True(t, r.Matched())
	assert.Nil(t, r.DistanceMeters)
	assert.Zero(t, r.DistanceScore)
	assert.InDelta(t, 0.7, r.CombinedScore, 1e-9)
}

func TestRunEmptyCandidates(t *testing.T) {
	e := newTestEngine(t)

	venues := []model.Venue{
		{PlaceID: "p1", Name: "A", Coord: &model.Coord{Lat: 51.5, Lng: -0.1}},
		{PlaceID: "p2", Name: "B"},
	}

	results, err := e.Run(context.Background(), venues, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.False(t, r.Matched())
		assert.Zero(t, r.CombinedScore)
	}
}

func TestRunBelowFloorKeepsDiagnosticScore(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinMatchScore = 0.95
	e, err := New(cfg)
	require.NoError(t, err)

	venues := []model.Venue{{
		PlaceID: "p1",
		Name:    "The Grapes Tavern",
		Coord:   &model.Coord{Lat: 51.5, Lng: -0.1},
	}}
	ests := []model.Establishment{{
		FHRSID:       "f1",
		BusinessName: "The Grapes",
		Coord:        &model.Coord{Lat: 51.5, Lng: -0.1},
	}}

	results, err := e.Run(context.Background(), venues, ests)
	require.NoError(t, err)

	r := results[0]
	assert.False(t, r.Matched())
	assert.Greater(t, r.CombinedScore, 0.0)
	assert.Less(t, r.CombinedScore, 0.95)
}

func TestRunFirstMaxTieBreak(t *testing.T) {
	e := newTestEngine(t)

	venues := []model.Venue{{
		PlaceID: "p1",
		Name:    "Franco Manca",
		Coord:   &model.Coord{Lat: 51.5, Lng: -0.1},
	}}
	// Identical candidates: the first in snapshot order must win.
	ests := []model.Establishment{
		{FHRSID: "first", BusinessName: "Franco Manca", Coord: &model.Coord{Lat: 51.5, Lng: -0.1}},
		{FHRSID: "second", BusinessName: "Franco Manca", Coord: &model.Coord{Lat: 51.5, Lng: -0.1}},
	}

	results, err := e.Run(context.Background(), venues, ests)
	require.NoError(t, err)
	require.True(t, results[0].Matched())
	assert.Equal(t, "first", results[0].Candidate.FHRSID)
}

func TestRunInputOrderWithParallelism(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Workers = 4
	e, err := New(cfg)
	require.NoError(t, err)

	var venues []model.Venue
	var ests []model.Establishment
	for i := 0; i < 200; i++ {
		id := fmt.Sprintf("p%03d", i)
		venues = append(venues, model.Venue{
			PlaceID: id,
			Name:    fmt.Sprintf("Venue %03d", i),
			Coord:   &model.Coord{Lat: 51.3 + float64(i)*0.001, Lng: -0.1},
		})
		ests = append(ests, model.Establishment{
			FHRSID:       fmt.Sprintf("f%03d", i),
			BusinessName: fmt.Sprintf("Venue %03d", i),
			Coord:        &model.Coord{Lat: 51.3 + float64(i)*0.001, Lng: -0.1},
		})
	}

	results, err := e.Run(context.Background(), venues, ests)
	require.NoError(t, err)
	require.Len(t, results, 200)
	for i, r := range results {
		assert.Equal(t, venues[i].PlaceID, r.ProbeID)
	}
}

func TestRunDeterministic(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Workers = 8
	e, err := New(cfg)
	require.NoError(t, err)

	var venues []model.Venue
	var ests []model.Establishment
	for i := 0; i < 100; i++ {
		venues = append(venues, model.Venue{
			PlaceID: fmt.Sprintf("p%d", i),
			Name:    fmt.Sprintf("Cafe %d", i%7),
			Coord:   &model.Coord{Lat: 51.4 + float64(i%10)*0.0005, Lng: -0.2 + float64(i%13)*0.0005},
		})
		ests = append(ests, model.Establishment{
			FHRSID:       fmt.Sprintf("f%d", i),
			BusinessName: fmt.Sprintf("Cafe %d", i%5),
			Coord:        &model.Coord{Lat: 51.4 + float64(i%11)*0.0005, Lng: -0.2 + float64(i%9)*0.0005},
		})
	}

	first, err := e.Run(context.Background(), venues, ests)
	require.NoError(t, err)
	second, err := e.Run(context.Background(), venues, ests)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestRunCancelledContext(t *testing.T) {
	e := newTestEngine(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	venues := make([]model.Venue, 50)
	for i := range venues {
		venues[i] = model.Venue{PlaceID: fmt.Sprintf("p%d", i)}
	}

	_, err := e.Run(ctx, venues, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
