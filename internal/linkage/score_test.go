package linkage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func ptrF(v float64) *float64 { return &v }

func TestNameScoreIdentical(t *testing.T) {
	cfg := DefaultConfig()
	assert.InDelta(t, 1.0, nameScore("THE CROWN AND ANCHOR", "THE CROWN AND ANCHOR", cfg), 1e-9)
}

func TestNameScoreTokenOrderInvariant(t *testing.T) {
	cfg := DefaultConfig()
	assert.InDelta(t, 1.0, nameScore("ANCHOR CROWN THE", "THE CROWN ANCHOR", cfg), 1e-9)
}

func TestNameScoreSymmetric(t *testing.T) {
	cfg := DefaultConfig()
	a := nameScore("RED LION", "REDD LION", cfg)
	b := nameScore("REDD LION", "RED LION", cfg)
	assert.InDelta(t, a, b, 1e-9)
}

func TestNameScoreEmptyInputs(t *testing.T) {
	cfg := DefaultConfig()
	assert.Zero(t, nameScore("", "RED LION", cfg))
	assert.Zero(t, nameScore("RED LION", "", cfg))
	assert.Zero(t, nameScore("", "", cfg))
}

func TestNameScoreDissimilar(t *testing.T) {
	cfg := DefaultConfig()
	s := nameScore("ZZZZZZZZ", "AAAAAAAA", cfg)
	assert.InDelta(t, 0.0, s, 1e-9)
}

func TestNameScorePartial(t *testing.T) {
	cfg := DefaultConfig()
	// One substitution across nine runes.
	s := nameScore("RED LIONS", "RED LIONZ", cfg)
	assert.InDelta(t, 1.0-1.0/9.0, s, 1e-9)
}

func TestNameScoreJaroWinklerBlend(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LevWeight, cfg.JaroWinklerWeight = 0.7, 0.3

	pure := DefaultConfig()
	blended := nameScore("DISHOOM", "DISHOON", cfg)
	levOnly := nameScore("DISHOOM", "DISHOON", pure)

	// Jaro-Winkler rewards the shared prefix, so the blend scores higher.
	assert.Greater(t, blended, levOnly)
	assert.InDelta(t, 1.0, nameScore("DISHOOM", "DISHOOM", cfg), 1e-9)
}

func TestDistanceScoreBuckets(t *testing.T) {
	cfg := DefaultConfig()
	tests := []struct {
		name     string
		meters   *float64
		expected float64
	}{
		{"missing", nil, 0},
		{"at zero", ptrF(0), 1.0},
		{"inside 50", ptrF(12), 1.0},
		{"at 50", ptrF(50), 1.0},
		{"inside 150", ptrF(149), 0.7},
		{"inside 300", ptrF(299.9), 0.4},
		{"inside cutoff", ptrF(450), 0.2},
		{"at cutoff", ptrF(500), 0.2},
		{"beyond cutoff", ptrF(501), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, distanceScore(tt.meters, cfg), 1e-9)
		})
	}
}

func TestDistanceScoreMonotone(t *testing.T) {
	cfg := DefaultConfig()
	prev := 2.0
	for d := 0.0; d <= 600; d += 1 {
		s := distanceScore(&d, cfg)
		assert.LessOrEqual(t, s, prev, "distance score increased at %f m", d)
		prev = s
	}
}

func TestPostcodeScore(t *testing.T) {
	tests := []struct {
		name     string
		postcode string
		address  string
		expected float64
	}{
		{"substring hit", "SW1A1AA", "1REGENTST,LONDONSW1A1AA", 1},
		{"no hit", "EC2A3LT", "1REGENTST,LONDONSW1A1AA", 0},
		{"empty postcode", "", "1REGENTST", 0},
		{"empty address", "SW1A1AA", "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, postcodeScore(tt.postcode, tt.address), 1e-9)
		})
	}
}

func TestCombine(t *testing.T) {
	cfg := DefaultConfig()
	assert.InDelta(t, 1.0, combine(1, 1, 1, cfg), 1e-9)
	assert.InDelta(t, 0.7, combine(1, 0, 0, cfg), 1e-9)
	assert.InDelta(t, 0.0, combine(0, 0, 0, cfg), 1e-9)

	twoTerm := cfg
	twoTerm.NameWeight, twoTerm.DistanceWeight, twoTerm.PostcodeWeight = 1, 1, 0
	twoTerm.WeightTotal = 2
	assert.InDelta(t, 2.0, combine(1, 1, 1, twoTerm), 1e-9)
}
