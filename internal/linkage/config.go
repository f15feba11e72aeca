// Package linkage implements the record-linkage engine that joins directory
// venues to FHRS establishments by fused name, distance, and postcode signals.
package linkage

import (
	"fmt"
	"math"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/ldnfood/linkage-cli/internal/config"
)

// weightTolerance is the permitted floating-point drift between the sum of
// the signal weights and the configured total.
const weightTolerance = 1e-6

// DefaultConfig returns a config.MatchConfig with the tuned defaults.
// Weights sum to 1.0, so the combined score and MinMatchScore live on [0,1].
func DefaultConfig() config.MatchConfig {
	return config.MatchConfig{
		MaxDistanceMeters: 500,
		MinMatchScore:     0.5,

		NameWeight:     0.7,
		DistanceWeight: 0.2,
		PostcodeWeight: 0.1,
		WeightTotal:    1.0,

		LevWeight:         1.0,
		JaroWinklerWeight: 0.0,

		DistanceBuckets: DefaultBuckets(500),

		Workers: 8,
	}
}

// DefaultBuckets returns the piecewise-constant distance score breakpoints:
// 1.0 within 50 m, 0.7 within 150 m, 0.4 within 300 m, and 0.2 out to the
// distance cutoff. A cutoff below 300 m drops the breakpoints beyond it and
// the final bucket keeps the score that range would have carried, so the
// result always validates.
func DefaultBuckets(maxDistanceMeters float64) []config.DistanceBucket {
	full := []config.DistanceBucket{
		{UpToMeters: 50, Score: 1.0},
		{UpToMeters: 150, Score: 0.7},
		{UpToMeters: 300, Score: 0.4},
		{UpToMeters: maxDistanceMeters, Score: 0.2},
	}
	var out []config.DistanceBucket
	for _, b := range full {
		if b.UpToMeters >= maxDistanceMeters {
			out = append(out, config.DistanceBucket{UpToMeters: maxDistanceMeters, Score: b.Score})
			break
		}
		out = append(out, b)
	}
	return out
}

// WeightSum returns the sum of the three signal weights.
func WeightSum(c config.MatchConfig) float64 {
	return c.NameWeight + c.DistanceWeight + c.PostcodeWeight
}

// ValidateConfig checks that a MatchConfig is internally consistent. A bad
// configuration would silently produce meaningless scores, so the engine
// refuses to start a batch with one.
func ValidateConfig(c config.MatchConfig) error {
	var errs []string

	weights := map[string]float64{
		"name_weight":     c.NameWeight,
		"distance_weight": c.DistanceWeight,
		"postcode_weight": c.PostcodeWeight,
	}
	for name, w := range weights {
		if w < 0 || math.IsNaN(w) {
			errs = append(errs, fmt.Sprintf("%s must be >= 0", name))
		}
	}

	if c.WeightTotal <= 0 || math.IsNaN(c.WeightTotal) {
		errs = append(errs, "weight_total must be > 0")
	} else if math.Abs(WeightSum(c)-c.WeightTotal) > weightTolerance {
		errs = append(errs, fmt.Sprintf("weights must sum to weight_total %.3f, got %.3f", c.WeightTotal, WeightSum(c)))
	}

	if c.MaxDistanceMeters <= 0 || math.IsNaN(c.MaxDistanceMeters) {
		errs = append(errs, "max_distance_meters must be > 0")
	}
	if c.MinMatchScore < 0 || c.MinMatchScore > c.WeightTotal || math.IsNaN(c.MinMatchScore) {
		errs = append(errs, "min_match_score must be between 0 and weight_total")
	}

	if c.LevWeight < 0 || c.JaroWinklerWeight < 0 || c.LevWeight+c.JaroWinklerWeight <= 0 {
		errs = append(errs, "name ratio blend weights must be >= 0 and sum to > 0")
	}

	if len(c.DistanceBuckets) == 0 {
		errs = append(errs, "distance_buckets must not be empty")
	}
	prevUpTo := 0.0
	prevScore := math.Inf(1)
	for i, b := range c.DistanceBuckets {
		if b.UpToMeters <= prevUpTo {
			errs = append(errs, fmt.Sprintf("distance_buckets[%d] breakpoints must be strictly increasing", i))
		}
		if b.Score < 0 || b.Score > 1 {
			errs = append(errs, fmt.Sprintf("distance_buckets[%d] score must be in [0,1]", i))
		}
		if b.Score > prevScore {
			errs = append(errs, fmt.Sprintf("distance_buckets[%d] scores must be non-increasing", i))
		}
		if b.UpToMeters > c.MaxDistanceMeters {
			errs = append(errs, fmt.Sprintf("distance_buckets[%d] breakpoint exceeds max_distance_meters", i))
		}
		prevUpTo = b.UpToMeters
		prevScore = b.Score
	}

	if c.Workers < 0 {
		errs = append(errs, "workers must be >= 0")
	}

	if len(errs) > 0 {
		return eris.Errorf("linkage: config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
