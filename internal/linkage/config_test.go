package linkage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ldnfood/linkage-cli/internal/config"
)

func TestDefaultConfigIsValid(t *testing.T) {
	require.NoError(t, ValidateConfig(DefaultConfig()))
}

func TestWeightSum(t *testing.T) {
	assert.InDelta(t, 1.0, WeightSum(DefaultConfig()), 1e-9)
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.MatchConfig)
		wantErr string
	}{
		{"negative name weight", func(c *config.MatchConfig) { c.NameWeight = -0.1 }, "name_weight"},
		{"weights off total", func(c *config.MatchConfig) { c.NameWeight = 0.9 }, "weight_total"},
		{"zero weight total", func(c *config.MatchConfig) { c.WeightTotal = 0 }, "weight_total must be > 0"},
		{"zero max distance", func(c *config.MatchConfig) { c.MaxDistanceMeters = 0 }, "max_distance_meters"},
		{"floor above total", func(c *config.MatchConfig) { c.MinMatchScore = 1.5 }, "min_match_score"},
		{"negative floor", func(c *config.MatchConfig) { c.MinMatchScore = -0.1 }, "min_match_score"},
		{"empty blend", func(c *config.MatchConfig) { c.LevWeight, c.JaroWinklerWeight = 0, 0 }, "blend"},
		{
			"buckets not increasing",
			func(c *config.MatchConfig) { c.DistanceBuckets[1].UpToMeters = 10 },
			"strictly increasing",
		},
		{
			"bucket scores increasing",
			func(c *config.MatchConfig) { c.DistanceBuckets[1].Score = 1.0; c.DistanceBuckets[0].Score = 0.5 },
			"non-increasing",
		},
		{
			"bucket beyond cutoff",
			func(c *config.MatchConfig) { c.DistanceBuckets[3].UpToMeters = 900 },
			"exceeds max_distance_meters",
		},
		{"bucket score out of range", func(c *config.MatchConfig) { c.DistanceBuckets[0].Score = 1.2 }, "in [0,1]"},
		{"negative workers", func(c *config.MatchConfig) { c.Workers = -1 }, "workers"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := ValidateConfig(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateConfigLooseScale(t *testing.T) {
	// Callers may calibrate to a non-unit total, e.g. an additive two-signal
	// scale with a 1.4 floor.
	cfg := DefaultConfig()
	cfg.NameWeight, cfg.DistanceWeight, cfg.PostcodeWeight = 1.0, 1.0, 0.0
	cfg.WeightTotal = 2.0
	cfg.MinMatchScore = 1.4
	require.NoError(t, ValidateConfig(cfg))
}

func TestDefaultBucketsTrackCutoff(t *testing.T) {
	buckets := DefaultBuckets(800)
	require.Len(t, buckets, 4)
	assert.InDelta(t, 800, buckets[3].UpToMeters, 0.001)
	assert.InDelta(t, 0.2, buckets[3].Score, 0.001)
}

func TestDefaultBucketsShortCutoff(t *testing.T) {
	// A cutoff below the fixed breakpoints must still yield a valid ladder.
	buckets := DefaultBuckets(200)
	require.Len(t, buckets, 3)
	assert.InDelta(t, 200, buckets[2].UpToMeters, 0.001)
	assert.InDelta(t, 0.4, buckets[2].Score, 0.001)

	buckets = DefaultBuckets(30)
	require.Len(t, buckets, 1)
	assert.InDelta(t, 30, buckets[0].UpToMeters, 0.001)
	assert.InDelta(t, 1.0, buckets[0].Score, 0.001)
}

func TestNewFillsBucketsForShortCutoff(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxDistanceMeters = 200
	cfg.DistanceBuckets = nil
	_, err := New(cfg)
	require.NoError(t, err)
}
