package linkage

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/xrash/smetrics"

	"github.com/ldnfood/linkage-cli/internal/config"
)

// nameScore returns the similarity between two normalized name keys in [0,1]:
// 1.0 for identical strings, 0.0 for completely dissimilar or when either key
// is empty. Both keys are token-sorted first so word order carries no weight,
// then scored with an edit-distance ratio, optionally blended with
// Jaro-Winkler per the config.
func nameScore(a, b string, cfg config.MatchConfig) float64 {
	if a == "" || b == "" {
		return 0
	}
	a, b = tokenSort(a), tokenSort(b)
	if a == b {
		return 1
	}

	blend := cfg.LevWeight + cfg.JaroWinklerWeight
	var s float64
	if cfg.LevWeight > 0 {
		s += cfg.LevWeight * levRatio(a, b)
	}
	if cfg.JaroWinklerWeight > 0 {
		s += cfg.JaroWinklerWeight * smetrics.JaroWinkler(a, b, 0.7, 4)
	}
	return s / blend
}

// tokenSort rewrites a name key with its tokens in sorted order.
func tokenSort(s string) string {
	tokens := strings.Fields(s)
	if len(tokens) < 2 {
		return s
	}
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

// levRatio is the normalized Levenshtein similarity: 1 - distance/maxLen.
func levRatio(a, b string) float64 {
	dist := levenshtein.ComputeDistance(a, b)
	maxLen := len([]rune(a))
	if n := len([]rune(b)); n > maxLen {
		maxLen = n
	}
	if maxLen == 0 {
		return 1
	}
	return 1 - float64(dist)/float64(maxLen)
}

// distanceScore maps an exact great-circle distance onto the configured
// piecewise-constant buckets. A nil distance (either side missing
// coordinates) scores 0, as does any distance beyond the last breakpoint.
func distanceScore(meters *float64, cfg config.MatchConfig) float64 {
	if meters == nil {
		return 0
	}
	for _, b := range cfg.DistanceBuckets {
		if *meters <= b.UpToMeters {
			return b.Score
		}
	}
	return 0
}

// postcodeScore is the binary corroboration signal: 1.0 when the candidate's
// normalized postcode appears as a literal substring of the probe's
// normalized address, 0.0 otherwise or when either side is empty.
func postcodeScore(postcodeKey, addressKey string) float64 {
	if postcodeKey == "" || addressKey == "" {
		return 0
	}
	if strings.Contains(addressKey, postcodeKey) {
		return 1
	}
	return 0
}

// combine fuses the three signals under the configured weights.
func combine(name, dist, postcode float64, cfg config.MatchConfig) float64 {
	return cfg.NameWeight*name + cfg.DistanceWeight*dist + cfg.PostcodeWeight*postcode
}
