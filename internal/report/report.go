// Package report turns a completed match run into summaries and flat exports:
// an aggregate run summary, a per-borough breakdown, and CSV/XLSX files that
// join each venue to its accepted FHRS establishment.
package report

import (
	"sort"

	"github.com/ldnfood/linkage-cli/internal/districts"
	"github.com/ldnfood/linkage-cli/internal/model"
)

// Summarize aggregates one result per probe into run-level counts.
// candidates is the size of the establishment collection the run matched
// against; highConfidence is the combined-score floor for the high-confidence
// count, on the same scale as the acceptance floor.
func Summarize(results []model.MatchResult, candidates int, highConfidence float64) model.RunSummary {
	summary := model.RunSummary{
		Probes:     len(results),
		Candidates: candidates,
	}
	for _, r := range results {
		if !r.Matched() {
			continue
		}
		summary.Matched++
		if r.CombinedScore >= highConfidence {
			summary.HighConfidence++
		}
	}
	if summary.Probes > 0 {
		summary.MatchRate = float64(summary.Matched) / float64(summary.Probes)
	}
	return summary
}

// BoroughStat is the match outcome for the venues inside one borough.
// Venues whose coordinates fall outside every boundary (or that have no
// coordinates at all) are grouped under an empty borough name.
type BoroughStat struct {
	Borough   string  `yaml:"borough" json:"borough"`
	Venues    int     `yaml:"venues" json:"venues"`
	Matched   int     `yaml:"matched" json:"matched"`
	MatchRate float64 `yaml:"match_rate" json:"match_rate"`
}

// ByBorough groups results by the borough containing each venue. Results are
// joined to venues by probe id; results whose venue is no longer stored fall
// into the unnamed group. A nil boundary set yields a single unnamed group.
// Groups are sorted by borough name, the unnamed group last.
func ByBorough(venues []model.Venue, results []model.MatchResult, set *districts.Set) []BoroughStat {
	byID := venuesByID(venues)
	stats := make(map[string]*BoroughStat)
	for _, r := range results {
		var borough string
		if v, ok := byID[r.ProbeID]; ok && set != nil {
			borough = set.NameFor(v.Coord)
		}
		st, ok := stats[borough]
		if !ok {
			st = &BoroughStat{Borough: borough}
			stats[borough] = st
		}
		st.Venues++
		if r.Matched() {
			st.Matched++
		}
	}

	out := make([]BoroughStat, 0, len(stats))
	for _, st := range stats {
		if st.Venues > 0 {
			st.MatchRate = float64(st.Matched) / float64(st.Venues)
		}
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool {
		if (out[i].Borough == "") != (out[j].Borough == "") {
			return out[j].Borough == ""
		}
		return out[i].Borough < out[j].Borough
	})
	return out
}
