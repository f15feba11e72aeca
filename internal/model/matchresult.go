package model

// MatchResult is the outcome of linking one venue against the establishment
// collection. Exactly one is produced per input venue, in input order.
//
// Candidate is non-nil if and only if CombinedScore cleared the acceptance
// floor and the winning candidate was within the distance cutoff. When no
// candidate was accepted, CombinedScore still carries the best score seen
// (zero if nothing survived pruning) for diagnostics.
type MatchResult struct {
	ProbeID       string         `json:"probe_id"`
	Candidate     *Establishment `json:"candidate,omitempty"`
	CombinedScore float64        `json:"combined_score"`
	NameScore     float64        `json:"name_score"`
	DistanceScore float64        `json:"distance_score"`
	PostcodeScore float64        `json:"postcode_score"`

	// DistanceMeters is the exact great-circle distance to the candidate,
	// nil when either side has no coordinates.
	DistanceMeters *float64 `json:"distance_meters,omitempty"`
}

// Matched reports whether a candidate was accepted for this venue.
func (r MatchResult) Matched() bool {
	return r.Candidate != nil
}
