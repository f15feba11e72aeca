package model

import "time"

// RunStatus is the lifecycle state of a match run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// MatchRun records one execution of the matching engine over the stored
// snapshots. Summary is populated when the run completes.
type MatchRun struct {
	ID          string      `json:"id"`
	Status      RunStatus   `json:"status"`
	Summary     *RunSummary `json:"summary,omitempty"`
	StartedAt   time.Time   `json:"started_at"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
}

// RunSummary aggregates the outcome of a match run.
type RunSummary struct {
	Probes         int     `json:"probes" yaml:"probes"`
	Candidates     int     `json:"candidates" yaml:"candidates"`
	Matched        int     `json:"matched" yaml:"matched"`
	HighConfidence int     `json:"high_confidence" yaml:"high_confidence"`
	MatchRate      float64 `json:"match_rate" yaml:"match_rate"`
}
