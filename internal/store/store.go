package store

import (
	"context"

	"github.com/ldnfood/linkage-cli/internal/model"
)

// Store defines the persistence interface for the linkage pipeline: the two
// source snapshots, match runs, and per-probe match results.
//
// List methods return records in insertion order, so a persisted snapshot
// replays through the matching engine in the same order it was scanned.
type Store interface {
	// Snapshots
	SaveVenues(ctx context.Context, venues []model.Venue) (int, error)
	ListVenues(ctx context.Context) ([]model.Venue, error)
	SaveEstablishments(ctx context.Context, ests []model.Establishment) (int, error)
	ListEstablishments(ctx context.Context) ([]model.Establishment, error)

	// Match runs
	CreateMatchRun(ctx context.Context) (*model.MatchRun, error)
	CompleteMatchRun(ctx context.Context, runID string, summary *model.RunSummary) error
	FailMatchRun(ctx context.Context, runID string) error
	GetMatchRun(ctx context.Context, runID string) (*model.MatchRun, error)
	LatestMatchRun(ctx context.Context) (*model.MatchRun, error)
	SaveMatchResults(ctx context.Context, runID string, results []model.MatchResult) error
	ListMatchResults(ctx context.Context, runID string) ([]model.MatchResult, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
