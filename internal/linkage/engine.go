package linkage

import (
	"context"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ldnfood/linkage-cli/internal/config"
	"github.com/ldnfood/linkage-cli/internal/geospatial"
	"github.com/ldnfood/linkage-cli/internal/model"
	"github.com/ldnfood/linkage-cli/internal/normalize"
)

// Engine links venues to establishments. It is a pure batch function over two
// immutable snapshots; no state persists between runs.
type Engine struct {
	cfg config.MatchConfig
}

// probe is a venue with its identifying fields normalized once up front.
type probe struct {
	venue      *model.Venue
	nameKey    string
	addressKey string
}

// candidate is an establishment with its identifying fields normalized once
// up front.
type candidate struct {
	est         *model.Establishment
	nameKey     string
	postcodeKey string
}

// New creates an Engine, filling in default distance buckets when none are
// configured and rejecting an invalid configuration before any record is
// processed.
func New(cfg config.MatchConfig) (*Engine, error) {
	if len(cfg.DistanceBuckets) == 0 {
		cfg.DistanceBuckets = DefaultBuckets(cfg.MaxDistanceMeters)
	}
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Engine{cfg: cfg}, nil
}

// Run finds, for every venue, the single best establishment under the
// combined name/distance/postcode score, or records that none qualified.
// Results are returned in venue input order regardless of internal
// parallelism. Per-record data-quality problems never fail the batch;
// only context cancellation aborts it, checked between probes.
func (e *Engine) Run(ctx context.Context, venues []model.Venue, establishments []model.Establishment) ([]model.MatchResult, error) {
	log := zap.L().With(zap.String("component", "linkage.engine"))

	probes := make([]probe, len(venues))
	for i := range venues {
		probes[i] = probe{
			venue:      &venues[i],
			nameKey:    normalize.Name(venues[i].Name),
			addressKey: normalize.Address(venues[i].Address),
		}
	}

	cands := make([]candidate, len(establishments))
	for i := range establishments {
		cands[i] = candidate{
			est:         &establishments[i],
			nameKey:     normalize.Name(establishments[i].BusinessName),
			postcodeKey: normalize.Postcode(establishments[i].Postcode),
		}
	}
	index := newCandidateIndex(cands)

	results := make([]model.MatchResult, len(probes))
	var matched atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Workers)

	for i := range probes {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = e.matchOne(probes[i], index)
			if results[i].Matched() {
				matched.Add(1)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "linkage: match batch aborted")
	}

	log.Info("match batch complete",
		zap.Int("probes", len(probes)),
		zap.Int("candidates", len(cands)),
		zap.Int64("matched", matched.Load()),
	)

	return results, nil
}

// matchOne scans the pruned candidate pool for the probe's best match.
func (e *Engine) matchOne(p probe, index *candidateIndex) model.MatchResult {
	pool := e.pool(p, index)

	result := model.MatchResult{ProbeID: p.venue.PlaceID}

	bestScore := -1.0
	var best *candidate
	var bestName, bestDist, bestPostcode float64
	var bestMeters *float64

	for _, idx := range pool {
		c := &index.all[idx]

		// Exact distance, when both sides are located.
		var meters *float64
		if p.venue.Coord != nil && c.est.Coord != nil {
			d := geospatial.Haversine(p.venue.Coord.Lat, p.venue.Coord.Lng, c.est.Coord.Lat, c.est.Coord.Lng)
			meters = &d
		}

		// The exact distance check is authoritative over the coarse window.
		if meters != nil && *meters > e.cfg.MaxDistanceMeters {
			continue
		}

		name := nameScore(p.nameKey, c.nameKey, e.cfg)
		dist := distanceScore(meters, e.cfg)
		postcode := postcodeScore(c.postcodeKey, p.addressKey)
		combined := combine(name, dist, postcode, e.cfg)

		// Strict > keeps the first-encountered candidate on ties.
		if combined > bestScore {
			bestScore = combined
			best = c
			bestName, bestDist, bestPostcode = name, dist, postcode
			bestMeters = meters
		}
	}

	if best == nil {
		// Nothing survived pruning or the distance cutoff.
		return result
	}

	result.CombinedScore = bestScore
	result.NameScore = bestName
	result.DistanceScore = bestDist
	result.PostcodeScore = bestPostcode
	result.DistanceMeters = bestMeters
	if bestScore >= e.cfg.MinMatchScore {
		result.Candidate = best.est
	}
	return result
}

// pool selects the candidate indices to score for a probe. A probe without
// coordinates gets the full collection; so does one whose pruning window
// degenerates. Correctness over speed.
func (e *Engine) pool(p probe, index *candidateIndex) []int {
	if p.venue.Coord == nil {
		return index.everything()
	}
	box, ok := geospatial.Window(p.venue.Coord.Lat, p.venue.Coord.Lng, e.cfg.MaxDistanceMeters)
	if !ok {
		return index.everything()
	}
	return index.within(box)
}
