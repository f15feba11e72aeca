package scan

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ldnfood/linkage-cli/internal/config"
	"github.com/ldnfood/linkage-cli/internal/geospatial"
	"github.com/ldnfood/linkage-cli/internal/model"
	"github.com/ldnfood/linkage-cli/pkg/fhrs"
	"github.com/ldnfood/linkage-cli/pkg/places"
)

// includedTypes restricts the directory scan to food-service venues.
var includedTypes = []string{"restaurant"}

func area(cfg config.ScanConfig) geospatial.BBox {
	return geospatial.BBox{
		MinLat: cfg.MinLat,
		MinLng: cfg.MinLng,
		MaxLat: cfg.MaxLat,
		MaxLng: cfg.MaxLng,
	}
}

func newLimiter(perSecond float64) *rate.Limiter {
	if perSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(perSecond), 1)
}

// PlacesScanner sweeps the scan grid against the Places API and accumulates a
// deduplicated venue snapshot.
type PlacesScanner struct {
	client  places.Client
	cfg     config.Config
	limiter *rate.Limiter
	log     *zap.Logger
}

func NewPlacesScanner(client places.Client, cfg config.Config) *PlacesScanner {
	return &PlacesScanner{
		client:  client,
		cfg:     cfg,
		limiter: newLimiter(cfg.Scan.RateLimit),
		log:     zap.L().With(zap.String("component", "scan.places")),
	}
}

// Run scans every grid cell in row-major order and returns the venues seen,
// deduplicated by place id in first-seen order. Individual cell failures are
// logged and skipped; Run fails only when the context is cancelled or every
// cell errored.
func (s *PlacesScanner) Run(ctx context.Context) ([]model.Venue, error) {
	cells := Grid(area(s.cfg.Scan), s.cfg.Scan.Rows, s.cfg.Scan.Cols)
	if len(cells) == 0 {
		return nil, eris.New("scan: empty grid")
	}

	seen := make(map[string]bool)
	var venues []model.Venue
	failures := 0

	for _, cell := range cells {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "scan: rate limiter wait")
		}

		resp, err := s.client.SearchNearby(ctx, places.SearchNearbyRequest{
			Lat:            cell.Lat,
			Lng:            cell.Lng,
			RadiusMeters:   s.cfg.Places.RadiusMeters,
			IncludedTypes:  includedTypes,
			MaxResultCount: s.cfg.Places.MaxResults,
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, eris.Wrap(err, "scan: places search aborted")
			}
			failures++
			s.log.Warn("cell search failed",
				zap.Int("row", cell.Row),
				zap.Int("col", cell.Col),
				zap.Error(err))
			continue
		}

		added := 0
		for _, p := range resp.Places {
			if p.ID == "" || seen[p.ID] {
				continue
			}
			seen[p.ID] = true
			venues = append(venues, VenueFromPlace(p))
			added++
		}
		s.log.Debug("cell scanned",
			zap.Int("row", cell.Row),
			zap.Int("col", cell.Col),
			zap.Int("returned", len(resp.Places)),
			zap.Int("new", added),
			zap.Int("total", len(venues)))

		if s.cfg.Scan.TargetPlaces > 0 && len(venues) >= s.cfg.Scan.TargetPlaces {
			s.log.Info("target reached, stopping scan early",
				zap.Int("target", s.cfg.Scan.TargetPlaces),
				zap.Int("venues", len(venues)))
			break
		}
	}

	if failures == len(cells) {
		return nil, eris.Errorf("scan: all %d cells failed", len(cells))
	}
	s.log.Info("places scan complete",
		zap.Int("cells", len(cells)),
		zap.Int("failed_cells", failures),
		zap.Int("venues", len(venues)))
	return venues, nil
}

// FHRSScanner sweeps the scan grid against the FHRS API and accumulates a
// deduplicated establishment snapshot.
type FHRSScanner struct {
	client  fhrs.Client
	cfg     config.Config
	limiter *rate.Limiter
	log     *zap.Logger
}

func NewFHRSScanner(client fhrs.Client, cfg config.Config) *FHRSScanner {
	return &FHRSScanner{
		client:  client,
		cfg:     cfg,
		limiter: newLimiter(cfg.Scan.RateLimit),
		log:     zap.L().With(zap.String("component", "scan.fhrs")),
	}
}

// Run scans every grid cell in row-major order and returns the establishments
// seen, deduplicated by FHRS id in first-seen order.
func (s *FHRSScanner) Run(ctx context.Context) ([]model.Establishment, error) {
	cells := Grid(area(s.cfg.Scan), s.cfg.Scan.Rows, s.cfg.Scan.Cols)
	if len(cells) == 0 {
		return nil, eris.New("scan: empty grid")
	}

	seen := make(map[int64]bool)
	var ests []model.Establishment
	failures := 0

	for _, cell := range cells {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "scan: rate limiter wait")
		}

		page, err := s.client.SearchAll(ctx, fhrs.SearchRequest{
			Lat:           cell.Lat,
			Lng:           cell.Lng,
			MaxDistMiles:  s.cfg.FHRS.RadiusMiles,
			CountryID:     s.cfg.FHRS.CountryID,
			SchemeTypeKey: "FHRS",
			PageSize:      s.cfg.FHRS.PageSize,
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, eris.Wrap(err, "scan: fhrs search aborted")
			}
			failures++
			s.log.Warn("cell search failed",
				zap.Int("row", cell.Row),
				zap.Int("col", cell.Col),
				zap.Error(err))
			continue
		}

		added := 0
		for _, e := range page {
			if e.FHRSID == 0 || seen[e.FHRSID] {
				continue
			}
			seen[e.FHRSID] = true
			ests = append(ests, EstablishmentFromFHRS(e))
			added++
		}
		s.log.Debug("cell scanned",
			zap.Int("row", cell.Row),
			zap.Int("col", cell.Col),
			zap.Int("returned", len(page)),
			zap.Int("new", added),
			zap.Int("total", len(ests)))
	}

	if failures == len(cells) {
		return nil, eris.Errorf("scan: all %d cells failed", len(cells))
	}
	s.log.Info("fhrs scan complete",
		zap.Int("cells", len(cells)),
		zap.Int("failed_cells", failures),
		zap.Int("establishments", len(ests)))
	return ests, nil
}
