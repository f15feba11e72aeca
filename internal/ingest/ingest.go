// Package ingest loads source snapshots from local files: venue exports in
// CSV, JSON, or XLSX, and FHRS open-data files in XML (optionally zipped).
package ingest

import (
	"context"
	"encoding/xml"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ldnfood/linkage-cli/internal/fetcher"
	"github.com/ldnfood/linkage-cli/internal/model"
)

// Venues reads a venue snapshot from path. The format is chosen by file
// extension: .csv, .json (array of venue objects), or .xlsx.
func Venues(ctx context.Context, path string) ([]model.Venue, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return venuesFromCSV(ctx, path)
	case ".json":
		return venuesFromJSON(ctx, path)
	case ".xlsx":
		return venuesFromXLSX(path)
	default:
		return nil, eris.Errorf("ingest: unsupported venue file %q", path)
	}
}

// Establishments reads an FHRS snapshot from path. Supported formats are the
// FHRS open-data XML file (.xml) and a .zip containing one.
func Establishments(ctx context.Context, path string) ([]model.Establishment, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xml":
		return establishmentsFromXML(ctx, path)
	case ".zip":
		dir, err := os.MkdirTemp("", "fhrs-opendata-*")
		if err != nil {
			return nil, eris.Wrap(err, "ingest: temp dir")
		}
		defer os.RemoveAll(dir) //nolint:errcheck
		extracted, err := fetcher.ExtractZIPSingle(path, dir)
		if err != nil {
			return nil, eris.Wrapf(err, "ingest: extract %s", path)
		}
		return establishmentsFromXML(ctx, extracted)
	default:
		return nil, eris.Errorf("ingest: unsupported establishment file %q", path)
	}
}

// venueColumns is the header the CSV importer expects, matching the columns
// the report exporter writes.
var venueColumns = []string{"place_id", "name", "address", "lat", "lng", "rating", "num_reviews", "food_types", "price_level"}

func venuesFromCSV(ctx context.Context, path string) ([]model.Venue, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	headerCh := make(chan []string, 1)
	rowCh, errCh := fetcher.StreamCSV(ctx, f, fetcher.CSVOptions{
		HasHeader: true,
		HeaderCh:  headerCh,
		TrimSpace: true,
	})

	var venues []model.Venue
	skipped := 0
	for row := range rowCh {
		v, ok := venueFromRow(row)
		if !ok {
			skipped++
			continue
		}
		venues = append(venues, v)
	}
	for err := range errCh {
		if err != nil {
			return nil, eris.Wrapf(err, "ingest: read %s", path)
		}
	}

	var header []string
	select {
	case header = <-headerCh:
	default:
		return nil, eris.Errorf("ingest: %s has no header row", path)
	}
	if err := checkHeader(header, venueColumns[:2]); err != nil {
		return nil, eris.Wrapf(err, "ingest: %s", path)
	}
	if skipped > 0 {
		zap.L().Warn("skipped venue rows without id or name",
			zap.String("path", path),
			zap.Int("skipped", skipped))
	}
	return venues, nil
}

// venueFromRow maps one CSV row in venueColumns order. Rows missing an id or
// name are rejected; every other field is optional.
func venueFromRow(row []string) (model.Venue, bool) {
	field := func(i int) string {
		if i < len(row) {
			return row[i]
		}
		return ""
	}
	v := model.Venue{
		PlaceID:    field(0),
		Name:       field(1),
		Address:    field(2),
		Coord:      model.ParseCoord(field(3), field(4)),
		FoodTypes:  field(7),
		PriceLevel: field(8),
	}
	if v.PlaceID == "" || v.Name == "" {
		return model.Venue{}, false
	}
	if r, err := strconv.ParseFloat(field(5), 64); err == nil {
		v.Rating = r
	}
	if n, err := strconv.Atoi(field(6)); err == nil {
		v.NumReviews = n
	}
	return v, true
}

func checkHeader(header, want []string) error {
	if len(header) < len(want) {
		return eris.Errorf("header has %d columns, want at least %d", len(header), len(want))
	}
	for i, col := range want {
		if !strings.EqualFold(header[i], col) {
			return eris.Errorf("header column %d is %q, want %q", i, header[i], col)
		}
	}
	return nil
}

func venuesFromJSON(ctx context.Context, path string) ([]model.Venue, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	ch, errCh := fetcher.DecodeJSONArray[model.Venue](ctx, f)

	var venues []model.Venue
	for v := range ch {
		if v.PlaceID == "" || v.Name == "" {
			continue
		}
		venues = append(venues, v)
	}
	for err := range errCh {
		if err != nil {
			return nil, eris.Wrapf(err, "ingest: read %s", path)
		}
	}
	return venues, nil
}

func venuesFromXLSX(path string) ([]model.Venue, error) {
	rows, err := fetcher.ReadXLSX(path, fetcher.XLSXOptions{SkipRows: 1})
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: read %s", path)
	}

	var venues []model.Venue
	for _, row := range rows {
		if v, ok := venueFromRow(row); ok {
			venues = append(venues, v)
		}
	}
	return venues, nil
}

// fhrsDetail is one EstablishmentDetail element of the FHRS open-data XML.
type fhrsDetail struct {
	XMLName        xml.Name `xml:"EstablishmentDetail"`
	FHRSID         int64    `xml:"FHRSID"`
	BusinessName   string   `xml:"BusinessName"`
	BusinessType   string   `xml:"BusinessType"`
	PostCode       string   `xml:"PostCode"`
	RatingValue    string   `xml:"RatingValue"`
	RatingDate     string   `xml:"RatingDate"`
	LocalAuthority string   `xml:"LocalAuthorityName"`
	Scores         struct {
		Hygiene                *int `xml:"Hygiene"`
		Structural             *int `xml:"Structural"`
		ConfidenceInManagement *int `xml:"ConfidenceInManagement"`
	} `xml:"Scores"`
	Geocode struct {
		Latitude  string `xml:"Latitude"`
		Longitude string `xml:"Longitude"`
	} `xml:"Geocode"`
}

func establishmentsFromXML(ctx context.Context, path string) ([]model.Establishment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	ch, errCh := fetcher.StreamXML[fhrsDetail](ctx, f, "EstablishmentDetail")

	var ests []model.Establishment
	for d := range ch {
		if d.FHRSID == 0 {
			continue
		}
		ests = append(ests, model.Establishment{
			FHRSID:          strconv.FormatInt(d.FHRSID, 10),
			BusinessName:    d.BusinessName,
			BusinessType:    d.BusinessType,
			Postcode:        d.PostCode,
			Coord:           model.ParseCoord(d.Geocode.Latitude, d.Geocode.Longitude),
			RatingValue:     d.RatingValue,
			RatingDate:      d.RatingDate,
			LocalAuthority:  d.LocalAuthority,
			HygieneScore:    d.Scores.Hygiene,
			StructuralScore: d.Scores.Structural,
			ConfidenceScore: d.Scores.ConfidenceInManagement,
		})
	}
	for err := range errCh {
		if err != nil {
			return nil, eris.Wrapf(err, "ingest: read %s", path)
		}
	}
	return ests, nil
}
