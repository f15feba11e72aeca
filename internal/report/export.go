package report

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"gopkg.in/yaml.v3"

	"github.com/ldnfood/linkage-cli/internal/districts"
	"github.com/ldnfood/linkage-cli/internal/model"
)

// exportColumns is the flat export header. The leading venue columns mirror
// the CSV import layout so an export feeds straight back into the importer;
// the fhrs_* and score columns carry the enrichment.
var exportColumns = []string{
	"place_id", "name", "address", "lat", "lng", "rating", "num_reviews", "food_types", "price_level",
	"borough",
	"fhrs_id", "business_name", "business_type", "postcode",
	"rating_value", "rating_date", "local_authority",
	"hygiene_score", "structural_score", "confidence_score",
	"combined_score", "name_score", "distance_score", "postcode_score", "distance_meters",
}

// WriteCSV writes one row per venue joining it to its match result. venues and
// results are parallel slices in run order; a nil boundary set leaves the
// borough column empty.
func WriteCSV(w io.Writer, venues []model.Venue, results []model.MatchResult, set *districts.Set) error {
	rows, err := exportRows(venues, results, set)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(exportColumns); err != nil {
		return eris.Wrap(err, "report: write csv header")
	}
	for _, row := range rows {
		if err := cw.Write(row); err != nil {
			return eris.Wrap(err, "report: write csv row")
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return eris.Wrap(err, "report: flush csv")
	}
	return nil
}

// WriteXLSX writes the same flat export as WriteCSV to an xlsx workbook.
func WriteXLSX(path string, venues []model.Venue, results []model.MatchResult, set *districts.Set) error {
	rows, err := exportRows(venues, results, set)
	if err != nil {
		return err
	}

	f := xlsx.NewFile()
	sheet, err := f.AddSheet("matches")
	if err != nil {
		return eris.Wrap(err, "report: add sheet")
	}
	header := sheet.AddRow()
	for _, col := range exportColumns {
		header.AddCell().SetString(col)
	}
	for _, row := range rows {
		r := sheet.AddRow()
		for _, cell := range row {
			r.AddCell().SetString(cell)
		}
	}
	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "report: save %s", path)
	}
	return nil
}

// yamlReport is the document shape written by WriteYAML.
type yamlReport struct {
	Summary  model.RunSummary `yaml:"summary"`
	Boroughs []BoroughStat    `yaml:"boroughs,omitempty"`
}

// WriteYAML writes the run summary and optional borough breakdown as YAML.
func WriteYAML(w io.Writer, summary model.RunSummary, boroughs []BoroughStat) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(yamlReport{Summary: summary, Boroughs: boroughs}); err != nil {
		return eris.Wrap(err, "report: encode yaml")
	}
	if err := enc.Close(); err != nil {
		return eris.Wrap(err, "report: close yaml encoder")
	}
	return nil
}

// exportRows joins each result to its venue by probe id. Joining by position
// would silently attach the wrong establishment if the venue snapshot changed
// between the match run and the export.
func exportRows(venues []model.Venue, results []model.MatchResult, set *districts.Set) ([][]string, error) {
	byID := venuesByID(venues)
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		v, ok := byID[r.ProbeID]
		if !ok {
			return nil, eris.Errorf("report: no stored venue for probe %s; venue snapshot changed since the match run", r.ProbeID)
		}
		rows = append(rows, exportRow(*v, r, set))
	}
	return rows, nil
}

func venuesByID(venues []model.Venue) map[string]*model.Venue {
	m := make(map[string]*model.Venue, len(venues))
	for i := range venues {
		m[venues[i].PlaceID] = &venues[i]
	}
	return m
}

func exportRow(v model.Venue, r model.MatchResult, set *districts.Set) []string {
	var lat, lng string
	if v.Coord != nil {
		lat = formatFloat(v.Coord.Lat)
		lng = formatFloat(v.Coord.Lng)
	}
	var rating string
	if v.Rating != 0 {
		rating = formatFloat(v.Rating)
	}
	var numReviews string
	if v.NumReviews != 0 {
		numReviews = strconv.Itoa(v.NumReviews)
	}
	var borough string
	if set != nil {
		borough = set.NameFor(v.Coord)
	}

	row := []string{
		v.PlaceID, v.Name, v.Address, lat, lng, rating, numReviews, v.FoodTypes, v.PriceLevel,
		borough,
	}

	if c := r.Candidate; c != nil {
		row = append(row,
			c.FHRSID, c.BusinessName, c.BusinessType, c.Postcode,
			c.RatingValue, c.RatingDate, c.LocalAuthority,
			formatOptInt(c.HygieneScore), formatOptInt(c.StructuralScore), formatOptInt(c.ConfidenceScore),
		)
	} else {
		row = append(row, "", "", "", "", "", "", "", "", "", "")
	}

	row = append(row,
		formatFloat(r.CombinedScore),
		formatFloat(r.NameScore),
		formatFloat(r.DistanceScore),
		formatFloat(r.PostcodeScore),
		formatOptFloat(r.DistanceMeters),
	)
	return row
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func formatOptFloat(f *float64) string {
	if f == nil {
		return ""
	}
	return formatFloat(*f)
}

func formatOptInt(n *int) string {
	if n == nil {
		return ""
	}
	return strconv.Itoa(*n)
}
