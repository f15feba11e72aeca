package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
	"gopkg.in/yaml.v3"

	"github.com/ldnfood/linkage-cli/internal/ingest"
	"github.com/ldnfood/linkage-cli/internal/model"
)

func exportFixture() ([]model.Venue, []model.MatchResult) {
	hygiene, structural := 5, 10
	distance := 42.5
	venues := []model.Venue{
		{
			PlaceID:    "place-1",
			Name:       "The Crown & Anchor",
			Address:    "12 High St, London",
			Coord:      &model.Coord{Lat: 51.5101, Lng: -0.1341},
			Rating:     4.5,
			NumReviews: 212,
			FoodTypes:  "british, pub",
			PriceLevel: "PRICE_LEVEL_MODERATE",
		},
		{PlaceID: "place-2", Name: "Noodle Bar"},
	}
	results := []model.MatchResult{
		{
			ProbeID: "place-1",
			Candidate: &model.Establishment{
				FHRSID:          "100001",
				BusinessName:    "Crown and Anchor",
				BusinessType:    "Pub/bar/nightclub",
				Postcode:        "SW1A 1AA",
				RatingValue:     "5",
				RatingDate:      "2025-03-12",
				LocalAuthority:  "Westminster",
				HygieneScore:    &hygiene,
				StructuralScore: &structural,
			},
			CombinedScore:  0.93,
			NameScore:      0.96,
			DistanceScore:  0.91,
			PostcodeScore:  1,
			DistanceMeters: &distance,
		},
		{ProbeID: "place-2", CombinedScore: 0.31},
	}
	return venues, results
}

func TestWriteCSV(t *testing.T) {
	venues, results := exportFixture()

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, venues, results, boundarySet(t)))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, exportColumns, rows[0])

	matched := rows[1]
	assert.Equal(t, "place-1", matched[0])
	assert.Equal(t, "The Crown & Anchor", matched[1])
	assert.Equal(t, "51.5101", matched[3])
	assert.Equal(t, "Westminster", matched[9])
	assert.Equal(t, "100001", matched[10])
	assert.Equal(t, "SW1A 1AA", matched[13])
	assert.Equal(t, "5", matched[17])
	assert.Equal(t, "", matched[19]) // confidence score absent
	assert.Equal(t, "0.93", matched[20])
	assert.Equal(t, "42.5", matched[24])

	unmatched := rows[2]
	assert.Equal(t, "place-2", unmatched[0])
	assert.Equal(t, "", unmatched[3])  // no coordinates
	assert.Equal(t, "", unmatched[9])  // no borough
	assert.Equal(t, "", unmatched[10]) // no candidate
	assert.Equal(t, "0.31", unmatched[20])
	assert.Equal(t, "", unmatched[24])
}

// Rows are joined by probe id, so a reshuffled venue snapshot still exports
// each venue with its own establishment and scores.
func TestWriteCSV_VenueOrderIndependent(t *testing.T) {
	venues, results := exportFixture()
	venues[0], venues[1] = venues[1], venues[0]

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, venues, results, nil))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "place-1", rows[1][0])
	assert.Equal(t, "The Crown & Anchor", rows[1][1])
	assert.Equal(t, "100001", rows[1][10])
	assert.Equal(t, "place-2", rows[2][0])
	assert.Equal(t, "", rows[2][10])
}

func TestWriteCSV_MissingVenue(t *testing.T) {
	venues, results := exportFixture()

	err := WriteCSV(&bytes.Buffer{}, venues[:1], results, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no stored venue for probe place-2")
}

// A CSV export feeds straight back into the venue importer: the leading
// columns match the import layout and the enrichment columns are ignored.
func TestWriteCSV_Reimport(t *testing.T) {
	venues, results := exportFixture()

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, venues, results, nil))

	path := filepath.Join(t.TempDir(), "export.csv")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	imported, err := ingest.Venues(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, imported, 2)
	assert.Equal(t, venues[0], imported[0])
	assert.Equal(t, venues[1], imported[1])
}

func TestWriteXLSX(t *testing.T) {
	venues, results := exportFixture()
	path := filepath.Join(t.TempDir(), "matches.xlsx")

	require.NoError(t, WriteXLSX(path, venues, results, boundarySet(t)))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, f.Sheets, 1)
	sheet := f.Sheets[0]
	assert.Equal(t, "matches", sheet.Name)
	require.Len(t, sheet.Rows, 3)
	assert.Equal(t, "place_id", sheet.Rows[0].Cells[0].String())
	assert.Equal(t, "The Crown & Anchor", sheet.Rows[1].Cells[1].String())
	assert.Equal(t, "100001", sheet.Rows[1].Cells[10].String())
	assert.Equal(t, "", sheet.Rows[2].Cells[10].String())
}

func TestWriteYAML(t *testing.T) {
	summary := model.RunSummary{Probes: 4, Candidates: 250, Matched: 3, HighConfidence: 2, MatchRate: 0.75}
	boroughs := []BoroughStat{
		{Borough: "Westminster", Venues: 2, Matched: 1, MatchRate: 0.5},
		{Borough: "", Venues: 2, Matched: 2, MatchRate: 1},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteYAML(&buf, summary, boroughs))

	var decoded yamlReport
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, summary, decoded.Summary)
	assert.Equal(t, boroughs, decoded.Boroughs)
}
