package fetcher

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type venueRecord struct {
	PlaceID string  `json:"place_id"`
	Name    string  `json:"name"`
	Rating  float64 `json:"rating"`
}

func TestDecodeJSONArray_Venues(t *testing.T) {
	input := `[{"place_id":"a","name":"The Crown","rating":4.2},{"place_id":"b","name":"The Anchor"}]`
	ch, errCh := DecodeJSONArray[venueRecord](context.Background(), strings.NewReader(input))

	var records []venueRecord
	for rec := range ch {
		records = append(records, rec)
	}
	for err := range errCh {
		require.NoError(t, err)
	}

	require.Len(t, records, 2)
	assert.Equal(t, "The Crown", records[0].Name)
	assert.InDelta(t, 4.2, records[0].Rating, 1e-9)
	assert.Zero(t, records[1].Rating)
}

func TestDecodeJSONArray_EmptyArray(t *testing.T) {
	ch, errCh := DecodeJSONArray[venueRecord](context.Background(), strings.NewReader("[]"))

	var records []venueRecord
	for rec := range ch {
		records = append(records, rec)
	}
	for err := range errCh {
		require.NoError(t, err)
	}
	assert.Empty(t, records)
}

func TestDecodeJSONArray_NotAnArray(t *testing.T) {
	ch, errCh := DecodeJSONArray[venueRecord](context.Background(), strings.NewReader(`{"place_id":"a"}`))

	for range ch {
	}
	var gotErr error
	for err := range errCh {
		if err != nil {
			gotErr = err
		}
	}
	require.Error(t, gotErr)
	assert.Contains(t, gotErr.Error(), "expected '['")
}
