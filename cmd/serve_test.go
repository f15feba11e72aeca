package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ldnfood/linkage-cli/internal/model"
	"github.com/ldnfood/linkage-cli/internal/store"
)

func newServeStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "serve.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func TestHealthEndpoint(t *testing.T) {
	mux := buildMux(newServeStore(t))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")

	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestLatestRun_Empty(t *testing.T) {
	mux := buildMux(newServeStore(t))

	req := httptest.NewRequest(http.MethodGet, "/runs/latest", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRunEndpoints(t *testing.T) {
	ctx := context.Background()
	st := newServeStore(t)

	run, err := st.CreateMatchRun(ctx)
	require.NoError(t, err)
	results := []model.MatchResult{
		{
			ProbeID:       "place-1",
			Candidate:     &model.Establishment{FHRSID: "100001", BusinessName: "Crown and Anchor"},
			CombinedScore: 0.93,
		},
		{ProbeID: "place-2", CombinedScore: 0.31},
	}
	require.NoError(t, st.SaveMatchResults(ctx, run.ID, results))
	summary := model.RunSummary{Probes: 2, Candidates: 10, Matched: 1, HighConfidence: 1, MatchRate: 0.5}
	require.NoError(t, st.CompleteMatchRun(ctx, run.ID, &summary))

	mux := buildMux(st)

	t.Run("latest", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/runs/latest", nil)
		rr := httptest.NewRecorder()
		mux.ServeHTTP(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		var got model.MatchRun
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
		assert.Equal(t, run.ID, got.ID)
		assert.Equal(t, model.RunStatusComplete, got.Status)
		require.NotNil(t, got.Summary)
		assert.Equal(t, summary, *got.Summary)
	})

	t.Run("by id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/runs/"+run.ID, nil)
		rr := httptest.NewRecorder()
		mux.ServeHTTP(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		var got model.MatchRun
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
		assert.Equal(t, run.ID, got.ID)
	})

	t.Run("results", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/runs/"+run.ID+"/results", nil)
		rr := httptest.NewRecorder()
		mux.ServeHTTP(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		var got []model.MatchResult
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
		require.Len(t, got, 2)
		assert.Equal(t, "place-1", got[0].ProbeID)
		require.NotNil(t, got[0].Candidate)
		assert.Equal(t, "100001", got[0].Candidate.FHRSID)
		assert.Nil(t, got[1].Candidate)
	})

	t.Run("unknown run", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/runs/no-such-run/results", nil)
		rr := httptest.NewRecorder()
		mux.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestCommandMetadata(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"fetch", "import", "match", "report", "districts", "serve"} {
		assert.True(t, names[want], "command %q not registered", want)
	}
	assert.Equal(t, "serve", serveCmd.Use)
	assert.Equal(t, "match", matchCmd.Use)
}
