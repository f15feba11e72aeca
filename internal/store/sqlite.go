package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/ldnfood/linkage-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

// Source records are stored as JSON documents keyed by source id. Re-importing
// an id overwrites the document but keeps the original rowid, so list order
// stays first-seen.
const sqliteMigration = `
CREATE TABLE IF NOT EXISTS venues (
	place_id    TEXT PRIMARY KEY,
	record      TEXT NOT NULL,
	imported_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS establishments (
	fhrs_id     TEXT PRIMARY KEY,
	record      TEXT NOT NULL,
	imported_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS match_runs (
	id           TEXT PRIMARY KEY,
	status       TEXT NOT NULL DEFAULT 'running',
	summary      TEXT,
	started_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	completed_at DATETIME
);

CREATE TABLE IF NOT EXISTS match_results (
	run_id          TEXT NOT NULL REFERENCES match_runs(id),
	probe_id        TEXT NOT NULL,
	candidate       TEXT,
	combined_score  REAL NOT NULL,
	name_score      REAL NOT NULL,
	distance_score  REAL NOT NULL,
	postcode_score  REAL NOT NULL,
	distance_meters REAL,
	PRIMARY KEY (run_id, probe_id)
);

CREATE INDEX IF NOT EXISTS idx_match_runs_started ON match_runs(started_at);
CREATE INDEX IF NOT EXISTS idx_match_results_run_id ON match_results(run_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveVenues(ctx context.Context, venues []model.Venue) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin save venues")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO venues (place_id, record, imported_at) VALUES (?, ?, ?)
		 ON CONFLICT (place_id) DO UPDATE SET record = excluded.record, imported_at = excluded.imported_at`,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare save venues")
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, v := range venues {
		record, err := json.Marshal(v)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: marshal venue %s", v.PlaceID)
		}
		if _, err := stmt.ExecContext(ctx, v.PlaceID, string(record), now); err != nil {
			return 0, eris.Wrapf(err, "sqlite: save venue %s", v.PlaceID)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit save venues")
	}
	return len(venues), nil
}

func (s *SQLiteStore) ListVenues(ctx context.Context) ([]model.Venue, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT record FROM venues ORDER BY rowid`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list venues")
	}
	defer rows.Close()

	var venues []model.Venue
	for rows.Next() {
		var record string
		if err := rows.Scan(&record); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan venue")
		}
		var v model.Venue
		if err := json.Unmarshal([]byte(record), &v); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal venue")
		}
		venues = append(venues, v)
	}
	return venues, eris.Wrap(rows.Err(), "sqlite: list venues iterate")
}

func (s *SQLiteStore) SaveEstablishments(ctx context.Context, ests []model.Establishment) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin save establishments")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO establishments (fhrs_id, record, imported_at) VALUES (?, ?, ?)
		 ON CONFLICT (fhrs_id) DO UPDATE SET record = excluded.record, imported_at = excluded.imported_at`,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare save establishments")
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, e := range ests {
		record, err := json.Marshal(e)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: marshal establishment %s", e.FHRSID)
		}
		if _, err := stmt.ExecContext(ctx, e.FHRSID, string(record), now); err != nil {
			return 0, eris.Wrapf(err, "sqlite: save establishment %s", e.FHRSID)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit save establishments")
	}
	return len(ests), nil
}

func (s *SQLiteStore) ListEstablishments(ctx context.Context) ([]model.Establishment, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT record FROM establishments ORDER BY rowid`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list establishments")
	}
	defer rows.Close()

	var ests []model.Establishment
	for rows.Next() {
		var record string
		if err := rows.Scan(&record); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan establishment")
		}
		var e model.Establishment
		if err := json.Unmarshal([]byte(record), &e); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal establishment")
		}
		ests = append(ests, e)
	}
	return ests, eris.Wrap(rows.Err(), "sqlite: list establishments iterate")
}

func (s *SQLiteStore) CreateMatchRun(ctx context.Context) (*model.MatchRun, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO match_runs (id, status, started_at) VALUES (?, ?, ?)`,
		id, string(model.RunStatusRunning), now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert match run")
	}

	return &model.MatchRun{
		ID:        id,
		Status:    model.RunStatusRunning,
		StartedAt: now,
	}, nil
}

func (s *SQLiteStore) CompleteMatchRun(ctx context.Context, runID string, summary *model.RunSummary) error {
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal summary")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE match_runs SET status = ?, summary = ?, completed_at = ? WHERE id = ?`,
		string(model.RunStatusComplete), string(summaryJSON), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete match run %s", runID)
	}
	return checkRowsAffected(res, "match_run", runID)
}

func (s *SQLiteStore) FailMatchRun(ctx context.Context, runID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE match_runs SET status = ?, completed_at = ? WHERE id = ?`,
		string(model.RunStatusFailed), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: fail match run %s", runID)
	}
	return checkRowsAffected(res, "match_run", runID)
}

func (s *SQLiteStore) GetMatchRun(ctx context.Context, runID string) (*model.MatchRun, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, status, summary, started_at, completed_at FROM match_runs WHERE id = ?`,
		runID,
	)
	return scanMatchRun(row)
}

func (s *SQLiteStore) LatestMatchRun(ctx context.Context) (*model.MatchRun, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, status, summary, started_at, completed_at FROM match_runs
		 ORDER BY started_at DESC, id DESC LIMIT 1`,
	)
	run, err := scanMatchRun(row)
	if err != nil && errors.Is(err, errRunNotFound) {
		return nil, nil
	}
	return run, err
}

func (s *SQLiteStore) SaveMatchResults(ctx context.Context, runID string, results []model.MatchResult) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin save results")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO match_results
		 (run_id, probe_id, candidate, combined_score, name_score, distance_score, postcode_score, distance_meters)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare save results")
	}
	defer stmt.Close()

	for _, r := range results {
		var candidate sql.NullString
		if r.Candidate != nil {
			b, err := json.Marshal(r.Candidate)
			if err != nil {
				return eris.Wrapf(err, "sqlite: marshal candidate for %s", r.ProbeID)
			}
			candidate = sql.NullString{String: string(b), Valid: true}
		}
		var meters sql.NullFloat64
		if r.DistanceMeters != nil {
			meters = sql.NullFloat64{Float64: *r.DistanceMeters, Valid: true}
		}
		_, err := stmt.ExecContext(ctx,
			runID, r.ProbeID, candidate,
			r.CombinedScore, r.NameScore, r.DistanceScore, r.PostcodeScore, meters,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: save result for %s", r.ProbeID)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit save results")
}

func (s *SQLiteStore) ListMatchResults(ctx context.Context, runID string) ([]model.MatchResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT probe_id, candidate, combined_score, name_score, distance_score, postcode_score, distance_meters
		 FROM match_results WHERE run_id = ? ORDER BY rowid`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list results")
	}
	defer rows.Close()

	var results []model.MatchResult
	for rows.Next() {
		var r model.MatchResult
		var candidate sql.NullString
		var meters sql.NullFloat64
		err := rows.Scan(&r.ProbeID, &candidate,
			&r.CombinedScore, &r.NameScore, &r.DistanceScore, &r.PostcodeScore, &meters)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan result")
		}
		if candidate.Valid {
			r.Candidate = &model.Establishment{}
			if err := json.Unmarshal([]byte(candidate.String), r.Candidate); err != nil {
				return nil, eris.Wrap(err, "sqlite: unmarshal candidate")
			}
		}
		if meters.Valid {
			m := meters.Float64
			r.DistanceMeters = &m
		}
		results = append(results, r)
	}
	return results, eris.Wrap(rows.Err(), "sqlite: list results iterate")
}

// helpers

var errRunNotFound = eris.New("match run not found")

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanMatchRun(row scannable) (*model.MatchRun, error) {
	var run model.MatchRun
	var summaryJSON sql.NullString
	var completedAt sql.NullTime

	err := row.Scan(&run.ID, &run.Status, &summaryJSON, &run.StartedAt, &completedAt)
	if err == sql.ErrNoRows {
		return nil, errRunNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan match run")
	}

	if summaryJSON.Valid {
		run.Summary = &model.RunSummary{}
		if err := json.Unmarshal([]byte(summaryJSON.String), run.Summary); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal summary")
		}
	}
	if completedAt.Valid {
		t := completedAt.Time
		run.CompletedAt = &t
	}
	return &run, nil
}
