package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/ldnfood/linkage-cli/internal/db"
	"github.com/ldnfood/linkage-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"insert_match_run":    `INSERT INTO match_runs (id, status, started_at) VALUES ($1, $2, $3)`,
	"complete_match_run":  `UPDATE match_runs SET status = $1, summary = $2, completed_at = $3 WHERE id = $4`,
	"get_match_run":       `SELECT id, status, summary, started_at, completed_at FROM match_runs WHERE id = $1`,
	"list_venues":         `SELECT record FROM venues ORDER BY seq`,
	"list_establishments": `SELECT record FROM establishments ORDER BY seq`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS venues (
	place_id    TEXT PRIMARY KEY,
	record      JSONB NOT NULL,
	seq         BIGSERIAL,
	imported_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS establishments (
	fhrs_id     TEXT PRIMARY KEY,
	record      JSONB NOT NULL,
	seq         BIGSERIAL,
	imported_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS match_runs (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	status       TEXT NOT NULL DEFAULT 'running',
	summary      JSONB,
	started_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	completed_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS match_results (
	run_id          TEXT NOT NULL REFERENCES match_runs(id),
	probe_id        TEXT NOT NULL,
	candidate       JSONB,
	combined_score  DOUBLE PRECISION NOT NULL,
	name_score      DOUBLE PRECISION NOT NULL,
	distance_score  DOUBLE PRECISION NOT NULL,
	postcode_score  DOUBLE PRECISION NOT NULL,
	distance_meters DOUBLE PRECISION,
	seq             BIGSERIAL,
	PRIMARY KEY (run_id, probe_id)
);

CREATE INDEX IF NOT EXISTS idx_venues_seq ON venues(seq);
CREATE INDEX IF NOT EXISTS idx_establishments_seq ON establishments(seq);
CREATE INDEX IF NOT EXISTS idx_match_runs_started ON match_runs(started_at DESC);
CREATE INDEX IF NOT EXISTS idx_match_results_run_id ON match_results(run_id);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) SaveVenues(ctx context.Context, venues []model.Venue) (int, error) {
	rows := make([][]any, 0, len(venues))
	for _, v := range venues {
		record, err := json.Marshal(v)
		if err != nil {
			return 0, eris.Wrapf(err, "postgres: marshal venue %s", v.PlaceID)
		}
		rows = append(rows, []any{v.PlaceID, record})
	}

	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "venues",
		Columns:      []string{"place_id", "record"},
		ConflictKeys: []string{"place_id"},
	}, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: save venues")
	}
	return int(n), nil
}

func (s *PostgresStore) ListVenues(ctx context.Context) ([]model.Venue, error) {
	rows, err := s.pool.Query(ctx, `SELECT record FROM venues ORDER BY seq`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list venues")
	}
	defer rows.Close()

	var venues []model.Venue
	for rows.Next() {
		var record []byte
		if err := rows.Scan(&record); err != nil {
			return nil, eris.Wrap(err, "postgres: scan venue")
		}
		var v model.Venue
		if err := json.Unmarshal(record, &v); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal venue")
		}
		venues = append(venues, v)
	}
	return venues, eris.Wrap(rows.Err(), "postgres: list venues iterate")
}

func (s *PostgresStore) SaveEstablishments(ctx context.Context, ests []model.Establishment) (int, error) {
	rows := make([][]any, 0, len(ests))
	for _, e := range ests {
		record, err := json.Marshal(e)
		if err != nil {
			return 0, eris.Wrapf(err, "postgres: marshal establishment %s", e.FHRSID)
		}
		rows = append(rows, []any{e.FHRSID, record})
	}

	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "establishments",
		Columns:      []string{"fhrs_id", "record"},
		ConflictKeys: []string{"fhrs_id"},
	}, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: save establishments")
	}
	return int(n), nil
}

func (s *PostgresStore) ListEstablishments(ctx context.Context) ([]model.Establishment, error) {
	rows, err := s.pool.Query(ctx, `SELECT record FROM establishments ORDER BY seq`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list establishments")
	}
	defer rows.Close()

	var ests []model.Establishment
	for rows.Next() {
		var record []byte
		if err := rows.Scan(&record); err != nil {
			return nil, eris.Wrap(err, "postgres: scan establishment")
		}
		var e model.Establishment
		if err := json.Unmarshal(record, &e); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal establishment")
		}
		ests = append(ests, e)
	}
	return ests, eris.Wrap(rows.Err(), "postgres: list establishments iterate")
}

func (s *PostgresStore) CreateMatchRun(ctx context.Context) (*model.MatchRun, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO match_runs (id, status, started_at) VALUES ($1, $2, $3)`,
		id, string(model.RunStatusRunning), now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert match run")
	}

	return &model.MatchRun{
		ID:        id,
		Status:    model.RunStatusRunning,
		StartedAt: now,
	}, nil
}

func (s *PostgresStore) CompleteMatchRun(ctx context.Context, runID string, summary *model.RunSummary) error {
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal summary")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE match_runs SET status = $1, summary = $2, completed_at = $3 WHERE id = $4`,
		string(model.RunStatusComplete), summaryJSON, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete match run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("match_run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) FailMatchRun(ctx context.Context, runID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE match_runs SET status = $1, completed_at = $2 WHERE id = $3`,
		string(model.RunStatusFailed), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: fail match run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("match_run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) GetMatchRun(ctx context.Context, runID string) (*model.MatchRun, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, status, summary, started_at, completed_at FROM match_runs WHERE id = $1`,
		runID,
	)
	run, err := scanPostgresMatchRun(row)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get match run %s", runID)
	}
	return run, nil
}

func (s *PostgresStore) LatestMatchRun(ctx context.Context) (*model.MatchRun, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, status, summary, started_at, completed_at FROM match_runs
		 ORDER BY started_at DESC, id DESC LIMIT 1`,
	)
	run, err := scanPostgresMatchRun(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: latest match run")
	}
	return run, nil
}

func (s *PostgresStore) SaveMatchResults(ctx context.Context, runID string, results []model.MatchResult) error {
	rows := make([][]any, 0, len(results))
	for _, r := range results {
		var candidate []byte
		if r.Candidate != nil {
			b, err := json.Marshal(r.Candidate)
			if err != nil {
				return eris.Wrapf(err, "postgres: marshal candidate for %s", r.ProbeID)
			}
			candidate = b
		}
		rows = append(rows, []any{
			runID, r.ProbeID, candidate,
			r.CombinedScore, r.NameScore, r.DistanceScore, r.PostcodeScore, r.DistanceMeters,
		})
	}

	_, err := db.CopyFrom(ctx, s.pool, "match_results",
		[]string{"run_id", "probe_id", "candidate", "combined_score", "name_score", "distance_score", "postcode_score", "distance_meters"},
		rows,
	)
	return eris.Wrap(err, "postgres: save match results")
}

func (s *PostgresStore) ListMatchResults(ctx context.Context, runID string) ([]model.MatchResult, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT probe_id, candidate, combined_score, name_score, distance_score, postcode_score, distance_meters
		 FROM match_results WHERE run_id = $1 ORDER BY seq`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list results")
	}
	defer rows.Close()

	var results []model.MatchResult
	for rows.Next() {
		var r model.MatchResult
		var candidate []byte
		if err := rows.Scan(&r.ProbeID, &candidate,
			&r.CombinedScore, &r.NameScore, &r.DistanceScore, &r.PostcodeScore, &r.DistanceMeters); err != nil {
			return nil, eris.Wrap(err, "postgres: scan result")
		}
		if candidate != nil {
			r.Candidate = &model.Establishment{}
			if err := json.Unmarshal(candidate, r.Candidate); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal candidate")
			}
		}
		results = append(results, r)
	}
	return results, eris.Wrap(rows.Err(), "postgres: list results iterate")
}

func scanPostgresMatchRun(row pgx.Row) (*model.MatchRun, error) {
	var run model.MatchRun
	var summaryJSON []byte

	err := row.Scan(&run.ID, &run.Status, &summaryJSON, &run.StartedAt, &run.CompletedAt)
	if err != nil {
		return nil, err
	}
	if summaryJSON != nil {
		run.Summary = &model.RunSummary{}
		if err := json.Unmarshal(summaryJSON, run.Summary); err != nil {
			return nil, eris.Wrap(err, "unmarshal summary")
		}
	}
	return &run, nil
}
